/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"fmt"
	"time"
)

// EnglishFormatter renders condition text in plain English. A localized
// deployment can swap in its own implementation.
type EnglishFormatter struct{}

func (EnglishFormatter) CountdownText(target time.Time, minutes int) (summary, line1, line2 string) {
	span := durationText(minutes)
	until := target.Format("15:04")
	return fmt.Sprintf("For %s (until %s)", span, until), "For " + span, "Until " + until
}

func (EnglishFormatter) Forever() string {
	return "Until turned off"
}

func (EnglishFormatter) Combine(a, b string) string {
	return a + ", " + b
}

func durationText(minutes int) string {
	switch {
	case minutes < 1:
		return "less than a minute"
	case minutes == 1:
		return "1 minute"
	case minutes < 60:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes == 60:
		return "1 hour"
	case minutes%60 == 0:
		return fmt.Sprintf("%d hours", minutes/60)
	default:
		return fmt.Sprintf("%d hours %d minutes", minutes/60, minutes%60)
	}
}
