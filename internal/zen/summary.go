/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package zen

import (
	"math"
	"sort"
	"time"
)

const zeroValueSpan = 10 * time.Second

// SummaryFormatter produces the human-readable parts of generated
// conditions. Locale-aware formatting belongs to the caller; this package
// only fixes the numeric target times.
type SummaryFormatter interface {
	// CountdownText renders summary/line1/line2 for a countdown ending at
	// target, expressed as roughly minutes from now.
	CountdownText(target time.Time, minutes int) (summary, line1, line2 string)
	// Forever describes a manual rule with no exit condition.
	Forever() string
	// Combine joins two active rule names.
	Combine(a, b string) string
}

// ToTimeCondition builds a countdown condition ending minutesFromNow from
// now. Negative durations are treated as zero, and zero is snapped to a
// ten second span so the condition never starts out already expired.
func ToTimeCondition(now time.Time, minutesFromNow int, formatter SummaryFormatter) *Condition {
	span := time.Duration(minutesFromNow) * time.Minute
	if span <= 0 {
		span = zeroValueSpan
	}
	return timeConditionAt(now.Add(span), minutesFromNow, formatter)
}

func timeConditionAt(target time.Time, minutes int, formatter SummaryFormatter) *Condition {
	var summary, line1, line2 string
	if formatter != nil {
		summary, line1, line2 = formatter.CountdownText(target, minutes)
	}
	return &Condition{
		ID:      *ToCountdownConditionID(target.UnixMilli()),
		Summary: summary,
		Line1:   line1,
		Line2:   line2,
		State:   StateTrue,
		Flags:   FlagRelevantNow,
	}
}

// ConditionSummary describes the active zen state using condition summary
// text. Empty when nothing is active.
func ConditionSummary(cfg *Config, now time.Time, formatter SummaryFormatter) string {
	return conditionLine(cfg, now, formatter, false)
}

// ConditionLine1 is ConditionSummary using the shorter line1 text.
func ConditionLine1(cfg *Config, now time.Time, formatter SummaryFormatter) string {
	return conditionLine(cfg, now, formatter, true)
}

func conditionLine(cfg *Config, now time.Time, formatter SummaryFormatter, useLine1 bool) string {
	if cfg == nil {
		return ""
	}
	if cfg.ManualRule != nil {
		id := cfg.ManualRule.ConditionID
		if id == nil {
			if formatter == nil {
				return ""
			}
			return formatter.Forever()
		}
		condition := cfg.ManualRule.Condition
		if target := TryParseCountdownConditionID(id); target > 0 {
			// Recompute the countdown text relative to the query time; the
			// stored condition predates it.
			span := time.UnixMilli(target).Sub(now)
			minutes := int(math.Round(span.Minutes()))
			condition = timeConditionAt(time.UnixMilli(target), minutes, formatter)
		}
		if condition == nil {
			return ""
		}
		if useLine1 {
			return condition.Line1
		}
		return condition.Summary
	}

	names := make([]string, 0, len(cfg.AutomaticRules))
	for _, rule := range cfg.AutomaticRules {
		if rule.Enabled && !rule.Snoozing && rule.IsTrueOrUnknown() {
			names = append(names, rule.Name)
		}
	}
	sort.Strings(names)

	summary := ""
	for _, name := range names {
		if summary == "" {
			summary = name
		} else if formatter != nil {
			summary = formatter.Combine(summary, name)
		} else {
			summary = summary + ", " + name
		}
	}
	return summary
}
