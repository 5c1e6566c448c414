/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package zen

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Legacy sleep mode values.
const (
	SleepModeNights     = "nights"
	SleepModeWeeknights = "weeknights"
	SleepModeDaysPrefix = "days:"
)

const (
	sleepTag         = "sleep"
	sleepAttMode     = "mode"
	sleepAttNone     = "none"
	sleepAttStartHr  = "startHour"
	sleepAttStartMin = "startMin"
	sleepAttEndHr    = "endHour"
	sleepAttEndMin   = "endMin"

	exitConditionTag          = "exitCondition"
	exitConditionAttComponent = "component"
)

// XmlV1 is the faithfully parsed version-1 document: separate sleep-mode
// fields, a flat condition provider list and a single manual exit condition.
// Conversion to the rule-based schema is the Migration callback's job.
type XmlV1 struct {
	AllowCalls     bool
	AllowMessages  bool
	AllowReminders bool
	AllowEvents    bool
	AllowFrom      Source

	SleepMode        string // nights, weeknights, days:1,2,3
	SleepStartHour   int
	SleepStartMinute int
	SleepEndHour     int
	SleepEndMinute   int
	SleepNone        bool // false = priority, true = none

	ConditionComponents []ComponentRef
	ConditionIDs        []*ConditionURI

	ExitCondition          *Condition
	ExitConditionComponent *ComponentRef
}

// TryParseLegacyDays decodes a legacy sleep mode into its day list. The
// named modes map to fixed day sets; "days:" carries a comma-joined list.
func TryParseLegacyDays(sleepMode string) []int {
	sleepMode = strings.TrimSpace(sleepMode)
	switch {
	case sleepMode == SleepModeNights:
		return append([]int(nil), AllDays...)
	case sleepMode == SleepModeWeeknights:
		return append([]int(nil), WeeknightDays...)
	case sleepMode == SleepModeDaysPrefix:
		return nil
	case strings.HasPrefix(sleepMode, SleepModeDaysPrefix):
		return tryParseDayList(strings.TrimPrefix(sleepMode, SleepModeDaysPrefix), ",")
	default:
		return nil
	}
}

func isValidSleepMode(sleepMode string) bool {
	return sleepMode == "" || sleepMode == SleepModeNights ||
		sleepMode == SleepModeWeeknights || TryParseLegacyDays(sleepMode) != nil
}

// readXmlV1 consumes the remainder of a version-1 document. The root start
// tag has already been read by ReadXML.
func readXmlV1(dec *xml.Decoder) (*XmlV1, error) {
	legacy := &XmlV1{
		AllowReminders: defaultAllowReminders,
		AllowEvents:    defaultAllowEvents,
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, ErrUnexpectedEnd
		}
		if err != nil {
			return nil, fmt.Errorf("zen: read legacy token: %w", err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == zenTag {
				return legacy, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case allowTag:
				legacy.AllowCalls = safeBool(t.Attr, allowAttCalls, false)
				legacy.AllowMessages = safeBool(t.Attr, allowAttMessages, false)
				legacy.AllowReminders = safeBool(t.Attr, allowAttReminders, defaultAllowReminders)
				legacy.AllowEvents = safeBool(t.Attr, allowAttEvents, defaultAllowEvents)
				legacy.AllowFrom = Source(safeInt(t.Attr, allowAttFrom, int(SourceAnyone)))
				if legacy.AllowFrom < SourceAnyone || legacy.AllowFrom > maxSource {
					return nil, fmt.Errorf("%w: %d", ErrBadSource, legacy.AllowFrom)
				}
			case sleepTag:
				mode := attr(t.Attr, sleepAttMode)
				if isValidSleepMode(mode) {
					legacy.SleepMode = mode
				}
				legacy.SleepNone = safeBool(t.Attr, sleepAttNone, false)
				legacy.SleepStartHour = clampHour(safeInt(t.Attr, sleepAttStartHr, 0))
				legacy.SleepStartMinute = clampMinute(safeInt(t.Attr, sleepAttStartMin, 0))
				legacy.SleepEndHour = clampHour(safeInt(t.Attr, sleepAttEndHr, 0))
				legacy.SleepEndMinute = clampMinute(safeInt(t.Attr, sleepAttEndMin, 0))
			case conditionTag:
				componentValue := attr(t.Attr, exitConditionAttComponent)
				component := UnflattenComponent(componentValue)
				id := safeURI(t.Attr, conditionAttID)
				if component != nil && id != nil {
					legacy.ConditionComponents = append(legacy.ConditionComponents, *component)
					legacy.ConditionIDs = append(legacy.ConditionIDs, id)
				}
			case exitConditionTag:
				legacy.ExitCondition = readConditionXML(t.Attr)
				if legacy.ExitCondition != nil {
					legacy.ExitConditionComponent = UnflattenComponent(attr(t.Attr, exitConditionAttComponent))
				}
			}
			if err := dec.Skip(); err != nil {
				return nil, skipErr(err)
			}
		}
	}
}

func clampHour(val int) int {
	if IsValidHour(val) {
		return val
	}
	return 0
}

func clampMinute(val int) int {
	if IsValidMinute(val) {
		return val
	}
	return 0
}
