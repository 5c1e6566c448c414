/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import "github.com/friendsincode/quietd/internal/zen"

// DefaultMigration converts a version-1 document to the rule-based schema.
// The sleep block becomes a schedule-driven automatic rule and the exit
// condition becomes the manual rule.
func DefaultMigration(legacy *zen.XmlV1) (*zen.Config, error) {
	cfg := zen.NewConfig()
	cfg.AllowCalls = legacy.AllowCalls
	cfg.AllowMessages = legacy.AllowMessages
	cfg.AllowReminders = legacy.AllowReminders
	cfg.AllowEvents = legacy.AllowEvents
	cfg.AllowFrom = legacy.AllowFrom

	if days := zen.TryParseLegacyDays(legacy.SleepMode); len(days) > 0 {
		mode := zen.ModeImportantInterruptions
		if legacy.SleepNone {
			mode = zen.ModeNoInterruptions
		}
		schedule := zen.ScheduleInfo{
			Days:        days,
			StartHour:   legacy.SleepStartHour,
			StartMinute: legacy.SleepStartMinute,
			EndHour:     legacy.SleepEndHour,
			EndMinute:   legacy.SleepEndMinute,
		}
		cfg.AutomaticRules[zen.NewRuleID()] = &zen.Rule{
			Enabled:     true,
			Name:        "Sleeping",
			Mode:        mode,
			ConditionID: zen.ToScheduleConditionID(schedule),
		}
	}

	if legacy.ExitCondition != nil {
		cfg.ManualRule = &zen.Rule{
			Enabled:     true,
			Mode:        zen.ModeImportantInterruptions,
			ConditionID: legacy.ExitCondition.ID.Copy(),
			Condition:   legacy.ExitCondition.Copy(),
			Component:   legacy.ExitConditionComponent,
		}
	}

	return cfg, nil
}
