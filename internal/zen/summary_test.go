/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package zen

import (
	"fmt"
	"testing"
	"time"
)

type fakeFormatter struct{}

func (fakeFormatter) CountdownText(target time.Time, minutes int) (string, string, string) {
	return fmt.Sprintf("for %d minutes", minutes),
		fmt.Sprintf("%dm", minutes),
		"until " + target.UTC().Format("15:04")
}

func (fakeFormatter) Forever() string { return "forever" }

func (fakeFormatter) Combine(a, b string) string { return a + " and " + b }

func TestToTimeConditionTargetMath(t *testing.T) {
	now := time.UnixMilli(1000000)
	condition := ToTimeCondition(now, 30, fakeFormatter{})

	target := TryParseCountdownConditionID(&condition.ID)
	if target != now.Add(30*time.Minute).UnixMilli() {
		t.Fatalf("unexpected target: %d", target)
	}
	if condition.State != StateTrue || condition.Flags != FlagRelevantNow {
		t.Fatalf("unexpected structural fields: %+v", condition)
	}
	if condition.Summary != "for 30 minutes" {
		t.Fatalf("unexpected summary: %q", condition.Summary)
	}
}

func TestToTimeConditionSnapsZeroToTenSeconds(t *testing.T) {
	now := time.UnixMilli(1000000)
	for _, minutes := range []int{0, -5} {
		condition := ToTimeCondition(now, minutes, nil)
		target := TryParseCountdownConditionID(&condition.ID)
		if target != now.Add(10*time.Second).UnixMilli() {
			t.Fatalf("minutes=%d: expected ten second span, got target %d", minutes, target)
		}
	}
}

func TestConditionSummaryManualForever(t *testing.T) {
	cfg := NewConfig()
	cfg.ManualRule = &Rule{Enabled: true, Mode: ModeNoInterruptions}

	if got := ConditionSummary(cfg, time.Now(), fakeFormatter{}); got != "forever" {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestConditionSummaryManualCountdownRecomputed(t *testing.T) {
	now := time.UnixMilli(1000000)
	target := now.Add(45 * time.Minute)

	cfg := NewConfig()
	cfg.ManualRule = &Rule{
		Enabled:     true,
		Mode:        ModeImportantInterruptions,
		ConditionID: ToCountdownConditionID(target.UnixMilli()),
		// Stored condition text is stale on purpose.
		Condition: &Condition{
			ID:      *ToCountdownConditionID(target.UnixMilli()),
			Summary: "for 60 minutes",
			State:   StateTrue,
		},
	}

	if got := ConditionSummary(cfg, now, fakeFormatter{}); got != "for 45 minutes" {
		t.Fatalf("expected recomputed countdown text, got %q", got)
	}
	if got := ConditionLine1(cfg, now, fakeFormatter{}); got != "45m" {
		t.Fatalf("unexpected line1: %q", got)
	}
}

func TestConditionSummaryAutomaticRules(t *testing.T) {
	scheduleURI := ToScheduleConditionID(ScheduleInfo{Days: []int{Monday}, StartHour: 9, EndHour: 17})

	cfg := NewConfig()
	cfg.AutomaticRules["a"] = &Rule{
		Enabled: true, Name: "Evening", Mode: ModeImportantInterruptions,
		ConditionID: scheduleURI.Copy(),
	}
	cfg.AutomaticRules["b"] = &Rule{
		Enabled: true, Name: "Work", Mode: ModeImportantInterruptions,
		ConditionID: scheduleURI.Copy(),
	}
	cfg.AutomaticRules["c"] = &Rule{
		Enabled: true, Snoozing: true, Name: "Snoozed", Mode: ModeImportantInterruptions,
		ConditionID: scheduleURI.Copy(),
	}
	cfg.AutomaticRules["d"] = &Rule{
		Enabled: false, Name: "Disabled", Mode: ModeImportantInterruptions,
		ConditionID: scheduleURI.Copy(),
	}
	falseCondition, err := NewCondition(scheduleURI, "", "", "", 0, StateFalse, 0)
	if err != nil {
		t.Fatalf("new condition: %v", err)
	}
	cfg.AutomaticRules["e"] = &Rule{
		Enabled: true, Name: "Inactive", Mode: ModeImportantInterruptions,
		ConditionID: scheduleURI.Copy(), Condition: falseCondition,
	}

	if got := ConditionSummary(cfg, time.Now(), fakeFormatter{}); got != "Evening and Work" {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestConditionSummaryEmptyWhenNothingActive(t *testing.T) {
	if got := ConditionSummary(NewConfig(), time.Now(), fakeFormatter{}); got != "" {
		t.Fatalf("expected empty summary, got %q", got)
	}
	if got := ConditionSummary(nil, time.Now(), fakeFormatter{}); got != "" {
		t.Fatalf("expected empty summary for nil config, got %q", got)
	}
}
