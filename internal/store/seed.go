/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/quietd/internal/zen"
)

// SeedRule describes one default automatic rule in the seed file:
//
//	rules:
//	  - name: Sleeping
//	    days: [1, 2, 3, 4, 5, 6, 7]
//	    start: "22:00"
//	    end: "07:00"
//	    mode: important_interruptions
type SeedRule struct {
	Name  string `yaml:"name"`
	Days  []int  `yaml:"days"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	Mode  string `yaml:"mode"`
}

type seedFile struct {
	Rules []SeedRule `yaml:"rules"`
}

// LoadSeeds reads default rules from a YAML file.
func LoadSeeds(path string) ([]SeedRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return file.Rules, nil
}

// Rule converts the seed entry into an automatic rule.
func (s SeedRule) Rule() (*zen.Rule, error) {
	if strings.TrimSpace(s.Name) == "" {
		return nil, fmt.Errorf("seed rule requires a name")
	}
	if len(s.Days) == 0 {
		return nil, fmt.Errorf("seed rule %q requires days", s.Name)
	}

	startHour, startMinute, err := parseClock(s.Start)
	if err != nil {
		return nil, fmt.Errorf("seed rule %q: %w", s.Name, err)
	}
	endHour, endMinute, err := parseClock(s.End)
	if err != nil {
		return nil, fmt.Errorf("seed rule %q: %w", s.Name, err)
	}

	mode := zen.ModeImportantInterruptions
	switch s.Mode {
	case "", "important_interruptions":
	case "no_interruptions":
		mode = zen.ModeNoInterruptions
	case "alarms":
		mode = zen.ModeAlarms
	default:
		return nil, fmt.Errorf("seed rule %q: unknown mode %q", s.Name, s.Mode)
	}

	schedule := zen.ScheduleInfo{
		Days:        append([]int(nil), s.Days...),
		StartHour:   startHour,
		StartMinute: startMinute,
		EndHour:     endHour,
		EndMinute:   endMinute,
	}
	id := zen.ToScheduleConditionID(schedule)
	if !zen.IsValidScheduleConditionID(id) {
		return nil, fmt.Errorf("seed rule %q: invalid schedule", s.Name)
	}

	return &zen.Rule{
		Enabled:     true,
		Name:        s.Name,
		Mode:        mode,
		ConditionID: id,
	}, nil
}

func parseClock(value string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0, 0, fmt.Errorf("bad time %q, want HH:MM", value)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil || !zen.IsValidHour(hour) {
		return 0, 0, fmt.Errorf("bad hour in %q", value)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || !zen.IsValidMinute(minute) {
		return 0, 0, fmt.Errorf("bad minute in %q", value)
	}
	return hour, minute, nil
}
