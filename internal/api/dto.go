/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"fmt"
	"sort"

	"github.com/friendsincode/quietd/internal/zen"
)

// conditionJSON is the wire form of a condition.
type conditionJSON struct {
	ID      string `json:"id"`
	Summary string `json:"summary,omitempty"`
	Line1   string `json:"line1,omitempty"`
	Line2   string `json:"line2,omitempty"`
	Icon    int    `json:"icon,omitempty"`
	State   int    `json:"state"`
	Flags   int    `json:"flags,omitempty"`
}

// ruleJSON is the wire form of a rule. ID is empty for the manual rule.
type ruleJSON struct {
	ID          string         `json:"id,omitempty"`
	Enabled     bool           `json:"enabled"`
	Snoozing    bool           `json:"snoozing,omitempty"`
	Name        string         `json:"name,omitempty"`
	Mode        int            `json:"mode"`
	ConditionID string         `json:"condition_id,omitempty"`
	Condition   *conditionJSON `json:"condition,omitempty"`
	Component   string         `json:"component,omitempty"`
}

// configJSON is the wire form of a full configuration.
type configJSON struct {
	AllowCalls         bool       `json:"allow_calls"`
	AllowMessages      bool       `json:"allow_messages"`
	AllowReminders     bool       `json:"allow_reminders"`
	AllowEvents        bool       `json:"allow_events"`
	AllowRepeatCallers bool       `json:"allow_repeat_callers"`
	AllowFrom          int        `json:"allow_from"`
	Manual             *ruleJSON  `json:"manual,omitempty"`
	Rules              []ruleJSON `json:"rules"`
}

func conditionToJSON(c *zen.Condition) *conditionJSON {
	if c == nil {
		return nil
	}
	return &conditionJSON{
		ID:      c.ID.String(),
		Summary: c.Summary,
		Line1:   c.Line1,
		Line2:   c.Line2,
		Icon:    c.Icon,
		State:   int(c.State),
		Flags:   c.Flags,
	}
}

func ruleToJSON(id string, rule *zen.Rule) ruleJSON {
	out := ruleJSON{
		ID:        id,
		Enabled:   rule.Enabled,
		Snoozing:  rule.Snoozing,
		Name:      rule.Name,
		Mode:      int(rule.Mode),
		Condition: conditionToJSON(rule.Condition),
	}
	if rule.ConditionID != nil {
		out.ConditionID = rule.ConditionID.String()
	}
	if rule.Component != nil {
		out.Component = rule.Component.Flatten()
	}
	return out
}

func configToJSON(cfg *zen.Config) configJSON {
	out := configJSON{
		AllowCalls:         cfg.AllowCalls,
		AllowMessages:      cfg.AllowMessages,
		AllowReminders:     cfg.AllowReminders,
		AllowEvents:        cfg.AllowEvents,
		AllowRepeatCallers: cfg.AllowRepeatCallers,
		AllowFrom:          int(cfg.AllowFrom),
		Rules:              []ruleJSON{},
	}
	if cfg.ManualRule != nil {
		manual := ruleToJSON("", cfg.ManualRule)
		out.Manual = &manual
	}

	ids := make([]string, 0, len(cfg.AutomaticRules))
	for id := range cfg.AutomaticRules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out.Rules = append(out.Rules, ruleToJSON(id, cfg.AutomaticRules[id]))
	}
	return out
}

func conditionFromJSON(in *conditionJSON) (*zen.Condition, error) {
	if in == nil {
		return nil, nil
	}
	id, err := zen.ParseConditionURI(in.ID)
	if err != nil {
		return nil, fmt.Errorf("condition id: %w", err)
	}
	return zen.NewCondition(id, in.Summary, in.Line1, in.Line2, in.Icon, zen.State(in.State), in.Flags)
}

func ruleFromJSON(in ruleJSON) (*zen.Rule, error) {
	rule := &zen.Rule{
		Enabled:  in.Enabled,
		Snoozing: in.Snoozing,
		Name:     in.Name,
		Mode:     zen.Mode(in.Mode),
	}
	if !zen.IsValidMode(rule.Mode) {
		return nil, fmt.Errorf("unknown mode %d", in.Mode)
	}
	if in.ConditionID != "" {
		id, err := zen.ParseConditionURI(in.ConditionID)
		if err != nil {
			return nil, fmt.Errorf("condition id: %w", err)
		}
		rule.ConditionID = id
	}
	condition, err := conditionFromJSON(in.Condition)
	if err != nil {
		return nil, err
	}
	rule.Condition = condition
	if in.Component != "" {
		ref := zen.UnflattenComponent(in.Component)
		if ref == nil {
			return nil, fmt.Errorf("bad component %q", in.Component)
		}
		rule.Component = ref
	}
	return rule, nil
}

func configFromJSON(in configJSON) (*zen.Config, error) {
	cfg := zen.NewConfig()
	cfg.AllowCalls = in.AllowCalls
	cfg.AllowMessages = in.AllowMessages
	cfg.AllowReminders = in.AllowReminders
	cfg.AllowEvents = in.AllowEvents
	cfg.AllowRepeatCallers = in.AllowRepeatCallers
	cfg.AllowFrom = zen.Source(in.AllowFrom)
	if cfg.AllowFrom < zen.SourceAnyone || cfg.AllowFrom > zen.SourceStarred {
		return nil, fmt.Errorf("allow_from out of range: %d", in.AllowFrom)
	}

	if in.Manual != nil {
		manual, err := ruleFromJSON(*in.Manual)
		if err != nil {
			return nil, fmt.Errorf("manual rule: %w", err)
		}
		cfg.ManualRule = manual
	}

	for _, ruleIn := range in.Rules {
		id := ruleIn.ID
		if id == "" {
			id = zen.NewRuleID()
		}
		rule, err := ruleFromJSON(ruleIn)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", ruleIn.Name, err)
		}
		cfg.AutomaticRules[id] = rule
	}
	return cfg, nil
}
