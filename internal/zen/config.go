/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package zen implements the do-not-disturb configuration model: global
// allow-flags, a manual override rule, named automatic rules, their
// countdown/schedule conditions, XML persistence and the mapping to the
// coarser notification policy bitmask.
package zen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Interruption sources for calls and messages.
type Source int

const (
	SourceAnyone   Source = 0
	SourceContacts Source = 1
	SourceStarred  Source = 2

	maxSource = SourceStarred
)

// Zen mode values a rule may request.
type Mode int

const (
	ModeOff                    Mode = 0
	ModeImportantInterruptions Mode = 1
	ModeNoInterruptions        Mode = 2
	ModeAlarms                 Mode = 3
)

// IsValidMode reports whether m is a recognized zen mode.
func IsValidMode(m Mode) bool {
	return m >= ModeOff && m <= ModeAlarms
}

// ModeString returns a human-readable name for a zen mode.
func ModeString(m Mode) string {
	switch m {
	case ModeOff:
		return "off"
	case ModeImportantInterruptions:
		return "important_interruptions"
	case ModeNoInterruptions:
		return "no_interruptions"
	case ModeAlarms:
		return "alarms"
	default:
		return "unknown"
	}
}

const (
	defaultAllowReminders = true
	defaultAllowEvents    = true
)

// Config is the complete do-not-disturb configuration for one profile.
type Config struct {
	AllowCalls         bool
	AllowMessages      bool
	AllowReminders     bool
	AllowEvents        bool
	AllowRepeatCallers bool
	AllowFrom          Source

	// ManualRule is the user's current ad hoc override, at most one.
	ManualRule *Rule

	// AutomaticRules maps rule IDs to provider-driven rules.
	AutomaticRules map[string]*Rule
}

// NewConfig returns a config with the documented defaults applied.
func NewConfig() *Config {
	return &Config{
		AllowReminders: defaultAllowReminders,
		AllowEvents:    defaultAllowEvents,
		AllowFrom:      SourceAnyone,
		AutomaticRules: map[string]*Rule{},
	}
}

// Rule is one named do-not-disturb policy, manual or automatic.
type Rule struct {
	Enabled     bool
	Snoozing    bool   // user temporarily disabled this instance
	Name        string // required and unique for automatic rules
	Mode        Mode
	ConditionID *ConditionURI // required for automatic rules
	Condition   *Condition
	Component   *ComponentRef // owning condition provider, optional
}

// ComponentRef identifies a condition provider component as "pkg/name".
type ComponentRef struct {
	Package string
	Name    string
}

// Flatten renders the reference in its persisted form.
func (c ComponentRef) Flatten() string {
	return c.Package + "/" + c.Name
}

// UnflattenComponent parses a "pkg/name" reference. Returns nil when the
// string does not contain both parts.
func UnflattenComponent(s string) *ComponentRef {
	pkg, name, ok := strings.Cut(s, "/")
	if !ok || pkg == "" || name == "" {
		return nil
	}
	return &ComponentRef{Package: pkg, Name: name}
}

// IsValid reports whether the manual rule (if present) and every automatic
// rule satisfy their invariants. It never mutates the config.
func (c *Config) IsValid() bool {
	if c == nil {
		return false
	}
	if !isValidManualRule(c.ManualRule) {
		return false
	}
	for _, rule := range c.AutomaticRules {
		if !isValidAutomaticRule(rule) {
			return false
		}
	}
	return true
}

func isValidManualRule(rule *Rule) bool {
	return rule == nil || (IsValidMode(rule.Mode) && sameCondition(rule))
}

func isValidAutomaticRule(rule *Rule) bool {
	return rule != nil && rule.Name != "" && IsValidMode(rule.Mode) &&
		rule.ConditionID != nil && sameCondition(rule)
}

// sameCondition checks condition consistency: an embedded condition may only
// be present when the rule has a condition id, and must carry the same id.
func sameCondition(rule *Rule) bool {
	if rule == nil {
		return false
	}
	if rule.ConditionID == nil {
		return rule.Condition == nil
	}
	return rule.Condition == nil || rule.ConditionID.Equal(&rule.Condition.ID)
}

// IsTrueOrUnknown reports whether the rule's condition is currently firing
// or has never reported. Rules without a condition count as firing.
func (r *Rule) IsTrueOrUnknown() bool {
	return r.Condition == nil || r.Condition.State == StateTrue ||
		r.Condition.State == StateUnknown
}

// Equal compares two rules field for field.
func (r *Rule) Equal(other *Rule) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Enabled != other.Enabled || r.Snoozing != other.Snoozing ||
		r.Name != other.Name || r.Mode != other.Mode {
		return false
	}
	if !r.ConditionID.Equal(other.ConditionID) {
		return false
	}
	if !r.Condition.Equal(other.Condition) {
		return false
	}
	if (r.Component == nil) != (other.Component == nil) {
		return false
	}
	return r.Component == nil || *r.Component == *other.Component
}

// Copy returns a deep copy of the rule.
func (r *Rule) Copy() *Rule {
	if r == nil {
		return nil
	}
	out := *r
	out.ConditionID = r.ConditionID.Copy()
	out.Condition = r.Condition.Copy()
	if r.Component != nil {
		component := *r.Component
		out.Component = &component
	}
	return &out
}

// Equal compares two configs field for field, including rule map contents.
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.AllowCalls != other.AllowCalls ||
		c.AllowMessages != other.AllowMessages ||
		c.AllowReminders != other.AllowReminders ||
		c.AllowEvents != other.AllowEvents ||
		c.AllowRepeatCallers != other.AllowRepeatCallers ||
		c.AllowFrom != other.AllowFrom {
		return false
	}
	if !c.ManualRule.Equal(other.ManualRule) {
		return false
	}
	if len(c.AutomaticRules) != len(other.AutomaticRules) {
		return false
	}
	for id, rule := range c.AutomaticRules {
		if !rule.Equal(other.AutomaticRules[id]) {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the config.
func (c *Config) Copy() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.ManualRule = c.ManualRule.Copy()
	out.AutomaticRules = make(map[string]*Rule, len(c.AutomaticRules))
	for id, rule := range c.AutomaticRules {
		out.AutomaticRules[id] = rule.Copy()
	}
	return &out
}

// AutomaticRuleNames returns the sorted set of automatic rule names.
func (c *Config) AutomaticRuleNames() []string {
	seen := map[string]bool{}
	for _, rule := range c.AutomaticRules {
		seen[rule.Name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRuleID generates a fresh automatic rule key.
func NewRuleID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (c *Config) String() string {
	return fmt.Sprintf("zen.Config[allowCalls=%v,allowMessages=%v,allowFrom=%s,allowReminders=%v,allowEvents=%v,allowRepeatCallers=%v,automaticRules=%d,manualRule=%v]",
		c.AllowCalls, c.AllowMessages, sourceString(c.AllowFrom),
		c.AllowReminders, c.AllowEvents, c.AllowRepeatCallers,
		len(c.AutomaticRules), c.ManualRule != nil)
}

func sourceString(s Source) string {
	switch s {
	case SourceAnyone:
		return "anyone"
	case SourceContacts:
		return "contacts"
	case SourceStarred:
		return "starred"
	default:
		return "unknown"
	}
}
