/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package zen

// Priority category bits of a notification policy.
const (
	PriorityCategoryReminders     = 1 << 0
	PriorityCategoryEvents        = 1 << 1
	PriorityCategoryMessages      = 1 << 2
	PriorityCategoryCalls         = 1 << 3
	PriorityCategoryRepeatCallers = 1 << 4
)

// Priority sender filters of a notification policy.
const (
	PrioritySendersAny      = 0
	PrioritySendersContacts = 1
	PrioritySendersStarred  = 2
)

// Policy is the coarse notification-policy view of a config: one bit per
// allowed category plus a tri-state sender filter.
type Policy struct {
	PriorityCategories int `json:"priority_categories"`
	PrioritySenders    int `json:"priority_senders"`
}

// ToNotificationPolicy maps the allow-flags onto the policy bitmask.
func (c *Config) ToNotificationPolicy() Policy {
	categories := 0
	if c.AllowCalls {
		categories |= PriorityCategoryCalls
	}
	if c.AllowMessages {
		categories |= PriorityCategoryMessages
	}
	if c.AllowEvents {
		categories |= PriorityCategoryEvents
	}
	if c.AllowReminders {
		categories |= PriorityCategoryReminders
	}
	if c.AllowRepeatCallers {
		categories |= PriorityCategoryRepeatCallers
	}

	senders := PrioritySendersAny
	switch c.AllowFrom {
	case SourceContacts:
		senders = PrioritySendersContacts
	case SourceStarred:
		senders = PrioritySendersStarred
	}
	return Policy{PriorityCategories: categories, PrioritySenders: senders}
}

// ApplyNotificationPolicy overwrites the allow-flags and sender filter from
// the policy. A nil policy is a no-op.
func (c *Config) ApplyNotificationPolicy(policy *Policy) {
	if policy == nil {
		return
	}
	c.AllowCalls = policy.PriorityCategories&PriorityCategoryCalls != 0
	c.AllowMessages = policy.PriorityCategories&PriorityCategoryMessages != 0
	c.AllowEvents = policy.PriorityCategories&PriorityCategoryEvents != 0
	c.AllowReminders = policy.PriorityCategories&PriorityCategoryReminders != 0
	c.AllowRepeatCallers = policy.PriorityCategories&PriorityCategoryRepeatCallers != 0

	switch policy.PrioritySenders {
	case PrioritySendersContacts:
		c.AllowFrom = SourceContacts
	case PrioritySendersStarred:
		c.AllowFrom = SourceStarred
	default:
		c.AllowFrom = SourceAnyone
	}
}
