/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package zen

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the URI scheme shared by all condition identifiers.
const Scheme = "condition"

// SystemAuthority is the authority used by built-in condition schemes.
const SystemAuthority = "android"

// State of an evaluable condition.
type State int

const (
	StateFalse   State = 0
	StateTrue    State = 1
	StateUnknown State = 2
	StateError   State = 3
)

// IsValidState reports whether s is a recognized condition state.
func IsValidState(s State) bool {
	return s >= StateFalse && s <= StateError
}

// Condition relevance flags.
const (
	FlagRelevantNow    = 1 << 0
	FlagRelevantAlways = 1 << 1
)

// ConditionURI is a parsed condition identifier. The canonical string form
// is what gets persisted; structural accessors are derived on demand.
type ConditionURI struct {
	raw string
	u   *url.URL
}

// ParseConditionURI parses a condition identifier. Any string url.Parse
// accepts is kept verbatim; built-in scheme checks happen at use sites.
func ParseConditionURI(s string) (*ConditionURI, error) {
	if s == "" {
		return nil, fmt.Errorf("empty condition uri")
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse condition uri: %w", err)
	}
	return &ConditionURI{raw: s, u: u}, nil
}

// MustConditionURI is ParseConditionURI for known-good literals.
func MustConditionURI(s string) *ConditionURI {
	u, err := ParseConditionURI(s)
	if err != nil {
		panic(err)
	}
	return u
}

func (c *ConditionURI) String() string {
	if c == nil {
		return ""
	}
	return c.raw
}

// Equal compares identifiers by canonical string.
func (c *ConditionURI) Equal(other *ConditionURI) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.raw == other.raw
}

// Copy returns a copy safe to hold independently of the original.
func (c *ConditionURI) Copy() *ConditionURI {
	if c == nil {
		return nil
	}
	u := *c.u
	return &ConditionURI{raw: c.raw, u: &u}
}

func (c *ConditionURI) scheme() string    { return c.u.Scheme }
func (c *ConditionURI) authority() string { return c.u.Host }
func (c *ConditionURI) query() url.Values { return c.u.Query() }

// pathSegments splits the URI path on "/" with the leading slash removed.
func (c *ConditionURI) pathSegments() []string {
	p := c.u.EscapedPath()
	if len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// isValidSystemID reports whether the identifier uses the condition scheme
// under the given authority.
func isValidSystemID(c *ConditionURI, authority string) bool {
	return c != nil && c.scheme() == Scheme && c.authority() == authority
}

// Condition is the reported state of an evaluable trigger.
type Condition struct {
	ID      ConditionURI
	Summary string
	Line1   string
	Line2   string
	Icon    int
	State   State
	Flags   int
}

// NewCondition builds a condition, rejecting unrecognized states.
func NewCondition(id *ConditionURI, summary, line1, line2 string, icon int, state State, flags int) (*Condition, error) {
	if id == nil {
		return nil, fmt.Errorf("condition requires an id")
	}
	if !IsValidState(state) {
		return nil, fmt.Errorf("invalid condition state: %d", state)
	}
	return &Condition{
		ID:      *id,
		Summary: summary,
		Line1:   line1,
		Line2:   line2,
		Icon:    icon,
		State:   state,
		Flags:   flags,
	}, nil
}

// Equal compares two conditions field for field.
func (c *Condition) Equal(other *Condition) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.ID.raw == other.ID.raw &&
		c.Summary == other.Summary &&
		c.Line1 == other.Line1 &&
		c.Line2 == other.Line2 &&
		c.Icon == other.Icon &&
		c.State == other.State &&
		c.Flags == other.Flags
}

// Copy returns a deep copy of the condition.
func (c *Condition) Copy() *Condition {
	if c == nil {
		return nil
	}
	out := *c
	u := *c.ID.u
	out.ID.u = &u
	return &out
}

func (c *Condition) String() string {
	return fmt.Sprintf("zen.Condition[id=%s,state=%d,flags=%d]", c.ID.raw, c.State, c.Flags)
}
