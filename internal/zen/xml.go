/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package zen

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
)

// XMLVersion is the current persisted document version. Version 1 documents
// use the legacy schema and are handed to the caller's Migration callback.
const XMLVersion = 2

const (
	zenTag        = "zen"
	zenAttVersion = "version"

	allowTag              = "allow"
	allowAttCalls         = "calls"
	allowAttMessages      = "messages"
	allowAttReminders     = "reminders"
	allowAttEvents        = "events"
	allowAttRepeatCallers = "repeatCallers"
	allowAttFrom          = "from"

	manualTag    = "manual"
	automaticTag = "automatic"

	ruleAttID          = "id"
	ruleAttEnabled     = "enabled"
	ruleAttSnoozing    = "snoozing"
	ruleAttName        = "name"
	ruleAttZen         = "zen"
	ruleAttComponent   = "component"
	ruleAttConditionID = "conditionId"

	conditionTag        = "condition"
	conditionAttID      = "id"
	conditionAttSummary = "summary"
	conditionAttLine1   = "line1"
	conditionAttLine2   = "line2"
	conditionAttIcon    = "icon"
	conditionAttState   = "state"
	conditionAttFlags   = "flags"
)

// Fatal parse errors.
var (
	ErrBadRootTag    = errors.New("zen: unexpected root tag")
	ErrBadSource     = errors.New("zen: allow source out of range")
	ErrUnexpectedEnd = errors.New("zen: document ended before closing zen tag")
	ErrNoMigration   = errors.New("zen: version 1 document requires a migration callback")
)

// Migration converts a faithfully parsed legacy document into the current
// schema. The mapping policy (rule naming, which rule wins) belongs to the
// caller; this package only guarantees a correct legacy parse.
type Migration func(legacy *XmlV1) (*Config, error)

// DroppedRuleObserver, when set, is invoked with a short reason for every
// rule discarded during parsing. Used to feed metrics.
var DroppedRuleObserver func(reason string)

func notifyDropped(reason string) {
	if DroppedRuleObserver != nil {
		DroppedRuleObserver(reason)
	}
}

// ReadXML parses a zen configuration document from the decoder's token
// stream. Rules with an unrecognized zen mode, or automatic rules missing
// their required condition id or rule id, are dropped with a warning;
// structural problems abort the parse.
func ReadXML(dec *xml.Decoder, migration Migration) (*Config, error) {
	root, err := nextStart(dec)
	if err != nil {
		return nil, err
	}
	if root.Name.Local != zenTag {
		return nil, fmt.Errorf("%w: %q", ErrBadRootTag, root.Name.Local)
	}

	version := safeInt(root.Attr, zenAttVersion, XMLVersion)
	if version == 1 {
		if migration == nil {
			return nil, ErrNoMigration
		}
		legacy, err := readXmlV1(dec)
		if err != nil {
			return nil, err
		}
		return migration(legacy)
	}

	cfg := NewConfig()
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, ErrUnexpectedEnd
		}
		if err != nil {
			return nil, fmt.Errorf("zen: read token: %w", err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == zenTag {
				return cfg, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case allowTag:
				cfg.AllowCalls = safeBool(t.Attr, allowAttCalls, false)
				cfg.AllowMessages = safeBool(t.Attr, allowAttMessages, false)
				cfg.AllowReminders = safeBool(t.Attr, allowAttReminders, defaultAllowReminders)
				cfg.AllowEvents = safeBool(t.Attr, allowAttEvents, defaultAllowEvents)
				cfg.AllowRepeatCallers = safeBool(t.Attr, allowAttRepeatCallers, false)
				cfg.AllowFrom = Source(safeInt(t.Attr, allowAttFrom, int(SourceAnyone)))
				if cfg.AllowFrom < SourceAnyone || cfg.AllowFrom > maxSource {
					return nil, fmt.Errorf("%w: %d", ErrBadSource, cfg.AllowFrom)
				}
				if err := dec.Skip(); err != nil {
					return nil, skipErr(err)
				}
			case manualTag:
				rule, err := readRuleXML(dec, t, false)
				if err != nil {
					return nil, err
				}
				cfg.ManualRule = rule
			case automaticTag:
				id := attr(t.Attr, ruleAttID)
				rule, err := readRuleXML(dec, t, true)
				if err != nil {
					return nil, err
				}
				if id == "" {
					log.Warn().Msg("automatic rule without id, dropping")
					notifyDropped("missing_id")
					continue
				}
				if rule != nil {
					cfg.AutomaticRules[id] = rule
				}
			default:
				if err := dec.Skip(); err != nil {
					return nil, skipErr(err)
				}
			}
		}
	}
}

// readRuleXML parses one manual/automatic element including its embedded
// condition child. A nil, nil return means the rule was dropped.
func readRuleXML(dec *xml.Decoder, start xml.StartElement, conditionRequired bool) (*Rule, error) {
	rule := &Rule{
		Enabled:  safeBool(start.Attr, ruleAttEnabled, true),
		Snoozing: safeBool(start.Attr, ruleAttSnoozing, false),
		Name:     attr(start.Attr, ruleAttName),
	}

	zenValue := attr(start.Attr, ruleAttZen)
	mode, ok := tryParseMode(zenValue)
	if !ok {
		log.Warn().Str("zen", zenValue).Msg("bad zen mode in rule, dropping")
		notifyDropped("bad_mode")
		if err := dec.Skip(); err != nil {
			return nil, skipErr(err)
		}
		return nil, nil
	}
	rule.Mode = mode
	rule.ConditionID = safeURI(start.Attr, ruleAttConditionID)
	if component := attr(start.Attr, ruleAttComponent); component != "" {
		rule.Component = UnflattenComponent(component)
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, ErrUnexpectedEnd
		}
		if err != nil {
			return nil, fmt.Errorf("zen: read rule token: %w", err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				if conditionRequired && rule.ConditionID == nil {
					log.Warn().Str("name", rule.Name).Msg("automatic rule missing condition id, dropping")
					notifyDropped("missing_condition")
					return nil, nil
				}
				return rule, nil
			}
		case xml.StartElement:
			if t.Name.Local == conditionTag {
				rule.Condition = readConditionXML(t.Attr)
			}
			if err := dec.Skip(); err != nil {
				return nil, skipErr(err)
			}
		}
	}
}

// readConditionXML builds a condition from element attributes. Returns nil
// when the id is absent or the fields do not form a valid condition.
func readConditionXML(attrs []xml.Attr) *Condition {
	id := safeURI(attrs, conditionAttID)
	if id == nil {
		return nil
	}
	condition, err := NewCondition(id,
		attr(attrs, conditionAttSummary),
		attr(attrs, conditionAttLine1),
		attr(attrs, conditionAttLine2),
		safeInt(attrs, conditionAttIcon, -1),
		State(safeInt(attrs, conditionAttState, -1)),
		safeInt(attrs, conditionAttFlags, -1))
	if err != nil {
		log.Warn().Err(err).Msg("unable to read condition")
		return nil
	}
	return condition
}

// WriteXML serializes the configuration as a version-2 document. Automatic
// rules are written in sorted id order so output is deterministic.
func WriteXML(enc *xml.Encoder, cfg *Config) error {
	root := xml.StartElement{Name: xml.Name{Local: zenTag}, Attr: []xml.Attr{
		xmlAttr(zenAttVersion, strconv.Itoa(XMLVersion)),
	}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}

	allow := xml.StartElement{Name: xml.Name{Local: allowTag}, Attr: []xml.Attr{
		xmlAttr(allowAttCalls, strconv.FormatBool(cfg.AllowCalls)),
		xmlAttr(allowAttMessages, strconv.FormatBool(cfg.AllowMessages)),
		xmlAttr(allowAttReminders, strconv.FormatBool(cfg.AllowReminders)),
		xmlAttr(allowAttEvents, strconv.FormatBool(cfg.AllowEvents)),
		xmlAttr(allowAttRepeatCallers, strconv.FormatBool(cfg.AllowRepeatCallers)),
		xmlAttr(allowAttFrom, strconv.Itoa(int(cfg.AllowFrom))),
	}}
	if err := encodeEmpty(enc, allow); err != nil {
		return err
	}

	if cfg.ManualRule != nil {
		if err := writeRuleXML(enc, manualTag, "", cfg.ManualRule); err != nil {
			return err
		}
	}

	ids := make([]string, 0, len(cfg.AutomaticRules))
	for id := range cfg.AutomaticRules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := writeRuleXML(enc, automaticTag, id, cfg.AutomaticRules[id]); err != nil {
			return err
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return enc.Flush()
}

func writeRuleXML(enc *xml.Encoder, tag, id string, rule *Rule) error {
	attrs := make([]xml.Attr, 0, 7)
	if id != "" {
		attrs = append(attrs, xmlAttr(ruleAttID, id))
	}
	attrs = append(attrs,
		xmlAttr(ruleAttEnabled, strconv.FormatBool(rule.Enabled)),
		xmlAttr(ruleAttSnoozing, strconv.FormatBool(rule.Snoozing)))
	if rule.Name != "" {
		attrs = append(attrs, xmlAttr(ruleAttName, rule.Name))
	}
	attrs = append(attrs, xmlAttr(ruleAttZen, strconv.Itoa(int(rule.Mode))))
	if rule.Component != nil {
		attrs = append(attrs, xmlAttr(ruleAttComponent, rule.Component.Flatten()))
	}
	if rule.ConditionID != nil {
		attrs = append(attrs, xmlAttr(ruleAttConditionID, rule.ConditionID.String()))
	}

	start := xml.StartElement{Name: xml.Name{Local: tag}, Attr: attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if rule.Condition != nil {
		if err := writeConditionXML(enc, rule.Condition); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func writeConditionXML(enc *xml.Encoder, c *Condition) error {
	start := xml.StartElement{Name: xml.Name{Local: conditionTag}, Attr: []xml.Attr{
		xmlAttr(conditionAttID, c.ID.String()),
		xmlAttr(conditionAttSummary, c.Summary),
		xmlAttr(conditionAttLine1, c.Line1),
		xmlAttr(conditionAttLine2, c.Line2),
		xmlAttr(conditionAttIcon, strconv.Itoa(c.Icon)),
		xmlAttr(conditionAttState, strconv.Itoa(int(c.State))),
		xmlAttr(conditionAttFlags, strconv.Itoa(c.Flags)),
	}}
	return encodeEmpty(enc, start)
}

func encodeEmpty(enc *xml.Encoder, start xml.StartElement) error {
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

func xmlAttr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// nextStart advances the decoder to the next start element.
func nextStart(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return xml.StartElement{}, ErrUnexpectedEnd
		}
		if err != nil {
			return xml.StartElement{}, fmt.Errorf("zen: read token: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func skipErr(err error) error {
	if err == io.EOF {
		return ErrUnexpectedEnd
	}
	return fmt.Errorf("zen: skip element: %w", err)
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func safeBool(attrs []xml.Attr, name string, def bool) bool {
	val := attr(attrs, name)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}

func safeInt(attrs []xml.Attr, name string, def int) int {
	val := attr(attrs, name)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func safeURI(attrs []xml.Attr, name string) *ConditionURI {
	val := attr(attrs, name)
	if val == "" {
		return nil
	}
	uri, err := ParseConditionURI(val)
	if err != nil {
		log.Warn().Str("attr", name).Str("value", val).Msg("unparseable condition uri")
		return nil
	}
	return uri
}

func tryParseMode(value string) (Mode, bool) {
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	mode := Mode(parsed)
	if !IsValidMode(mode) {
		return 0, false
	}
	return mode, true
}
