/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package conditions drives system-owned condition identifiers: countdown
// deadlines and weekly schedule windows. Provider-owned conditions are left
// untouched, their state arrives over the API.
package conditions

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/quietd/internal/events"
	"github.com/friendsincode/quietd/internal/store"
	"github.com/friendsincode/quietd/internal/telemetry"
	"github.com/friendsincode/quietd/internal/zen"
)

// Evaluator periodically re-evaluates every profile's conditions.
type Evaluator struct {
	store    *store.Store
	bus      events.PubSub
	logger   zerolog.Logger
	interval time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// New creates an evaluator.
func New(st *store.Store, bus events.PubSub, logger zerolog.Logger, interval time.Duration) *Evaluator {
	return &Evaluator{
		store:    st,
		bus:      bus,
		logger:   logger.With().Str("component", "conditions").Logger(),
		interval: interval,
		now:      time.Now,
	}
}

// Start runs the evaluation loop until the context is cancelled.
func (e *Evaluator) Start(ctx context.Context) {
	e.logger.Info().Dur("interval", e.interval).Msg("condition evaluator started")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("condition evaluator stopping")
			return
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

// Sweep evaluates all profiles once.
func (e *Evaluator) Sweep(ctx context.Context) {
	telemetry.EvaluatorRunsTotal.Inc()

	profiles, err := e.store.Profiles(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("list profiles")
		return
	}

	active := 0
	for _, profile := range profiles {
		count, err := e.evaluateProfile(ctx, profile.ID)
		if err != nil {
			e.logger.Error().Err(err).Str("profile_id", profile.ID).Msg("evaluate profile")
			continue
		}
		active += count
	}
	telemetry.ActiveRules.Set(float64(active))
}

// evaluateProfile updates one profile's condition states and returns the
// number of automatic rules currently active.
func (e *Evaluator) evaluateProfile(ctx context.Context, profileID string) (int, error) {
	cfg, err := e.store.Load(ctx, profileID)
	if err != nil {
		return 0, err
	}

	now := e.now()
	changed := e.evaluateManual(cfg, now, profileID)

	for id, rule := range cfg.AutomaticRules {
		if e.evaluateRule(rule, now, profileID, id) {
			changed = true
		}
	}

	if changed {
		if err := e.store.Save(ctx, profileID, cfg); err != nil {
			return 0, err
		}
	}

	active := 0
	for _, rule := range cfg.AutomaticRules {
		if rule.Enabled && !rule.Snoozing && rule.Condition != nil && rule.Condition.State == zen.StateTrue {
			active++
		}
	}
	return active, nil
}

// evaluateManual clears the manual rule once its countdown deadline passes.
func (e *Evaluator) evaluateManual(cfg *zen.Config, now time.Time, profileID string) bool {
	if cfg.ManualRule == nil {
		return false
	}
	deadline := zen.TryParseCountdownConditionID(cfg.ManualRule.ConditionID)
	if deadline == 0 {
		return false
	}
	if now.UnixMilli() < deadline {
		return false
	}

	cfg.ManualRule = nil
	telemetry.CountdownExpiredTotal.Inc()
	e.bus.Publish(events.EventCountdownExpired, events.Payload{
		"profile_id":    profileID,
		"resource_type": "rule",
		"deadline_ms":   deadline,
	})
	e.logger.Debug().Str("profile_id", profileID).Int64("deadline_ms", deadline).Msg("countdown expired, manual rule cleared")
	return true
}

// evaluateRule flips a rule's condition to match the clock. Schedule rules
// follow their weekly window; countdown rules fire until the deadline passes.
// Provider-owned condition ids are left alone.
func (e *Evaluator) evaluateRule(rule *zen.Rule, now time.Time, profileID, ruleID string) bool {
	if schedule := zen.TryParseScheduleConditionID(rule.ConditionID); schedule != nil {
		desired, flags := zen.StateFalse, 0
		if schedule.InWindow(now) {
			desired, flags = zen.StateTrue, zen.FlagRelevantNow
		}
		return e.setConditionState(rule, desired, flags, profileID, ruleID)
	}

	if deadline := zen.TryParseCountdownConditionID(rule.ConditionID); deadline != 0 {
		desired, flags := zen.StateTrue, zen.FlagRelevantNow
		if now.UnixMilli() >= deadline {
			desired, flags = zen.StateFalse, 0
		}
		changed := e.setConditionState(rule, desired, flags, profileID, ruleID)
		if changed && desired == zen.StateFalse {
			telemetry.CountdownExpiredTotal.Inc()
		}
		return changed
	}

	return false
}

func (e *Evaluator) setConditionState(rule *zen.Rule, desired zen.State, flags int, profileID, ruleID string) bool {
	if rule.Condition != nil && rule.Condition.State == desired {
		return false
	}

	condition, err := zen.NewCondition(rule.ConditionID, rule.Name, "", "", 0, desired, flags)
	if err != nil {
		e.logger.Warn().Err(err).Str("rule_id", ruleID).Msg("build condition")
		return false
	}
	rule.Condition = condition

	eventType := events.EventRuleDeactivated
	if desired == zen.StateTrue {
		eventType = events.EventRuleActivated
	}
	e.bus.Publish(eventType, events.Payload{
		"profile_id":    profileID,
		"resource_type": "rule",
		"resource_id":   ruleID,
		"rule_name":     rule.Name,
	})
	return true
}
