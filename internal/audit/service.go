/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/quietd/internal/events"
	"github.com/friendsincode/quietd/internal/models"
)

// Service handles audit logging by subscribing to events and storing audit entries.
type Service struct {
	db     *gorm.DB
	bus    events.PubSub
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus events.PubSub, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to relevant events and logs them as audit entries.
func (s *Service) Start(ctx context.Context) {
	configUpdated := s.bus.Subscribe(events.EventConfigUpdated)
	policyUpdated := s.bus.Subscribe(events.EventPolicyUpdated)
	manualSet := s.bus.Subscribe(events.EventManualSet)
	manualCleared := s.bus.Subscribe(events.EventManualCleared)
	ruleCreated := s.bus.Subscribe(events.EventRuleCreated)
	ruleUpdated := s.bus.Subscribe(events.EventRuleUpdated)
	ruleDeleted := s.bus.Subscribe(events.EventRuleDeleted)
	ruleDropped := s.bus.Subscribe(events.EventRuleDropped)
	ruleActivated := s.bus.Subscribe(events.EventRuleActivated)
	ruleDeactivated := s.bus.Subscribe(events.EventRuleDeactivated)
	countdownExpired := s.bus.Subscribe(events.EventCountdownExpired)
	configImport := s.bus.Subscribe(events.EventAuditConfigImport)
	legacyMigrated := s.bus.Subscribe(events.EventLegacyMigrated)

	defer func() {
		s.bus.Unsubscribe(events.EventConfigUpdated, configUpdated)
		s.bus.Unsubscribe(events.EventPolicyUpdated, policyUpdated)
		s.bus.Unsubscribe(events.EventManualSet, manualSet)
		s.bus.Unsubscribe(events.EventManualCleared, manualCleared)
		s.bus.Unsubscribe(events.EventRuleCreated, ruleCreated)
		s.bus.Unsubscribe(events.EventRuleUpdated, ruleUpdated)
		s.bus.Unsubscribe(events.EventRuleDeleted, ruleDeleted)
		s.bus.Unsubscribe(events.EventRuleDropped, ruleDropped)
		s.bus.Unsubscribe(events.EventRuleActivated, ruleActivated)
		s.bus.Unsubscribe(events.EventRuleDeactivated, ruleDeactivated)
		s.bus.Unsubscribe(events.EventCountdownExpired, countdownExpired)
		s.bus.Unsubscribe(events.EventAuditConfigImport, configImport)
		s.bus.Unsubscribe(events.EventLegacyMigrated, legacyMigrated)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-configUpdated:
			s.logAuditEntry(ctx, models.AuditActionConfigUpdate, payload)

		case payload := <-policyUpdated:
			s.logAuditEntry(ctx, models.AuditActionPolicyChange, payload)

		case payload := <-manualSet:
			s.logAuditEntry(ctx, models.AuditActionManualSet, payload)

		case payload := <-manualCleared:
			s.logAuditEntry(ctx, models.AuditActionManualClear, payload)

		case payload := <-ruleCreated:
			s.logAuditEntry(ctx, models.AuditActionRuleCreate, payload)

		case payload := <-ruleUpdated:
			s.logAuditEntry(ctx, models.AuditActionRuleUpdate, payload)

		case payload := <-ruleDeleted:
			s.logAuditEntry(ctx, models.AuditActionRuleDelete, payload)

		case payload := <-ruleDropped:
			s.logAuditEntry(ctx, models.AuditActionRuleDropped, payload)

		case payload := <-ruleActivated:
			s.logAuditEntry(ctx, models.AuditActionRuleActivate, payload)

		case payload := <-ruleDeactivated:
			s.logAuditEntry(ctx, models.AuditActionRuleDeactivate, payload)

		case payload := <-countdownExpired:
			s.logAuditEntry(ctx, models.AuditActionRuleExpire, payload)

		case payload := <-configImport:
			s.logAuditEntry(ctx, models.AuditActionConfigImport, payload)

		case payload := <-legacyMigrated:
			s.logAuditEntry(ctx, models.AuditActionLegacyMigrate, payload)
		}
	}
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, payload events.Payload) {
	entry := &models.AuditLog{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    action,
		Details:   make(map[string]any),
		CreatedAt: time.Now(),
	}

	if userID, ok := payload["user_id"].(string); ok && userID != "" {
		entry.UserID = &userID
	}
	if userEmail, ok := payload["user_email"].(string); ok {
		entry.UserEmail = userEmail
	}

	if profileID, ok := payload["profile_id"].(string); ok && profileID != "" {
		entry.ProfileID = &profileID
	}

	if resourceType, ok := payload["resource_type"].(string); ok {
		entry.ResourceType = resourceType
	}
	if resourceID, ok := payload["resource_id"].(string); ok {
		entry.ResourceID = resourceID
	}

	if ipAddress, ok := payload["ip_address"].(string); ok {
		entry.IPAddress = ipAddress
	}
	if userAgent, ok := payload["user_agent"].(string); ok {
		entry.UserAgent = userAgent
	}

	for k, v := range payload {
		switch k {
		case "user_id", "user_email", "profile_id", "resource_type", "resource_id", "ip_address", "user_agent":
		default:
			entry.Details[k] = v
		}
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.logger.Error().Err(err).Str("action", string(action)).Msg("failed to persist audit entry")
		return
	}

	s.logger.Debug().Str("action", string(action)).Msg("audit entry recorded")
}

// Recent returns the latest audit entries for a profile, newest first.
func (s *Service) Recent(ctx context.Context, profileID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []models.AuditLog
	err := s.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
