/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction enumerates audited operations.
type AuditAction string

const (
	AuditActionConfigImport   AuditAction = "config.import"
	AuditActionConfigUpdate   AuditAction = "config.update"
	AuditActionPolicyChange   AuditAction = "policy.change"
	AuditActionManualSet      AuditAction = "manual.set"
	AuditActionManualClear    AuditAction = "manual.clear"
	AuditActionRuleCreate     AuditAction = "rule.create"
	AuditActionRuleUpdate     AuditAction = "rule.update"
	AuditActionRuleDelete     AuditAction = "rule.delete"
	AuditActionRuleDropped    AuditAction = "rule.dropped"
	AuditActionRuleActivate   AuditAction = "rule.activate"
	AuditActionRuleDeactivate AuditAction = "rule.deactivate"
	AuditActionRuleExpire     AuditAction = "rule.expire"
	AuditActionLegacyMigrate  AuditAction = "legacy.migrate"
)

// AuditLog records who changed what and when.
type AuditLog struct {
	ID           string         `gorm:"type:uuid;primaryKey"`
	Timestamp    time.Time      `gorm:"index:idx_audit_timestamp;not null"`
	UserID       *string        `gorm:"type:uuid;index:idx_audit_user"`      // NULL for system actions
	UserEmail    string         `gorm:"type:varchar(255)"`                   // Denormalized for readability
	ProfileID    *string        `gorm:"type:uuid;index:idx_audit_profile"`   // NULL if not profile scoped
	Action       AuditAction    `gorm:"type:varchar(64);index:idx_audit_action;not null"`
	ResourceType string         `gorm:"type:varchar(64)"` // "config", "rule", "policy"
	ResourceID   string         `gorm:"type:varchar(64)"` // rule id or condition URI
	Details      map[string]any `gorm:"type:jsonb;serializer:json"`
	IPAddress    string         `gorm:"type:varchar(45)"`
	UserAgent    string         `gorm:"type:varchar(512)"`
	CreatedAt    time.Time
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
