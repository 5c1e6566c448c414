/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile is an owner of a notification filter configuration, typically a
// device or an account.
type Profile struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileConfig stores one serialized filter configuration per profile. The
// document column holds the XML form, which is also the interchange format
// for import and export.
type ProfileConfig struct {
	ProfileID     string `gorm:"type:uuid;primaryKey"`
	Document      string `gorm:"type:text;not null"`
	SchemaVersion int    `gorm:"not null"`
	UpdatedAt     time.Time
}

// TableName returns the table name for GORM.
func (ProfileConfig) TableName() string {
	return "profile_configs"
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Profile{},
		&ProfileConfig{},
		&AuditLog{},
	)
}
