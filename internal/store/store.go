/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store persists one notification filter configuration per profile.
// Configurations are stored in their XML form, which doubles as the import
// and export format.
package store

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/quietd/internal/events"
	"github.com/friendsincode/quietd/internal/models"
	"github.com/friendsincode/quietd/internal/zen"
)

var (
	ErrProfileNotFound = errors.New("store: profile not found")
	ErrInvalidConfig   = errors.New("store: configuration failed validation")
)

// Store loads and saves profile configurations.
type Store struct {
	db        *gorm.DB
	bus       events.PubSub
	logger    zerolog.Logger
	migration zen.Migration
	seeds     []SeedRule
}

// New creates a store. Version-1 documents encountered during load or import
// are converted with DefaultMigration.
func New(db *gorm.DB, bus events.PubSub, logger zerolog.Logger) *Store {
	return &Store{
		db:        db,
		bus:       bus,
		logger:    logger.With().Str("component", "store").Logger(),
		migration: DefaultMigration,
	}
}

// SetSeeds configures the automatic rules applied to fresh profiles.
func (s *Store) SetSeeds(seeds []SeedRule) {
	s.seeds = seeds
}

// EnsureProfile returns the profile with the given name, creating it if
// necessary.
func (s *Store) EnsureProfile(ctx context.Context, name string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	profile = models.Profile{ID: uuid.NewString(), Name: name}
	if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, err
	}
	s.logger.Info().Str("profile_id", profile.ID).Str("name", name).Msg("profile created")
	return &profile, nil
}

// Profile fetches a profile by ID.
func (s *Store) Profile(ctx context.Context, profileID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("id = ?", profileID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Profiles lists all profiles.
func (s *Store) Profiles(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := s.db.WithContext(ctx).Order("name").Find(&profiles).Error
	return profiles, err
}

// Load returns the profile's configuration, materializing the default one on
// first access.
func (s *Store) Load(ctx context.Context, profileID string) (*zen.Config, error) {
	if _, err := s.Profile(ctx, profileID); err != nil {
		return nil, err
	}

	var record models.ProfileConfig
	err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg := s.defaultConfig()
		if err := s.Save(ctx, profileID, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	cfg, err := DecodeConfig(strings.NewReader(record.Document), s.migration)
	if err != nil {
		return nil, fmt.Errorf("decode stored config: %w", err)
	}
	return cfg, nil
}

// Save validates and persists the configuration, then announces the change.
func (s *Store) Save(ctx context.Context, profileID string, cfg *zen.Config) error {
	if !cfg.IsValid() {
		return ErrInvalidConfig
	}

	doc, err := EncodeConfig(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	record := models.ProfileConfig{
		ProfileID:     profileID,
		Document:      doc,
		SchemaVersion: zen.XMLVersion,
		UpdatedAt:     time.Now(),
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "schema_version", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return err
	}

	s.bus.Publish(events.EventConfigUpdated, events.Payload{
		"profile_id": profileID,
		"rules":      len(cfg.AutomaticRules),
	})
	return nil
}

// ExportXML returns the stored XML document verbatim.
func (s *Store) ExportXML(ctx context.Context, profileID string) (string, error) {
	if _, err := s.Profile(ctx, profileID); err != nil {
		return "", err
	}

	var record models.ProfileConfig
	err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg := s.defaultConfig()
		if err := s.Save(ctx, profileID, cfg); err != nil {
			return "", err
		}
		return EncodeConfig(cfg)
	}
	if err != nil {
		return "", err
	}
	return record.Document, nil
}

// ImportXML parses an uploaded document, migrating version-1 input, and
// replaces the profile's configuration with the result.
func (s *Store) ImportXML(ctx context.Context, profileID string, doc io.Reader) (*zen.Config, error) {
	migrated := false
	migration := func(legacy *zen.XmlV1) (*zen.Config, error) {
		migrated = true
		return s.migration(legacy)
	}

	cfg, err := DecodeConfig(doc, migration)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, profileID, cfg); err != nil {
		return nil, err
	}

	if migrated {
		s.bus.Publish(events.EventLegacyMigrated, events.Payload{
			"profile_id":    profileID,
			"resource_type": "config",
		})
	}
	s.bus.Publish(events.EventAuditConfigImport, events.Payload{
		"profile_id":    profileID,
		"resource_type": "config",
		"rules":         len(cfg.AutomaticRules),
	})
	return cfg, nil
}

func (s *Store) defaultConfig() *zen.Config {
	cfg := zen.NewConfig()
	for _, seed := range s.seeds {
		rule, err := seed.Rule()
		if err != nil {
			s.logger.Warn().Err(err).Str("name", seed.Name).Msg("skipping invalid seed rule")
			continue
		}
		cfg.AutomaticRules[zen.NewRuleID()] = rule
	}
	return cfg
}

// EncodeConfig serializes a configuration to its XML document form.
func EncodeConfig(cfg *zen.Config) (string, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := zen.WriteXML(enc, cfg); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DecodeConfig parses an XML document into a configuration.
func DecodeConfig(r io.Reader, migration zen.Migration) (*zen.Config, error) {
	return zen.ReadXML(xml.NewDecoder(r), migration)
}
