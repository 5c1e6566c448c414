/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/quietd/internal/events"
	"github.com/friendsincode/quietd/internal/models"
	"github.com/friendsincode/quietd/internal/zen"
)

func newTestStore(t *testing.T) (*Store, *events.Bus) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	bus := events.NewBus()
	return New(db, bus, zerolog.Nop()), bus
}

func TestLoadMaterializesDefaultConfig(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	profile, err := s.EnsureProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("ensure profile: %v", err)
	}

	cfg, err := s.Load(ctx, profile.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.AllowReminders || !cfg.AllowEvents {
		t.Fatal("default config should allow reminders and events")
	}
	if cfg.AllowCalls || cfg.AllowMessages {
		t.Fatal("default config should not allow calls or messages")
	}

	// Second load reads the persisted document.
	again, err := s.Load(ctx, profile.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !cfg.Equal(again) {
		t.Fatalf("persisted config differs:\n%v\n%v", cfg, again)
	}
}

func TestLoadUnknownProfile(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Load(context.Background(), "missing"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	profile, err := s.EnsureProfile(ctx, "bob")
	if err != nil {
		t.Fatalf("ensure profile: %v", err)
	}

	cfg := zen.NewConfig()
	cfg.AutomaticRules["r1"] = &zen.Rule{Enabled: true, Name: "Broken", Mode: zen.ModeImportantInterruptions}

	if err := s.Save(ctx, profile.ID, cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSaveRoundTripsRules(t *testing.T) {
	s, bus := newTestStore(t)
	ctx := context.Background()

	profile, err := s.EnsureProfile(ctx, "carol")
	if err != nil {
		t.Fatalf("ensure profile: %v", err)
	}

	sub := bus.Subscribe(events.EventConfigUpdated)
	defer bus.Unsubscribe(events.EventConfigUpdated, sub)

	cfg := zen.NewConfig()
	cfg.AllowCalls = true
	cfg.AllowFrom = zen.SourceStarred
	cfg.AutomaticRules[zen.NewRuleID()] = &zen.Rule{
		Enabled: true,
		Name:    "Evening",
		Mode:    zen.ModeImportantInterruptions,
		ConditionID: zen.ToScheduleConditionID(zen.ScheduleInfo{
			Days: []int{1, 7}, StartHour: 21, EndHour: 6,
		}),
	}

	if err := s.Save(ctx, profile.ID, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	select {
	case payload := <-sub:
		if payload["profile_id"] != profile.ID {
			t.Fatalf("unexpected event payload: %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("config update event not published")
	}

	loaded, err := s.Load(ctx, profile.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Equal(loaded) {
		t.Fatalf("round trip mismatch:\n%v\n%v", cfg, loaded)
	}
}

func TestImportXMLMigratesVersionOne(t *testing.T) {
	s, bus := newTestStore(t)
	ctx := context.Background()

	profile, err := s.EnsureProfile(ctx, "dave")
	if err != nil {
		t.Fatalf("ensure profile: %v", err)
	}

	migratedSub := bus.Subscribe(events.EventLegacyMigrated)
	defer bus.Unsubscribe(events.EventLegacyMigrated, migratedSub)

	doc := `<zen version="1">` +
		`<allow calls="true" messages="false" from="1"/>` +
		`<sleep mode="weeknights" startHour="22" startMin="30" endHour="7" endMin="15"/>` +
		`</zen>`

	cfg, err := s.ImportXML(ctx, profile.ID, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !cfg.AllowCalls || cfg.AllowFrom != zen.SourceContacts {
		t.Fatalf("allow block not migrated: %v", cfg)
	}
	if len(cfg.AutomaticRules) != 1 {
		t.Fatalf("expected one migrated rule, got %d", len(cfg.AutomaticRules))
	}

	select {
	case payload := <-migratedSub:
		if payload["profile_id"] != profile.ID {
			t.Fatalf("unexpected migration event payload: %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("migration event not published")
	}

	for _, rule := range cfg.AutomaticRules {
		schedule := zen.TryParseScheduleConditionID(rule.ConditionID)
		if schedule == nil {
			t.Fatalf("migrated rule has no schedule: %v", rule.ConditionID)
		}
		if schedule.StartHour != 22 || schedule.StartMinute != 30 ||
			schedule.EndHour != 7 || schedule.EndMinute != 15 {
			t.Fatalf("unexpected schedule: %+v", schedule)
		}
	}

	// Stored document is version 2 regardless of input version.
	xmlDoc, err := s.ExportXML(ctx, profile.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(xmlDoc, `version="2"`) {
		t.Fatalf("exported document not upgraded: %s", xmlDoc)
	}
}

func TestSeedRulesAppliedToFreshProfiles(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "seeds.yaml")
	seedDoc := "rules:\n" +
		"  - name: Sleeping\n" +
		"    days: [1, 2, 3, 4, 5, 6, 7]\n" +
		"    start: \"22:00\"\n" +
		"    end: \"07:00\"\n"
	if err := os.WriteFile(path, []byte(seedDoc), 0o600); err != nil {
		t.Fatalf("write seeds: %v", err)
	}

	seeds, err := LoadSeeds(path)
	if err != nil {
		t.Fatalf("load seeds: %v", err)
	}
	s.SetSeeds(seeds)

	profile, err := s.EnsureProfile(ctx, "erin")
	if err != nil {
		t.Fatalf("ensure profile: %v", err)
	}
	cfg, err := s.Load(ctx, profile.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.AutomaticRules) != 1 {
		t.Fatalf("expected seeded rule, got %d rules", len(cfg.AutomaticRules))
	}
	names := cfg.AutomaticRuleNames()
	if len(names) != 1 || names[0] != "Sleeping" {
		t.Fatalf("unexpected rule names: %v", names)
	}
}

func TestSeedRuleRejectsBadClock(t *testing.T) {
	seed := SeedRule{Name: "Broken", Days: []int{1}, Start: "25:00", End: "07:00"}
	if _, err := seed.Rule(); err == nil {
		t.Fatal("expected invalid hour to be rejected")
	}
}
