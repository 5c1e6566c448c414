/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/quietd/internal/audit"
	"github.com/friendsincode/quietd/internal/auth"
	"github.com/friendsincode/quietd/internal/events"
	"github.com/friendsincode/quietd/internal/models"
	"github.com/friendsincode/quietd/internal/store"
	"github.com/friendsincode/quietd/internal/zen"
)

var testSecret = []byte("test-secret")

type testAPI struct {
	router    *chi.Mux
	store     *store.Store
	profileID string
	token     string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	bus := events.NewBus()
	st := store.New(db, bus, zerolog.Nop())
	auditSvc := audit.NewService(db, bus, zerolog.Nop())

	profile, err := st.EnsureProfile(t.Context(), "test")
	if err != nil {
		t.Fatalf("ensure profile: %v", err)
	}

	token, err := auth.Issue(testSecret, auth.Claims{
		UserID: "u1",
		Email:  "admin@example.com",
		Roles:  []string{"admin"},
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	router := chi.NewRouter()
	New(st, auditSvc, bus, testSecret, zerolog.Nop()).Routes(router)

	return &testAPI{router: router, store: st, profileID: profile.ID, token: token}
}

func (ta *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+ta.token)
	rec := httptest.NewRecorder()
	ta.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthIsPublic(t *testing.T) {
	ta := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	ta.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestConfigRequiresAuth(t *testing.T) {
	ta := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/"+ta.profileID+"/config", nil)
	rec := httptest.NewRecorder()
	ta.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMinuteBuckets(t *testing.T) {
	ta := newTestAPI(t)
	rec := ta.do(t, http.MethodGet, "/api/v1/minute-buckets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody[map[string][]int](t, rec)
	if len(body["minutes"]) == 0 || body["minutes"][0] != 15 {
		t.Fatalf("unexpected buckets: %v", body)
	}
}

func TestConfigGetReturnsDefaults(t *testing.T) {
	ta := newTestAPI(t)
	rec := ta.do(t, http.MethodGet, "/api/v1/profiles/"+ta.profileID+"/config", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cfg := decodeBody[configJSON](t, rec)
	if !cfg.AllowReminders || !cfg.AllowEvents {
		t.Fatalf("defaults missing: %+v", cfg)
	}
	if cfg.Manual != nil || len(cfg.Rules) != 0 {
		t.Fatalf("fresh config should be empty: %+v", cfg)
	}
}

func TestConfigPutRoundTrip(t *testing.T) {
	ta := newTestAPI(t)

	scheduleID := zen.ToScheduleConditionID(zen.ScheduleInfo{
		Days: []int{1, 7}, StartHour: 22, EndHour: 7,
	}).String()

	body := configJSON{
		AllowCalls: true,
		AllowFrom:  int(zen.SourceStarred),
		Rules: []ruleJSON{{
			Enabled:     true,
			Name:        "Weekend",
			Mode:        int(zen.ModeImportantInterruptions),
			ConditionID: scheduleID,
		}},
	}

	rec := ta.do(t, http.MethodPut, "/api/v1/profiles/"+ta.profileID+"/config", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	saved := decodeBody[configJSON](t, rec)
	if len(saved.Rules) != 1 || saved.Rules[0].ID == "" {
		t.Fatalf("rule id not assigned: %+v", saved)
	}

	rec = ta.do(t, http.MethodGet, "/api/v1/profiles/"+ta.profileID+"/config", nil)
	loaded := decodeBody[configJSON](t, rec)
	if !loaded.AllowCalls || loaded.AllowFrom != int(zen.SourceStarred) {
		t.Fatalf("allow block lost: %+v", loaded)
	}
	if len(loaded.Rules) != 1 || loaded.Rules[0].ConditionID != scheduleID {
		t.Fatalf("rule lost: %+v", loaded)
	}
}

func TestConfigPutRejectsInvalidRule(t *testing.T) {
	ta := newTestAPI(t)
	body := configJSON{
		Rules: []ruleJSON{{
			Enabled: true,
			Name:    "NoCondition",
			Mode:    int(zen.ModeImportantInterruptions),
		}},
	}
	rec := ta.do(t, http.MethodPut, "/api/v1/profiles/"+ta.profileID+"/config", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPolicyRoundTrip(t *testing.T) {
	ta := newTestAPI(t)

	policy := zen.Policy{
		PriorityCategories: zen.PriorityCategoryCalls | zen.PriorityCategoryRepeatCallers,
		PrioritySenders:    zen.PrioritySendersContacts,
	}
	rec := ta.do(t, http.MethodPut, "/api/v1/profiles/"+ta.profileID+"/policy", policy)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ta.do(t, http.MethodGet, "/api/v1/profiles/"+ta.profileID+"/policy", nil)
	got := decodeBody[zen.Policy](t, rec)
	if got != policy {
		t.Fatalf("policy mismatch: got %+v want %+v", got, policy)
	}

	// Reminders and events default on but were not granted by the policy.
	rec = ta.do(t, http.MethodGet, "/api/v1/profiles/"+ta.profileID+"/config", nil)
	cfg := decodeBody[configJSON](t, rec)
	if cfg.AllowReminders || cfg.AllowEvents {
		t.Fatalf("policy should clear reminder/event allowances: %+v", cfg)
	}
	if !cfg.AllowCalls || !cfg.AllowRepeatCallers {
		t.Fatalf("policy categories not applied: %+v", cfg)
	}
}

func TestManualLifecycle(t *testing.T) {
	ta := newTestAPI(t)
	base := "/api/v1/profiles/" + ta.profileID

	rec := ta.do(t, http.MethodPut, base+"/manual", map[string]int{
		"mode":    int(zen.ModeImportantInterruptions),
		"minutes": 45,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cfg := decodeBody[configJSON](t, rec)
	if cfg.Manual == nil || cfg.Manual.ConditionID == "" {
		t.Fatalf("manual rule missing countdown: %+v", cfg)
	}
	if !strings.Contains(cfg.Manual.ConditionID, "/countdown/") {
		t.Fatalf("expected countdown condition, got %s", cfg.Manual.ConditionID)
	}

	rec = ta.do(t, http.MethodGet, base+"/active", nil)
	active := decodeBody[map[string]any](t, rec)
	if active["manual_active"] != true {
		t.Fatalf("manual not reported active: %v", active)
	}
	if summary, _ := active["summary"].(string); !strings.Contains(summary, "45 minutes") {
		t.Fatalf("unexpected summary: %v", active["summary"])
	}

	rec = ta.do(t, http.MethodDelete, base+"/manual", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cfg = decodeBody[configJSON](t, rec)
	if cfg.Manual != nil {
		t.Fatalf("manual rule not cleared: %+v", cfg)
	}
}

func TestManualRejectsOffMode(t *testing.T) {
	ta := newTestAPI(t)
	rec := ta.do(t, http.MethodPut, "/api/v1/profiles/"+ta.profileID+"/manual", map[string]int{
		"mode": int(zen.ModeOff),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRulesCRUD(t *testing.T) {
	ta := newTestAPI(t)
	base := "/api/v1/profiles/" + ta.profileID + "/rules"

	scheduleID := zen.ToScheduleConditionID(zen.ScheduleInfo{
		Days: []int{2, 3, 4, 5, 6}, StartHour: 9, EndHour: 17,
	}).String()

	rec := ta.do(t, http.MethodPost, base+"/", ruleJSON{
		Enabled:     true,
		Name:        "Work",
		Mode:        int(zen.ModeImportantInterruptions),
		ConditionID: scheduleID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[ruleJSON](t, rec)
	if created.ID == "" {
		t.Fatal("rule id not assigned")
	}

	rec = ta.do(t, http.MethodGet, fmt.Sprintf("%s/%s", base, created.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	created.Name = "Office"
	created.Snoozing = true
	rec = ta.do(t, http.MethodPut, fmt.Sprintf("%s/%s", base, created.ID), created)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[ruleJSON](t, rec)
	if updated.Name != "Office" || !updated.Snoozing {
		t.Fatalf("update lost: %+v", updated)
	}

	rec = ta.do(t, http.MethodDelete, fmt.Sprintf("%s/%s", base, created.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = ta.do(t, http.MethodGet, fmt.Sprintf("%s/%s", base, created.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestRuleCreateRejectsMissingCondition(t *testing.T) {
	ta := newTestAPI(t)
	rec := ta.do(t, http.MethodPost, "/api/v1/profiles/"+ta.profileID+"/rules/", ruleJSON{
		Enabled: true,
		Name:    "Broken",
		Mode:    int(zen.ModeImportantInterruptions),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestConfigExportImport(t *testing.T) {
	ta := newTestAPI(t)
	base := "/api/v1/profiles/" + ta.profileID

	rec := ta.do(t, http.MethodGet, base+"/config.xml", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/xml" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `<zen version="2">`) {
		t.Fatalf("unexpected document: %s", rec.Body.String())
	}

	legacy := `<zen version="1">` +
		`<allow calls="true" from="1"/>` +
		`<sleep mode="nights" startHour="23" endHour="6"/>` +
		`</zen>`
	rec = ta.do(t, http.MethodPut, base+"/config.xml", legacy)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cfg := decodeBody[configJSON](t, rec)
	if !cfg.AllowCalls || cfg.AllowFrom != int(zen.SourceContacts) {
		t.Fatalf("legacy allow block lost: %+v", cfg)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Name != "Sleeping" {
		t.Fatalf("legacy sleep rule not migrated: %+v", cfg)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	ta := newTestAPI(t)
	rec := ta.do(t, http.MethodPut, "/api/v1/profiles/"+ta.profileID+"/config.xml", `<notzen/>`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
