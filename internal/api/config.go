/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/quietd/internal/events"
	"github.com/friendsincode/quietd/internal/store"
	"github.com/friendsincode/quietd/internal/zen"
)

// loadConfig resolves the profile and its configuration, writing the error
// response itself on failure.
func (a *API) loadConfig(w http.ResponseWriter, r *http.Request) (string, *zen.Config, bool) {
	profileID := chi.URLParam(r, "profileID")
	cfg, err := a.store.Load(r.Context(), profileID)
	if errors.Is(err, store.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "profile_not_found")
		return "", nil, false
	}
	if err != nil {
		a.logger.Error().Err(err).Str("profile_id", profileID).Msg("load config failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return "", nil, false
	}
	return profileID, cfg, true
}

func (a *API) saveConfig(w http.ResponseWriter, r *http.Request, profileID string, cfg *zen.Config) bool {
	err := a.store.Save(r.Context(), profileID, cfg)
	if errors.Is(err, store.ErrInvalidConfig) {
		writeError(w, http.StatusUnprocessableEntity, "invalid_config")
		return false
	}
	if err != nil {
		a.logger.Error().Err(err).Str("profile_id", profileID).Msg("save config failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return false
	}
	return true
}

func (a *API) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := a.loadConfig(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, configToJSON(cfg))
}

func (a *API) handleConfigPut(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	if _, err := a.store.Profile(r.Context(), profileID); err != nil {
		writeError(w, http.StatusNotFound, "profile_not_found")
		return
	}

	var req configJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	cfg, err := configFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_config")
		return
	}

	if !a.saveConfig(w, r, profileID, cfg) {
		return
	}
	writeJSON(w, http.StatusOK, configToJSON(cfg))
}

func (a *API) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	doc, err := a.store.ExportXML(r.Context(), profileID)
	if errors.Is(err, store.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "profile_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("profile_id", profileID).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func (a *API) handleConfigImport(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	if _, err := a.store.Profile(r.Context(), profileID); err != nil {
		writeError(w, http.StatusNotFound, "profile_not_found")
		return
	}

	cfg, err := a.store.ImportXML(r.Context(), profileID, r.Body)
	if errors.Is(err, store.ErrInvalidConfig) {
		writeError(w, http.StatusUnprocessableEntity, "invalid_config")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_document")
		return
	}
	writeJSON(w, http.StatusOK, configToJSON(cfg))
}

func (a *API) handlePolicyGet(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := a.loadConfig(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cfg.ToNotificationPolicy())
}

func (a *API) handlePolicyPut(w http.ResponseWriter, r *http.Request) {
	profileID, cfg, ok := a.loadConfig(w, r)
	if !ok {
		return
	}

	var policy zen.Policy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if policy.PrioritySenders < zen.PrioritySendersAny || policy.PrioritySenders > zen.PrioritySendersStarred {
		writeError(w, http.StatusBadRequest, "invalid_senders")
		return
	}

	cfg.ApplyNotificationPolicy(&policy)
	if !a.saveConfig(w, r, profileID, cfg) {
		return
	}

	payload := a.auditContext(r)
	payload["profile_id"] = profileID
	payload["resource_type"] = "policy"
	a.bus.Publish(events.EventPolicyUpdated, payload)

	writeJSON(w, http.StatusOK, cfg.ToNotificationPolicy())
}

func (a *API) handleManualPut(w http.ResponseWriter, r *http.Request) {
	profileID, cfg, ok := a.loadConfig(w, r)
	if !ok {
		return
	}

	var req struct {
		Mode    int `json:"mode"`
		Minutes int `json:"minutes"` // 0 means until turned off
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	mode := zen.Mode(req.Mode)
	if !zen.IsValidMode(mode) || mode == zen.ModeOff {
		writeError(w, http.StatusBadRequest, "invalid_mode")
		return
	}

	rule := &zen.Rule{Enabled: true, Mode: mode}
	if req.Minutes > 0 {
		condition := zen.ToTimeCondition(time.Now(), req.Minutes, a.formatter)
		rule.Condition = condition
		rule.ConditionID = condition.ID.Copy()
	}
	cfg.ManualRule = rule

	if !a.saveConfig(w, r, profileID, cfg) {
		return
	}

	payload := a.auditContext(r)
	payload["profile_id"] = profileID
	payload["resource_type"] = "rule"
	payload["minutes"] = req.Minutes
	a.bus.Publish(events.EventManualSet, payload)

	writeJSON(w, http.StatusOK, configToJSON(cfg))
}

func (a *API) handleManualDelete(w http.ResponseWriter, r *http.Request) {
	profileID, cfg, ok := a.loadConfig(w, r)
	if !ok {
		return
	}

	if cfg.ManualRule != nil {
		cfg.ManualRule = nil
		if !a.saveConfig(w, r, profileID, cfg) {
			return
		}
		payload := a.auditContext(r)
		payload["profile_id"] = profileID
		payload["resource_type"] = "rule"
		a.bus.Publish(events.EventManualCleared, payload)
	}

	writeJSON(w, http.StatusOK, configToJSON(cfg))
}

func (a *API) handleActiveGet(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := a.loadConfig(w, r)
	if !ok {
		return
	}

	now := time.Now()
	names := []string{}
	for _, rule := range cfg.AutomaticRules {
		if rule.Enabled && !rule.Snoozing && rule.IsTrueOrUnknown() {
			names = append(names, rule.Name)
		}
	}
	sort.Strings(names)

	writeJSON(w, http.StatusOK, map[string]any{
		"manual_active": cfg.ManualRule != nil,
		"active_rules":  names,
		"summary":       zen.ConditionSummary(cfg, now, a.formatter),
		"line1":         zen.ConditionLine1(cfg, now, a.formatter),
	})
}
