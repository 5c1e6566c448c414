/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/quietd/internal/events"
	"github.com/friendsincode/quietd/internal/zen"
)

func (a *API) handleRulesList(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := a.loadConfig(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, configToJSON(cfg).Rules)
}

func (a *API) handleRulesCreate(w http.ResponseWriter, r *http.Request) {
	profileID, cfg, ok := a.loadConfig(w, r)
	if !ok {
		return
	}

	var req ruleJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.ID != "" {
		writeError(w, http.StatusBadRequest, "id_not_allowed")
		return
	}

	rule, err := ruleFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_rule")
		return
	}

	id := zen.NewRuleID()
	cfg.AutomaticRules[id] = rule
	if !a.saveConfig(w, r, profileID, cfg) {
		return
	}

	payload := a.auditContext(r)
	payload["profile_id"] = profileID
	payload["resource_type"] = "rule"
	payload["resource_id"] = id
	payload["rule_name"] = rule.Name
	a.bus.Publish(events.EventRuleCreated, payload)

	writeJSON(w, http.StatusCreated, ruleToJSON(id, rule))
}

func (a *API) handleRuleGet(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := a.loadConfig(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "ruleID")
	rule, exists := cfg.AutomaticRules[id]
	if !exists {
		writeError(w, http.StatusNotFound, "rule_not_found")
		return
	}
	writeJSON(w, http.StatusOK, ruleToJSON(id, rule))
}

func (a *API) handleRuleUpdate(w http.ResponseWriter, r *http.Request) {
	profileID, cfg, ok := a.loadConfig(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "ruleID")
	if _, exists := cfg.AutomaticRules[id]; !exists {
		writeError(w, http.StatusNotFound, "rule_not_found")
		return
	}

	var req ruleJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.ID != "" && req.ID != id {
		writeError(w, http.StatusBadRequest, "id_mismatch")
		return
	}

	rule, err := ruleFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_rule")
		return
	}

	cfg.AutomaticRules[id] = rule
	if !a.saveConfig(w, r, profileID, cfg) {
		return
	}

	payload := a.auditContext(r)
	payload["profile_id"] = profileID
	payload["resource_type"] = "rule"
	payload["resource_id"] = id
	payload["rule_name"] = rule.Name
	a.bus.Publish(events.EventRuleUpdated, payload)

	writeJSON(w, http.StatusOK, ruleToJSON(id, rule))
}

func (a *API) handleRuleDelete(w http.ResponseWriter, r *http.Request) {
	profileID, cfg, ok := a.loadConfig(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "ruleID")
	rule, exists := cfg.AutomaticRules[id]
	if !exists {
		writeError(w, http.StatusNotFound, "rule_not_found")
		return
	}

	delete(cfg.AutomaticRules, id)
	if !a.saveConfig(w, r, profileID, cfg) {
		return
	}

	payload := a.auditContext(r)
	payload["profile_id"] = profileID
	payload["resource_type"] = "rule"
	payload["resource_id"] = id
	payload["rule_name"] = rule.Name
	a.bus.Publish(events.EventRuleDeleted, payload)

	w.WriteHeader(http.StatusNoContent)
}
