/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/quietd/internal/audit"
	"github.com/friendsincode/quietd/internal/auth"
	"github.com/friendsincode/quietd/internal/events"
	"github.com/friendsincode/quietd/internal/store"
	"github.com/friendsincode/quietd/internal/version"
	"github.com/friendsincode/quietd/internal/zen"
)

// API exposes HTTP handlers.
type API struct {
	store     *store.Store
	auditSvc  *audit.Service
	bus       events.PubSub
	jwtSecret []byte
	formatter zen.SummaryFormatter
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(st *store.Store, auditSvc *audit.Service, bus events.PubSub, jwtSecret []byte, logger zerolog.Logger) *API {
	return &API{
		store:     st,
		auditSvc:  auditSvc,
		bus:       bus,
		jwtSecret: jwtSecret,
		formatter: EnglishFormatter{},
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all API endpoints.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Get("/minute-buckets", a.handleMinuteBuckets)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))

			pr.Route("/profiles", func(r chi.Router) {
				r.Get("/", a.handleProfilesList)
				r.With(auth.RequireRoles("admin", "manager")).Post("/", a.handleProfilesCreate)

				r.Route("/{profileID}", func(r chi.Router) {
					r.Get("/", a.handleProfileGet)

					r.Get("/config", a.handleConfigGet)
					r.Put("/config", a.handleConfigPut)
					r.Get("/config.xml", a.handleConfigExport)
					r.With(auth.RequireRoles("admin", "manager")).Put("/config.xml", a.handleConfigImport)

					r.Get("/policy", a.handlePolicyGet)
					r.Put("/policy", a.handlePolicyPut)

					r.Put("/manual", a.handleManualPut)
					r.Delete("/manual", a.handleManualDelete)

					r.Get("/active", a.handleActiveGet)
					r.Get("/audit", a.handleAuditList)

					r.Route("/rules", func(r chi.Router) {
						r.Get("/", a.handleRulesList)
						r.Post("/", a.handleRulesCreate)
						r.Get("/{ruleID}", a.handleRuleGet)
						r.Put("/{ruleID}", a.handleRuleUpdate)
						r.Delete("/{ruleID}", a.handleRuleDelete)
					})
				})
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (a *API) handleMinuteBuckets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"minutes": zen.MinuteBuckets})
}

func (a *API) handleProfilesList(w http.ResponseWriter, r *http.Request) {
	profiles, err := a.store.Profiles(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list profiles failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (a *API) handleProfilesCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	profile, err := a.store.EnsureProfile(r.Context(), req.Name)
	if err != nil {
		a.logger.Error().Err(err).Msg("create profile failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (a *API) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	profile, err := a.store.Profile(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "profile_not_found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	entries, err := a.auditSvc.Recent(r.Context(), chi.URLParam(r, "profileID"), 100)
	if err != nil {
		a.logger.Error().Err(err).Msg("list audit entries failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// auditContext extracts user and request info for audit logging.
func (a *API) auditContext(r *http.Request) events.Payload {
	payload := events.Payload{
		"ip_address": r.RemoteAddr,
		"user_agent": r.UserAgent(),
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		payload["user_id"] = claims.UserID
		payload["user_email"] = claims.Email
	}
	return payload
}
