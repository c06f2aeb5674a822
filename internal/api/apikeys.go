/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/courseboard/internal/auth"
	"github.com/friendsincode/courseboard/internal/events"
)

func (a *API) handleAPIKeyList(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	keys, err := auth.ListAPIKeys(a.db, claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "apikey_list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (a *API) handleAPIKeyCreate(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req struct {
		Name       string `json:"name"`
		ExpiryDays int    `json:"expiry_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	days := 0
	for _, opt := range auth.APIKeyExpirationOptions {
		if req.ExpiryDays == opt.Days {
			days = opt.Days
			break
		}
	}
	if days == 0 {
		writeError(w, http.StatusBadRequest, "invalid_expiry")
		return
	}

	plaintext, key, err := auth.GenerateAPIKey(claims.UserID, req.Name, time.Duration(days)*24*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "apikey_generate_failed")
		return
	}
	if err := a.db.WithContext(r.Context()).Create(key).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "apikey_store_failed")
		return
	}

	a.publishAuditEvent(r, events.EventAuditAPIKeyCreate, events.Payload{
		"target_id": key.ID,
		"name":      key.Name,
	})

	// The plaintext key is shown exactly once.
	writeJSON(w, http.StatusCreated, map[string]any{
		"key":        plaintext,
		"id":         key.ID,
		"name":       key.Name,
		"prefix":     key.KeyPrefix,
		"expires_at": key.ExpiresAt,
	})
}

func (a *API) handleAPIKeyRevoke(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	keyID := chi.URLParam(r, "keyID")

	err := auth.RevokeAPIKey(a.db, keyID, claims.UserID)
	if errors.Is(err, auth.ErrAPIKeyNotFound) {
		writeError(w, http.StatusNotFound, "apikey_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "apikey_revoke_failed")
		return
	}

	a.publishAuditEvent(r, events.EventAuditAPIKeyRevoke, events.Payload{
		"target_id": keyID,
	})
	w.WriteHeader(http.StatusNoContent)
}
