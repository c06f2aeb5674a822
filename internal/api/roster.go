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

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/friendsincode/courseboard/internal/models"
	"github.com/friendsincode/courseboard/internal/schedule"
)

func (a *API) handleRosterList(w http.ResponseWriter, r *http.Request) {
	campusID := chi.URLParam(r, "campusID")
	if _, err := a.schedule.Campus(r.Context(), campusID); errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "campus_not_found")
		return
	}

	query := a.db.WithContext(r.Context()).Where("campus_id = ?", campusID)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		switch models.RosterKind(kind) {
		case models.RosterTeacher, models.RosterStudent:
			query = query.Where("kind = ?", kind)
		default:
			writeError(w, http.StatusBadRequest, "unknown_roster_kind")
			return
		}
	}

	var entries []models.RosterEntry
	if err := query.Order("kind, name").Find(&entries).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "roster_list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roster": entries})
}

func (a *API) handleRosterCreate(w http.ResponseWriter, r *http.Request) {
	campusID := chi.URLParam(r, "campusID")
	if _, err := a.schedule.Campus(r.Context(), campusID); errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "campus_not_found")
		return
	}

	var req struct {
		Kind  models.RosterKind `json:"kind"`
		Name  string            `json:"name"`
		Email string            `json:"email"`
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
	if req.Kind != models.RosterTeacher && req.Kind != models.RosterStudent {
		writeError(w, http.StatusBadRequest, "unknown_roster_kind")
		return
	}

	entry := models.RosterEntry{
		ID:       uuid.NewString(),
		Kind:     req.Kind,
		Name:     req.Name,
		Email:    req.Email,
		CampusID: campusID,
		Active:   true,
	}
	if err := a.db.WithContext(r.Context()).Create(&entry).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "roster_create_failed")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
