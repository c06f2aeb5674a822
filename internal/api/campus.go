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

	"github.com/friendsincode/courseboard/internal/events"
	"github.com/friendsincode/courseboard/internal/models"
	"github.com/friendsincode/courseboard/internal/schedule"
)

type campusRequest struct {
	Name          string `json:"name"`
	SpreadsheetID string `json:"spreadsheet_id"`
	Position      *int   `json:"position"`
}

func (a *API) handleCampusList(w http.ResponseWriter, r *http.Request) {
	campuses, err := a.schedule.Campuses(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list campuses")
		writeError(w, http.StatusInternalServerError, "campus_list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campuses": campuses})
}

func (a *API) handleCampusGet(w http.ResponseWriter, r *http.Request) {
	campus, err := a.schedule.Campus(r.Context(), chi.URLParam(r, "campusID"))
	if errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "campus_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "campus_get_failed")
		return
	}
	writeJSON(w, http.StatusOK, campus)
}

func (a *API) handleCampusCreate(w http.ResponseWriter, r *http.Request) {
	var req campusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	campus := models.Campus{
		ID:            uuid.NewString(),
		Name:          req.Name,
		SpreadsheetID: req.SpreadsheetID,
	}
	if req.Position != nil {
		campus.Position = *req.Position
	}
	if err := a.db.WithContext(r.Context()).Create(&campus).Error; err != nil {
		a.logger.Error().Err(err).Str("name", req.Name).Msg("create campus")
		writeError(w, http.StatusInternalServerError, "campus_create_failed")
		return
	}

	a.publishAuditEvent(r, events.EventAuditCampusCreate, events.Payload{
		"campus_id": campus.ID,
		"name":      campus.Name,
	})
	writeJSON(w, http.StatusCreated, campus)
}

func (a *API) handleCampusUpdate(w http.ResponseWriter, r *http.Request) {
	campusID := chi.URLParam(r, "campusID")
	campus, err := a.schedule.Campus(r.Context(), campusID)
	if errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "campus_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "campus_get_failed")
		return
	}

	var req campusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		campus.Name = name
	}
	if req.SpreadsheetID != "" {
		campus.SpreadsheetID = req.SpreadsheetID
	}
	if req.Position != nil {
		campus.Position = *req.Position
	}
	if err := a.db.WithContext(r.Context()).Save(campus).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "campus_update_failed")
		return
	}

	a.publishAuditEvent(r, events.EventAuditCampusUpdate, events.Payload{
		"campus_id": campus.ID,
		"name":      campus.Name,
	})
	writeJSON(w, http.StatusOK, campus)
}
