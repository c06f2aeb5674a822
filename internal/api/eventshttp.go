/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/friendsincode/courseboard/internal/models"
	"github.com/friendsincode/courseboard/internal/schedule"
)

// eventResponse pairs a stored event with any double-booking warnings the
// write produced. Warnings are advisory unless the caller asked for strict.
type eventResponse struct {
	Event    *models.ScheduleEvent `json:"event"`
	Warnings []string              `json:"warnings,omitempty"`
}

func strictRequested(r *http.Request) bool {
	switch r.URL.Query().Get("strict") {
	case "1", "true", "yes":
		return true
	}
	return false
}

func (a *API) handleEventCreate(w http.ResponseWriter, r *http.Request) {
	var event models.ScheduleEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	stored, report, err := a.schedule.CreateEvent(r.Context(), event, strictRequested(r))
	if errors.Is(err, schedule.ErrConflict) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "schedule_conflict",
			"conflicts": report.Conflicts,
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "event_invalid")
		return
	}

	writeJSON(w, http.StatusCreated, eventResponse{Event: stored, Warnings: report.Messages()})
}

func (a *API) handleEventGet(w http.ResponseWriter, r *http.Request) {
	var event models.ScheduleEvent
	err := a.db.WithContext(r.Context()).First(&event, "id = ?", chi.URLParam(r, "eventID")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "event_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "event_get_failed")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (a *API) handleEventUpdate(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var event models.ScheduleEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	stored, report, err := a.schedule.UpdateEvent(r.Context(), eventID, event, strictRequested(r))
	if errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event_not_found")
		return
	}
	if errors.Is(err, schedule.ErrConflict) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "schedule_conflict",
			"conflicts": report.Conflicts,
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "event_invalid")
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{Event: stored, Warnings: report.Messages()})
}

func (a *API) handleEventDelete(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	err := a.schedule.DeleteEvent(r.Context(), eventID)
	if errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "event_delete_failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleConflictCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		models.ScheduleEvent
		ExcludeID string `json:"exclude_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.CampusID == "" {
		writeError(w, http.StatusBadRequest, "campus_id_required")
		return
	}

	report, err := a.schedule.CheckConflicts(r.Context(), req.ScheduleEvent, req.ExcludeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "conflict_check_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conflicts": report.Conflicts,
		"messages":  report.Messages(),
	})
}
