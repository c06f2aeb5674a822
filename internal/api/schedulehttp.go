/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/courseboard/internal/schedule"
)

func (a *API) handleWeekSchedule(w http.ResponseWriter, r *http.Request) {
	campusID := chi.URLParam(r, "campusID")
	if _, err := a.schedule.Campus(r.Context(), campusID); errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "campus_not_found")
		return
	}

	week, err := a.schedule.Week(r.Context(), campusID)
	if err != nil {
		a.logger.Error().Err(err).Str("campus_id", campusID).Msg("week schedule")
		writeError(w, http.StatusInternalServerError, "schedule_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"campus_id": campusID,
		"events":    week,
	})
}

func (a *API) handleWeekLayout(w http.ResponseWriter, r *http.Request) {
	campusID := chi.URLParam(r, "campusID")
	if _, err := a.schedule.Campus(r.Context(), campusID); errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "campus_not_found")
		return
	}

	placements, err := a.schedule.Layout(r.Context(), campusID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "layout_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"campus_id": campusID,
		"days":      placements,
	})
}

func (a *API) handleScheduleExport(w http.ResponseWriter, r *http.Request) {
	campusID := chi.URLParam(r, "campusID")
	result, err := a.schedule.ExportICal(r.Context(), campusID)
	if errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "campus_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("campus_id", campusID).Msg("ical export")
		writeError(w, http.StatusInternalServerError, "export_failed")
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}
