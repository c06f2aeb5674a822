/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/friendsincode/courseboard/internal/ingest"
	"github.com/friendsincode/courseboard/internal/schedule"
)

func (a *API) handleImportTrigger(w http.ResponseWriter, r *http.Request) {
	if a.gridSource == nil {
		writeError(w, http.StatusServiceUnavailable, "import_source_unavailable")
		return
	}

	campus, err := a.schedule.Campus(r.Context(), chi.URLParam(r, "campusID"))
	if errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "campus_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "campus_get_failed")
		return
	}
	if campus.SpreadsheetID == "" {
		writeError(w, http.StatusUnprocessableEntity, "campus_has_no_spreadsheet")
		return
	}

	job, err := a.ingestSvc.Run(r.Context(), *campus, a.gridSource)
	if err != nil {
		a.logger.Error().Err(err).Str("campus_id", campus.ID).Msg("import run")
		// The failed job record carries the cause when Run got far enough
		// to persist one.
		if job != nil {
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error": "import_failed",
				"job":   job,
			})
			return
		}
		writeError(w, http.StatusBadGateway, "import_failed")
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

func (a *API) handleImportGet(w http.ResponseWriter, r *http.Request) {
	var job ingest.Job
	err := a.db.WithContext(r.Context()).First(&job, "id = ?", chi.URLParam(r, "jobID")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "import_job_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "import_get_failed")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *API) handleImportList(w http.ResponseWriter, r *http.Request) {
	campusID := chi.URLParam(r, "campusID")
	if _, err := a.schedule.Campus(r.Context(), campusID); errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "campus_not_found")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	var jobs []ingest.Job
	err := a.db.WithContext(r.Context()).
		Where("campus_id = ?", campusID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, "import_list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}
