/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/courseboard/internal/logbuffer"
)

func (a *API) handleLogList(w http.ResponseWriter, r *http.Request) {
	if a.logBuffer == nil {
		writeError(w, http.StatusServiceUnavailable, "log_buffer_unavailable")
		return
	}

	q := r.URL.Query()
	params := logbuffer.QueryParams{
		Level:      q.Get("level"),
		Component:  q.Get("component"),
		CampusID:   q.Get("campus_id"),
		Search:     q.Get("q"),
		Limit:      200,
		Descending: true,
	}
	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.Since = t
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 2000 {
			params.Limit = n
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries":    a.logBuffer.Query(params),
		"components": a.logBuffer.Components(),
		"stats":      a.logBuffer.Stats(),
	})
}
