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
	"gorm.io/gorm"

	"github.com/friendsincode/courseboard/internal/audit"
	"github.com/friendsincode/courseboard/internal/auth"
	"github.com/friendsincode/courseboard/internal/events"
	"github.com/friendsincode/courseboard/internal/ingest"
	"github.com/friendsincode/courseboard/internal/logbuffer"
	"github.com/friendsincode/courseboard/internal/models"
	"github.com/friendsincode/courseboard/internal/schedule"
)

// API exposes HTTP handlers.
type API struct {
	db         *gorm.DB
	jwtSecret  []byte
	schedule   *schedule.Service
	ingestSvc  *ingest.Service
	auditSvc   *audit.Service
	gridSource ingest.GridSource // nil when no Sheets credentials are configured
	bus        *events.Bus
	logBuffer  *logbuffer.Buffer
	logger     zerolog.Logger
}

// New creates the API router wrapper. gridSource may be nil; imports over
// HTTP are then rejected with 503. logBuffer may be nil; the log endpoint
// then reports 503.
func New(db *gorm.DB, jwtSecret []byte, scheduleSvc *schedule.Service, ingestSvc *ingest.Service, auditSvc *audit.Service, gridSource ingest.GridSource, bus *events.Bus, logBuf *logbuffer.Buffer, logger zerolog.Logger) *API {
	return &API{
		db:         db,
		jwtSecret:  jwtSecret,
		schedule:   scheduleSvc,
		ingestSvc:  ingestSvc,
		auditSvc:   auditSvc,
		gridSource: gridSource,
		bus:        bus,
		logBuffer:  logBuf,
		logger:     logger,
	}
}

// Routes mounts all API endpoints.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware())

			pr.Route("/campuses", func(r chi.Router) {
				r.Get("/", a.handleCampusList)
				r.With(a.requireRole(models.RoleAdmin)).Post("/", a.handleCampusCreate)
				r.Route("/{campusID}", func(r chi.Router) {
					r.Get("/", a.handleCampusGet)
					r.With(a.requireRole(models.RoleAdmin)).Patch("/", a.handleCampusUpdate)

					r.Get("/schedule", a.handleWeekSchedule)
					r.Get("/schedule/layout", a.handleWeekLayout)
					r.Get("/schedule/export.ics", a.handleScheduleExport)

					r.With(a.requireRole(models.RoleStaff)).Post("/import", a.handleImportTrigger)
					r.Get("/imports", a.handleImportList)

					r.Get("/roster", a.handleRosterList)
					r.With(a.requireRole(models.RoleStaff)).Post("/roster", a.handleRosterCreate)
				})
			})

			pr.Route("/events", func(r chi.Router) {
				r.With(a.requireRole(models.RoleStaff)).Post("/", a.handleEventCreate)
				r.Post("/conflict-check", a.handleConflictCheck)
				r.Route("/{eventID}", func(r chi.Router) {
					r.Get("/", a.handleEventGet)
					r.With(a.requireRole(models.RoleStaff)).Put("/", a.handleEventUpdate)
					r.With(a.requireRole(models.RoleStaff)).Delete("/", a.handleEventDelete)
				})
			})

			pr.Route("/imports", func(r chi.Router) {
				r.Get("/{jobID}", a.handleImportGet)
			})

			pr.Route("/apikeys", func(r chi.Router) {
				r.Get("/", a.handleAPIKeyList)
				r.Post("/", a.handleAPIKeyCreate)
				r.Delete("/{keyID}", a.handleAPIKeyRevoke)
			})

			pr.With(a.requireRole(models.RoleAdmin)).Get("/audit", a.handleAuditList)
			pr.With(a.requireRole(models.RoleAdmin)).Get("/logs", a.handleLogList)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.MiddlewareWithJWT(a.db, a.jwtSecret)
}

func (a *API) requireRole(role models.RoleName) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !claims.HasRole(role) {
				writeError(w, http.StatusForbidden, "insufficient_role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
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
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		payload["user_id"] = claims.UserID

		var user models.User
		if err := a.db.Select("email").First(&user, "id = ?", claims.UserID).Error; err == nil {
			payload["user_email"] = user.Email
		}
	}

	return payload
}

// publishAuditEvent publishes an audit event with user and request context.
func (a *API) publishAuditEvent(r *http.Request, eventType events.EventType, data events.Payload) {
	payload := a.auditContext(r)
	for k, v := range data {
		payload[k] = v
	}
	a.bus.Publish(eventType, payload)
}
