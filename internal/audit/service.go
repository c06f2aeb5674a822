/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/courseboard/internal/events"
	"github.com/friendsincode/courseboard/internal/models"
)

// Service handles audit logging by subscribing to events and storing audit entries.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to relevant events and logs them as audit entries.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("audit service starting")

	scheduleImported := s.bus.Subscribe(events.EventScheduleImported)
	eventCreated := s.bus.Subscribe(events.EventEventCreated)
	eventUpdated := s.bus.Subscribe(events.EventEventUpdated)
	eventDeleted := s.bus.Subscribe(events.EventEventDeleted)
	apiKeyCreate := s.bus.Subscribe(events.EventAuditAPIKeyCreate)
	apiKeyRevoke := s.bus.Subscribe(events.EventAuditAPIKeyRevoke)
	campusCreate := s.bus.Subscribe(events.EventAuditCampusCreate)
	campusUpdate := s.bus.Subscribe(events.EventAuditCampusUpdate)

	defer func() {
		s.bus.Unsubscribe(events.EventScheduleImported, scheduleImported)
		s.bus.Unsubscribe(events.EventEventCreated, eventCreated)
		s.bus.Unsubscribe(events.EventEventUpdated, eventUpdated)
		s.bus.Unsubscribe(events.EventEventDeleted, eventDeleted)
		s.bus.Unsubscribe(events.EventAuditAPIKeyCreate, apiKeyCreate)
		s.bus.Unsubscribe(events.EventAuditAPIKeyRevoke, apiKeyRevoke)
		s.bus.Unsubscribe(events.EventAuditCampusCreate, campusCreate)
		s.bus.Unsubscribe(events.EventAuditCampusUpdate, campusUpdate)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-scheduleImported:
			s.logAuditEntry(ctx, models.AuditActionScheduleImport, payload)

		case payload := <-eventCreated:
			s.logAuditEntry(ctx, models.AuditActionEventCreate, payload)

		case payload := <-eventUpdated:
			s.logAuditEntry(ctx, models.AuditActionEventUpdate, payload)

		case payload := <-eventDeleted:
			s.logAuditEntry(ctx, models.AuditActionEventDelete, payload)

		case payload := <-apiKeyCreate:
			s.logAuditEntry(ctx, models.AuditActionAPIKeyCreate, payload)

		case payload := <-apiKeyRevoke:
			s.logAuditEntry(ctx, models.AuditActionAPIKeyRevoke, payload)

		case payload := <-campusCreate:
			s.logAuditEntry(ctx, models.AuditActionCampusCreate, payload)

		case payload := <-campusUpdate:
			s.logAuditEntry(ctx, models.AuditActionCampusUpdate, payload)
		}
	}
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, payload events.Payload) {
	entry := &models.AuditLog{
		ID:      uuid.NewString(),
		Action:  action,
		Details: make(map[string]any),
	}

	if userID, ok := payload["user_id"].(string); ok {
		entry.UserID = userID
	}
	if userEmail, ok := payload["user_email"].(string); ok {
		entry.UserEmail = userEmail
	}
	if campusID, ok := payload["campus_id"].(string); ok {
		entry.CampusID = campusID
	}
	if targetID, ok := payload["target_id"].(string); ok {
		entry.TargetID = targetID
	}
	if ipAddress, ok := payload["ip_address"].(string); ok {
		entry.IPAddress = ipAddress
	}

	// Copy remaining fields to details
	for k, v := range payload {
		switch k {
		case "user_id", "user_email", "campus_id", "target_id", "ip_address":
			// Already extracted
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly (for non-event-bus actions).
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("audit entry logged")

	return nil
}

// QueryFilters defines filters for querying audit logs.
type QueryFilters struct {
	UserID    *string
	CampusID  *string
	Action    *models.AuditAction
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Query retrieves audit logs with filters.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.CampusID != nil {
		query = query.Where("campus_id = ?", *filters.CampusID)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("created_at >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("created_at <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100) // Default limit
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
