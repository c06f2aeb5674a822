/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule is the service layer over stored schedule events:
// week queries, lane layout, conflict checks, and manual event CRUD.
package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/courseboard/internal/cache"
	"github.com/friendsincode/courseboard/internal/conflict"
	"github.com/friendsincode/courseboard/internal/events"
	"github.com/friendsincode/courseboard/internal/layout"
	"github.com/friendsincode/courseboard/internal/models"
)

// ErrNotFound is returned when an event or campus does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a strict mutation would double-book someone.
var ErrConflict = errors.New("schedule conflict")

// Service queries and mutates schedule events.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	cache  *cache.Cache // optional
	logger zerolog.Logger
}

// NewService creates a schedule service. cache may be nil.
func NewService(db *gorm.DB, bus *events.Bus, c *cache.Cache, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		cache:  c,
		logger: logger.With().Str("component", "schedule").Logger(),
	}
}

// Campus returns one campus by ID.
func (s *Service) Campus(ctx context.Context, campusID string) (*models.Campus, error) {
	var campus models.Campus
	err := s.db.WithContext(ctx).First(&campus, "id = ?", campusID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &campus, nil
}

// Campuses lists all campuses in display order.
func (s *Service) Campuses(ctx context.Context) ([]models.Campus, error) {
	if s.cache != nil {
		if campuses, ok := s.cache.GetCampusList(ctx); ok {
			return campuses, nil
		}
	}

	var campuses []models.Campus
	if err := s.db.WithContext(ctx).Order("position, name").Find(&campuses).Error; err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetCampusList(ctx, campuses)
	}
	return campuses, nil
}

// Week returns every event in a campus week, ordered by day then start time.
func (s *Service) Week(ctx context.Context, campusID string) ([]models.ScheduleEvent, error) {
	if s.cache != nil {
		if week, ok := s.cache.GetWeekSchedule(ctx, campusID); ok {
			return week, nil
		}
	}

	var week []models.ScheduleEvent
	err := s.db.WithContext(ctx).
		Where("campus_id = ?", campusID).
		Order("day_of_week, start_hour, start_minute, id").
		Find(&week).Error
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetWeekSchedule(ctx, campusID, week)
	}
	return week, nil
}

// Layout returns per-day lane placements for a campus week.
func (s *Service) Layout(ctx context.Context, campusID string) (map[int][]layout.Placement, error) {
	week, err := s.Week(ctx, campusID)
	if err != nil {
		return nil, err
	}
	return layout.ByDay(week), nil
}

// CheckConflicts reports double-bookings for a candidate event against the
// rest of its campus week. excludeID skips one stored event, for edits.
func (s *Service) CheckConflicts(ctx context.Context, candidate models.ScheduleEvent, excludeID string) (conflict.Report, error) {
	week, err := s.Week(ctx, candidate.CampusID)
	if err != nil {
		return conflict.Report{}, err
	}
	return conflict.Check(candidate, week, excludeID), nil
}

// CreateEvent stores a manually entered event. Conflicts are returned as
// warnings; with strict set, a conflicting create is rejected with
// ErrConflict and nothing is stored.
func (s *Service) CreateEvent(ctx context.Context, event models.ScheduleEvent, strict bool) (*models.ScheduleEvent, conflict.Report, error) {
	if err := s.validate(&event); err != nil {
		return nil, conflict.Report{}, err
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.ImportJobID = "" // manual events are never owned by an import

	report, err := s.CheckConflicts(ctx, event, "")
	if err != nil {
		return nil, conflict.Report{}, err
	}
	if strict && report.HasConflicts() {
		return nil, report, ErrConflict
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, report, fmt.Errorf("create event: %w", err)
	}

	s.invalidate(ctx, event.CampusID)
	s.bus.Publish(events.EventEventCreated, events.Payload{
		"campus_id": event.CampusID,
		"target_id": event.ID,
	})
	return &event, report, nil
}

// UpdateEvent replaces a stored event's fields. The stored row keeps its ID;
// conflict checking excludes the row being edited.
func (s *Service) UpdateEvent(ctx context.Context, id string, event models.ScheduleEvent, strict bool) (*models.ScheduleEvent, conflict.Report, error) {
	var existing models.ScheduleEvent
	err := s.db.WithContext(ctx).First(&existing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, conflict.Report{}, ErrNotFound
	}
	if err != nil {
		return nil, conflict.Report{}, err
	}

	event.ID = existing.ID
	event.CampusID = existing.CampusID
	event.ImportJobID = existing.ImportJobID
	event.CreatedAt = existing.CreatedAt
	if err := s.validate(&event); err != nil {
		return nil, conflict.Report{}, err
	}

	report, err := s.CheckConflicts(ctx, event, existing.ID)
	if err != nil {
		return nil, conflict.Report{}, err
	}
	if strict && report.HasConflicts() {
		return nil, report, ErrConflict
	}

	if err := s.db.WithContext(ctx).Save(&event).Error; err != nil {
		return nil, report, fmt.Errorf("update event: %w", err)
	}

	s.invalidate(ctx, event.CampusID)
	s.bus.Publish(events.EventEventUpdated, events.Payload{
		"campus_id": event.CampusID,
		"target_id": event.ID,
	})
	return &event, report, nil
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	var existing models.ScheduleEvent
	err := s.db.WithContext(ctx).First(&existing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&existing).Error; err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	s.invalidate(ctx, existing.CampusID)
	s.bus.Publish(events.EventEventDeleted, events.Payload{
		"campus_id": existing.CampusID,
		"target_id": existing.ID,
	})
	return nil
}

func (s *Service) validate(event *models.ScheduleEvent) error {
	if event.CampusID == "" {
		return fmt.Errorf("campus_id is required")
	}
	if err := event.Validate(); err != nil {
		return err
	}
	if event.EndMinutes() <= event.StartMinutes() {
		return fmt.Errorf("event must end after it starts")
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, campusID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateWeekSchedule(ctx, campusID); err != nil {
		s.logger.Debug().Err(err).Str("campus_id", campusID).Msg("cache invalidation failed")
	}
}
