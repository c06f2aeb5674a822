/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/courseboard/internal/events"
	"github.com/friendsincode/courseboard/internal/models"
	"github.com/friendsincode/courseboard/internal/telemetry"
)

// JobStatus represents the current state of an import job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobResult summarizes what one import produced.
type JobResult struct {
	Rooms         int `json:"rooms"`
	EventsCreated int `json:"events_created"`
	EventsRemoved int `json:"events_removed"`
	CellsSkipped  int `json:"cells_skipped"`
}

// Job is one run of the spreadsheet importer for a campus week.
type Job struct {
	ID            string        `gorm:"type:uuid;primaryKey" json:"id"`
	CampusID      string        `gorm:"index" json:"campus_id"`
	SpreadsheetID string        `gorm:"index" json:"spreadsheet_id"`
	Status        JobStatus     `gorm:"type:varchar(16);index" json:"status"`
	Result        *JobResult    `gorm:"serializer:json" json:"result,omitempty"`
	Skipped       []SkippedCell `gorm:"serializer:json" json:"skipped,omitempty"`
	Dates         []string      `gorm:"serializer:json" json:"dates,omitempty"`
	Error         string        `gorm:"type:text" json:"error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// TableName keeps the job table clearly scoped to imports.
func (Job) TableName() string { return "import_jobs" }

// Service runs import jobs and persists their results.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates an import service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "ingest").Logger(),
	}
}

// RecoverStaleJobs marks jobs left in "running" by a crash as failed.
// Called on server startup.
func (s *Service) RecoverStaleJobs(ctx context.Context) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&Job{}).
		Where("status = ?", JobStatusRunning).
		Updates(map[string]any{
			"status":       JobStatusFailed,
			"error":        "import interrupted by server restart",
			"completed_at": &now,
		})
	if result.Error != nil {
		return fmt.Errorf("recover stale jobs: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Warn().Int64("count", result.RowsAffected).Msg("marked stale import jobs as failed")
	}
	return nil
}

// Run imports one campus week from source and reconciles the stored events.
//
// Ingested rows are replaced wholesale: events whose IDs no longer appear in
// the grid are deleted, the rest are upserted in place. Events created by
// hand through the API carry no import job reference and are left alone.
func (s *Service) Run(ctx context.Context, campus models.Campus, source GridSource) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:            uuid.New().String(),
		CampusID:      campus.ID,
		SpreadsheetID: campus.SpreadsheetID,
		Status:        JobStatusRunning,
		CreatedAt:     now,
		StartedAt:     &now,
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}

	sheets, err := source.Sheets(ctx, campus.SpreadsheetID)
	if err != nil {
		return job, s.fail(ctx, job, fmt.Errorf("fetch grid: %w", err))
	}

	result := IngestGrid(campus.SpreadsheetID, campus.ID, sheets)
	for i := range result.Events {
		result.Events[i].ImportJobID = job.ID
	}

	removed, err := s.reconcile(ctx, campus.ID, result.Events)
	if err != nil {
		return job, s.fail(ctx, job, fmt.Errorf("store events: %w", err))
	}

	done := time.Now()
	job.Status = JobStatusCompleted
	job.CompletedAt = &done
	job.Skipped = result.Skipped
	job.Dates = result.Dates
	job.Result = &JobResult{
		Rooms:         len(result.Rooms),
		EventsCreated: len(result.Events),
		EventsRemoved: removed,
		CellsSkipped:  len(result.Skipped),
	}
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return job, fmt.Errorf("save import job: %w", err)
	}

	telemetry.ImportJobsTotal.WithLabelValues(string(JobStatusCompleted)).Inc()
	telemetry.ImportEventsIngested.Add(float64(len(result.Events)))
	telemetry.ImportCellsSkipped.Add(float64(len(result.Skipped)))

	s.logger.Info().
		Str("job_id", job.ID).
		Str("campus_id", campus.ID).
		Int("events", len(result.Events)).
		Int("skipped", len(result.Skipped)).
		Msg("schedule import completed")

	s.bus.Publish(events.EventScheduleImported, events.Payload{
		"job_id":    job.ID,
		"campus_id": campus.ID,
		"events":    len(result.Events),
		"skipped":   len(result.Skipped),
	})

	return job, nil
}

// reconcile upserts the freshly ingested events and removes stale ingested
// rows for the campus, all in one transaction so readers never observe a
// half-imported week.
func (s *Service) reconcile(ctx context.Context, campusID string, incoming []models.ScheduleEvent) (int, error) {
	removed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(incoming))
		for _, event := range incoming {
			ids = append(ids, event.ID)
		}

		stale := tx.Where("campus_id = ? AND import_job_id <> ''", campusID)
		if len(ids) > 0 {
			stale = stale.Where("id NOT IN ?", ids)
		}
		result := stale.Delete(&models.ScheduleEvent{})
		if result.Error != nil {
			return result.Error
		}
		removed = int(result.RowsAffected)

		if len(incoming) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&incoming).Error
	})
	return removed, err
}

func (s *Service) fail(ctx context.Context, job *Job, cause error) error {
	now := time.Now()
	job.Status = JobStatusFailed
	job.Error = cause.Error()
	job.CompletedAt = &now
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist job failure")
	}
	telemetry.ImportJobsTotal.WithLabelValues(string(JobStatusFailed)).Inc()
	return cause
}
