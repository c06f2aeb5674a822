/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/courseboard/internal/models"
)

// Refresher periodically re-imports every campus that has a source
// spreadsheet. IsLeader gates the work in multi-instance deployments; a nil
// IsLeader means this instance always refreshes.
type Refresher struct {
	db       *gorm.DB
	svc      *Service
	source   GridSource
	interval time.Duration
	isLeader func() bool
	logger   zerolog.Logger
}

// NewRefresher creates a periodic refresh worker.
func NewRefresher(db *gorm.DB, svc *Service, source GridSource, interval time.Duration, isLeader func() bool, logger zerolog.Logger) *Refresher {
	return &Refresher{
		db:       db,
		svc:      svc,
		source:   source,
		interval: interval,
		isLeader: isLeader,
		logger:   logger.With().Str("component", "import_refresher").Logger(),
	}
}

// Run ticks until the context is canceled. Failed campus imports are logged
// and do not stop the loop; each failure is also recorded on its job row.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("periodic import refresher started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.isLeader != nil && !r.isLeader() {
				continue
			}
			r.refreshAll(ctx)
		}
	}
}

func (r *Refresher) refreshAll(ctx context.Context) {
	var campuses []models.Campus
	err := r.db.WithContext(ctx).
		Where("spreadsheet_id <> ''").
		Order("position, name").
		Find(&campuses).Error
	if err != nil {
		r.logger.Error().Err(err).Msg("list campuses for refresh")
		return
	}

	for _, campus := range campuses {
		if ctx.Err() != nil {
			return
		}
		job, err := r.svc.Run(ctx, campus, r.source)
		if err != nil {
			jobID := ""
			if job != nil {
				jobID = job.ID
			}
			r.logger.Error().Err(err).
				Str("campus_id", campus.ID).
				Str("job_id", jobID).
				Msg("periodic import failed")
			continue
		}
		r.logger.Debug().
			Str("campus_id", campus.ID).
			Str("job_id", job.ID).
			Msg("periodic import completed")
	}
}
