/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint, and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courseboard",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP API requests.",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "courseboard",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "courseboard",
			Subsystem: "api",
			Name:      "active_connections",
			Help:      "Number of HTTP requests currently being served.",
		},
	)

	// DatabaseQueryDuration observes GORM operation latency by operation and table.
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "courseboard",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// DatabaseErrorsTotal counts database operation errors.
	DatabaseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courseboard",
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Total number of database errors.",
		},
		[]string{"operation", "kind"},
	)

	// DatabaseConnectionsActive tracks open connections in the pool.
	DatabaseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "courseboard",
			Subsystem: "db",
			Name:      "connections_active",
			Help:      "Number of open database connections.",
		},
	)

	// ImportJobsTotal counts import job runs by final status.
	ImportJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courseboard",
			Subsystem: "import",
			Name:      "jobs_total",
			Help:      "Total number of schedule import jobs by status.",
		},
		[]string{"status"},
	)

	// ImportEventsIngested counts schedule events written by imports.
	ImportEventsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courseboard",
			Subsystem: "import",
			Name:      "events_ingested_total",
			Help:      "Total number of schedule events written by import jobs.",
		},
	)

	// ImportCellsSkipped counts malformed grid cells skipped by imports.
	ImportCellsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courseboard",
			Subsystem: "import",
			Name:      "cells_skipped_total",
			Help:      "Total number of malformed grid cells skipped by import jobs.",
		},
	)

	// LeaderElectionStatus is 1 while this instance holds the import leader
	// lease, 0 otherwise.
	LeaderElectionStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "courseboard",
			Subsystem: "import",
			Name:      "leader_status",
			Help:      "Whether this instance currently leads periodic imports.",
		},
		[]string{"instance_id"},
	)

	// LeaderElectionChanges counts leadership transitions.
	LeaderElectionChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courseboard",
			Subsystem: "import",
			Name:      "leader_changes_total",
			Help:      "Total number of import leadership transitions.",
		},
		[]string{"instance_id", "change"},
	)

	// CacheRequestsTotal counts schedule cache lookups by outcome.
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courseboard",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Total number of schedule cache lookups.",
		},
		[]string{"result"},
	)
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
