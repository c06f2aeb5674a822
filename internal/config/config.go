/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	BaseURL     string // Public base URL (e.g., http://courseboard.example.com)
	DBBackend   DatabaseBackend
	DBDSN       string

	JWTSigningKey string
	MetricsBind   string

	// Campus registry file (YAML) mapping campuses to source spreadsheets.
	CampusFile string

	// Google Sheets access
	SheetsToken   string // Bearer token for the Sheets API
	SheetsBaseURL string // Override for tests; "" means the Google endpoint

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Redis schedule cache
	CacheEnabled  bool
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Periodic re-import of campus spreadsheets; zero disables the worker.
	// With leader election on, only one instance runs the refresh.
	ImportInterval        time.Duration
	LeaderElectionEnabled bool

	// NATS event bridge (optional; in-process bus always runs)
	NATSEnabled bool
	NATSURL     string

	InstanceID string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("COURSEBOARD_ENV", "development"),
		HTTPBind:    getEnv("COURSEBOARD_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("COURSEBOARD_HTTP_PORT", 8080),
		BaseURL:     getEnv("COURSEBOARD_BASE_URL", ""),
		DBBackend:   DatabaseBackend(getEnv("COURSEBOARD_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:       getEnv("COURSEBOARD_DB_DSN", ""),

		JWTSigningKey: getEnv("COURSEBOARD_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("COURSEBOARD_METRICS_BIND", "127.0.0.1:9000"),

		CampusFile: getEnv("COURSEBOARD_CAMPUS_FILE", "./campuses.yaml"),

		SheetsToken:   getEnv("COURSEBOARD_SHEETS_TOKEN", ""),
		SheetsBaseURL: getEnv("COURSEBOARD_SHEETS_BASE_URL", ""),

		TracingEnabled:    getEnvBool("COURSEBOARD_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("COURSEBOARD_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("COURSEBOARD_TRACING_SAMPLE_RATE", 1.0),

		CacheEnabled:  getEnvBool("COURSEBOARD_CACHE_ENABLED", false),
		CacheTTL:      time.Duration(getEnvInt("COURSEBOARD_CACHE_TTL_SECONDS", 300)) * time.Second,
		RedisAddr:     getEnv("COURSEBOARD_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("COURSEBOARD_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("COURSEBOARD_REDIS_DB", 0),

		ImportInterval:        time.Duration(getEnvInt("COURSEBOARD_IMPORT_INTERVAL_MINUTES", 0)) * time.Minute,
		LeaderElectionEnabled: getEnvBool("COURSEBOARD_LEADER_ELECTION_ENABLED", false),

		NATSEnabled: getEnvBool("COURSEBOARD_NATS_ENABLED", false),
		NATSURL:     getEnv("COURSEBOARD_NATS_URL", "nats://localhost:4222"),

		InstanceID: getEnv("COURSEBOARD_INSTANCE_ID", ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("COURSEBOARD_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("COURSEBOARD_JWT_SIGNING_KEY must be provided")
	}

	if strings.EqualFold(cfg.Environment, "production") {
		if strings.EqualFold(cfg.JWTSigningKey, "changeme") {
			return nil, fmt.Errorf("COURSEBOARD_JWT_SIGNING_KEY must be set to a non-default value in production")
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
