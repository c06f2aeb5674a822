/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for frequently read
// schedule data.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/courseboard/internal/models"
	"github.com/friendsincode/courseboard/internal/telemetry"
)

// Default TTL values for different cache types
const (
	DefaultCampusListTTL   = 5 * time.Minute
	DefaultWeekScheduleTTL = 5 * time.Minute
)

// Key prefixes for Redis cache
const (
	KeyCampusList   = "courseboard:cache:campuses"
	KeyWeekSchedule = "courseboard:cache:week:" // + campus_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	CampusListTTL   time.Duration
	WeekScheduleTTL time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:       "localhost:6379",
		CampusListTTL:   DefaultCampusListTTL,
		WeekScheduleTTL: DefaultWeekScheduleTTL,
		DisableOnError:  true,
	}
}

// Cache provides Redis-backed caching with graceful fallback. A missing or
// failing Redis never breaks reads; callers fall through to the database.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		telemetry.CacheRequestsTotal.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	telemetry.CacheRequestsTotal.WithLabelValues("hit").Inc()
	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// Campus caching methods

// GetCampusList retrieves the cached list of campuses.
func (c *Cache) GetCampusList(ctx context.Context) ([]models.Campus, bool) {
	var campuses []models.Campus
	found, err := c.get(ctx, KeyCampusList, &campuses)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Int("count", len(campuses)).Msg("campus list cache hit")
	return campuses, true
}

// SetCampusList caches the list of campuses.
func (c *Cache) SetCampusList(ctx context.Context, campuses []models.Campus) error {
	return c.set(ctx, KeyCampusList, campuses, c.config.CampusListTTL)
}

// InvalidateCampusList removes the campus list from cache.
func (c *Cache) InvalidateCampusList(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating campus list cache")
	return c.delete(ctx, KeyCampusList)
}

// Week schedule caching methods

// GetWeekSchedule retrieves the cached week of events for a campus.
func (c *Cache) GetWeekSchedule(ctx context.Context, campusID string) ([]models.ScheduleEvent, bool) {
	var schedule []models.ScheduleEvent
	found, err := c.get(ctx, KeyWeekSchedule+campusID, &schedule)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("campus_id", campusID).Int("count", len(schedule)).Msg("week schedule cache hit")
	return schedule, true
}

// SetWeekSchedule caches a campus week.
func (c *Cache) SetWeekSchedule(ctx context.Context, campusID string, schedule []models.ScheduleEvent) error {
	return c.set(ctx, KeyWeekSchedule+campusID, schedule, c.config.WeekScheduleTTL)
}

// InvalidateWeekSchedule removes a campus week from cache. Called after
// imports and event mutations.
func (c *Cache) InvalidateWeekSchedule(ctx context.Context, campusID string) error {
	c.logger.Debug().Str("campus_id", campusID).Msg("invalidating week schedule cache")
	return c.delete(ctx, KeyWeekSchedule+campusID)
}
