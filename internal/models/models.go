/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models defines the persistent domain types for courseboard.
package models

import (
	"fmt"
	"time"
)

// RoleName enumerates the RBAC roles.
type RoleName string

const (
	RoleAdmin  RoleName = "admin"
	RoleStaff  RoleName = "staff"
	RoleViewer RoleName = "viewer"
)

// User represents an authenticated account.
type User struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Email     string `gorm:"uniqueIndex"`
	Password  string
	Role      RoleName `gorm:"type:varchar(16)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Campus is one teaching site. Each campus week lives in its own source
// spreadsheet; rooms are the spreadsheet's tabs, identified by tab order.
type Campus struct {
	ID            string `gorm:"primaryKey"`
	Name          string `gorm:"uniqueIndex"`
	SpreadsheetID string `gorm:"index"`
	Position      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ScheduleEvent is one scheduled session, extracted from a single grid
// cell. The ID is derived from the source coordinates, so re-ingesting an
// unchanged spreadsheet produces identical rows. Events are never mutated
// by the ingestor; manual edits go through the API.
type ScheduleEvent struct {
	ID            string `gorm:"primaryKey" json:"id"`
	CampusID      string `gorm:"index" json:"campus_id"`
	SpreadsheetID string `gorm:"index" json:"spreadsheet_id"`

	// Room is the sheet's 1-based tab ordinal; RoomTitle keeps the source label.
	Room      int    `json:"room"`
	RoomTitle string `json:"room_title"`

	// Date is the calendar date from the sheet's date row, possibly empty.
	// DayOfWeek runs 0 (Monday) through 6 (Sunday).
	Date      string `json:"date"`
	DayOfWeek int    `gorm:"index" json:"day_of_week"`

	StartHour   int `json:"start_hour"`
	StartMinute int `json:"start_minute"`
	EndHour     int `json:"end_hour"`
	EndMinute   int `json:"end_minute"`

	Subject  string   `json:"subject"`
	Teachers []string `gorm:"serializer:json" json:"teachers"`
	Students []string `gorm:"serializer:json" json:"students"`

	ImportJobID string    `gorm:"index" json:"import_job_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StartMinutes returns the start time as minutes since midnight.
func (e *ScheduleEvent) StartMinutes() int {
	return e.StartHour*60 + e.StartMinute
}

// EndMinutes returns the end time as minutes since midnight.
func (e *ScheduleEvent) EndMinutes() int {
	return e.EndHour*60 + e.EndMinute
}

// Validate checks field ranges before persisting a manually edited event.
func (e *ScheduleEvent) Validate() error {
	if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week %d out of range", e.DayOfWeek)
	}
	for _, check := range []struct {
		name string
		val  int
		max  int
	}{
		{"start_hour", e.StartHour, 23},
		{"end_hour", e.EndHour, 23},
		{"start_minute", e.StartMinute, 59},
		{"end_minute", e.EndMinute, 59},
	} {
		if check.val < 0 || check.val > check.max {
			return fmt.Errorf("%s %d out of range", check.name, check.val)
		}
	}
	return nil
}

// RosterKind distinguishes directory entries.
type RosterKind string

const (
	RosterTeacher RosterKind = "teacher"
	RosterStudent RosterKind = "student"
)

// RosterEntry is a teacher or student known to a campus. The roster is
// advisory: events reference people by name, matching the source data.
type RosterEntry struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	Kind      RosterKind `gorm:"type:varchar(16);index" json:"kind"`
	Name      string     `gorm:"index" json:"name"`
	Email     string     `json:"email,omitempty"`
	CampusID  string     `gorm:"index" json:"campus_id"`
	Active    bool       `gorm:"default:true" json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
