/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package conflict detects double-booked teachers and students across a
// campus week.
package conflict

import (
	"fmt"

	"github.com/friendsincode/courseboard/internal/models"
)

// ResourceType identifies what kind of participant is double-booked.
type ResourceType string

const (
	ResourceTeacher ResourceType = "teacher"
	ResourceStudent ResourceType = "student"
)

// Conflict is one double-booking: a named person appears in the candidate
// event and in an already scheduled event whose time range overlaps.
type Conflict struct {
	ResourceType       ResourceType `json:"resource_type"`
	ResourceName       string       `json:"resource_name"`
	ConflictingEventID string       `json:"conflicting_event_id"`
}

// Message renders the conflict for display.
func (c Conflict) Message() string {
	label := "Student"
	if c.ResourceType == ResourceTeacher {
		label = "Teacher"
	}
	return fmt.Sprintf("%s %s already has an event at this time", label, c.ResourceName)
}

// Report lists every conflict found for one candidate event.
type Report struct {
	Conflicts []Conflict `json:"conflicts"`
}

// HasConflicts reports whether any double-booking was found.
func (r Report) HasConflicts() bool { return len(r.Conflicts) > 0 }

// Messages returns one display string per conflict, in detection order.
func (r Report) Messages() []string {
	msgs := make([]string, len(r.Conflicts))
	for i, c := range r.Conflicts {
		msgs[i] = c.Message()
	}
	return msgs
}

// weekMinutes places an event on a single week axis so events on different
// days can never overlap numerically.
func weekMinutes(day, minutes int) int {
	return day*24*60 + minutes
}

// overlaps checks two half-open intervals. Events that merely touch, one
// ending exactly when the other starts, do not overlap.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// Check compares candidate against the existing events and reports every
// teacher and student booked into an overlapping time range. The event with
// ID excludeID is skipped, so an edit never conflicts with its own stored
// row. Conflicts are reported once per person per existing event, teachers
// first, matching the candidate's participant order.
func Check(candidate models.ScheduleEvent, existing []models.ScheduleEvent, excludeID string) Report {
	var report Report

	cStart := weekMinutes(candidate.DayOfWeek, candidate.StartMinutes())
	cEnd := weekMinutes(candidate.DayOfWeek, candidate.EndMinutes())

	for _, other := range existing {
		if other.ID == excludeID || other.ID == candidate.ID {
			continue
		}
		oStart := weekMinutes(other.DayOfWeek, other.StartMinutes())
		oEnd := weekMinutes(other.DayOfWeek, other.EndMinutes())
		if !overlaps(cStart, cEnd, oStart, oEnd) {
			continue
		}

		for _, name := range candidate.Teachers {
			if containsName(other.Teachers, name) {
				report.Conflicts = append(report.Conflicts, Conflict{
					ResourceType:       ResourceTeacher,
					ResourceName:       name,
					ConflictingEventID: other.ID,
				})
			}
		}
		for _, name := range candidate.Students {
			if containsName(other.Students, name) {
				report.Conflicts = append(report.Conflicts, Conflict{
					ResourceType:       ResourceStudent,
					ResourceName:       name,
					ConflictingEventID: other.ID,
				})
			}
		}
	}

	return report
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
