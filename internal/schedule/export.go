/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// ExportICalResult contains the iCal export data.
type ExportICalResult struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportICal renders a campus week as an iCal feed. Events carry the
// calendar date from the sheet's date row; events whose cell had no usable
// date are skipped, since a VEVENT needs a real date.
func (s *Service) ExportICal(ctx context.Context, campusID string) (*ExportICalResult, error) {
	campus, err := s.Campus(ctx, campusID)
	if err != nil {
		return nil, err
	}

	week, err := s.Week(ctx, campusID)
	if err != nil {
		return nil, fmt.Errorf("load week: %w", err)
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//Friends Incode//Courseboard//EN")
	cal.SetName(campus.Name + " Schedule")

	skipped := 0
	for _, event := range week {
		day, err := time.ParseInLocation("2006-01-02", event.Date, time.Local)
		if err != nil {
			skipped++
			continue
		}

		start := day.Add(time.Duration(event.StartMinutes()) * time.Minute)
		end := day.Add(time.Duration(event.EndMinutes()) * time.Minute)
		if !end.After(start) {
			// Ranges like 23:45-00:15 finish the next morning.
			end = end.Add(24 * time.Hour)
		}

		ve := cal.AddEvent(event.ID + "@courseboard")
		ve.SetDtStampTime(time.Now())
		ve.SetStartAt(start)
		ve.SetEndAt(end)
		ve.SetSummary(summaryFor(event.Subject, event.Students))
		if event.RoomTitle != "" {
			ve.SetLocation(event.RoomTitle)
		}
		if len(event.Teachers) > 0 {
			ve.SetDescription("Teachers: " + strings.Join(event.Teachers, ", "))
		}
	}

	if skipped > 0 {
		s.logger.Debug().Int("skipped", skipped).Str("campus_id", campusID).Msg("events without dates left out of iCal export")
	}

	filename := fmt.Sprintf("%s-schedule.ics", slugify(campus.Name))
	return &ExportICalResult{
		Data:        []byte(cal.Serialize()),
		Filename:    filename,
		ContentType: "text/calendar; charset=utf-8",
	}, nil
}

func summaryFor(subject string, students []string) string {
	switch {
	case subject != "" && len(students) > 0:
		return subject + " - " + strings.Join(students, ", ")
	case subject != "":
		return subject
	case len(students) > 0:
		return strings.Join(students, ", ")
	default:
		return "Scheduled session"
	}
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
