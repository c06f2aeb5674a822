/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/friendsincode/courseboard/internal/models"
)

// Grid layout constants, in the source's 1-based addressing: row 2 carries
// the Monday..Sunday dates, rows 4-13 and columns 1-7 carry event cells.
const (
	dateRowIndex = 1
	firstDataRow = 3
	lastDataRow  = 12
	weekdayCount = 7
)

// Sheet is one room tab of a source spreadsheet, in tab order.
type Sheet struct {
	Title string
	Index int // 0-based tab position
	Rows  [][]string
}

// GridSource supplies the full grid of a spreadsheet in one read. The
// ingestor never writes back.
type GridSource interface {
	Sheets(ctx context.Context, spreadsheetID string) ([]Sheet, error)
}

// Room pairs a room's 1-based ordinal with its source sheet title.
type Room struct {
	Ordinal int    `json:"ordinal"`
	Title   string `json:"title"`
}

// SkippedCell identifies a grid cell dropped during ingestion.
type SkippedCell struct {
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"` // 1-based, as in the source grid
	Column int    `json:"column"`
	Reason string `json:"reason"`
}

// Result is the outcome of ingesting one spreadsheet.
type Result struct {
	Events  []models.ScheduleEvent
	Rooms   []Room
	Dates   []string // Monday..Sunday, from the first room's date row
	Skipped []SkippedCell
}

// IngestGrid walks every room tab and extracts one ScheduleEvent per
// parseable non-empty cell. Event IDs are derived from the source
// coordinates and parsed start time, so re-ingesting unchanged data yields
// identical IDs. Unparseable cells are recorded in Skipped and dropped.
func IngestGrid(spreadsheetID, campusID string, sheets []Sheet) Result {
	result := Result{Dates: make([]string, weekdayCount)}
	haveDates := false

	for _, sheet := range sheets {
		ordinal := sheet.Index + 1
		result.Rooms = append(result.Rooms, Room{Ordinal: ordinal, Title: sheet.Title})

		sheetDates := dateRow(sheet.Rows)
		if !haveDates {
			result.Dates = sheetDates
			haveDates = true
		}

		for r := firstDataRow; r <= lastDataRow; r++ {
			if r >= len(sheet.Rows) {
				break
			}
			row := sheet.Rows[r]
			for c := 0; c < weekdayCount && c < len(row); c++ {
				cell := row[c]
				if strings.TrimSpace(cell) == "" {
					continue
				}

				parsed, err := ExtractCell(cell)
				if err != nil {
					result.Skipped = append(result.Skipped, SkippedCell{
						Sheet:  sheet.Title,
						Row:    r + 1,
						Column: c + 1,
						Reason: err.Error(),
					})
					continue
				}

				date := sheetDates[c]
				if date == "" {
					date = result.Dates[c]
				}

				result.Events = append(result.Events, models.ScheduleEvent{
					ID:            eventID(spreadsheetID, sheet.Title, r, c, parsed.Start.Hour, parsed.Start.Minute),
					CampusID:      campusID,
					SpreadsheetID: spreadsheetID,
					Room:          ordinal,
					RoomTitle:     sheet.Title,
					Date:          date,
					DayOfWeek:     c,
					StartHour:     parsed.Start.Hour,
					StartMinute:   parsed.Start.Minute,
					EndHour:       parsed.End.Hour,
					EndMinute:     parsed.End.Minute,
					Subject:       parsed.Subject,
					Teachers:      parsed.Teachers,
					Students:      parsed.Students,
				})
			}
		}
	}

	return result
}

func eventID(spreadsheetID, sheetTitle string, row, col, hour, minute int) string {
	return fmt.Sprintf("%s:%s:%d:%d:%d:%d", spreadsheetID, sheetTitle, row, col, hour, minute)
}

// dateRow pads the sheet's date row out to seven trimmed entries.
func dateRow(rows [][]string) []string {
	dates := make([]string, weekdayCount)
	if dateRowIndex >= len(rows) {
		return dates
	}
	row := rows[dateRowIndex]
	for i := 0; i < weekdayCount && i < len(row); i++ {
		dates[i] = strings.TrimSpace(row[i])
	}
	return dates
}
