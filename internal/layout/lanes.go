/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package layout assigns overlapping events to display lanes so a day
// column can render concurrent sessions side by side.
package layout

import (
	"sort"

	"github.com/friendsincode/courseboard/internal/models"
)

// Placement positions one event within its day column. Lane is the 0-based
// horizontal slot; LaneCount is the total number of lanes the column needs,
// shared by every placement so widths can be computed as 1/LaneCount.
type Placement struct {
	EventID   string `json:"event_id"`
	Lane      int    `json:"lane"`
	LaneCount int    `json:"lane_count"`
}

// Lanes assigns each event the lowest lane whose previous occupant has
// already ended. Events are considered in start order, ties broken by end
// time then ID, so the assignment is deterministic. Intervals are half-open:
// an event starting exactly when another ends shares its lane.
func Lanes(events []models.ScheduleEvent) []Placement {
	if len(events) == 0 {
		return nil
	}

	ordered := make([]models.ScheduleEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartMinutes() != ordered[j].StartMinutes() {
			return ordered[i].StartMinutes() < ordered[j].StartMinutes()
		}
		if ordered[i].EndMinutes() != ordered[j].EndMinutes() {
			return ordered[i].EndMinutes() < ordered[j].EndMinutes()
		}
		return ordered[i].ID < ordered[j].ID
	})

	// laneEnds[i] is when the latest event in lane i finishes.
	var laneEnds []int
	byID := make(map[string]int, len(ordered))
	for _, event := range ordered {
		lane := -1
		for i, end := range laneEnds {
			if end <= event.StartMinutes() {
				lane = i
				break
			}
		}
		if lane == -1 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, 0)
		}
		laneEnds[lane] = event.EndMinutes()
		byID[event.ID] = lane
	}

	placements := make([]Placement, len(events))
	for i, event := range events {
		placements[i] = Placement{
			EventID:   event.ID,
			Lane:      byID[event.ID],
			LaneCount: len(laneEnds),
		}
	}
	return placements
}

// ByDay groups events by weekday and lays each day out independently, so a
// crowded Monday never widens Tuesday's lanes.
func ByDay(events []models.ScheduleEvent) map[int][]Placement {
	byDay := make(map[int][]models.ScheduleEvent)
	for _, event := range events {
		byDay[event.DayOfWeek] = append(byDay[event.DayOfWeek], event)
	}

	out := make(map[int][]Placement, len(byDay))
	for day, dayEvents := range byDay {
		out[day] = Lanes(dayEvents)
	}
	return out
}
