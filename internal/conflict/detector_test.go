package conflict

import (
	"reflect"
	"testing"

	"github.com/friendsincode/courseboard/internal/models"
)

func event(id string, day, startHour, startMin, endHour, endMin int, teachers, students []string) models.ScheduleEvent {
	return models.ScheduleEvent{
		ID:          id,
		DayOfWeek:   day,
		StartHour:   startHour,
		StartMinute: startMin,
		EndHour:     endHour,
		EndMinute:   endMin,
		Teachers:    teachers,
		Students:    students,
	}
}

func TestCheck(t *testing.T) {
	existing := []models.ScheduleEvent{
		event("e1", 0, 9, 0, 10, 0, []string{"Dr. Smith"}, []string{"John Doe"}),
		event("e2", 0, 10, 0, 11, 0, []string{"Dr. Smith"}, []string{"Ada Lovelace"}),
		event("e3", 2, 9, 0, 10, 0, []string{"Dr. Hardy"}, []string{"John Doe"}),
	}

	tests := []struct {
		name      string
		candidate models.ScheduleEvent
		excludeID string
		want      []Conflict
	}{
		{
			name:      "teacher and student double booked",
			candidate: event("new", 0, 9, 30, 10, 30, []string{"Dr. Smith"}, []string{"John Doe"}),
			want: []Conflict{
				{ResourceTeacher, "Dr. Smith", "e1"},
				{ResourceStudent, "John Doe", "e1"},
				{ResourceTeacher, "Dr. Smith", "e2"},
			},
		},
		{
			name:      "adjacent events do not conflict",
			candidate: event("new", 0, 11, 0, 12, 0, []string{"Dr. Smith"}, nil),
			want:      nil,
		},
		{
			name:      "same time different day",
			candidate: event("new", 1, 9, 0, 10, 0, []string{"Dr. Smith"}, []string{"John Doe"}),
			want:      nil,
		},
		{
			name:      "different people same time",
			candidate: event("new", 0, 9, 0, 10, 0, []string{"Dr. Hardy"}, []string{"Ada Lovelace"}),
			want:      nil,
		},
		{
			name:      "excluded event ignored",
			candidate: event("new", 0, 9, 0, 10, 0, []string{"Dr. Smith"}, nil),
			excludeID: "e1",
			want:      nil,
		},
		{
			name:      "candidate never conflicts with itself",
			candidate: existing[0],
			want:      nil,
		},
		{
			name:      "containment overlap",
			candidate: event("new", 0, 9, 15, 9, 45, nil, []string{"John Doe"}),
			want: []Conflict{
				{ResourceStudent, "John Doe", "e1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.candidate, existing, tt.excludeID)
			if !reflect.DeepEqual(got.Conflicts, tt.want) {
				t.Errorf("Check() conflicts = %+v, want %+v", got.Conflicts, tt.want)
			}
		})
	}
}

func TestReportMessages(t *testing.T) {
	report := Report{Conflicts: []Conflict{
		{ResourceTeacher, "Dr. Smith", "e1"},
		{ResourceStudent, "John Doe", "e1"},
	}}

	want := []string{
		"Teacher Dr. Smith already has an event at this time",
		"Student John Doe already has an event at this time",
	}
	if got := report.Messages(); !reflect.DeepEqual(got, want) {
		t.Errorf("Messages() = %v, want %v", got, want)
	}
	if !report.HasConflicts() {
		t.Error("HasConflicts() = false, want true")
	}
	if (Report{}).HasConflicts() {
		t.Error("empty report HasConflicts() = true, want false")
	}
}
