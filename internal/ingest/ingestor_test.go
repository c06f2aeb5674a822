package ingest

import (
	"reflect"
	"testing"
)

// testSheet builds a grid with the standard layout: row 2 dates, rows 4-13
// data. cells maps "row,col" (0-based) to cell text.
func testSheet(title string, index int, dates []string, cells map[[2]int]string) Sheet {
	rows := make([][]string, lastDataRow+1)
	for i := range rows {
		rows[i] = make([]string, weekdayCount)
	}
	copy(rows[dateRowIndex], dates)
	for at, text := range cells {
		rows[at[0]][at[1]] = text
	}
	return Sheet{Title: title, Index: index, Rows: rows}
}

func TestIngestGrid(t *testing.T) {
	dates := []string{"2026-08-31", "2026-09-01", "2026-09-02", "2026-09-03", "2026-09-04", "2026-09-05", "2026-09-06"}
	sheet := testSheet("Room A", 0, dates, map[[2]int]string{
		{3, 0}: "9:00am-10:00am\nJohn Doe (Algebra)\n(Dr. Smith)",
		{5, 2}: "4:15pm-6:15pm\nAda Lovelace (Calculus)\n(Dr. Hardy)",
		{4, 1}: "not a schedule entry",
	})

	result := IngestGrid("sheet-1", "campus-1", []Sheet{sheet})

	if len(result.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(result.Events))
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("got %d skipped cells, want 1", len(result.Skipped))
	}
	if got := result.Skipped[0]; got.Sheet != "Room A" || got.Row != 5 || got.Column != 2 {
		t.Errorf("skipped cell = %+v, want Room A row 5 column 2", got)
	}
	if !reflect.DeepEqual(result.Rooms, []Room{{Ordinal: 1, Title: "Room A"}}) {
		t.Errorf("rooms = %+v", result.Rooms)
	}
	if !reflect.DeepEqual(result.Dates, dates) {
		t.Errorf("dates = %v, want %v", result.Dates, dates)
	}

	first := result.Events[0]
	if first.ID != "sheet-1:Room A:3:0:9:0" {
		t.Errorf("event id = %q", first.ID)
	}
	if first.DayOfWeek != 0 || first.Room != 1 || first.Date != "2026-08-31" {
		t.Errorf("event coordinates = day %d room %d date %q", first.DayOfWeek, first.Room, first.Date)
	}
	if first.StartHour != 9 || first.EndHour != 10 {
		t.Errorf("event times = %d-%d", first.StartHour, first.EndHour)
	}
	if first.Subject != "Algebra" {
		t.Errorf("subject = %q", first.Subject)
	}

	second := result.Events[1]
	if second.DayOfWeek != 2 || second.Date != "2026-09-02" {
		t.Errorf("second event day %d date %q", second.DayOfWeek, second.Date)
	}
	if second.StartHour != 16 || second.StartMinute != 15 {
		t.Errorf("second event start %d:%02d", second.StartHour, second.StartMinute)
	}
}

func TestIngestGridDateFallback(t *testing.T) {
	dates := []string{"2026-08-31", "2026-09-01", "2026-09-02", "2026-09-03", "2026-09-04", "2026-09-05", "2026-09-06"}
	first := testSheet("Room A", 0, dates, nil)
	// Second room's date row is missing entries; its events should fall
	// back to the first room's dates.
	second := testSheet("Room B", 1, []string{"", "2026-09-01"}, map[[2]int]string{
		{3, 0}: "9am-10am\nJane Roe",
	})

	result := IngestGrid("sheet-1", "campus-1", []Sheet{first, second})

	if len(result.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(result.Events))
	}
	if result.Events[0].Date != "2026-08-31" {
		t.Errorf("date = %q, want fallback 2026-08-31", result.Events[0].Date)
	}
	if result.Events[0].Room != 2 || result.Events[0].RoomTitle != "Room B" {
		t.Errorf("room = %d %q", result.Events[0].Room, result.Events[0].RoomTitle)
	}
}

func TestIngestGridShortAndRaggedRows(t *testing.T) {
	sheet := Sheet{
		Title: "Room A",
		Index: 0,
		Rows: [][]string{
			{"Room A"},
			{"2026-08-31"},
			{},
			{"9am-10am\nJohn Doe"}, // row 4, Monday only
		},
	}

	result := IngestGrid("sheet-1", "campus-1", []Sheet{sheet})

	if len(result.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(result.Events))
	}
	if len(result.Skipped) != 0 {
		t.Fatalf("got %d skipped, want 0", len(result.Skipped))
	}
}

// Re-ingesting the same grid must produce identical events, IDs included.
func TestIngestGridDeterministic(t *testing.T) {
	dates := []string{"2026-08-31", "", "", "", "", "", ""}
	sheet := testSheet("Room A", 0, dates, map[[2]int]string{
		{3, 0}: "9:00am-10:00am\nJohn Doe (Algebra)\n(Dr. Smith)",
		{6, 4}: "1pm-2pm\nSam Hill\n(Ms. Lee)",
	})

	first := IngestGrid("sheet-1", "campus-1", []Sheet{sheet})
	second := IngestGrid("sheet-1", "campus-1", []Sheet{sheet})

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ingestion is not deterministic:\n%+v\n%+v", first, second)
	}
}
