package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/courseboard/internal/events"
	"github.com/friendsincode/courseboard/internal/models"
)

type staticSource struct {
	sheets []Sheet
	err    error
}

func (s *staticSource) Sheets(ctx context.Context, spreadsheetID string) ([]Sheet, error) {
	return s.sheets, s.err
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&Job{}, &models.ScheduleEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testCampus() models.Campus {
	return models.Campus{ID: "campus-1", Name: "North", SpreadsheetID: "sheet-1"}
}

func weekGrid() []Sheet {
	return []Sheet{testSheet("Room A", 0,
		[]string{"2026-08-31", "2026-09-01", "2026-09-02", "2026-09-03", "2026-09-04", "2026-09-05", "2026-09-06"},
		map[[2]int]string{
			{3, 0}: "9:00am-10:00am\nJohn Doe (Algebra)\n(Dr. Smith)",
			{4, 1}: "4:15pm-6:15pm\nAda Lovelace (Calculus)\n(Dr. Hardy)",
			{5, 2}: "broken cell",
		})}
}

func TestServiceRunPersistsEventsAndReport(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, events.NewBus(), zerolog.Nop())

	job, err := svc.Run(context.Background(), testCampus(), &staticSource{sheets: weekGrid()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if job.Status != JobStatusCompleted {
		t.Fatalf("job status = %s, want completed", job.Status)
	}
	if job.Result == nil || job.Result.EventsCreated != 2 || job.Result.CellsSkipped != 1 {
		t.Fatalf("job result = %+v", job.Result)
	}
	if len(job.Skipped) != 1 || job.Skipped[0].Row != 6 {
		t.Fatalf("skip report = %+v", job.Skipped)
	}

	var stored []models.ScheduleEvent
	if err := db.Order("id").Find(&stored).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d events, want 2", len(stored))
	}
	for _, event := range stored {
		if event.ImportJobID != job.ID {
			t.Errorf("event %s import job = %q, want %q", event.ID, event.ImportJobID, job.ID)
		}
	}
}

// Importing the same grid twice must leave the same event IDs in place.
func TestServiceRunIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, events.NewBus(), zerolog.Nop())
	campus := testCampus()

	if _, err := svc.Run(context.Background(), campus, &staticSource{sheets: weekGrid()}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	var firstIDs []string
	if err := db.Model(&models.ScheduleEvent{}).Order("id").Pluck("id", &firstIDs).Error; err != nil {
		t.Fatalf("pluck: %v", err)
	}

	job, err := svc.Run(context.Background(), campus, &staticSource{sheets: weekGrid()})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if job.Result.EventsRemoved != 0 {
		t.Fatalf("second run removed %d events, want 0", job.Result.EventsRemoved)
	}

	var secondIDs []string
	if err := db.Model(&models.ScheduleEvent{}).Order("id").Pluck("id", &secondIDs).Error; err != nil {
		t.Fatalf("pluck: %v", err)
	}
	if len(firstIDs) != len(secondIDs) {
		t.Fatalf("event count changed: %d -> %d", len(firstIDs), len(secondIDs))
	}
	for i := range firstIDs {
		if firstIDs[i] != secondIDs[i] {
			t.Fatalf("event ids changed: %v -> %v", firstIDs, secondIDs)
		}
	}
}

func TestServiceRunRemovesStaleKeepsManual(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, events.NewBus(), zerolog.Nop())
	campus := testCampus()

	if _, err := svc.Run(context.Background(), campus, &staticSource{sheets: weekGrid()}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// A hand-entered event carries no import job reference.
	manual := models.ScheduleEvent{
		ID:        "manual-1",
		CampusID:  campus.ID,
		Room:      1,
		DayOfWeek: 3,
		StartHour: 12, EndHour: 13,
		Students: []string{"Jane Roe"},
	}
	if err := db.Create(&manual).Error; err != nil {
		t.Fatalf("create manual event: %v", err)
	}

	// The second version of the grid dropped one cell.
	smaller := []Sheet{testSheet("Room A", 0,
		[]string{"2026-08-31", "2026-09-01", "2026-09-02", "2026-09-03", "2026-09-04", "2026-09-05", "2026-09-06"},
		map[[2]int]string{
			{3, 0}: "9:00am-10:00am\nJohn Doe (Algebra)\n(Dr. Smith)",
		})}

	job, err := svc.Run(context.Background(), campus, &staticSource{sheets: smaller})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if job.Result.EventsRemoved != 1 {
		t.Fatalf("removed %d events, want 1", job.Result.EventsRemoved)
	}

	var count int64
	if err := db.Model(&models.ScheduleEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 { // one ingested + the manual event
		t.Fatalf("stored %d events, want 2", count)
	}

	var kept models.ScheduleEvent
	if err := db.First(&kept, "id = ?", "manual-1").Error; err != nil {
		t.Fatalf("manual event was removed: %v", err)
	}
}

func TestServiceRunSourceFailure(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, events.NewBus(), zerolog.Nop())

	wantErr := errors.New("backend unavailable")
	job, err := svc.Run(context.Background(), testCampus(), &staticSource{err: wantErr})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want wrapped %v", err, wantErr)
	}

	var stored Job
	if err := db.First(&stored, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	if stored.Status != JobStatusFailed {
		t.Fatalf("job status = %s, want failed", stored.Status)
	}
	if stored.Error == "" {
		t.Fatal("job error not recorded")
	}
}
