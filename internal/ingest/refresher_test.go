package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/courseboard/internal/events"
	"github.com/friendsincode/courseboard/internal/models"
)

func TestRefresherImportsCampusesWithSpreadsheets(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&models.Campus{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	seed := []models.Campus{
		{ID: "campus-1", Name: "North", SpreadsheetID: "sheet-1", Position: 1},
		{ID: "campus-2", Name: "South", Position: 2},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed campus: %v", err)
		}
	}

	svc := NewService(db, events.NewBus(), zerolog.Nop())
	r := NewRefresher(db, svc, &staticSource{sheets: weekGrid()}, time.Minute, nil, zerolog.Nop())
	r.refreshAll(context.Background())

	var jobs []Job
	if err := db.Find(&jobs).Error; err != nil {
		t.Fatalf("load jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	if jobs[0].CampusID != "campus-1" {
		t.Fatalf("job campus = %s, want campus-1", jobs[0].CampusID)
	}
	if jobs[0].Status != JobStatusCompleted {
		t.Fatalf("job status = %s, want completed", jobs[0].Status)
	}
}

func TestRefresherContinuesPastFailedCampus(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&models.Campus{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	seed := []models.Campus{
		{ID: "campus-1", Name: "North", SpreadsheetID: "missing", Position: 1},
		{ID: "campus-2", Name: "South", SpreadsheetID: "sheet-2", Position: 2},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed campus: %v", err)
		}
	}

	source := &switchingSource{
		bySpreadsheet: map[string][]Sheet{"sheet-2": weekGrid()},
	}
	svc := NewService(db, events.NewBus(), zerolog.Nop())
	r := NewRefresher(db, svc, source, time.Minute, nil, zerolog.Nop())
	r.refreshAll(context.Background())

	var jobs []Job
	if err := db.Order("campus_id").Find(&jobs).Error; err != nil {
		t.Fatalf("load jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if jobs[0].Status != JobStatusFailed {
		t.Fatalf("campus-1 job status = %s, want failed", jobs[0].Status)
	}
	if jobs[1].Status != JobStatusCompleted {
		t.Fatalf("campus-2 job status = %s, want completed", jobs[1].Status)
	}
}

func TestRefresherSkipsWhenNotLeader(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&models.Campus{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	campus := models.Campus{ID: "campus-1", Name: "North", SpreadsheetID: "sheet-1"}
	if err := db.Create(&campus).Error; err != nil {
		t.Fatalf("seed campus: %v", err)
	}

	svc := NewService(db, events.NewBus(), zerolog.Nop())
	r := NewRefresher(db, svc, &staticSource{sheets: weekGrid()}, 5*time.Millisecond, func() bool { return false }, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != context.DeadlineExceeded {
		t.Fatalf("run returned %v, want deadline exceeded", err)
	}

	var count int64
	if err := db.Model(&Job{}).Count(&count).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if count != 0 {
		t.Fatalf("got %d jobs, want 0", count)
	}
}

var errSpreadsheetUnavailable = errors.New("spreadsheet unavailable")

type switchingSource struct {
	bySpreadsheet map[string][]Sheet
}

func (s *switchingSource) Sheets(ctx context.Context, spreadsheetID string) ([]Sheet, error) {
	sheets, ok := s.bySpreadsheet[spreadsheetID]
	if !ok {
		return nil, errSpreadsheetUnavailable
	}
	return sheets, nil
}
