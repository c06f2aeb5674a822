/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/courseboard/internal/audit"
	"github.com/friendsincode/courseboard/internal/auth"
	"github.com/friendsincode/courseboard/internal/events"
	"github.com/friendsincode/courseboard/internal/ingest"
	"github.com/friendsincode/courseboard/internal/logbuffer"
	"github.com/friendsincode/courseboard/internal/models"
	"github.com/friendsincode/courseboard/internal/schedule"
)

var testSecret = []byte("test-secret")

type fakeGrid struct {
	sheets []ingest.Sheet
	err    error
}

func (f *fakeGrid) Sheets(ctx context.Context, spreadsheetID string) ([]ingest.Sheet, error) {
	return f.sheets, f.err
}

type testHarness struct {
	db     *gorm.DB
	router chi.Router
	grid   *fakeGrid
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.APIKey{}, &models.AuditLog{},
		&models.Campus{}, &models.ScheduleEvent{}, &models.RosterEntry{},
		&ingest.Job{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, u := range []models.User{
		{ID: "user-admin", Email: "admin@example.com", Role: models.RoleAdmin},
		{ID: "user-staff", Email: "staff@example.com", Role: models.RoleStaff},
		{ID: "user-viewer", Email: "viewer@example.com", Role: models.RoleViewer},
	} {
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	campus := models.Campus{ID: "campus-1", Name: "North", SpreadsheetID: "sheet-1", Position: 1}
	if err := db.Create(&campus).Error; err != nil {
		t.Fatalf("seed campus: %v", err)
	}

	logger := zerolog.Nop()
	bus := events.NewBus()
	scheduleSvc := schedule.NewService(db, bus, nil, logger)
	ingestSvc := ingest.NewService(db, bus, logger)
	auditSvc := audit.NewService(db, bus, logger)
	grid := &fakeGrid{}
	logBuf := logbuffer.New(100)
	logBuf.Add(logbuffer.LogEntry{
		Timestamp: time.Now(),
		Level:     "info",
		Message:   "schedule import completed",
		Component: "import_refresher",
		Fields:    map[string]any{"campus_id": "campus-1"},
	})

	a := New(db, testSecret, scheduleSvc, ingestSvc, auditSvc, grid, bus, logBuf, logger)
	router := chi.NewRouter()
	a.Routes(router)

	return &testHarness{db: db, router: router, grid: grid}
}

func tokenFor(t *testing.T, userID string, role models.RoleName) string {
	t.Helper()
	token, err := auth.Issue(testSecret, auth.Claims{
		UserID: userID,
		Role:   string(role),
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (h *testHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesUsableToken(t *testing.T) {
	h := newTestHarness(t)

	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := h.db.Model(&models.User{}).Where("id = ?", "user-staff").Update("password", hash).Error; err != nil {
		t.Fatalf("set password: %v", err)
	}

	rec := h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "staff@example.com",
		"password": "s3cret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/campuses", resp.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("token auth status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "staff@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", rec.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	h := newTestHarness(t)
	rec := h.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCampusListRequiresAuth(t *testing.T) {
	h := newTestHarness(t)
	rec := h.do(t, http.MethodGet, "/api/v1/campuses", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCampusListAndGet(t *testing.T) {
	h := newTestHarness(t)
	token := tokenFor(t, "user-viewer", models.RoleViewer)

	rec := h.do(t, http.MethodGet, "/api/v1/campuses", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", rec.Code, rec.Body.String())
	}
	var listResp struct {
		Campuses []models.Campus `json:"campuses"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listResp.Campuses) != 1 || listResp.Campuses[0].Name != "North" {
		t.Fatalf("campuses = %+v", listResp.Campuses)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/campuses/campus-1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	rec = h.do(t, http.MethodGet, "/api/v1/campuses/missing", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", rec.Code)
	}
}

func TestCampusCreateRequiresAdmin(t *testing.T) {
	h := newTestHarness(t)
	body := map[string]any{"name": "South", "spreadsheet_id": "sheet-2"}

	rec := h.do(t, http.MethodPost, "/api/v1/campuses", tokenFor(t, "user-staff", models.RoleStaff), body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff status = %d, want 403", rec.Code)
	}

	rec = h.do(t, http.MethodPost, "/api/v1/campuses", tokenFor(t, "user-admin", models.RoleAdmin), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin status = %d: %s", rec.Code, rec.Body.String())
	}
	var created models.Campus
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Name != "South" {
		t.Fatalf("created = %+v", created)
	}
}

func TestEventCreateViewerForbidden(t *testing.T) {
	h := newTestHarness(t)
	rec := h.do(t, http.MethodPost, "/api/v1/events", tokenFor(t, "user-viewer", models.RoleViewer), map[string]any{
		"campus_id": "campus-1",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestEventCreateReturnsConflictWarnings(t *testing.T) {
	h := newTestHarness(t)
	token := tokenFor(t, "user-staff", models.RoleStaff)

	first := map[string]any{
		"campus_id":   "campus-1",
		"day_of_week": 0,
		"start_hour":  9, "start_minute": 0,
		"end_hour": 10, "end_minute": 0,
		"subject":  "Algebra",
		"teachers": []string{"Dr. Smith"},
		"students": []string{"John Doe"},
	}
	rec := h.do(t, http.MethodPost, "/api/v1/events", token, first)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first status = %d: %s", rec.Code, rec.Body.String())
	}

	second := map[string]any{
		"campus_id":   "campus-1",
		"day_of_week": 0,
		"start_hour":  9, "start_minute": 30,
		"end_hour": 10, "end_minute": 30,
		"subject":  "Physics",
		"teachers": []string{"Dr. Smith"},
	}
	rec = h.do(t, http.MethodPost, "/api/v1/events", token, second)
	if rec.Code != http.StatusCreated {
		t.Fatalf("second status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp eventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one", resp.Warnings)
	}

	// Strict mode refuses the same overlap outright.
	rec = h.do(t, http.MethodPost, "/api/v1/events?strict=1", token, second)
	if rec.Code != http.StatusConflict {
		t.Fatalf("strict status = %d, want 409", rec.Code)
	}
}

func TestEventUpdateAndDelete(t *testing.T) {
	h := newTestHarness(t)
	token := tokenFor(t, "user-staff", models.RoleStaff)

	rec := h.do(t, http.MethodPost, "/api/v1/events", token, map[string]any{
		"campus_id":   "campus-1",
		"day_of_week": 2,
		"start_hour":  14, "start_minute": 0,
		"end_hour": 15, "end_minute": 0,
		"subject": "Chemistry",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created eventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	path := "/api/v1/events/" + created.Event.ID
	rec = h.do(t, http.MethodPut, path, token, map[string]any{
		"campus_id":   "campus-1",
		"day_of_week": 2,
		"start_hour":  15, "start_minute": 0,
		"end_hour": 16, "end_minute": 0,
		"subject": "Chemistry II",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = h.do(t, http.MethodGet, path, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var fetched models.ScheduleEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fetched.Subject != "Chemistry II" || fetched.StartHour != 15 {
		t.Fatalf("fetched = %+v", fetched)
	}

	rec = h.do(t, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = h.do(t, http.MethodGet, path, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get-after-delete status = %d, want 404", rec.Code)
	}
}

func TestConflictCheckEndpoint(t *testing.T) {
	h := newTestHarness(t)
	token := tokenFor(t, "user-viewer", models.RoleViewer)

	seed := models.ScheduleEvent{
		ID: "evt-1", CampusID: "campus-1", DayOfWeek: 1,
		StartHour: 9, EndHour: 10,
		Teachers: []string{"Dr. Hardy"},
	}
	if err := h.db.Create(&seed).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}

	rec := h.do(t, http.MethodPost, "/api/v1/events/conflict-check", token, map[string]any{
		"campus_id":   "campus-1",
		"day_of_week": 1,
		"start_hour":  9, "start_minute": 30,
		"end_hour": 10, "end_minute": 30,
		"teachers": []string{"Dr. Hardy"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Messages []string `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Messages) != 1 {
		t.Fatalf("messages = %v, want one", resp.Messages)
	}
}

func TestWeekScheduleAndLayout(t *testing.T) {
	h := newTestHarness(t)
	token := tokenFor(t, "user-viewer", models.RoleViewer)

	for i, start := range []int{9, 9, 11} {
		evt := models.ScheduleEvent{
			ID: fmt.Sprintf("evt-%d", i), CampusID: "campus-1", DayOfWeek: 0,
			StartHour: start, EndHour: start + 1,
			Subject: "Session",
		}
		if err := h.db.Create(&evt).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rec := h.do(t, http.MethodGet, "/api/v1/campuses/campus-1/schedule", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("schedule status = %d", rec.Code)
	}
	var weekResp struct {
		Events []models.ScheduleEvent `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &weekResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(weekResp.Events) != 3 {
		t.Fatalf("events = %d, want 3", len(weekResp.Events))
	}

	rec = h.do(t, http.MethodGet, "/api/v1/campuses/campus-1/schedule/layout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("layout status = %d", rec.Code)
	}
	var layoutResp struct {
		Days map[string][]struct {
			EventID   string `json:"event_id"`
			Lane      int    `json:"lane"`
			LaneCount int    `json:"lane_count"`
		} `json:"days"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &layoutResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(layoutResp.Days["0"]) != 3 {
		t.Fatalf("day 0 placements = %+v", layoutResp.Days)
	}
}

func TestScheduleExportHeaders(t *testing.T) {
	h := newTestHarness(t)
	token := tokenFor(t, "user-viewer", models.RoleViewer)

	evt := models.ScheduleEvent{
		ID: "evt-1", CampusID: "campus-1", DayOfWeek: 0, Date: "2026-03-02",
		StartHour: 9, EndHour: 10, Subject: "Algebra",
	}
	if err := h.db.Create(&evt).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := h.do(t, http.MethodGet, "/api/v1/campuses/campus-1/schedule/export.ics", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/calendar; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="north-schedule.ics"` {
		t.Fatalf("content disposition = %q", cd)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("BEGIN:VCALENDAR")) {
		t.Fatal("body is not an iCalendar document")
	}
}

func TestImportTrigger(t *testing.T) {
	h := newTestHarness(t)
	token := tokenFor(t, "user-staff", models.RoleStaff)

	rows := make([][]string, 13)
	for i := range rows {
		rows[i] = make([]string, 7)
	}
	rows[1] = []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06", "2026-03-07", "2026-03-08"}
	rows[3][0] = "9am-10am\nJohn Doe (Algebra)\n(Dr. Smith)"
	h.grid.sheets = []ingest.Sheet{{Title: "Room A", Index: 0, Rows: rows}}

	rec := h.do(t, http.MethodPost, "/api/v1/campuses/campus-1/import", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var job ingest.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Status != ingest.JobStatusCompleted {
		t.Fatalf("job status = %s", job.Status)
	}
	if job.Result == nil || job.Result.EventsCreated != 1 || job.Result.CellsSkipped != 0 {
		t.Fatalf("job result = %+v", job.Result)
	}

	var stored models.ScheduleEvent
	if err := h.db.Where("campus_id = ?", "campus-1").First(&stored).Error; err != nil {
		t.Fatalf("load imported event: %v", err)
	}
	if stored.Subject != "Algebra" || stored.StartHour != 9 || stored.EndHour != 10 {
		t.Fatalf("imported event = %+v", stored)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/imports/"+job.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("job get status = %d", rec.Code)
	}
	rec = h.do(t, http.MethodGet, "/api/v1/campuses/campus-1/imports", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("job list status = %d", rec.Code)
	}
}

func TestImportTriggerViewerForbidden(t *testing.T) {
	h := newTestHarness(t)
	rec := h.do(t, http.MethodPost, "/api/v1/campuses/campus-1/import", tokenFor(t, "user-viewer", models.RoleViewer), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRosterCreateAndFilter(t *testing.T) {
	h := newTestHarness(t)
	staff := tokenFor(t, "user-staff", models.RoleStaff)

	for _, entry := range []map[string]any{
		{"kind": "teacher", "name": "Dr. Smith"},
		{"kind": "student", "name": "John Doe"},
	} {
		rec := h.do(t, http.MethodPost, "/api/v1/campuses/campus-1/roster", staff, entry)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec := h.do(t, http.MethodGet, "/api/v1/campuses/campus-1/roster?kind=teacher", staff, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var resp struct {
		Roster []models.RosterEntry `json:"roster"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Roster) != 1 || resp.Roster[0].Name != "Dr. Smith" {
		t.Fatalf("roster = %+v", resp.Roster)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	h := newTestHarness(t)
	token := tokenFor(t, "user-staff", models.RoleStaff)

	rec := h.do(t, http.MethodPost, "/api/v1/apikeys", token, map[string]any{
		"name":        "deploy",
		"expiry_days": 30,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Key string `json:"key"`
		ID  string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Key == "" || created.ID == "" {
		t.Fatalf("created = %+v", created)
	}

	// The plaintext key authenticates via X-API-Key.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/campuses", nil)
	req.Header.Set("X-API-Key", created.Key)
	keyRec := httptest.NewRecorder()
	h.router.ServeHTTP(keyRec, req)
	if keyRec.Code != http.StatusOK {
		t.Fatalf("apikey auth status = %d: %s", keyRec.Code, keyRec.Body.String())
	}

	rec = h.do(t, http.MethodGet, "/api/v1/apikeys", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodDelete, "/api/v1/apikeys/"+created.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke status = %d", rec.Code)
	}

	// A revoked key stops authenticating.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/campuses", nil)
	req.Header.Set("X-API-Key", created.Key)
	keyRec = httptest.NewRecorder()
	h.router.ServeHTTP(keyRec, req)
	if keyRec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked key status = %d, want 401", keyRec.Code)
	}
}

func TestAPIKeyCreateRejectsUnknownExpiry(t *testing.T) {
	h := newTestHarness(t)
	rec := h.do(t, http.MethodPost, "/api/v1/apikeys", tokenFor(t, "user-staff", models.RoleStaff), map[string]any{
		"name":        "deploy",
		"expiry_days": 7,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLogListAdminOnly(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/logs", tokenFor(t, "user-viewer", models.RoleViewer), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("viewer status = %d, want 403", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/logs?campus_id=campus-1", tokenFor(t, "user-admin", models.RoleAdmin), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Entries []logbuffer.LogEntry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Component != "import_refresher" {
		t.Fatalf("entries = %+v", resp.Entries)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/logs?campus_id=other", tokenFor(t, "user-admin", models.RoleAdmin), nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 0 {
		t.Fatalf("filtered entries = %+v", resp.Entries)
	}
}

func TestAuditListAdminOnly(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/audit", tokenFor(t, "user-staff", models.RoleStaff), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff status = %d, want 403", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/audit", tokenFor(t, "user-admin", models.RoleAdmin), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d: %s", rec.Code, rec.Body.String())
	}
}
