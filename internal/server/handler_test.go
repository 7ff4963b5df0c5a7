package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookingd/internal/gateway"
	"bookingd/internal/models"
)

type fakeCalendar struct {
	events    []models.CalendarEvent
	listErr   error
	busy      []models.TimePeriod
	inserted  *models.CalendarEvent
	insertErr error
	deleteErr error

	deletedEvents []string
}

func (f *fakeCalendar) ListEvents(ctx context.Context, timeMin, timeMax string) ([]models.CalendarEvent, error) {
	return f.events, f.listErr
}

func (f *fakeCalendar) FreeBusy(ctx context.Context, timeMin, timeMax string) ([]models.TimePeriod, error) {
	return f.busy, nil
}

func (f *fakeCalendar) InsertEvent(ctx context.Context, req *models.BookingRequest) (*models.CalendarEvent, error) {
	return f.inserted, f.insertErr
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	f.deletedEvents = append(f.deletedEvents, eventID)
	return f.deleteErr
}

func testServer(fake *fakeCalendar) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := gateway.New(fake, logger)
	srv := New(":0", gw, logger)
	return srv.httpServer.Handler
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestListEventsResponse(t *testing.T) {
	fake := &fakeCalendar{
		events: []models.CalendarEvent{
			{ID: "evt-1", Title: "Checkup", Start: "2024-06-01T09:00:00-07:00", End: "2024-06-01T09:30:00-07:00"},
		},
	}

	rec := doRequest(t, testServer(fake), http.MethodGet, "/api/v1/calendar", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Events []models.CalendarEvent `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Events) != 1 || body.Events[0].ID != "evt-1" {
		t.Errorf("events = %+v, want the single normalized event", body.Events)
	}
}

func TestListEventsEmptyCalendar(t *testing.T) {
	rec := doRequest(t, testServer(&fakeCalendar{}), http.MethodGet, "/api/v1/calendar", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"events":[]`) {
		t.Errorf("body = %s, want an empty events array, not a missing field", rec.Body.String())
	}
}

func TestListEventsUpstreamFailure(t *testing.T) {
	fake := &fakeCalendar{listErr: errors.New("invalid credentials")}

	rec := doRequest(t, testServer(fake), http.MethodGet, "/api/v1/calendar", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.Contains(body.Error, "invalid credentials") {
		t.Errorf("error = %q, want the upstream message surfaced", body.Error)
	}
}

func TestCreateBookingConflictScenario(t *testing.T) {
	fake := &fakeCalendar{
		busy: []models.TimePeriod{
			{Start: "2024-06-01T09:15:00-07:00", End: "2024-06-01T09:45:00-07:00"},
		},
	}

	payload := `{"title":"Checkup","start":"2024-06-01T09:00:00-07:00","end":"2024-06-01T09:30:00-07:00"}`
	rec := doRequest(t, testServer(fake), http.MethodPost, "/api/v1/calendar", payload)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	var result models.BookingResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Success {
		t.Error("success = true, want false")
	}
	if result.Error != "conflict" {
		t.Errorf("error = %q, want %q", result.Error, "conflict")
	}
	if len(result.ConflictingPeriods) != 1 {
		t.Fatalf("len(conflicting_periods) = %d, want 1", len(result.ConflictingPeriods))
	}
	period := result.ConflictingPeriods[0]
	if !strings.Contains(period.Start, "09:15") || !strings.Contains(period.End, "09:45") {
		t.Errorf("conflicting period = %+v, want the upstream busy interval", period)
	}
}

func TestCreateBookingSuccessScenario(t *testing.T) {
	fake := &fakeCalendar{
		inserted: &models.CalendarEvent{
			ID:    "evt-123",
			Title: "Checkup",
			Start: "2024-06-01T09:00:00-07:00",
			End:   "2024-06-01T09:30:00-07:00",
		},
	}

	payload := `{"title":"Checkup","start":"2024-06-01T09:00:00-07:00","end":"2024-06-01T09:30:00-07:00"}`
	rec := doRequest(t, testServer(fake), http.MethodPost, "/api/v1/calendar", payload)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var result models.BookingResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.Success {
		t.Error("success = false, want true")
	}
	if result.Event == nil {
		t.Fatal("event missing from success response")
	}
	if result.Event.ID != "evt-123" || result.Event.Title != "Checkup" {
		t.Errorf("event = %+v, want id evt-123 title Checkup", result.Event)
	}
	if result.Event.Start != "2024-06-01T09:00:00-07:00" || result.Event.End != "2024-06-01T09:30:00-07:00" {
		t.Errorf("event window = [%s, %s], want the requested slot", result.Event.Start, result.Event.End)
	}
}

func TestCreateBookingRejectsMissingFields(t *testing.T) {
	rec := doRequest(t, testServer(&fakeCalendar{}), http.MethodPost, "/api/v1/calendar", `{"title":"Checkup"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateBookingRejectsMalformedBody(t *testing.T) {
	rec := doRequest(t, testServer(&fakeCalendar{}), http.MethodPost, "/api/v1/calendar", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteBookingRequiresEventID(t *testing.T) {
	fake := &fakeCalendar{}

	rec := doRequest(t, testServer(fake), http.MethodDelete, "/api/v1/calendar", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(fake.deletedEvents) != 0 {
		t.Errorf("delete forwarded upstream %d times, want 0", len(fake.deletedEvents))
	}
}

func TestDeleteBookingSuccess(t *testing.T) {
	fake := &fakeCalendar{}

	rec := doRequest(t, testServer(fake), http.MethodDelete, "/api/v1/calendar?eventId=evt-42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Errorf("body = %s, want success true", rec.Body.String())
	}
	if len(fake.deletedEvents) != 1 || fake.deletedEvents[0] != "evt-42" {
		t.Errorf("deleted events = %v, want [evt-42]", fake.deletedEvents)
	}
}

func TestDeleteBookingUpstreamFailure(t *testing.T) {
	fake := &fakeCalendar{deleteErr: errors.New("event not found")}

	rec := doRequest(t, testServer(fake), http.MethodDelete, "/api/v1/calendar?eventId=evt-42", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestExportICSFeed(t *testing.T) {
	fake := &fakeCalendar{
		events: []models.CalendarEvent{
			{ID: "evt-1", Title: "Checkup", Start: "2024-06-01T09:00:00-07:00", End: "2024-06-01T09:30:00-07:00"},
			{ID: "evt-2", Title: "Conference", Start: "2024-06-03", End: "2024-06-04"},
		},
	}

	rec := doRequest(t, testServer(fake), http.MethodGet, "/api/v1/calendar.ics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q, want text/calendar", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") {
		t.Error("feed missing VCALENDAR wrapper")
	}
	if !strings.Contains(body, "SUMMARY:Checkup") || !strings.Contains(body, "SUMMARY:Conference") {
		t.Errorf("feed missing event summaries:\n%s", body)
	}
}

func TestHealthCheck(t *testing.T) {
	rec := doRequest(t, testServer(&fakeCalendar{}), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
