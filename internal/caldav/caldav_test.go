package caldav

import (
	"testing"

	"bookingd/internal/models"
)

func TestBusyPeriodsFromEvents(t *testing.T) {
	events := []models.CalendarEvent{
		{ID: "a", Start: "2024-06-01T09:00:00-07:00", End: "2024-06-01T09:30:00-07:00"},
		{ID: "b", Start: "2024-06-01T11:00:00-07:00", End: "2024-06-01T12:00:00-07:00"},
	}

	periods := BusyPeriods(events)
	if len(periods) != 2 {
		t.Fatalf("len(periods) = %d, want 2", len(periods))
	}
	for i, event := range events {
		if periods[i].Start != event.Start || periods[i].End != event.End {
			t.Errorf("periods[%d] = %+v, want the event's window", i, periods[i])
		}
	}
}

func TestBusyPeriodsEmpty(t *testing.T) {
	periods := BusyPeriods(nil)
	if periods == nil {
		t.Error("BusyPeriods(nil) = nil, want empty non-nil slice")
	}
	if len(periods) != 0 {
		t.Errorf("len(periods) = %d, want 0", len(periods))
	}
}

func TestSortByStart(t *testing.T) {
	events := []models.CalendarEvent{
		{ID: "late", Start: "2024-06-01T11:00:00-07:00"},
		{ID: "early", Start: "2024-06-01T09:00:00-07:00"},
		{ID: "middle", Start: "2024-06-01T10:00:00-07:00"},
	}

	sortByStart(events)

	for i, want := range []string{"early", "middle", "late"} {
		if events[i].ID != want {
			t.Errorf("events[%d].ID = %q, want %q", i, events[i].ID, want)
		}
	}
}

func TestEventPathRelativeToEndpoint(t *testing.T) {
	c := &Client{
		endpoint:    "https://caldav.example.com/",
		calendarURL: "https://caldav.example.com/calendars/user/bookings/",
	}

	got := c.eventPath("evt-1")
	want := "calendars/user/bookings/evt-1.ics"
	if got != want {
		t.Errorf("eventPath = %q, want %q", got, want)
	}
}
