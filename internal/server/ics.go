package server

import (
	"net/http"
	"time"

	"bookingd/internal/models"

	"github.com/emersion/go-ical"
)

// ExportICS handles GET /api/v1/calendar.ics, rendering the same window
// as ListEvents as an iCalendar feed.
func (h *Handler) ExportICS(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	events, err := h.gateway.ListEvents(r.Context(), start, end)
	if err != nil {
		h.respondError(w, err)
		return
	}

	cal := buildCalendar(events)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		h.logger.Error("Failed to encode ICS feed", "error", err)
	}
}

// buildCalendar converts normalized events into a VCALENDAR. Events whose
// timestamps cannot be parsed are skipped rather than failing the feed.
func buildCalendar(events []models.CalendarEvent) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//bookingd//EN")

	now := time.Now().UTC()
	for _, event := range events {
		start, ok := parseEventTime(event.Start)
		if !ok {
			continue
		}
		end, ok := parseEventTime(event.End)
		if !ok {
			continue
		}

		ve := ical.NewComponent(ical.CompEvent)
		ve.Props.SetText(ical.PropUID, event.ID)
		ve.Props.SetText(ical.PropSummary, event.Title)
		ve.Props.SetDateTime(ical.PropDateTimeStamp, now)
		ve.Props.SetDateTime(ical.PropDateTimeStart, start)
		ve.Props.SetDateTime(ical.PropDateTimeEnd, end)
		if event.Description != "" {
			ve.Props.SetText(ical.PropDescription, event.Description)
		}
		if event.Location != "" {
			ve.Props.SetText(ical.PropLocation, event.Location)
		}
		cal.Children = append(cal.Children, ve)
	}

	return cal
}

// parseEventTime accepts the dateTime-or-date forms a normalized event
// carries.
func parseEventTime(value string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
