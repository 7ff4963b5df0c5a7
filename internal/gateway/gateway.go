package gateway

import (
	"context"
	"log/slog"
	"time"

	"bookingd/internal/models"
)

// defaultListWindow bounds a list query when the caller gives no range.
const defaultListWindow = 30 * 24 * time.Hour

const conflictMessage = "This time slot is already booked"

// CalendarAPI is the narrow surface the gateway needs from the
// calendar-of-record. Implementations talk to the real service; tests
// substitute a fake.
type CalendarAPI interface {
	// ListEvents returns all events overlapping [timeMin, timeMax], with
	// recurring events expanded and ordered by start time ascending.
	ListEvents(ctx context.Context, timeMin, timeMax string) ([]models.CalendarEvent, error)
	// FreeBusy returns the busy intervals for the calendar over the window.
	FreeBusy(ctx context.Context, timeMin, timeMax string) ([]models.TimePeriod, error)
	// InsertEvent creates the event and notifies attendees. The returned
	// event carries the upstream-assigned identifier.
	InsertEvent(ctx context.Context, req *models.BookingRequest) (*models.CalendarEvent, error)
	// DeleteEvent removes the event and notifies attendees.
	DeleteEvent(ctx context.Context, eventID string) error
}

// Gateway mediates between booking clients and the calendar-of-record,
// enforcing the no-double-booking check. It is stateless between calls;
// the calendar-of-record is the sole persistence layer.
type Gateway struct {
	calendar CalendarAPI
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Gateway on top of the given calendar-of-record client.
func New(calendar CalendarAPI, logger *slog.Logger) *Gateway {
	return &Gateway{
		calendar: calendar,
		logger:   logger,
		now:      time.Now,
	}
}

// ListEvents returns the normalized events overlapping [start, end].
// Either bound may be empty, in which case the window defaults to the
// call-time "now" through now plus 30 days.
func (g *Gateway) ListEvents(ctx context.Context, start, end string) ([]models.CalendarEvent, error) {
	if start == "" {
		start = g.now().Format(time.RFC3339)
	}
	if end == "" {
		end = g.now().Add(defaultListWindow).Format(time.RFC3339)
	}

	events, err := g.calendar.ListEvents(ctx, start, end)
	if err != nil {
		return nil, &UpstreamError{Op: "list", Err: err}
	}
	if events == nil {
		events = []models.CalendarEvent{}
	}

	g.logger.Info("Listed calendar events", "count", len(events), "start", start, "end", end)
	return events, nil
}

// CreateBooking reserves the requested slot in two phases: CHECK queries
// the calendar-of-record's free/busy index over exactly [start, end], and
// COMMIT inserts the event only if the busy list came back empty. The two
// upstream calls are strictly serialized, never concurrent.
//
// The check-then-commit sequence is not atomic across concurrent callers:
// two overlapping requests can both pass the check before either commits.
// The calendar-of-record offers no compare-and-swap to close this race.
func (g *Gateway) CreateBooking(ctx context.Context, req *models.BookingRequest) (*models.BookingResult, error) {
	if err := validateBooking(req); err != nil {
		return nil, err
	}

	booking := *req
	if booking.Title == "" {
		booking.Title = models.DefaultBookingTitle
	}

	// CHECK
	busy, err := g.calendar.FreeBusy(ctx, booking.Start, booking.End)
	if err != nil {
		return nil, &UpstreamError{Op: "freebusy", Err: err}
	}
	if len(busy) > 0 {
		// The upstream busy list for the requested window is authoritative;
		// no local overlap filtering.
		g.logger.Info("Booking rejected, slot already busy",
			"start", booking.Start, "end", booking.End, "conflicts", len(busy))
		return &models.BookingResult{
			Success:            false,
			Error:              "conflict",
			Message:            conflictMessage,
			ConflictingPeriods: busy,
		}, nil
	}

	// COMMIT
	event, err := g.calendar.InsertEvent(ctx, &booking)
	if err != nil {
		return nil, &UpstreamError{Op: "insert", Err: err}
	}

	g.logger.Info("Booking created", "eventID", event.ID, "title", event.Title)
	return &models.BookingResult{Success: true, Event: event}, nil
}

// DeleteBooking forwards a delete for the given event identifier. It does
// not verify prior existence; the upstream decides whether the id is known.
func (g *Gateway) DeleteBooking(ctx context.Context, eventID string) error {
	if eventID == "" {
		return &ValidationError{Msg: "eventId required"}
	}

	if err := g.calendar.DeleteEvent(ctx, eventID); err != nil {
		return &UpstreamError{Op: "delete", Err: err}
	}

	g.logger.Info("Booking deleted", "eventID", eventID)
	return nil
}

// validateBooking rejects requests with missing or ill-ordered timestamps
// before any upstream call is made.
func validateBooking(req *models.BookingRequest) error {
	if req.Start == "" || req.End == "" {
		return &ValidationError{Msg: "start and end are required"}
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return &ValidationError{Msg: "start must be an RFC3339 timestamp"}
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return &ValidationError{Msg: "end must be an RFC3339 timestamp"}
	}
	if !start.Before(end) {
		return &ValidationError{Msg: "start must be before end"}
	}
	return nil
}
