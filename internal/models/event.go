package models

// Presentation constants attached to every normalized event. These are fixed
// and never derived from the upstream record.
const (
	EventBackgroundColor = "#4285f4"
	EventBorderColor     = "#1a73e8"
)

// Default titles used when the caller or the upstream omits a summary.
const (
	DefaultListTitle    = "Busy"
	DefaultBookingTitle = "Appointment"
)

// CalendarEvent is the client-facing event shape, decoupled from the
// calendar-of-record's native schema. Start and End hold the upstream
// dateTime when the event is timed, or the all-day date when it is not,
// so callers must treat them as dateTime-or-date strings.
type CalendarEvent struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Start           string `json:"start"`
	End             string `json:"end"`
	Description     string `json:"description,omitempty"`
	Location        string `json:"location,omitempty"`
	Link            string `json:"link,omitempty"`
	BackgroundColor string `json:"backgroundColor"`
	BorderColor     string `json:"borderColor"`
}

// BookingRequest is the client's request to reserve a time slot.
// Start and End are RFC3339 timestamps already expressed in the target
// timezone's wall clock; they are passed through to the upstream verbatim.
type BookingRequest struct {
	Title       string   `json:"title"`
	Start       string   `json:"start" validate:"required"`
	End         string   `json:"end" validate:"required"`
	Description string   `json:"description,omitempty"`
	Attendees   []string `json:"attendees,omitempty" validate:"omitempty,dive,email"`
}

// TimePeriod is a busy interval as reported by the calendar-of-record.
type TimePeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BookingResult is the outcome of a booking attempt. A conflict is a
// distinct rejected outcome, not an error: Success is false, Error is
// "conflict" and ConflictingPeriods carries the upstream busy list.
type BookingResult struct {
	Success            bool           `json:"success"`
	Event              *CalendarEvent `json:"event,omitempty"`
	Error              string         `json:"error,omitempty"`
	Message            string         `json:"message,omitempty"`
	ConflictingPeriods []TimePeriod   `json:"conflicting_periods,omitempty"`
}
