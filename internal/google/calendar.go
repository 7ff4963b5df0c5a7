package google

import (
	"context"
	"fmt"
	"log/slog"

	"bookingd/internal/gateway"
	"bookingd/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarClient is the Google Calendar implementation of the
// calendar-of-record. It authenticates with a service account and
// targets a single calendar.
type CalendarClient struct {
	service    *calendar.Service
	calendarID string
	timezone   string
	logger     *slog.Logger
}

// NewClient creates a Google Calendar client from a service-account
// credential blob. calendarID selects the target calendar ("primary" for
// the account's own); timezone is attached to created events.
func NewClient(ctx context.Context, logger *slog.Logger, credentialsJSON, calendarID, timezone string) (*CalendarClient, error) {
	if credentialsJSON == "" {
		return nil, &gateway.ConfigurationError{Msg: "GOOGLE_SERVICE_ACCOUNT_JSON not configured"}
	}

	creds, err := google.CredentialsFromJSON(ctx, []byte(credentialsJSON), calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	service, err := calendar.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &CalendarClient{
		service:    service,
		calendarID: calendarID,
		timezone:   timezone,
		logger:     logger,
	}, nil
}

// ListEvents fetches events overlapping [timeMin, timeMax], with recurring
// events expanded into single occurrences and ordered by start time.
func (c *CalendarClient) ListEvents(ctx context.Context, timeMin, timeMax string) ([]models.CalendarEvent, error) {
	c.logger.Debug("Fetching events", "calendarID", c.calendarID, "timeMin", timeMin, "timeMax", timeMax)

	res, err := c.service.Events.List(c.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(timeMin).
		TimeMax(timeMax).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	c.logger.Info("Fetched events from Google Calendar", "count", len(res.Items), "calendarID", c.calendarID)
	return normalizeEvents(res.Items), nil
}

// FreeBusy returns the busy intervals reported for the target calendar
// over [timeMin, timeMax] in the configured timezone.
func (c *CalendarClient) FreeBusy(ctx context.Context, timeMin, timeMax string) ([]models.TimePeriod, error) {
	req := &calendar.FreeBusyRequest{
		TimeMin:  timeMin,
		TimeMax:  timeMax,
		TimeZone: c.timezone,
		Items:    []*calendar.FreeBusyRequestItem{{Id: c.calendarID}},
	}

	res, err := c.service.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("free/busy query failed: %w", err)
	}

	periods := []models.TimePeriod{}
	if cal, ok := res.Calendars[c.calendarID]; ok {
		for _, busy := range cal.Busy {
			periods = append(periods, models.TimePeriod{Start: busy.Start, End: busy.End})
		}
	}
	return periods, nil
}

// InsertEvent creates the event on the target calendar and asks Google to
// send an update notification to all attendees.
func (c *CalendarClient) InsertEvent(ctx context.Context, req *models.BookingRequest) (*models.CalendarEvent, error) {
	var attendees []*calendar.EventAttendee
	for _, email := range req.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}

	event := &calendar.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start:       &calendar.EventDateTime{DateTime: req.Start, TimeZone: c.timezone},
		End:         &calendar.EventDateTime{DateTime: req.End, TimeZone: c.timezone},
		Attendees:   attendees,
	}

	created, err := c.service.Events.Insert(c.calendarID, event).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	c.logger.Info("Created event on Google Calendar", "eventID", created.Id, "calendarID", c.calendarID)
	normalized := normalizeEvent(created)
	return &normalized, nil
}

// DeleteEvent removes the event from the target calendar, notifying
// all attendees.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.service.Events.Delete(c.calendarID, eventID).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	c.logger.Info("Deleted event from Google Calendar", "eventID", eventID, "calendarID", c.calendarID)
	return nil
}

// normalizeEvents converts Google Calendar events to the client-facing
// shape, preserving upstream order.
func normalizeEvents(items []*calendar.Event) []models.CalendarEvent {
	events := []models.CalendarEvent{}
	for _, item := range items {
		events = append(events, normalizeEvent(item))
	}
	return events
}

// normalizeEvent maps one Google event to the normalized shape. Timed
// events keep their dateTime; all-day events fall back to the date form.
func normalizeEvent(item *calendar.Event) models.CalendarEvent {
	title := item.Summary
	if title == "" {
		title = models.DefaultListTitle
	}

	return models.CalendarEvent{
		ID:              item.Id,
		Title:           title,
		Start:           eventTime(item.Start),
		End:             eventTime(item.End),
		Description:     item.Description,
		Location:        item.Location,
		Link:            item.HtmlLink,
		BackgroundColor: models.EventBackgroundColor,
		BorderColor:     models.EventBorderColor,
	}
}

// eventTime returns the dateTime form when present, else the all-day date.
func eventTime(t *calendar.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}
