package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"bookingd/internal/models"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

// customTransport adds Basic Auth and a User-Agent to every request.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "bookingd/1.0")
	return t.Transport.RoundTrip(req)
}

// Client is a CalDAV implementation of the calendar-of-record, for
// deployments whose target calendar lives on a CalDAV server instead of
// Google Calendar. The server exposes no free/busy report, so busy
// intervals are derived from the events in the queried window.
type Client struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	endpoint     string
	calendarURL  string
	location     *time.Location
}

// NewClient connects to the CalDAV endpoint and resolves the named
// calendar's URL via principal and home-set discovery.
func NewClient(logger *slog.Logger, endpoint, username, password, calendarName string, loc *time.Location) (*Client, error) {
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &Client{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     endpoint,
		location:     loc,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", calendarName)
	calendarURL, err := c.findCalendar(context.Background(), calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarURL = calendarURL
	logger.Info("Successfully found CalDAV calendar", "url", calendarURL)

	return c, nil
}

// ListEvents queries the calendar for events overlapping [timeMin, timeMax]
// and returns them normalized, ordered by start time ascending.
func (c *Client) ListEvents(ctx context.Context, timeMin, timeMax string) ([]models.CalendarEvent, error) {
	start, err := time.Parse(time.RFC3339, timeMin)
	if err != nil {
		return nil, fmt.Errorf("invalid timeMin '%s': %w", timeMin, err)
	}
	end, err := time.Parse(time.RFC3339, timeMax)
	if err != nil {
		return nil, fmt.Errorf("invalid timeMax '%s': %w", timeMax, err)
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{Name: ical.CompEvent, AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: start,
				End:   end,
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarURL, query)
	if err != nil {
		return nil, fmt.Errorf("calendar query failed: %w", err)
	}

	events := []models.CalendarEvent{}
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ve := range obj.Data.Events() {
			event, err := c.normalizeEvent(ve)
			if err != nil {
				c.logger.Warn("Skipping unreadable CalDAV event", "path", obj.Path, "error", err)
				continue
			}
			events = append(events, event)
		}
	}

	sortByStart(events)
	c.logger.Info("Fetched events from CalDAV calendar", "count", len(events))
	return events, nil
}

// FreeBusy reports the busy intervals in [timeMin, timeMax], derived from
// the calendar's own events in that window.
func (c *Client) FreeBusy(ctx context.Context, timeMin, timeMax string) ([]models.TimePeriod, error) {
	events, err := c.ListEvents(ctx, timeMin, timeMax)
	if err != nil {
		return nil, err
	}
	return BusyPeriods(events), nil
}

// InsertEvent writes a new VEVENT to the calendar collection. The event
// identifier is a generated UID, which also names the .ics resource so
// DeleteEvent can find it later.
func (c *Client) InsertEvent(ctx context.Context, req *models.BookingRequest) (*models.CalendarEvent, error) {
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start '%s': %w", req.Start, err)
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return nil, fmt.Errorf("invalid end '%s': %w", req.End, err)
	}

	uid := uuid.New().String()

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, req.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, end)
	if req.Description != "" {
		ve.Props.SetText(ical.PropDescription, req.Description)
	}
	for _, attendee := range req.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//bookingd//EN")
	cal.Children = append(cal.Children, ve)

	writer, err := c.webdavClient.Create(ctx, c.eventPath(uid))
	if err != nil {
		return nil, fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	defer writer.Close()

	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode event to iCal format: %w", err)
	}

	c.logger.Info("Created event on CalDAV calendar", "eventID", uid, "title", req.Title)
	return &models.CalendarEvent{
		ID:              uid,
		Title:           req.Title,
		Start:           req.Start,
		End:             req.End,
		Description:     req.Description,
		BackgroundColor: models.EventBackgroundColor,
		BorderColor:     models.EventBorderColor,
	}, nil
}

// DeleteEvent removes the .ics resource named by the event identifier.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.webdavClient.RemoveAll(ctx, c.eventPath(eventID)); err != nil {
		return fmt.Errorf("failed to delete event from CalDAV server: %w", err)
	}
	c.logger.Info("Deleted event from CalDAV calendar", "eventID", eventID)
	return nil
}

// eventPath builds the resource path for an event, relative to the
// endpoint as the webdav client expects.
func (c *Client) eventPath(uid string) string {
	return path.Join(strings.TrimPrefix(c.calendarURL, c.endpoint), fmt.Sprintf("%s.ics", uid))
}

// normalizeEvent maps a VEVENT to the client-facing shape.
func (c *Client) normalizeEvent(ve ical.Event) (models.CalendarEvent, error) {
	start, err := ve.DateTimeStart(c.location)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("missing start time: %w", err)
	}
	end, err := ve.DateTimeEnd(c.location)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("missing end time: %w", err)
	}

	var id string
	if p := ve.Props.Get(ical.PropUID); p != nil {
		id = p.Value
	}

	title, _ := ve.Props.Text(ical.PropSummary)
	if title == "" {
		title = models.DefaultListTitle
	}
	description, _ := ve.Props.Text(ical.PropDescription)
	location, _ := ve.Props.Text(ical.PropLocation)

	return models.CalendarEvent{
		ID:              id,
		Title:           title,
		Start:           start.Format(time.RFC3339),
		End:             end.Format(time.RFC3339),
		Description:     description,
		Location:        location,
		BackgroundColor: models.EventBackgroundColor,
		BorderColor:     models.EventBorderColor,
	}, nil
}

// BusyPeriods converts a normalized event list into busy intervals,
// preserving order.
func BusyPeriods(events []models.CalendarEvent) []models.TimePeriod {
	periods := []models.TimePeriod{}
	for _, event := range events {
		periods = append(periods, models.TimePeriod{Start: event.Start, End: event.End})
	}
	return periods
}

// sortByStart orders events by their start string. RFC3339 timestamps in
// one zone sort correctly as strings.
func sortByStart(events []models.CalendarEvent) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Start < events[j].Start
	})
}

// findCalendar discovers the user's calendars and returns the URL of the
// one with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return fmt.Sprintf("%s%s", strings.TrimSuffix(c.endpoint, "/"), cal.Path), nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
