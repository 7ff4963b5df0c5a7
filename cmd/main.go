package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bookingd/internal/caldav"
	"bookingd/internal/config"
	"bookingd/internal/gateway"
	"bookingd/internal/google"
	"bookingd/internal/models"
	"bookingd/internal/server"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "bookingd",
		Usage: "Calendar booking gateway over a Google Calendar or CalDAV backend.",
		Commands: []*cli.Command{
			serveCommand(),
			listCommand(),
			bookCommand(),
			cancelCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the booking gateway HTTP server.",
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			logger := setupLogger(cfg.LogLevel)

			gw, err := buildGateway(c.Context, cfg, logger)
			if err != nil {
				return err
			}

			srv := server.New(cfg.ListenAddr, gw, logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case sig := <-stop:
				logger.Info("Received shutdown signal", "signal", sig)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(ctx)
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List upcoming events from the calendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Usage: "Window start (RFC3339). Defaults to now."},
			&cli.StringFlag{Name: "end", Usage: "Window end (RFC3339). Defaults to 30 days from now."},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			logger := setupLogger(cfg.LogLevel)

			gw, err := buildGateway(c.Context, cfg, logger)
			if err != nil {
				return err
			}

			events, err := gw.ListEvents(c.Context, c.String("start"), c.String("end"))
			if err != nil {
				return fmt.Errorf("failed to list events: %w", err)
			}

			if len(events) == 0 {
				fmt.Println("No events in the requested window.")
				return nil
			}
			for _, event := range events {
				fmt.Printf("%s  %s → %s  %s\n", event.ID, event.Start, event.End, event.Title)
			}
			return nil
		},
	}
}

func bookCommand() *cli.Command {
	return &cli.Command{
		Name:  "book",
		Usage: "Reserve a time slot, rejecting on conflict.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Event title. Defaults to 'Appointment'."},
			&cli.StringFlag{Name: "start", Required: true, Usage: "Slot start (RFC3339)."},
			&cli.StringFlag{Name: "end", Required: true, Usage: "Slot end (RFC3339)."},
			&cli.StringFlag{Name: "description", Usage: "Event description."},
			&cli.StringSliceFlag{Name: "attendee", Usage: "Attendee email. May be repeated."},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			logger := setupLogger(cfg.LogLevel)

			gw, err := buildGateway(c.Context, cfg, logger)
			if err != nil {
				return err
			}

			req := &models.BookingRequest{
				Title:       c.String("title"),
				Start:       c.String("start"),
				End:         c.String("end"),
				Description: c.String("description"),
				Attendees:   c.StringSlice("attendee"),
			}

			result, err := gw.CreateBooking(c.Context, req)
			if err != nil {
				return fmt.Errorf("failed to create booking: %w", err)
			}

			if !result.Success {
				fmt.Println(result.Message)
				for _, p := range result.ConflictingPeriods {
					fmt.Printf("  busy: %s → %s\n", p.Start, p.End)
				}
				return cli.Exit("booking rejected", 1)
			}

			fmt.Printf("Booked %q as event %s\n", result.Event.Title, result.Event.ID)
			if result.Event.Link != "" {
				fmt.Println(result.Event.Link)
			}
			return nil
		},
	}
}

func cancelCommand() *cli.Command {
	return &cli.Command{
		Name:  "cancel",
		Usage: "Delete a booked event by its identifier.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "event-id", Required: true, Usage: "Identifier of the event to delete."},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			logger := setupLogger(cfg.LogLevel)

			gw, err := buildGateway(c.Context, cfg, logger)
			if err != nil {
				return err
			}

			if err := gw.DeleteBooking(c.Context, c.String("event-id")); err != nil {
				return fmt.Errorf("failed to delete booking: %w", err)
			}

			fmt.Println("Booking deleted.")
			return nil
		},
	}
}

// buildGateway constructs the configured calendar-of-record client and
// wraps it in the booking gateway.
func buildGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gateway.Gateway, error) {
	var calendarAPI gateway.CalendarAPI

	switch cfg.Provider {
	case config.ProviderGoogle:
		client, err := google.NewClient(ctx, logger, cfg.GoogleCredentialsJSON, cfg.CalendarID, cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("failed to create google calendar client: %w", err)
		}
		calendarAPI = client

	case config.ProviderCalDAV:
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
		}
		client, err := caldav.NewClient(logger, cfg.CalDAV.Endpoint, cfg.CalDAV.Username, cfg.CalDAV.Password, cfg.CalDAV.Calendar, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		calendarAPI = client

	default:
		return nil, fmt.Errorf("unknown calendar provider '%s'", cfg.Provider)
	}

	return gateway.New(calendarAPI, logger), nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
