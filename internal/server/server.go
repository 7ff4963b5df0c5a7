package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"bookingd/internal/gateway"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Server wraps the HTTP server exposing the booking gateway.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds a Server with the gateway's routes mounted.
func New(addr string, gw *gateway.Gateway, logger *slog.Logger) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	handler := NewHandler(gw, logger)

	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.HandleFunc("/health", s.healthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/calendar", handler.ListEvents).Methods("GET")
	api.HandleFunc("/calendar", handler.CreateBooking).Methods("POST")
	api.HandleFunc("/calendar", handler.DeleteBooking).Methods("DELETE")
	api.HandleFunc("/calendar.ics", handler.ExportICS).Methods("GET")

	s.httpServer.Handler = r
	return s
}

// Start begins serving. It blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("Starting server", "address", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// loggingMiddleware tags each request with an id and logs method, path,
// status and duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.Info("Handled request",
			"requestID", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
		)
	})
}

// recoveryMiddleware converts panics into 500 responses.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("Recovered from panic", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter captures the status code for logging.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
