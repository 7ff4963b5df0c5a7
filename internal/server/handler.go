package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"bookingd/internal/gateway"
	"bookingd/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Handler serves the booking gateway's HTTP operations.
type Handler struct {
	gateway *gateway.Gateway
	logger  *slog.Logger
}

// NewHandler creates a Handler on top of the gateway.
func NewHandler(gw *gateway.Gateway, logger *slog.Logger) *Handler {
	return &Handler{gateway: gw, logger: logger}
}

// eventsResponse wraps the list payload so an empty calendar still yields
// an events field.
type eventsResponse struct {
	Events []models.CalendarEvent `json:"events"`
}

// ListEvents handles GET /api/v1/calendar. The start and end query
// parameters are optional ISO-8601 bounds.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	events, err := h.gateway.ListEvents(r.Context(), start, end)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, eventsResponse{Events: events})
}

// CreateBooking handles POST /api/v1/calendar.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode booking request", "error", err)
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := validate.Struct(req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := h.gateway.CreateBooking(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if !result.Success {
		respondJSON(w, http.StatusConflict, result)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// DeleteBooking handles DELETE /api/v1/calendar?eventId=...
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")

	if err := h.gateway.DeleteBooking(r.Context(), eventID); err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps the gateway's error taxonomy onto HTTP status codes.
// Client-input problems are 400s; everything else, including upstream and
// configuration failures, is a 500 with the message surfaced verbatim.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var validationErr *gateway.ValidationError
	if errors.As(err, &validationErr) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Msg})
		return
	}

	h.logger.Error("Calendar operation failed", "error", err)
	respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
