package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medbook-ai/booking-assistant/internal/booking"
	"github.com/medbook-ai/booking-assistant/internal/bookings"
	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

const defaultListLimit = 50

// AdminBookingsHandler serves the staff-facing booking endpoints.
type AdminBookingsHandler struct {
	repo   bookings.Repository
	logger *logging.Logger
	now    func() time.Time
}

// NewAdminBookingsHandler creates the admin bookings handler.
func NewAdminBookingsHandler(repo bookings.Repository, logger *logging.Logger) *AdminBookingsHandler {
	if repo == nil {
		panic("handlers: bookings repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminBookingsHandler{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ListBookings handles GET /admin/bookings.
// Query params: status, q (name or email search), date (YYYY-MM-DD), limit, offset.
func (h *AdminBookingsHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.repo.ListBookings(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookings": items,
		"count":    len(items),
	})
}

// GetBooking handles GET /admin/bookings/{bookingID}.
func (h *AdminBookingsHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	detail, err := h.repo.GetBooking(r.Context(), id)
	if err != nil {
		if errors.Is(err, bookings.ErrBookingNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		h.logger.Error("failed to load booking", "booking_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load booking")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /admin/bookings/{bookingID}/status.
func (h *AdminBookingsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, ok := parseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	if err := h.repo.UpdateStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, bookings.ErrBookingNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		h.logger.Error("failed to update booking status", "booking_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update booking")
		return
	}

	h.logger.Info("booking status updated", "booking_id", id, "status", status)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}

// Stats handles GET /admin/bookings/stats.
func (h *AdminBookingsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context(), h.now())
	if err != nil {
		h.logger.Error("failed to compute booking stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ExportCSV handles GET /admin/bookings/export. It streams the filtered
// listing as a CSV download for the front desk spreadsheet.
func (h *AdminBookingsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Exports ignore paging.
	filter.Limit = 0
	filter.Offset = 0

	items, err := h.repo.ListBookings(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to export bookings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export bookings")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=bookings-%s.csv", h.now().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "patient", "email", "phone", "type", "date", "time", "status", "notes", "created_at"})
	for _, item := range items {
		_ = cw.Write([]string{
			item.ID.String(),
			item.CustomerName,
			item.CustomerEmail,
			item.CustomerPhone,
			item.BookingType,
			item.Date.Format("2006-01-02"),
			item.Time,
			string(item.Status),
			item.Notes,
			item.CreatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()
}

func filterFromQuery(r *http.Request) (bookings.ListFilter, error) {
	var filter bookings.ListFilter

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := parseStatus(raw)
		if !ok {
			return filter, fmt.Errorf("unknown status %q", raw)
		}
		filter.Status = status
	}
	filter.Query = strings.TrimSpace(r.URL.Query().Get("q"))
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
		}
		filter.Date = date
	}

	filter.Limit = intQuery(r, "limit", defaultListLimit)
	filter.Offset = intQuery(r, "offset", 0)
	return filter, nil
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func parseStatus(raw string) (booking.Status, bool) {
	switch booking.Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case booking.StatusPending:
		return booking.StatusPending, true
	case booking.StatusConfirmed:
		return booking.StatusConfirmed, true
	case booking.StatusCancelled:
		return booking.StatusCancelled, true
	case booking.StatusCompleted:
		return booking.StatusCompleted, true
	default:
		return "", false
	}
}
