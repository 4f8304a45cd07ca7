package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"rentbook/internal/domain"
	"rentbook/internal/export"
	"rentbook/internal/models"

	"github.com/gorilla/mux"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var actionTargets = map[string]models.BookingStatus{
	"confirm":  models.StatusConfirmed,
	"start":    models.StatusActive,
	"complete": models.StatusCompleted,
	"cancel":   models.StatusCancelled,
	"dispute":  models.StatusDisputed,
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeServiceError(w, s.logger, domain.ErrUnauthenticated)
		return
	}

	var req createBookingRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	rng, err := models.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		writeServiceError(w, s.logger, domain.Validationf("%v", err))
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), domain.CreateBookingInput{
		ItemID:        strings.TrimSpace(req.ItemID),
		RenterID:      actor.UserID,
		StartDate:     rng.Start,
		EndDate:       rng.End,
		ClientAmount:  req.TotalAmount,
		DepositAmount: req.DepositAmount,
		Notes:         req.Notes,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeData(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeServiceError(w, s.logger, domain.ErrUnauthenticated)
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), mux.Vars(r)["id"], actor)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeData(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleListMyBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeServiceError(w, s.logger, domain.ErrUnauthenticated)
		return
	}

	q := r.URL.Query()
	perspective, err := models.ParsePerspective(q.Get("role"))
	if err != nil {
		writeServiceError(w, s.logger, domain.Validationf("%v", err))
		return
	}

	var status models.BookingStatus
	if raw := q.Get("status"); raw != "" {
		status, err = models.ParseBookingStatus(raw)
		if err != nil {
			writeServiceError(w, s.logger, domain.Validationf("%v", err))
			return
		}
	}

	page, limit, err := pageParams(q.Get("page"), q.Get("limit"))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	bookings, total, err := s.bookings.ListBookings(r.Context(), models.BookingFilter{
		UserID:      actor.UserID,
		Perspective: perspective,
		Status:      status,
		Limit:       limit,
		Offset:      (page - 1) * limit,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}

	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       bookings,
		Pagination: newPagination(page, limit, total),
	})
}

func (s *HTTPServer) handleMyStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeServiceError(w, s.logger, domain.ErrUnauthenticated)
		return
	}

	perspective, err := models.ParsePerspective(r.URL.Query().Get("role"))
	if err != nil {
		writeServiceError(w, s.logger, domain.Validationf("%v", err))
		return
	}

	stats, err := s.bookings.GetStats(r.Context(), actor.UserID, perspective)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleExportMyBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeServiceError(w, s.logger, domain.ErrUnauthenticated)
		return
	}

	perspective, err := models.ParsePerspective(r.URL.Query().Get("role"))
	if err != nil {
		writeServiceError(w, s.logger, domain.Validationf("%v", err))
		return
	}

	bookings, err := s.bookings.ExportBookings(r.Context(), actor.UserID, perspective)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	// Render fully before writing headers so a failure still yields a JSON error.
	now := s.now().UTC()
	var buf bytes.Buffer
	if err := export.WriteBookings(&buf, actor.UserID, bookings, now); err != nil {
		writeServiceError(w, s.logger, fmt.Errorf("render export: %w", err))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bookings_%s.xlsx"`, now.Format("20060102")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	s.transition(w, r, models.BookingStatus(req.Status), req.Notes)
}

func (s *HTTPServer) handleAction(w http.ResponseWriter, r *http.Request) {
	target, ok := actionTargets[mux.Vars(r)["action"]]
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
		return
	}

	// The body is optional for actions.
	var req actionRequest
	if err := s.decodeAndValidate(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeServiceError(w, s.logger, err)
		return
	}
	s.transition(w, r, target, req.Notes)
}

func (s *HTTPServer) transition(w http.ResponseWriter, r *http.Request, target models.BookingStatus, notes string) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeServiceError(w, s.logger, domain.ErrUnauthenticated)
		return
	}

	booking, err := s.bookings.Transition(r.Context(), mux.Vars(r)["id"], actor, target, notes)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeData(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleRate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeServiceError(w, s.logger, domain.ErrUnauthenticated)
		return
	}

	var req ratingRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	booking, err := s.bookings.Rate(r.Context(), mux.Vars(r)["id"], actor, *req.Rating, req.Feedback)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeData(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := queryRange(r)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	avail, err := s.bookings.CheckAvailability(r.Context(), mux.Vars(r)["id"], rng, strings.TrimSpace(q.Get("exclude_booking_id")))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeData(w, http.StatusOK, avail)
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	rng, err := queryRange(r)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	quote, err := s.bookings.Quote(r.Context(), mux.Vars(r)["id"], rng)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeData(w, http.StatusOK, quote)
}

func (s *HTTPServer) decodeAndValidate(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil {
		if errors.Is(err, errEmptyBody) {
			return fmt.Errorf("%w: %w", domain.ErrValidation, errEmptyBody)
		}
		return domain.Validationf("%v", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func queryRange(r *http.Request) (models.DateRange, error) {
	q := r.URL.Query()
	start, end := q.Get("start_date"), q.Get("end_date")
	if start == "" || end == "" {
		return models.DateRange{}, domain.Validationf("start_date and end_date are required")
	}
	rng, err := models.ParseDateRange(start, end)
	if err != nil {
		return models.DateRange{}, domain.Validationf("%v", err)
	}
	return rng, nil
}

// pageParams parses 1-based page and limit. limit follows the list defaults.
func pageParams(rawPage, rawLimit string) (int, int, error) {
	page, limit := 1, models.DefaultPageSize
	if rawPage != "" {
		p, err := strconv.Atoi(rawPage)
		if err != nil || p < 1 {
			return 0, 0, domain.Validationf("page must be a positive integer")
		}
		page = p
	}
	if rawLimit != "" {
		l, err := strconv.Atoi(rawLimit)
		if err != nil {
			return 0, 0, domain.Validationf("limit must be an integer")
		}
		switch {
		case l <= 0:
			limit = models.DefaultPageSize
		case l > models.MaxPageSize:
			limit = models.MaxPageSize
		default:
			limit = l
		}
	}
	return page, limit, nil
}
