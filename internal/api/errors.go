package api

import (
	"errors"
	"net/http"

	"gatisathi/internal/service"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable maps service errors to HTTP responses. ErrPersistence is last so
// more specific sentinels in the same chain win.
var errorTable = []errorMapping{
	{service.ErrRideNotFound, http.StatusNotFound, "ride_not_found"},
	{service.ErrRideNotActive, http.StatusBadRequest, "ride_not_active"},
	{service.ErrRideFull, http.StatusBadRequest, "ride_full"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{service.ErrSelfBooking, http.StatusBadRequest, "self_booking"},
	{service.ErrDuplicateBooking, http.StatusConflict, "duplicate_booking"},
	{service.ErrInvalidPaymentMethod, http.StatusBadRequest, "invalid_payment_method"},
	{service.ErrInvalidPrice, http.StatusBadRequest, "invalid_price"},
	{service.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{service.ErrBookingNotCancellable, http.StatusConflict, "booking_not_cancellable"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrTooManyAttempts, http.StatusTooManyRequests, "too_many_attempts"},
	{service.ErrInvalidRide, http.StatusBadRequest, "invalid_ride"},
	{service.ErrInvalidRideStatus, http.StatusBadRequest, "invalid_ride_status"},
	{service.ErrContactRequired, http.StatusBadRequest, "contact_required"},
	{service.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{service.ErrPersistence, http.StatusInternalServerError, "persistence_error"},
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorTable {
		if !errors.Is(err, m.err) {
			continue
		}
		msg := err.Error()
		if m.status >= http.StatusInternalServerError {
			s.logger.Error().Err(err).
				Str("request_id", requestIDFrom(r.Context())).
				Str("path", r.URL.Path).
				Msg("request failed")
			msg = "internal server error"
		}
		writeError(w, m.status, m.code, msg)
		return
	}

	s.logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Str("path", r.URL.Path).Msg("unmapped error")
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
