package service

import (
	"errors"
	"fmt"

	"gatisathi/internal/domain"
)

// Reservation failures. Store sentinels are re-exported so callers can match
// either name with errors.Is.
var (
	ErrRideNotFound    = domain.ErrRideNotFound
	ErrRideNotActive   = domain.ErrRideNotActive
	ErrRideFull        = domain.ErrRideFull
	ErrPersistence     = errors.New("persistence error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTooManyAttempts = errors.New("too many booking attempts")
)

// Request and policy failures.
var (
	ErrSelfBooking           = errors.New("drivers cannot book their own ride")
	ErrDuplicateBooking      = errors.New("passenger already holds a booking on this ride")
	ErrInvalidPaymentMethod  = errors.New("payment method must be upi or cash")
	ErrInvalidPrice          = errors.New("price must be a non-negative number")
	ErrBookingNotFound       = domain.ErrBookingNotFound
	ErrBookingNotCancellable = errors.New("booking can no longer be cancelled")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidRide           = errors.New("invalid ride")
	ErrInvalidRideStatus     = errors.New("ride status must be Completed or Cancelled")
	ErrContactRequired       = errors.New("phone or email is required")
	ErrUserNotFound          = domain.ErrUserNotFound
)

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

// inventoryError passes the reservation taxonomy through and folds anything
// else into ErrPersistence.
func inventoryError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrRideNotFound),
		errors.Is(err, domain.ErrRideNotActive),
		errors.Is(err, domain.ErrRideFull):
		return err
	default:
		return persistenceError(op, err)
	}
}
