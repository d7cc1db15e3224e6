package domain

import "errors"

// Store-level failures shared by every RideInventory, BookingLedger and
// UserDirectory implementation.
var (
	ErrRideNotFound           = errors.New("ride not found")
	ErrRideNotActive          = errors.New("ride is not active")
	ErrRideFull               = errors.New("ride is fully booked")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrConcurrentModification = errors.New("record was modified concurrently")
)
