package domain

import (
	"context"
	"time"

	"gatisathi/internal/models"
)

// RideInventory owns ride records and is the only writer of seats_booked.
// TryReserveSeat and ReleaseSeat must each be a single atomic operation in
// the backing store.
type RideInventory interface {
	CreateRide(ctx context.Context, ride *models.Ride) error
	GetRide(ctx context.Context, id string) (*models.Ride, error)
	TryReserveSeat(ctx context.Context, id string) (*models.ReservationToken, error)
	ReleaseSeat(ctx context.Context, id string) error
	SearchRides(ctx context.Context, filter models.RideFilter) ([]*models.Ride, error)
	ListRidesByDriver(ctx context.Context, driverID string) ([]*models.Ride, error)
	UpdateRideStatus(ctx context.Context, id, status string) error
}

// BookingLedger is the append-only record of successful reservations.
type BookingLedger interface {
	CreateBooking(ctx context.Context, in models.NewBooking) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListByPassenger(ctx context.Context, passengerID string) ([]*models.Booking, error)
	CountActiveByRideAndPassenger(ctx context.Context, rideID, passengerID string) (int, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id string, version int64, status, paymentStatus string) error
}

// UserDirectory resolves and maintains user identities.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByContact(ctx context.Context, phone, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUserProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error)
	IncrementTotalTrips(ctx context.Context, id string) error
}

// RateLimiter counts attempts per key within a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
