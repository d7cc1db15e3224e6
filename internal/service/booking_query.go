package service

import (
	"context"
	"errors"

	"gatisathi/internal/domain"
	"gatisathi/internal/models"

	"github.com/rs/zerolog"
)

// BookingQuery serves the passenger's booking list with ride and driver
// display fields joined in.
type BookingQuery struct {
	ledger    domain.BookingLedger
	inventory domain.RideInventory
	users     domain.UserDirectory
	logger    *zerolog.Logger
}

func NewBookingQuery(ledger domain.BookingLedger, inventory domain.RideInventory, users domain.UserDirectory, logger *zerolog.Logger) *BookingQuery {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingQuery{ledger: ledger, inventory: inventory, users: users, logger: logger}
}

// ListMine returns the passenger's bookings, newest first. Ride or driver is
// nil when the record no longer resolves.
func (q *BookingQuery) ListMine(ctx context.Context, passengerID string) ([]*models.BookingView, error) {
	if passengerID == "" {
		return nil, ErrUnauthorized
	}

	bookings, err := q.ledger.ListByPassenger(ctx, passengerID)
	if err != nil {
		return nil, persistenceError("list bookings", err)
	}

	rides := make(map[string]*models.BookingRideSummary)
	drivers := make(map[string]*models.DriverContact)
	views := make([]*models.BookingView, 0, len(bookings))

	for _, b := range bookings {
		ride, ok := rides[b.RideID]
		if !ok {
			if ride, err = q.rideSummary(ctx, b.RideID); err != nil {
				return nil, err
			}
			rides[b.RideID] = ride
		}

		driver, ok := drivers[b.DriverID]
		if !ok {
			if driver, err = q.driverContact(ctx, b.DriverID); err != nil {
				return nil, err
			}
			drivers[b.DriverID] = driver
		}

		views = append(views, &models.BookingView{Booking: b, Ride: ride, Driver: driver})
	}
	return views, nil
}

func (q *BookingQuery) rideSummary(ctx context.Context, rideID string) (*models.BookingRideSummary, error) {
	ride, err := q.inventory.GetRide(ctx, rideID)
	if errors.Is(err, domain.ErrRideNotFound) {
		q.logger.Warn().Str("ride_id", rideID).Msg("booking references unknown ride")
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("get ride", err)
	}
	return &models.BookingRideSummary{
		ID:            ride.ID,
		From:          ride.From,
		To:            ride.To,
		Date:          ride.Date,
		Time:          ride.Time,
		Mode:          ride.Mode,
		VehicleInfo:   ride.VehicleInfo,
		VehicleNumber: ride.VehicleNumber,
		Status:        ride.Status,
	}, nil
}

func (q *BookingQuery) driverContact(ctx context.Context, driverID string) (*models.DriverContact, error) {
	if q.users == nil {
		return nil, nil
	}
	user, err := q.users.GetUserByID(ctx, driverID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("get driver", err)
	}
	return user.Contact(), nil
}
