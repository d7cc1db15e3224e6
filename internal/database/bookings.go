package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gatisathi/internal/domain"
	"gatisathi/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `id, ride_id, passenger_id, driver_id, payment_method, payment_status,
	status, price_paid, version, created_at, updated_at`

// CreateBooking appends a ledger row for a seat that has already been reserved.
func (db *DB) CreateBooking(ctx context.Context, in models.NewBooking) (*models.Booking, error) {
	now := time.Now().UTC()
	booking := &models.Booking{
		ID:            uuid.NewString(),
		RideID:        in.RideID,
		PassengerID:   in.PassengerID,
		DriverID:      in.DriverID,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: models.InitialPaymentStatus(in.PaymentMethod),
		Status:        models.BookingStatusUpcoming,
		PricePaid:     in.PricePaid,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, db.rebind(query),
		booking.ID,
		booking.RideID,
		booking.PassengerID,
		booking.DriverID,
		booking.PaymentMethod,
		booking.PaymentStatus,
		booking.Status,
		booking.PricePaid,
		booking.Version,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return booking, nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, db.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// ListByPassenger returns the passenger's bookings, newest first.
func (db *DB) ListByPassenger(ctx context.Context, passengerID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE passenger_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := db.QueryContext(ctx, db.rebind(query), passengerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

func (db *DB) CountActiveByRideAndPassenger(ctx context.Context, rideID, passengerID string) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE ride_id = ? AND passenger_id = ? AND status <> ?`
	var count int
	err := db.QueryRowContext(ctx, db.rebind(query), rideID, passengerID, models.BookingStatusCancelled).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// UpdateBookingStatusWithVersion applies the change only if the row is still at fromVersion.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id string, fromVersion int64, status, paymentStatus string) error {
	query := `UPDATE bookings SET status = ?, payment_status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, db.rebind(query), status, paymentStatus, time.Now().UTC(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if rows == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.RideID, &b.PassengerID, &b.DriverID, &b.PaymentMethod, &b.PaymentStatus,
		&b.Status, &b.PricePaid, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
