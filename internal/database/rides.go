package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gatisathi/internal/domain"
	"gatisathi/internal/models"

	"github.com/google/uuid"
)

const rideColumns = `id, driver_id, mode, origin, destination, ride_date, ride_time, price,
	seats_offered, seats_booked, vehicle_info, vehicle_number, ride_details, status,
	created_at, updated_at`

func (db *DB) CreateRide(ctx context.Context, ride *models.Ride) error {
	if ride.ID == "" {
		ride.ID = uuid.NewString()
	}
	if ride.Status == "" {
		ride.Status = models.RideStatusActive
	}
	if ride.Mode == "" {
		ride.Mode = models.ModeCar
	}
	now := time.Now().UTC()

	query := `INSERT INTO rides (` + rideColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, db.rebind(query),
		ride.ID,
		ride.DriverID,
		ride.Mode,
		ride.From,
		ride.To,
		ride.Date.Format(models.DateLayout),
		ride.Time,
		ride.Price,
		ride.SeatsOffered,
		ride.SeatsBooked,
		ride.VehicleInfo,
		ride.VehicleNumber,
		ride.RideDetails,
		ride.Status,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}

	ride.CreatedAt = now
	ride.UpdatedAt = now
	return nil
}

func (db *DB) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = ?`
	ride, err := scanRide(db.QueryRowContext(ctx, db.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}
	return ride, nil
}

// TryReserveSeat increments seats_booked in one conditional statement. Only
// when no row qualifies does it read the ride to report why.
func (db *DB) TryReserveSeat(ctx context.Context, id string) (*models.ReservationToken, error) {
	now := time.Now().UTC()
	query := `UPDATE rides
		SET seats_booked = seats_booked + 1, updated_at = ?
		WHERE id = ? AND status = ? AND seats_booked < seats_offered
		RETURNING driver_id, price, seats_offered, seats_booked`

	token := &models.ReservationToken{RideID: id, ReservedAt: now}
	var bookedAfter int64
	err := db.QueryRowContext(ctx, db.rebind(query), now, id, models.RideStatusActive).Scan(
		&token.DriverID, &token.PricePerSeat, &token.SeatsOffered, &bookedAfter,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.reserveMissReason(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve seat: %w", err)
	}

	token.SeatsBookedBefore = bookedAfter - 1
	return token, nil
}

func (db *DB) reserveMissReason(ctx context.Context, id string) error {
	var status string
	query := `SELECT status FROM rides WHERE id = ?`
	err := db.QueryRowContext(ctx, db.rebind(query), id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrRideNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to inspect ride after reservation miss: %w", err)
	}
	if status != models.RideStatusActive {
		return domain.ErrRideNotActive
	}
	return domain.ErrRideFull
}

// ReleaseSeat decrements seats_booked, never below zero.
func (db *DB) ReleaseSeat(ctx context.Context, id string) error {
	query := `UPDATE rides
		SET seats_booked = CASE WHEN seats_booked > 0 THEN seats_booked - 1 ELSE 0 END, updated_at = ?
		WHERE id = ?`
	result, err := db.ExecContext(ctx, db.rebind(query), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	if rows == 0 {
		return domain.ErrRideNotFound
	}
	return nil
}

func (db *DB) SearchRides(ctx context.Context, filter models.RideFilter) ([]*models.Ride, error) {
	conditions := []string{"status = ?"}
	args := []interface{}{models.RideStatusActive}

	if from := strings.TrimSpace(filter.From); from != "" {
		conditions = append(conditions, `LOWER(origin) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(from))
	}
	if to := strings.TrimSpace(filter.To); to != "" {
		conditions = append(conditions, `LOWER(destination) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(to))
	}
	if filter.Mode != "" {
		conditions = append(conditions, "mode = ?")
		args = append(args, filter.Mode)
	}
	if !filter.FromDate.IsZero() {
		conditions = append(conditions, "ride_date >= ?")
		args = append(args, filter.FromDate.Format(models.DateLayout))
	}

	query := `SELECT ` + rideColumns + ` FROM rides WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY ride_date ASC, ride_time ASC`
	return db.queryRides(ctx, query, args...)
}

func (db *DB) ListRidesByDriver(ctx context.Context, driverID string) ([]*models.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = ? ORDER BY ride_date DESC, ride_time DESC`
	return db.queryRides(ctx, query, driverID)
}

// UpdateRideStatus moves an Active ride to a terminal status.
func (db *DB) UpdateRideStatus(ctx context.Context, id, status string) error {
	query := `UPDATE rides SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, db.rebind(query), status, time.Now().UTC(), id, models.RideStatusActive)
	if err != nil {
		return fmt.Errorf("failed to update ride status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update ride status: %w", err)
	}
	if rows == 0 {
		if _, err := db.GetRide(ctx, id); err != nil {
			return err
		}
		return domain.ErrRideNotActive
	}
	return nil
}

func (db *DB) queryRides(ctx context.Context, query string, args ...interface{}) ([]*models.Ride, error) {
	rows, err := db.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rides: %w", err)
	}
	defer rows.Close()

	var rides []*models.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ride: %w", err)
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rides: %w", err)
	}
	return rides, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRide(row rowScanner) (*models.Ride, error) {
	var (
		r       models.Ride
		dateStr string
	)
	err := row.Scan(
		&r.ID, &r.DriverID, &r.Mode, &r.From, &r.To, &dateStr, &r.Time, &r.Price,
		&r.SeatsOffered, &r.SeatsBooked, &r.VehicleInfo, &r.VehicleNumber, &r.RideDetails, &r.Status,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Date, err = time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ride date %s: %w", dateStr, err)
	}
	return &r, nil
}

func likePattern(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return "%" + s + "%"
}
