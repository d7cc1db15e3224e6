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

const userColumns = `id, name, phone, email, role, rating, total_trips, is_verified, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	now := time.Now().UTC()

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, db.rebind(query),
		user.ID,
		user.Name,
		nullString(user.Phone),
		nullString(user.Email),
		user.Role,
		user.Rating,
		user.TotalTrips,
		user.IsVerified,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return db.queryUser(ctx, query, id)
}

// FindUserByContact matches on every non-empty contact field.
func (db *DB) FindUserByContact(ctx context.Context, phone, email string) (*models.User, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if phone != "" {
		conditions = append(conditions, "phone = ?")
		args = append(args, phone)
	}
	if email != "" {
		conditions = append(conditions, "email = ?")
		args = append(args, email)
	}
	if len(conditions) == 0 {
		return nil, domain.ErrUserNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + strings.Join(conditions, " AND ")
	return db.queryUser(ctx, query, args...)
}

func (db *DB) UpdateUserProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	var (
		sets []string
		args []interface{}
	)
	if update.Name != "" {
		sets = append(sets, "name = ?")
		args = append(args, update.Name)
	}
	if update.Phone != "" {
		sets = append(sets, "phone = ?")
		args = append(args, update.Phone)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, time.Now().UTC(), id)
		query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
		if _, err := db.ExecContext(ctx, db.rebind(query), args...); err != nil {
			return nil, fmt.Errorf("failed to update user profile: %w", err)
		}
	}
	return db.GetUserByID(ctx, id)
}

func (db *DB) IncrementTotalTrips(ctx context.Context, id string) error {
	query := `UPDATE users SET total_trips = total_trips + 1, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, db.rebind(query), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to increment total trips: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to increment total trips: %w", err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (db *DB) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var (
		user         models.User
		phone, email sql.NullString
	)
	err := db.QueryRowContext(ctx, db.rebind(query), args...).Scan(
		&user.ID, &user.Name, &phone, &email, &user.Role, &user.Rating, &user.TotalTrips,
		&user.IsVerified, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Phone = phone.String
	user.Email = email.String
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
