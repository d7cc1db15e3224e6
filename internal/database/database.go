package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gatisathi/internal/config"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB is the SQL-backed ride inventory, booking ledger and user directory.
type DB struct {
	*sql.DB
	driver string
	logger *zerolog.Logger
}

func NewDB(cfg config.DatabaseConfig, logger *zerolog.Logger) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}

	dsn := cfg.DSN
	if driver == config.DriverSQLite {
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = cfg.Path + "?_busy_timeout=5000"
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == config.DriverSQLite {
		// SQLite allows one writer; a single connection also keeps :memory: databases shared.
		conn.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := Wrap(conn, driver, logger)
	if err := db.Migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	db.logger.Info().Str("driver", driver).Msg("database initialized")
	return db, nil
}

// Wrap adopts an already opened connection without running migrations.
func Wrap(conn *sql.DB, driver string, logger *zerolog.Logger) *DB {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "database").Logger()
	return &DB{DB: conn, driver: driver, logger: &l}
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) Migrate(ctx context.Context) error {
	queries := sqliteSchema
	if db.driver == config.DriverPostgres {
		queries = postgresSchema
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != config.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT UNIQUE,
		email TEXT UNIQUE,
		role TEXT NOT NULL DEFAULT 'user',
		rating REAL NOT NULL DEFAULT 0,
		total_trips INTEGER NOT NULL DEFAULT 0,
		is_verified BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rides (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT 'car',
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		ride_date TEXT NOT NULL,
		ride_time TEXT NOT NULL,
		price REAL NOT NULL,
		seats_offered INTEGER NOT NULL CHECK (seats_offered >= 1),
		seats_booked INTEGER NOT NULL DEFAULT 0 CHECK (seats_booked >= 0 AND seats_booked <= seats_offered),
		vehicle_info TEXT NOT NULL DEFAULT '',
		vehicle_number TEXT NOT NULL DEFAULT '',
		ride_details TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Active',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		ride_id TEXT NOT NULL,
		passenger_id TEXT NOT NULL,
		driver_id TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Upcoming',
		price_paid REAL NOT NULL CHECK (price_paid >= 0),
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rides_driver_id ON rides(driver_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rides_status_date ON rides(status, ride_date)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_passenger_id ON bookings(passenger_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_ride_id ON bookings(ride_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT UNIQUE,
		email TEXT UNIQUE,
		role TEXT NOT NULL DEFAULT 'user',
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_trips BIGINT NOT NULL DEFAULT 0,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rides (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT 'car',
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		ride_date TEXT NOT NULL,
		ride_time TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		seats_offered BIGINT NOT NULL CHECK (seats_offered >= 1),
		seats_booked BIGINT NOT NULL DEFAULT 0 CHECK (seats_booked >= 0 AND seats_booked <= seats_offered),
		vehicle_info TEXT NOT NULL DEFAULT '',
		vehicle_number TEXT NOT NULL DEFAULT '',
		ride_details TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Active',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		ride_id TEXT NOT NULL,
		passenger_id TEXT NOT NULL,
		driver_id TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Upcoming',
		price_paid DOUBLE PRECISION NOT NULL CHECK (price_paid >= 0),
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rides_driver_id ON rides(driver_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rides_status_date ON rides(status, ride_date)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_passenger_id ON bookings(passenger_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_ride_id ON bookings(ride_id)`,
}
