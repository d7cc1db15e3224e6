package database

import (
	"context"
	"testing"
	"time"

	"gatisathi/internal/domain"
	"gatisathi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetRide(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ride := seedRide(t, db, 3)
	assert.NotEmpty(t, ride.ID)
	assert.Equal(t, models.RideStatusActive, ride.Status)
	assert.Equal(t, models.ModeCar, ride.Mode)

	got, err := db.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.From, got.From)
	assert.Equal(t, ride.Date.Format(models.DateLayout), got.Date.Format(models.DateLayout))
	assert.Equal(t, int64(3), got.SeatsOffered)
	assert.Equal(t, int64(0), got.SeatsBooked)

	_, err = db.GetRide(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRideNotFound)
}

func TestTryReserveSeat(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	ride := seedRide(t, db, 2)

	token, err := db.TryReserveSeat(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.ID, token.RideID)
	assert.Equal(t, ride.DriverID, token.DriverID)
	assert.Equal(t, 450.0, token.PricePerSeat)
	assert.Equal(t, int64(2), token.SeatsOffered)
	assert.Equal(t, int64(0), token.SeatsBookedBefore)

	token, err = db.TryReserveSeat(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), token.SeatsBookedBefore)

	_, err = db.TryReserveSeat(ctx, ride.ID)
	assert.ErrorIs(t, err, domain.ErrRideFull)

	got, err := db.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.SeatsBooked)
}

func TestTryReserveSeat_NotFoundAndNotActive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.TryReserveSeat(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRideNotFound)

	ride := seedRide(t, db, 2)
	require.NoError(t, db.UpdateRideStatus(ctx, ride.ID, models.RideStatusCancelled))

	_, err = db.TryReserveSeat(ctx, ride.ID)
	assert.ErrorIs(t, err, domain.ErrRideNotActive)

	got, err := db.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.SeatsBooked)
}

func TestReleaseSeat(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	ride := seedRide(t, db, 2)

	_, err := db.TryReserveSeat(ctx, ride.ID)
	require.NoError(t, err)

	require.NoError(t, db.ReleaseSeat(ctx, ride.ID))
	got, err := db.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.SeatsBooked)

	// floor at zero
	require.NoError(t, db.ReleaseSeat(ctx, ride.ID))
	got, err = db.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.SeatsBooked)

	assert.ErrorIs(t, db.ReleaseSeat(ctx, "missing"), domain.ErrRideNotFound)
}

func TestReleaseSeat_InactiveRide(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	ride := seedRide(t, db, 1)

	_, err := db.TryReserveSeat(ctx, ride.ID)
	require.NoError(t, err)
	require.NoError(t, db.UpdateRideStatus(ctx, ride.ID, models.RideStatusCompleted))

	require.NoError(t, db.ReleaseSeat(ctx, ride.ID))
	got, err := db.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.SeatsBooked)
}

func TestSearchRides(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	today := time.Now().UTC().Truncate(24 * time.Hour)

	rides := []*models.Ride{
		{DriverID: "d1", From: "Pune Station", To: "Mumbai", Date: today.AddDate(0, 0, 2), Time: "08:00", Price: 400, SeatsOffered: 3},
		{DriverID: "d2", From: "pune", To: "Nashik", Date: today.AddDate(0, 0, 1), Time: "10:00", Price: 300, SeatsOffered: 2, Mode: models.ModeBike},
		{DriverID: "d3", From: "Delhi", To: "Agra", Date: today.AddDate(0, 0, -1), Time: "07:00", Price: 250, SeatsOffered: 1},
		{DriverID: "d4", From: "100%_Pune", To: "Goa", Date: today.AddDate(0, 0, 3), Time: "06:00", Price: 900, SeatsOffered: 4},
	}
	for _, r := range rides {
		require.NoError(t, db.CreateRide(ctx, r))
	}
	cancelled := &models.Ride{DriverID: "d5", From: "Pune", To: "Mumbai", Date: today.AddDate(0, 0, 1), Time: "09:00", Price: 100, SeatsOffered: 1}
	require.NoError(t, db.CreateRide(ctx, cancelled))
	require.NoError(t, db.UpdateRideStatus(ctx, cancelled.ID, models.RideStatusCancelled))

	t.Run("case-insensitive substring", func(t *testing.T) {
		got, err := db.SearchRides(ctx, models.RideFilter{From: "PUNE"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, rides[1].ID, got[0].ID)
		assert.Equal(t, rides[0].ID, got[1].ID)
		assert.Equal(t, rides[3].ID, got[2].ID)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		got, err := db.SearchRides(ctx, models.RideFilter{From: "%_"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, rides[3].ID, got[0].ID)
	})

	t.Run("mode and date", func(t *testing.T) {
		got, err := db.SearchRides(ctx, models.RideFilter{Mode: models.ModeBike, FromDate: today})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, rides[1].ID, got[0].ID)

		got, err = db.SearchRides(ctx, models.RideFilter{FromDate: today})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("destination", func(t *testing.T) {
		got, err := db.SearchRides(ctx, models.RideFilter{To: "mum"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, rides[0].ID, got[0].ID)
	})
}

func TestListRidesByDriver(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	today := time.Now().UTC().Truncate(24 * time.Hour)

	early := &models.Ride{DriverID: "d1", From: "A", To: "B", Date: today, Time: "08:00", Price: 1, SeatsOffered: 1}
	late := &models.Ride{DriverID: "d1", From: "A", To: "B", Date: today.AddDate(0, 0, 5), Time: "08:00", Price: 1, SeatsOffered: 1}
	other := &models.Ride{DriverID: "d2", From: "A", To: "B", Date: today, Time: "08:00", Price: 1, SeatsOffered: 1}
	for _, r := range []*models.Ride{early, late, other} {
		require.NoError(t, db.CreateRide(ctx, r))
	}

	got, err := db.ListRidesByDriver(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, late.ID, got[0].ID)
	assert.Equal(t, early.ID, got[1].ID)
}

func TestUpdateRideStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	ride := seedRide(t, db, 1)

	require.NoError(t, db.UpdateRideStatus(ctx, ride.ID, models.RideStatusCompleted))
	assert.ErrorIs(t, db.UpdateRideStatus(ctx, ride.ID, models.RideStatusCancelled), domain.ErrRideNotActive)
	assert.ErrorIs(t, db.UpdateRideStatus(ctx, "missing", models.RideStatusCancelled), domain.ErrRideNotFound)

	got, err := db.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusCompleted, got.Status)
}
