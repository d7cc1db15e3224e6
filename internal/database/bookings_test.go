package database

import (
	"context"
	"testing"

	"gatisathi/internal/domain"
	"gatisathi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	upi, err := db.CreateBooking(ctx, models.NewBooking{
		RideID:        "ride-1",
		PassengerID:   "p1",
		DriverID:      "d1",
		PaymentMethod: models.PaymentMethodUPI,
		PricePaid:     450,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, upi.ID)
	assert.Equal(t, models.BookingStatusUpcoming, upi.Status)
	assert.Equal(t, models.PaymentStatusCompleted, upi.PaymentStatus)
	assert.Equal(t, int64(1), upi.Version)

	cash, err := db.CreateBooking(ctx, models.NewBooking{
		RideID:        "ride-1",
		PassengerID:   "p1",
		DriverID:      "d1",
		PaymentMethod: models.PaymentMethodCash,
		PricePaid:     0,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, cash.PaymentStatus)
	assert.NotEqual(t, upi.ID, cash.ID)

	got, err := db.GetBooking(ctx, upi.ID)
	require.NoError(t, err)
	assert.Equal(t, upi.RideID, got.RideID)
	assert.Equal(t, upi.PricePaid, got.PricePaid)

	_, err = db.GetBooking(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestCreateBooking_NegativePriceRejected(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.CreateBooking(context.Background(), models.NewBooking{
		RideID:        "ride-1",
		PassengerID:   "p1",
		DriverID:      "d1",
		PaymentMethod: models.PaymentMethodUPI,
		PricePaid:     -1,
	})
	assert.Error(t, err)
}

func TestListByPassenger(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		b, err := db.CreateBooking(ctx, models.NewBooking{
			RideID: "ride-1", PassengerID: "p1", DriverID: "d1",
			PaymentMethod: models.PaymentMethodUPI, PricePaid: 100,
		})
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}
	_, err := db.CreateBooking(ctx, models.NewBooking{
		RideID: "ride-1", PassengerID: "p2", DriverID: "d1",
		PaymentMethod: models.PaymentMethodUPI, PricePaid: 100,
	})
	require.NoError(t, err)

	list, err := db.ListByPassenger(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, b := range list {
		assert.Equal(t, "p1", b.PassengerID)
		assert.Contains(t, ids, b.ID)
	}
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].CreatedAt.After(list[i-1].CreatedAt))
	}

	empty, err := db.ListByPassenger(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateBookingStatusWithVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b, err := db.CreateBooking(ctx, models.NewBooking{
		RideID: "ride-1", PassengerID: "p1", DriverID: "d1",
		PaymentMethod: models.PaymentMethodUPI, PricePaid: 100,
	})
	require.NoError(t, err)

	count, err := db.CountActiveByRideAndPassenger(ctx, "ride-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = db.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version, models.BookingStatusCancelled, models.PaymentStatusRefunded)
	require.NoError(t, err)

	// stale version
	err = db.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version, models.BookingStatusCancelled, models.PaymentStatusRefunded)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)
	assert.Equal(t, models.PaymentStatusRefunded, got.PaymentStatus)
	assert.Equal(t, int64(2), got.Version)

	count, err = db.CountActiveByRideAndPassenger(ctx, "ride-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
