package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gatisathi/internal/models"
	"gatisathi/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBookingQuery_ListMine(t *testing.T) {
	ctx := context.Background()
	inv := repository.NewMemoryInventory()
	ledger := repository.NewMemoryLedger()
	users := repository.NewMemoryUserDirectory()

	driver := &models.User{Name: "Ravi", Phone: "+91900"}
	require.NoError(t, users.CreateUser(ctx, driver))

	ride := &models.Ride{DriverID: driver.ID, From: "Pune", To: "Goa", Time: "07:30", Price: 900, SeatsOffered: 3, Date: time.Now(), VehicleNumber: "MH12"}
	require.NoError(t, inv.CreateRide(ctx, ride))

	svc := NewReservationService(inv, ledger, nil, nil, DefaultBookingPolicy(), nil)
	first, err := svc.BookSeat(ctx, BookSeatRequest{RideID: ride.ID, PassengerID: "p1", PaymentMethod: "upi", PricePaid: 900})
	require.NoError(t, err)
	second, err := svc.BookSeat(ctx, BookSeatRequest{RideID: ride.ID, PassengerID: "p1", PaymentMethod: "cash"})
	require.NoError(t, err)

	// a booking whose ride and driver no longer resolve
	_, err = ledger.CreateBooking(ctx, models.NewBooking{RideID: "gone", PassengerID: "p1", DriverID: "nobody", PaymentMethod: "cash"})
	require.NoError(t, err)

	q := NewBookingQuery(ledger, inv, users, nil)
	views, err := q.ListMine(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, "gone", views[0].RideID)
	assert.Nil(t, views[0].Ride)
	assert.Nil(t, views[0].Driver)

	assert.Equal(t, second.ID, views[1].ID)
	assert.Equal(t, first.ID, views[2].ID)
	require.NotNil(t, views[1].Ride)
	assert.Equal(t, "Goa", views[1].Ride.To)
	assert.Equal(t, "MH12", views[1].Ride.VehicleNumber)
	require.NotNil(t, views[1].Driver)
	assert.Equal(t, "Ravi", views[1].Driver.Name)
	assert.Equal(t, "+91900", views[1].Driver.Phone)
}

func TestBookingQuery_Empty(t *testing.T) {
	q := NewBookingQuery(repository.NewMemoryLedger(), repository.NewMemoryInventory(), nil, nil)

	views, err := q.ListMine(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)

	_, err = q.ListMine(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestBookingQuery_LedgerFailure(t *testing.T) {
	ledger := new(mockLedger)
	ledger.On("ListByPassenger", mock.Anything, "p1").Return(nil, errors.New("connection reset"))

	q := NewBookingQuery(ledger, repository.NewMemoryInventory(), nil, nil)
	_, err := q.ListMine(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrPersistence)
}
