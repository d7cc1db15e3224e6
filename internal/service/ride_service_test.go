package service

import (
	"context"
	"testing"
	"time"

	"gatisathi/internal/events"
	"gatisathi/internal/models"
	"gatisathi/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRideService(t *testing.T) (*RideService, *repository.MemoryInventory, *repository.MemoryUserDirectory, *recorder) {
	t.Helper()
	inv := repository.NewMemoryInventory()
	users := repository.NewMemoryUserDirectory()
	bus := events.NewEventBus()
	rec := &recorder{}
	bus.Subscribe(events.EventRidePublished, rec.handle)
	return NewRideService(inv, users, bus, 4, nil), inv, users, rec
}

func TestRideService_Publish(t *testing.T) {
	svc, _, users, rec := newRideService(t)
	ctx := context.Background()

	driver := &models.User{Name: "Kiran"}
	require.NoError(t, users.CreateUser(ctx, driver))

	ride, err := svc.Publish(ctx, driver.ID, PublishRideRequest{
		From: " Pune ", To: "Mumbai", Date: "2030-01-02", Time: "08:00", Price: 350, Mode: "BIKE",
	})
	require.NoError(t, err)
	assert.Equal(t, "Pune", ride.From)
	assert.Equal(t, models.ModeBike, ride.Mode)
	assert.Equal(t, int64(models.DefaultSeatsOffered), ride.SeatsOffered)
	assert.Equal(t, int64(0), ride.SeatsBooked)
	assert.Equal(t, models.RideStatusActive, ride.Status)

	got, _ := users.GetUserByID(ctx, driver.ID)
	assert.Equal(t, int64(1), got.TotalTrips)
	assert.Equal(t, []string{events.EventRidePublished}, rec.types())
}

func TestRideService_PublishValidation(t *testing.T) {
	svc, _, _, _ := newRideService(t)
	valid := PublishRideRequest{From: "A", To: "B", Date: "2030-01-02", Time: "08:00", Price: 10, SeatsOffered: 2}

	tests := []struct {
		name   string
		mutate func(r *PublishRideRequest)
	}{
		{"missing from", func(r *PublishRideRequest) { r.From = " " }},
		{"missing to", func(r *PublishRideRequest) { r.To = "" }},
		{"missing time", func(r *PublishRideRequest) { r.Time = "" }},
		{"bad date", func(r *PublishRideRequest) { r.Date = "02/01/2030" }},
		{"negative price", func(r *PublishRideRequest) { r.Price = -1 }},
		{"too many seats", func(r *PublishRideRequest) { r.SeatsOffered = 5 }},
		{"negative seats", func(r *PublishRideRequest) { r.SeatsOffered = -1 }},
		{"unknown mode", func(r *PublishRideRequest) { r.Mode = "bus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := svc.Publish(context.Background(), "d1", req)
			assert.ErrorIs(t, err, ErrInvalidRide)
		})
	}

	_, err := svc.Publish(context.Background(), "", valid)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRideService_SearchAttachesDriver(t *testing.T) {
	svc, _, users, _ := newRideService(t)
	ctx := context.Background()

	driver := &models.User{Name: "Kiran", Phone: "+9111"}
	require.NoError(t, users.CreateUser(ctx, driver))

	date := time.Now().AddDate(0, 0, 3).Format(models.DateLayout)
	_, err := svc.Publish(ctx, driver.ID, PublishRideRequest{From: "Pune", To: "Mumbai", Date: date, Time: "08:00"})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, "ghost", PublishRideRequest{From: "Pune", To: "Nagpur", Date: date, Time: "09:00"})
	require.NoError(t, err)

	views, err := svc.Search(ctx, models.RideFilter{From: "pune"})
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.NotNil(t, views[0].Driver)
	assert.Equal(t, "Kiran", views[0].Driver.Name)
	assert.Equal(t, int64(1), views[0].Driver.TotalTrips)
	assert.Nil(t, views[1].Driver)

	views, err = svc.Search(ctx, models.RideFilter{To: "nagpur"})
	require.NoError(t, err)
	require.Len(t, views, 1)

	one, err := svc.Get(ctx, views[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Nagpur", one.To)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRideNotFound)
}

func TestRideService_ListMine(t *testing.T) {
	svc, _, _, _ := newRideService(t)
	ctx := context.Background()

	rides, err := svc.ListMine(ctx, "d1")
	require.NoError(t, err)
	assert.NotNil(t, rides)
	assert.Empty(t, rides)

	_, err = svc.Publish(ctx, "d1", PublishRideRequest{From: "A", To: "B", Date: "2030-01-02", Time: "08:00"})
	require.NoError(t, err)
	rides, err = svc.ListMine(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, rides, 1)
}

func TestRideService_UpdateStatus(t *testing.T) {
	svc, inv, _, _ := newRideService(t)
	ctx := context.Background()

	ride, err := svc.Publish(ctx, "d1", PublishRideRequest{From: "A", To: "B", Date: "2030-01-02", Time: "08:00", SeatsOffered: 2})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, ride.ID, "d1", models.RideStatusActive)
	assert.ErrorIs(t, err, ErrInvalidRideStatus)

	_, err = svc.UpdateStatus(ctx, ride.ID, "d2", models.RideStatusCancelled)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateStatus(ctx, "missing", "d1", models.RideStatusCancelled)
	assert.ErrorIs(t, err, ErrRideNotFound)

	updated, err := svc.UpdateStatus(ctx, ride.ID, "d1", models.RideStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusCancelled, updated.Status)

	_, err = svc.UpdateStatus(ctx, ride.ID, "d1", models.RideStatusCompleted)
	assert.ErrorIs(t, err, ErrRideNotActive)

	_, err = inv.TryReserveSeat(ctx, ride.ID)
	assert.ErrorIs(t, err, ErrRideNotActive)
}
