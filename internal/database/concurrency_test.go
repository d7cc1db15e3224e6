package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"gatisathi/internal/config"
	"gatisathi/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryReserveSeat_Concurrent(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "race.db")}, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	ride := seedRide(t, db, 1)

	const workers = 20
	var (
		wg      sync.WaitGroup
		success int32
		full    int32
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := db.TryReserveSeat(ctx, ride.ID)
			switch {
			case err == nil:
				atomic.AddInt32(&success, 1)
			case errors.Is(err, domain.ErrRideFull):
				atomic.AddInt32(&full, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), success)
	assert.Equal(t, int32(workers-1), full)

	got, err := db.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.SeatsBooked)
}

func TestReserveRelease_Interleaved(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	ride := seedRide(t, db, 3)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := db.TryReserveSeat(ctx, ride.ID); err == nil {
				assert.NoError(t, db.ReleaseSeat(ctx, ride.ID))
			}
		}()
	}
	wg.Wait()

	got, err := db.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.SeatsBooked)
}
