package database

import (
	"context"
	"testing"

	"gatisathi/internal/domain"
	"gatisathi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	byPhone := seedUser(t, db, "Asha", "+911234567890")
	byEmail := &models.User{Email: "ravi@example.com"}
	require.NoError(t, db.CreateUser(ctx, byEmail))
	assert.Equal(t, models.RoleUser, byEmail.Role)

	t.Run("GetUserByID", func(t *testing.T) {
		got, err := db.GetUserByID(ctx, byPhone.ID)
		require.NoError(t, err)
		assert.Equal(t, "Asha", got.Name)
		assert.Equal(t, "+911234567890", got.Phone)
		assert.Empty(t, got.Email)

		_, err = db.GetUserByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("FindUserByContact", func(t *testing.T) {
		got, err := db.FindUserByContact(ctx, "+911234567890", "")
		require.NoError(t, err)
		assert.Equal(t, byPhone.ID, got.ID)

		got, err = db.FindUserByContact(ctx, "", "ravi@example.com")
		require.NoError(t, err)
		assert.Equal(t, byEmail.ID, got.ID)

		_, err = db.FindUserByContact(ctx, "+911234567890", "ravi@example.com")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = db.FindUserByContact(ctx, "", "")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("unique contacts", func(t *testing.T) {
		err := db.CreateUser(ctx, &models.User{Phone: "+911234567890"})
		assert.Error(t, err)

		// several users without email must not collide
		require.NoError(t, db.CreateUser(ctx, &models.User{Phone: "+919999999999"}))
	})

	t.Run("UpdateUserProfile", func(t *testing.T) {
		got, err := db.UpdateUserProfile(ctx, byEmail.ID, models.ProfileUpdate{Name: "Ravi"})
		require.NoError(t, err)
		assert.Equal(t, "Ravi", got.Name)
		assert.Equal(t, "ravi@example.com", got.Email)

		got, err = db.UpdateUserProfile(ctx, byEmail.ID, models.ProfileUpdate{})
		require.NoError(t, err)
		assert.Equal(t, "Ravi", got.Name)

		_, err = db.UpdateUserProfile(ctx, "missing", models.ProfileUpdate{Name: "x"})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("IncrementTotalTrips", func(t *testing.T) {
		require.NoError(t, db.IncrementTotalTrips(ctx, byPhone.ID))
		require.NoError(t, db.IncrementTotalTrips(ctx, byPhone.ID))

		got, err := db.GetUserByID(ctx, byPhone.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.TotalTrips)

		assert.ErrorIs(t, db.IncrementTotalTrips(ctx, "missing"), domain.ErrUserNotFound)
	})
}
