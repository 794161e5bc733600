package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUserDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Profile{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

func TestUserRepository_CreateWithProfile(t *testing.T) {
	db := setupUserDB(t)
	users := NewUserRepository(db)
	profiles := NewProfileRepository(db)
	ctx := context.Background()

	user := &models.User{ID: "u1", Email: "ana@example.com", PasswordHash: "hash"}
	require.NoError(t, users.CreateWithProfile(ctx, user, &models.Profile{Name: "Ana"}))

	profile, err := profiles.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Ana", profile.Name)
	require.Equal(t, "ana@example.com", profile.Email)

	found, err := users.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", found.ID)
}

func TestUserRepository_CreateWithProfile_DuplicateEmailRollsBack(t *testing.T) {
	db := setupUserDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, users.CreateWithProfile(ctx, &models.User{ID: "u1", Email: "dup@example.com", PasswordHash: "h"}, &models.Profile{Name: "One"}))

	err := users.CreateWithProfile(ctx, &models.User{ID: "u2", Email: "dup@example.com", PasswordHash: "h"}, &models.Profile{Name: "Two"})
	require.ErrorIs(t, err, ErrCreateUser)

	var count int64
	require.NoError(t, db.Model(&models.Profile{}).Where("id = ?", "u2").Count(&count).Error)
	require.Zero(t, count)
}

func TestUserRepository_UpdatePasswordHash(t *testing.T) {
	db := setupUserDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, users.CreateWithProfile(ctx, &models.User{ID: "u1", Email: "a@example.com", PasswordHash: "old"}, &models.Profile{Name: "Ana"}))
	require.NoError(t, users.UpdatePasswordHash(ctx, "u1", "new"))
	require.ErrorIs(t, users.UpdatePasswordHash(ctx, "missing", "new"), gorm.ErrRecordNotFound)

	user, err := users.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "new", user.PasswordHash)
}
