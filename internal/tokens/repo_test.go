package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTokensTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	activation := `
CREATE TABLE IF NOT EXISTS activation_tokens (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  token TEXT NOT NULL UNIQUE,
  expires_at DATETIME NOT NULL,
  created_at DATETIME
);`
	reset := `
CREATE TABLE IF NOT EXISTS password_reset_tokens (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  token TEXT NOT NULL UNIQUE,
  expires_at DATETIME NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(activation).Error)
	require.NoError(t, db.Exec(reset).Error)
	return db
}

func TestNewTokenIsRandom(t *testing.T) {
	first, err := NewToken()
	require.NoError(t, err)
	second, err := NewToken()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
}

func TestActivationReplaceOverwritesExisting(t *testing.T) {
	db := setupTokensTestDB(t)
	repo := NewActivationRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	expiry := time.Now().Add(24 * time.Hour)

	first, err := repo.Replace(ctx, userID, "token-one", expiry)
	require.NoError(t, err)

	second, err := repo.Replace(ctx, userID, "token-two", expiry)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	_, err = repo.FindByToken(ctx, "token-one")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	found, err := repo.FindByToken(ctx, "token-two")
	require.NoError(t, err)
	assert.Equal(t, userID, found.UserID)
}

func TestActivationDeleteByUserID(t *testing.T) {
	db := setupTokensTestDB(t)
	repo := NewActivationRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	_, err := repo.Replace(ctx, userID, "token", time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByUserID(ctx, userID))

	_, err = repo.FindByToken(ctx, "token")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPasswordResetDeleteExpiredBefore(t *testing.T) {
	db := setupTokensTestDB(t)
	repo := NewPasswordResetRepository(db)
	ctx := context.Background()

	_, err := repo.Replace(ctx, uuid.New(), "stale", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = repo.Replace(ctx, uuid.New(), "fresh", time.Now().Add(time.Hour))
	require.NoError(t, err)

	removed, err := repo.DeleteExpiredBefore(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.FindByToken(ctx, "fresh")
	require.NoError(t, err)
}
