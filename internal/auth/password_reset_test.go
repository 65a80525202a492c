package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviegate/moviegate-backend/pkg/config"
	"github.com/moviegate/moviegate-backend/pkg/db"
	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/outbox"
	"github.com/moviegate/moviegate-backend/pkg/security"
)

func newResetService(t *testing.T, client *db.Client) PasswordResetService {
	t.Helper()
	outboxSvc := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	svc, err := NewPasswordResetService(PasswordResetServiceParams{
		DB:             client,
		Outbox:         outboxSvc,
		PasswordConfig: testPasswordConfig(),
		TokenConfig:    config.TokenConfig{ActivationTTL: 24 * time.Hour, PasswordResetTTL: 24 * time.Hour},
	})
	require.NoError(t, err)
	return svc
}

func seedActiveUser(t *testing.T, client *db.Client, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Group:        enums.UserGroupUser,
		IsActive:     true,
	}
	require.NoError(t, client.DB().Create(user).Error)
	return user
}

func TestPasswordResetRequestMintsTokenAndEvent(t *testing.T) {
	client := setupAuthTestDB(t)
	svc := newResetService(t, client)
	ctx := context.Background()

	user := seedActiveUser(t, client, "viewer@example.com", "old-password")

	require.NoError(t, svc.Request(ctx, PasswordResetRequest{Email: "Viewer@Example.com"}))

	var token models.PasswordResetToken
	require.NoError(t, client.DB().Where("user_id = ?", user.ID).First(&token).Error)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventPasswordResetRequested, events[0].EventType)
}

func TestPasswordResetRequestUnknownEmailSilent(t *testing.T) {
	client := setupAuthTestDB(t)
	svc := newResetService(t, client)

	require.NoError(t, svc.Request(context.Background(), PasswordResetRequest{Email: "ghost@example.com"}))

	var count int64
	require.NoError(t, client.DB().Model(&models.PasswordResetToken{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPasswordResetConfirmChangesPassword(t *testing.T) {
	client := setupAuthTestDB(t)
	svc := newResetService(t, client)
	ctx := context.Background()

	user := seedActiveUser(t, client, "viewer@example.com", "old-password")
	require.NoError(t, svc.Request(ctx, PasswordResetRequest{Email: user.Email}))

	var token models.PasswordResetToken
	require.NoError(t, client.DB().First(&token).Error)

	require.NoError(t, svc.Confirm(ctx, PasswordResetConfirm{
		Token:       token.Token,
		NewPassword: "brand-new-password",
	}))

	var updated models.User
	require.NoError(t, client.DB().Where("id = ?", user.ID).First(&updated).Error)
	valid, err := security.VerifyPassword("brand-new-password", updated.PasswordHash)
	require.NoError(t, err)
	assert.True(t, valid)

	var tokenCount int64
	require.NoError(t, client.DB().Model(&models.PasswordResetToken{}).Count(&tokenCount).Error)
	assert.Zero(t, tokenCount)

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Order("created_at ASC").Find(&events).Error)
	require.Len(t, events, 2)
	assert.Equal(t, enums.EventPasswordResetCompleted, events[1].EventType)
}

func TestPasswordResetConfirmExpiredToken(t *testing.T) {
	client := setupAuthTestDB(t)
	svc := newResetService(t, client)
	ctx := context.Background()

	user := seedActiveUser(t, client, "viewer@example.com", "old-password")
	row := &models.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     "expired-token",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, client.DB().Create(row).Error)

	err := svc.Confirm(ctx, PasswordResetConfirm{Token: "expired-token", NewPassword: "brand-new-password"})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}
