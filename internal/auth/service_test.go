package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgAuth "github.com/moviegate/moviegate-backend/pkg/auth"
	"github.com/moviegate/moviegate-backend/pkg/auth/session"
	"github.com/moviegate/moviegate-backend/pkg/config"
	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/security"
)

type stubUserRepo struct {
	users     map[string]*models.User
	lastLogin *time.Time
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.users[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin = &at
	return nil
}

type stubSessionManager struct {
	generated  []string
	revoked    []string
	rotateErr  error
	rotateID   string
	rotateResp string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-token", nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	return s.rotateID, s.rotateResp, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "moviegate",
		ExpirationMinutes: 15,
	}
}

func seedCredential(t *testing.T, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	require.NoError(t, err)
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Group:        enums.UserGroupUser,
		IsActive:     active,
	}
}

func TestLoginSuccess(t *testing.T) {
	user := seedCredential(t, "viewer@example.com", "correct-horse", true)
	repo := &stubUserRepo{users: map[string]*models.User{user.Email: user}}
	sessions := &stubSessionManager{}

	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "Viewer@Example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
	require.NotNil(t, repo.lastLogin)
	require.Len(t, sessions.generated, 1)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.UserGroupUser, claims.Group)
	assert.Equal(t, sessions.generated[0], claims.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	user := seedCredential(t, "viewer@example.com", "correct-horse", true)
	repo := &stubUserRepo{users: map[string]*models.User{user.Email: user}}

	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: &stubSessionManager{},
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "wrong"})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, err := NewService(ServiceParams{
		UserRepo:       &stubUserRepo{users: map[string]*models.User{}},
		SessionManager: &stubSessionManager{},
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "something"})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestLoginInactiveAccountForbidden(t *testing.T) {
	user := seedCredential(t, "pending@example.com", "correct-horse", false)
	repo := &stubUserRepo{users: map[string]*models.User{user.Email: user}}

	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: &stubSessionManager{},
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct-horse"})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestRefreshRotatesSession(t *testing.T) {
	user := seedCredential(t, "viewer@example.com", "correct-horse", true)
	sessions := &stubSessionManager{rotateID: "new-access-id", rotateResp: "new-refresh"}

	svc, err := NewService(ServiceParams{
		UserRepo:       &stubUserRepo{users: map[string]*models.User{user.Email: user}},
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)

	accessToken, err := pkgAuth.MintAccessToken(testJWTConfig(), time.Now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Group:  user.Group,
		JTI:    "old-access-id",
	})
	require.NoError(t, err)

	resp, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  accessToken,
		RefreshToken: "old-refresh",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-refresh", resp.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "new-access-id", claims.ID)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRefreshInvalidTokenUnauthorized(t *testing.T) {
	user := seedCredential(t, "viewer@example.com", "correct-horse", true)
	sessions := &stubSessionManager{rotateErr: session.ErrInvalidRefreshToken}

	svc, err := NewService(ServiceParams{
		UserRepo:       &stubUserRepo{users: map[string]*models.User{user.Email: user}},
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)

	accessToken, err := pkgAuth.MintAccessToken(testJWTConfig(), time.Now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Group:  user.Group,
		JTI:    "old-access-id",
	})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  accessToken,
		RefreshToken: "stolen",
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestLogoutRevokesSession(t *testing.T) {
	user := seedCredential(t, "viewer@example.com", "correct-horse", true)
	sessions := &stubSessionManager{}

	svc, err := NewService(ServiceParams{
		UserRepo:       &stubUserRepo{users: map[string]*models.User{user.Email: user}},
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)

	accessToken, err := pkgAuth.MintAccessToken(testJWTConfig(), time.Now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Group:  user.Group,
		JTI:    "live-access-id",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), accessToken))
	assert.Equal(t, []string{"live-access-id"}, sessions.revoked)
}
