package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arusnet/arus/internal/config"
	"github.com/arusnet/arus/internal/identity/domain"
	"github.com/arusnet/arus/internal/identity/repository"
	"github.com/arusnet/arus/internal/identity/token"
)

const testJWTSecret = "unit-test-secret"

func setupIdentityService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.JWTToken{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Cfg: config.Config{
			AuthJWTSecret: testJWTSecret,
			AuthTokenTTL:  time.Hour,
		},
	})
	return svc, db
}

func seedOperator(t *testing.T, svc domain.Service, username string) domain.User {
	t.Helper()

	user, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Username: username,
		Email:    username + "@arus.net.id",
		Password: "rahasia-kuat",
		FullName: "Dewi Lestari",
		Role:     "operator",
	})
	require.NoError(t, err)
	return user
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _ := setupIdentityService(t)
	ctx := context.Background()

	user := seedOperator(t, svc, "dewi")

	result, err := svc.Login(ctx, domain.LoginRequest{
		Username: "dewi",
		Password: "rahasia-kuat",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Token)
	assert.Equal(t, user.ID, result.User.ID)
	assert.Empty(t, result.User.PasswordHash)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, 5*time.Second)

	authed, err := svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
	assert.Equal(t, domain.RoleOperator, authed.Role)

	reloaded, err := svc.GetByID(ctx, domain.GetUserRequest{ID: user.ID.String()})
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLogin)
	assert.WithinDuration(t, time.Now(), *reloaded.LastLogin, 5*time.Second)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := setupIdentityService(t)
	ctx := context.Background()

	seedOperator(t, svc, "dewi")

	_, err := svc.Login(ctx, domain.LoginRequest{Username: "dewi", Password: "salah-total"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, domain.LoginRequest{Username: "tidak-ada", Password: "rahasia-kuat"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, domain.LoginRequest{Username: "", Password: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	svc, _ := setupIdentityService(t)
	ctx := context.Background()

	user := seedOperator(t, svc, "dewi")

	inactive := false
	_, err := svc.UpdateUser(ctx, domain.UpdateUserRequest{
		ID:       user.ID.String(),
		IsActive: &inactive,
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, domain.LoginRequest{Username: "dewi", Password: "rahasia-kuat"})
	assert.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := setupIdentityService(t)
	ctx := context.Background()

	seedOperator(t, svc, "dewi")
	result, err := svc.Login(ctx, domain.LoginRequest{Username: "dewi", Password: "rahasia-kuat"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.Token))

	_, err = svc.Authenticate(ctx, result.Token)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)

	// Replayed logouts are harmless.
	assert.NoError(t, svc.Logout(ctx, result.Token))

	err = svc.Logout(ctx, "never-issued")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthenticateRejectsTamperedToken(t *testing.T) {
	svc, _ := setupIdentityService(t)
	ctx := context.Background()

	user := seedOperator(t, svc, "dewi")
	result, err := svc.Login(ctx, domain.LoginRequest{Username: "dewi", Password: "rahasia-kuat"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, result.Token+"x")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = svc.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	forged, _, err := token.Issue("another-secret", time.Hour, &user, time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	expired, _, err := token.Issue(testJWTSecret, time.Hour, &user, time.Now().UTC().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, expired)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestDeactivationRevokesTokens(t *testing.T) {
	svc, _ := setupIdentityService(t)
	ctx := context.Background()

	user := seedOperator(t, svc, "dewi")
	result, err := svc.Login(ctx, domain.LoginRequest{Username: "dewi", Password: "rahasia-kuat"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.UpdateUser(ctx, domain.UpdateUserRequest{
		ID:       user.ID.String(),
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = svc.Authenticate(ctx, result.Token)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := setupIdentityService(t)
	ctx := context.Background()

	seedOperator(t, svc, "dewi")

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Username: "dewi",
		Email:    "lain@arus.net.id",
		Password: "rahasia-kuat",
		Role:     "operator",
	})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	_, err = svc.CreateUser(ctx, domain.CreateUserRequest{
		Username: "dewi2",
		Email:    "dewi@arus.net.id",
		Password: "rahasia-kuat",
		Role:     "operator",
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = svc.CreateUser(ctx, domain.CreateUserRequest{
		Username: "pendek",
		Email:    "pendek@arus.net.id",
		Password: "kecil",
		Role:     "operator",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)

	_, err = svc.CreateUser(ctx, domain.CreateUserRequest{
		Username: "salahrole",
		Email:    "salahrole@arus.net.id",
		Password: "rahasia-kuat",
		Role:     "superuser",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = svc.CreateUser(ctx, domain.CreateUserRequest{
		Username: "tanpaemail",
		Email:    "bukan-email",
		Password: "rahasia-kuat",
		Role:     "operator",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}
