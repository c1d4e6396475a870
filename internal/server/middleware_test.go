package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arusnet/arus/internal/authctx"
	"github.com/arusnet/arus/internal/authorization"
	identitydomain "github.com/arusnet/arus/internal/identity/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentityService struct {
	user        identitydomain.User
	authErr     error
	seenToken   string
	logoutCalls int
}

func (f *fakeIdentityService) Login(ctx context.Context, req identitydomain.LoginRequest) (identitydomain.LoginResult, error) {
	return identitydomain.LoginResult{User: f.user, Token: "issued"}, f.authErr
}

func (f *fakeIdentityService) Logout(ctx context.Context, rawToken string) error {
	f.logoutCalls++
	f.seenToken = rawToken
	return f.authErr
}

func (f *fakeIdentityService) Authenticate(ctx context.Context, rawToken string) (identitydomain.User, error) {
	f.seenToken = rawToken
	if f.authErr != nil {
		return identitydomain.User{}, f.authErr
	}
	return f.user, nil
}

func (f *fakeIdentityService) CreateUser(ctx context.Context, req identitydomain.CreateUserRequest) (identitydomain.User, error) {
	return f.user, nil
}

func (f *fakeIdentityService) UpdateUser(ctx context.Context, req identitydomain.UpdateUserRequest) (identitydomain.User, error) {
	return f.user, nil
}

func (f *fakeIdentityService) GetByID(ctx context.Context, req identitydomain.GetUserRequest) (identitydomain.User, error) {
	return f.user, nil
}

func (f *fakeIdentityService) List(ctx context.Context, req identitydomain.ListUserRequest) (identitydomain.ListUserResponse, error) {
	return identitydomain.ListUserResponse{}, nil
}

type fakeAuthzService struct {
	err        error
	lastObject string
	lastAction string
}

func (f *fakeAuthzService) Authorize(ctx context.Context, object string, action string) error {
	f.lastObject = object
	f.lastAction = action
	return f.err
}

func testUser() identitydomain.User {
	return identitydomain.User{
		ID:       snowflake.ID(42),
		Username: "agus",
		Role:     identitydomain.RoleOperator,
		IsActive: true,
	}
}

func TestAuthRequiredRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := &Server{identitySvc: &fakeIdentityService{user: testUser()}}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/private", srv.AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": "never"})
	})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRequiredRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	identitySvc := &fakeIdentityService{authErr: identitydomain.ErrInvalidToken}
	srv := &Server{identitySvc: identitySvc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/private", srv.AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": "never"})
	})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer forged")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "forged", identitySvc.seenToken)
}

func TestAuthRequiredStoresActor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := &Server{identitySvc: &fakeIdentityService{user: testUser()}}

	var actor authctx.Actor
	var found bool

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/private", srv.AuthRequired(), func(c *gin.Context) {
		actor, found = authctx.ActorFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"data": "ok"})
	})

	// Scheme matching is case-insensitive.
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "bearer good-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, found)
	assert.Equal(t, snowflake.ID(42), actor.UserID)
	assert.Equal(t, "agus", actor.Username)
	assert.Equal(t, "operator", actor.Role)
}

func TestAuthorizeDeniedMapsToForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)

	authzSvc := &fakeAuthzService{err: authorization.ErrForbidden}
	srv := &Server{
		identitySvc: &fakeIdentityService{user: testUser()},
		authzSvc:    authzSvc,
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/users", srv.AuthRequired(), srv.authorize(authorization.ObjectUser, authorization.ActionView), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": "never"})
	})

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, authorization.ObjectUser, authzSvc.lastObject)
	assert.Equal(t, authorization.ActionView, authzSvc.lastAction)
}

func TestAuthorizeAllowedRunsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := &Server{
		identitySvc: &fakeIdentityService{user: testUser()},
		authzSvc:    &fakeAuthzService{},
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/devices", srv.AuthRequired(), srv.authorize(authorization.ObjectDevice, authorization.ActionView), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/devices", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestBearerTokenParsing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"plain", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"padded", "  Bearer   abc123  ", "abc123"},
		{"empty", "", ""},
		{"scheme only", "Bearer ", ""},
		{"wrong scheme", "Basic abc123", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				c.Request.Header.Set("Authorization", tc.header)
			}
			assert.Equal(t, tc.want, bearerToken(c))
		})
	}
}
