package domain

import (
	"context"
	"errors"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserInactive       = errors.New("user_inactive")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidUsername    = errors.New("invalid_username")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidID          = errors.New("invalid_user_id")
	ErrNotFound           = errors.New("user_not_found")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrTokenRevoked       = errors.New("token_revoked")
	ErrTokenExpired       = errors.New("token_expired")
)

type LoginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	ID       string  `json:"-"`
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password"`
}

type GetUserRequest struct {
	ID string `uri:"id"`
}

type ListUserRequest struct {
	Role      string `form:"role"`
	IsActive  *bool  `form:"is_active"`
	Query     string `form:"q"`
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
}

type ListUserResponse struct {
	pagination.PageInfo
	Users []User `json:"users"`
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	// Authenticate resolves a bearer token to its active user. The token
	// must verify AND its stored row must be live.
	Authenticate(ctx context.Context, rawToken string) (User, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (User, error)
	UpdateUser(ctx context.Context, req UpdateUserRequest) (User, error)
	GetByID(ctx context.Context, req GetUserRequest) (User, error)
	List(ctx context.Context, req ListUserRequest) (ListUserResponse, error)
}
