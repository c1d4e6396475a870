package domain

import (
	"context"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertUser(ctx context.Context, db *gorm.DB, user *User) error
	FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindUserByUsername(ctx context.Context, db *gorm.DB, username string) (*User, error)
	UpdateUser(ctx context.Context, db *gorm.DB, user *User) error
	StampLastLogin(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	ListUsers(ctx context.Context, db *gorm.DB, filter ListUserFilter, page pagination.Pagination) ([]*User, error)

	InsertToken(ctx context.Context, db *gorm.DB, token *JWTToken) error
	FindTokenByHash(ctx context.Context, db *gorm.DB, hash string) (*JWTToken, error)
	RevokeToken(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	RevokeUserTokens(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
}

type ListUserFilter struct {
	Role     string
	IsActive *bool
	Query    string
}
