package repository

import (
	"context"
	"time"

	"github.com/arusnet/arus/internal/identity/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertUser(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, username, email, password_hash, full_name, role,
			is_active, last_login, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		user.IsActive,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, username, email, password_hash, full_name, role,
			is_active, last_login, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, username, email, password_hash, full_name, role,
			is_active, last_login, created_at, updated_at
		 FROM users WHERE username = ?`,
		username,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) UpdateUser(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users
		 SET email = ?, password_hash = ?, full_name = ?, role = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		user.IsActive,
		user.UpdatedAt,
		user.ID,
	).Error
}

func (r *repo) StampLastLogin(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET last_login = ? WHERE id = ?`,
		at,
		id,
	).Error
}

func (r *repo) ListUsers(ctx context.Context, db *gorm.DB, filter domain.ListUserFilter, page pagination.Pagination) ([]*domain.User, error) {
	var users []*domain.User
	stmt := db.WithContext(ctx).Model(&domain.User{})
	if filter.Role != "" {
		stmt = stmt.Where("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Query != "" {
		q := "%" + filter.Query + "%"
		stmt = stmt.Where("username LIKE ? OR full_name LIKE ? OR email LIKE ?", q, q, q)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) InsertToken(ctx context.Context, db *gorm.DB, token *domain.JWTToken) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO jwt_tokens (id, user_id, token_hash, expires_at, is_revoked, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.IsRevoked,
		token.CreatedAt,
	).Error
}

func (r *repo) FindTokenByHash(ctx context.Context, db *gorm.DB, hash string) (*domain.JWTToken, error) {
	var token domain.JWTToken
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, token_hash, expires_at, is_revoked, created_at
		 FROM jwt_tokens WHERE token_hash = ?`,
		hash,
	).Scan(&token).Error
	if err != nil {
		return nil, err
	}
	if token.ID == 0 {
		return nil, nil
	}
	return &token, nil
}

func (r *repo) RevokeToken(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE jwt_tokens SET is_revoked = true WHERE id = ?`,
		id,
	).Error
}

func (r *repo) RevokeUserTokens(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE jwt_tokens SET is_revoked = true WHERE user_id = ? AND is_revoked = false`,
		userID,
	)
	return res.RowsAffected, res.Error
}
