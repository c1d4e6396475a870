// Package domain contains core types for the identity service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleOperator   UserRole = "operator"
	RoleMonitoring UserRole = "monitoring"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleMonitoring:
		return true
	}
	return false
}

// User is a staff account. Accounts are deactivated, never deleted, so
// activity history keeps its author.
type User struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Username     string       `json:"username" gorm:"size:50;not null;uniqueIndex"`
	Email        string       `json:"email" gorm:"size:100;not null;uniqueIndex"`
	PasswordHash string       `json:"-" gorm:"type:text;not null"`
	FullName     string       `json:"full_name" gorm:"size:100"`
	Role         UserRole     `json:"role" gorm:"size:20;not null"`
	IsActive     bool         `json:"is_active" gorm:"not null;default:true"`
	LastLogin    *time.Time   `json:"last_login,omitempty"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }

// JWTToken tracks an issued token by the SHA-256 of its signed form. A
// token is good only while its row exists, unrevoked and unexpired;
// signature checks alone never grant access.
type JWTToken struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID    snowflake.ID `json:"user_id" gorm:"not null;index"`
	TokenHash string       `json:"-" gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time    `json:"expires_at" gorm:"not null;index"`
	IsRevoked bool         `json:"is_revoked" gorm:"not null;default:false"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (JWTToken) TableName() string { return "jwt_tokens" }
