package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, setting *SystemConfiguration) error
	Update(ctx context.Context, db *gorm.DB, setting *SystemConfiguration) error
	FindByKey(ctx context.Context, db *gorm.DB, key string) (*SystemConfiguration, error)
	// FindByKeyForUpdate locks the setting row for the rest of the transaction.
	FindByKeyForUpdate(ctx context.Context, db *gorm.DB, key string) (*SystemConfiguration, error)
	// List returns every setting ordered by key. The set is small and
	// bounded, so there is no cursor.
	List(ctx context.Context, db *gorm.DB) ([]*SystemConfiguration, error)
}
