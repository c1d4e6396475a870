package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/arusnet/arus/internal/sysconfig/domain"
)

const settingColumns = "id, key, value, description, is_encrypted, updated_at"

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, setting *domain.SystemConfiguration) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO system_configurations (
			id, key, value, description, is_encrypted, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		setting.ID,
		setting.Key,
		setting.Value,
		setting.Description,
		setting.IsEncrypted,
		setting.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, setting *domain.SystemConfiguration) error {
	return db.WithContext(ctx).Exec(
		`UPDATE system_configurations
			SET value = ?, description = ?, is_encrypted = ?, updated_at = ?
			WHERE id = ?`,
		setting.Value,
		setting.Description,
		setting.IsEncrypted,
		setting.UpdatedAt,
		setting.ID,
	).Error
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, key string) (*domain.SystemConfiguration, error) {
	return findByKey(ctx, db, key, false)
}

func (r *repo) FindByKeyForUpdate(ctx context.Context, db *gorm.DB, key string) (*domain.SystemConfiguration, error) {
	return findByKey(ctx, db, key, true)
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.SystemConfiguration, error) {
	var settings []*domain.SystemConfiguration
	err := db.WithContext(ctx).
		Raw(`SELECT `+settingColumns+` FROM system_configurations ORDER BY key ASC`).
		Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func findByKey(ctx context.Context, db *gorm.DB, key string, lock bool) (*domain.SystemConfiguration, error) {
	if key == "" {
		return nil, nil
	}

	query := `SELECT ` + settingColumns + ` FROM system_configurations WHERE key = ?`
	if lock && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var settings []*domain.SystemConfiguration
	if err := db.WithContext(ctx).Raw(query, key).Scan(&settings).Error; err != nil {
		return nil, err
	}
	if len(settings) == 0 {
		return nil, nil
	}
	return settings[0], nil
}
