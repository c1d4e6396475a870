package repository

import (
	"context"

	"github.com/arusnet/arus/internal/internetpackage/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, pkg *domain.InternetPackage) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO internet_packages (id, name, description, connection_type, bandwidth_up,
			bandwidth_down, price, validity_days, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pkg.ID,
		pkg.Name,
		pkg.Description,
		pkg.ConnectionType,
		pkg.BandwidthUp,
		pkg.BandwidthDown,
		pkg.Price,
		pkg.ValidityDays,
		pkg.IsActive,
		pkg.CreatedAt,
		pkg.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.InternetPackage, error) {
	var pkg domain.InternetPackage
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, connection_type, bandwidth_up, bandwidth_down,
			price, validity_days, is_active, created_at, updated_at
		 FROM internet_packages WHERE id = ?`,
		id,
	).Scan(&pkg).Error
	if err != nil {
		return nil, err
	}
	if pkg.ID == 0 {
		return nil, nil
	}
	return &pkg, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, pkg *domain.InternetPackage) error {
	return db.WithContext(ctx).Exec(
		`UPDATE internet_packages
		 SET name = ?, description = ?, bandwidth_up = ?, bandwidth_down = ?, price = ?,
			validity_days = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		pkg.Name,
		pkg.Description,
		pkg.BandwidthUp,
		pkg.BandwidthDown,
		pkg.Price,
		pkg.ValidityDays,
		pkg.IsActive,
		pkg.UpdatedAt,
		pkg.ID,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListPackageFilter, page pagination.Pagination) ([]*domain.InternetPackage, error) {
	var packages []*domain.InternetPackage
	stmt := db.WithContext(ctx).Model(&domain.InternetPackage{})
	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.ConnectionType != "" {
		stmt = stmt.Where("connection_type = ?", filter.ConnectionType)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&packages).Error
	if err != nil {
		return nil, err
	}
	return packages, nil
}

func (r *repo) CountActiveSubscriptions(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM customer_subscriptions WHERE package_id = ? AND is_active = ?`,
		id,
		true,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
