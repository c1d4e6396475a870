package repository

import (
	"context"
	"time"

	"github.com/arusnet/arus/internal/subscription/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *domain.CustomerSubscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customer_subscriptions (id, customer_id, package_id, start_date, end_date,
			is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.CustomerID,
		subscription.PackageID,
		subscription.StartDate,
		subscription.EndDate,
		subscription.IsActive,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CustomerSubscription, error) {
	return findByID(ctx, db, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CustomerSubscription, error) {
	return findByID(ctx, db, id, true)
}

func findByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.CustomerSubscription, error) {
	query := `SELECT id, customer_id, package_id, start_date, end_date, is_active, created_at, updated_at
		 FROM customer_subscriptions WHERE id = ?`
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}
	var subscription domain.CustomerSubscription
	err := db.WithContext(ctx).Raw(query, id).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) LockCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (bool, error) {
	query := `SELECT id FROM customers WHERE id = ?`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}
	var id snowflake.ID
	err := db.WithContext(ctx).Raw(query, customerID).Scan(&id).Error
	if err != nil {
		return false, err
	}
	return id != 0, nil
}

func (r *repo) HasActiveOverlap(ctx context.Context, db *gorm.DB, customerID snowflake.ID, start, end time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM customer_subscriptions
		 WHERE customer_id = ? AND is_active = ? AND start_date < ? AND end_date > ?`,
		customerID,
		true,
		end,
		start,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customer_subscriptions SET is_active = ?, updated_at = ? WHERE id = ?`,
		false,
		now,
		id,
	).Error
}

func (r *repo) ClaimDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*domain.CustomerSubscription, error) {
	query := `SELECT id, customer_id, package_id, start_date, end_date, is_active, created_at, updated_at
		 FROM customer_subscriptions
		 WHERE is_active = ? AND end_date <= ?
		 ORDER BY end_date ASC, id ASC`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE SKIP LOCKED"
	}
	query += " LIMIT ?"

	var subscriptions []*domain.CustomerSubscription
	err := db.WithContext(ctx).Raw(query, true, now, limit).Scan(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) DeactivateByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE customer_subscriptions SET is_active = ?, updated_at = ? WHERE id IN ?`,
		false,
		now,
		ids,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListSubscriptionFilter, page pagination.Pagination) ([]*domain.CustomerSubscription, error) {
	var subscriptions []*domain.CustomerSubscription
	stmt := db.WithContext(ctx).Model(&domain.CustomerSubscription{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.PackageID != 0 {
		stmt = stmt.Where("package_id = ?", filter.PackageID)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}
