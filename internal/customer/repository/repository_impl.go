package repository

import (
	"context"

	"github.com/arusnet/arus/internal/customer/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, customer_code, name, email, phone, address, connection_type,
			is_active, created_by_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.CustomerCode,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.ConnectionType,
		customer.IsActive,
		customer.CreatedByID,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_code, name, email, phone, address, connection_type,
			is_active, created_by_id, created_at, updated_at
		 FROM customers WHERE id = ?`,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_code, name, email, phone, address, connection_type,
			is_active, created_by_id, created_at, updated_at
		 FROM customers WHERE customer_code = ?`,
		code,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET name = ?, email = ?, phone = ?, address = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.IsActive,
		customer.UpdatedAt,
		customer.ID,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter, page pagination.Pagination) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).Model(&domain.Customer{})
	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.CustomerCode != "" {
		stmt = stmt.Where("customer_code = ?", filter.CustomerCode)
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
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}
