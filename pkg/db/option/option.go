package option

import (
	"fmt"
	"strings"

	"github.com/arusnet/arus/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(stmt *gorm.DB) *gorm.DB {
	return f(stmt)
}

// ApplyPagination applies a cursor token and page size. It fetches one row
// beyond the page size so callers can detect a next page.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return ApplyPaginationOn("created_at", page)
}

// ApplyPaginationOn is ApplyPagination with the cursor compared against a
// different timestamp column. The column name comes from code, never from
// request input.
func ApplyPaginationOn(column string, page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		size := page.PageSize
		if size <= 0 {
			size = 10
		}
		if size > 250 {
			size = 250
		}

		if token := strings.TrimSpace(page.PageToken); token != "" {
			cursor, err := pagination.DecodeCursor(token)
			if err == nil && cursor != nil && cursor.ID != "" {
				if cursor.CreatedAt != "" {
					stmt = stmt.Where(fmt.Sprintf("(%s, id) < (?, ?)", column), cursor.CreatedAt, cursor.ID)
				} else {
					stmt = stmt.Where("id < ?", cursor.ID)
				}
			}
		}

		return stmt.Limit(size + 1)
	})
}

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

// Condition is a single field comparison appended to the WHERE clause.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator appends cond to the query. Field names come from code, never
// from request input.
func ApplyOperator(cond Condition) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		if strings.TrimSpace(cond.Field) == "" || cond.Operator == "" {
			return stmt
		}
		return stmt.Where(fmt.Sprintf("%s %s ?", cond.Field, cond.Operator), cond.Value)
	})
}

// QuerySortBy describes a sort request validated against an allowlist.
type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

// WithQuerySortBy builds a QuerySortBy from request input.
func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{SortBy: sortBy, OrderBy: orderBy, Allow: allow}
}

// WithSortBy orders the query by an allowlisted column, defaulting to
// created_at desc when the requested column is not allowed.
func WithSortBy(sort QuerySortBy) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		field := strings.ToLower(strings.TrimSpace(sort.SortBy))
		if field == "" || (sort.Allow != nil && !sort.Allow[field]) {
			field = "created_at"
		}
		order := strings.ToLower(strings.TrimSpace(sort.OrderBy))
		if order != "asc" && order != "desc" {
			order = "desc"
		}
		return stmt.Order(fmt.Sprintf("%s %s", field, order))
	})
}
