// Package option provides composable query modifiers for gorm statements so
// repositories share one pagination and filtering vocabulary.
package option

import (
	"fmt"
	"strings"
	"time"

	"github.com/locafrota/fleetsla/pkg/db/pagination"
	"gorm.io/gorm"
)

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

// Condition is a single field comparison. Field names come from repository
// code, never from request input.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type QueryOption interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type queryOptionFunc func(stmt *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(stmt *gorm.DB) *gorm.DB { return f(stmt) }

// ApplyOperator adds a WHERE clause for the condition. Empty fields and
// unknown operators are ignored rather than producing broken SQL.
func ApplyOperator(cond Condition) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(cond.Field)
		if field == "" {
			return stmt
		}
		switch cond.Operator {
		case EQ, NEQ, GT, GTE, LT, LTE:
			return stmt.Where(fmt.Sprintf("%s %s ?", field, cond.Operator), cond.Value)
		default:
			return stmt
		}
	})
}

// QuerySortBy orders results by Field when the field is allow-listed.
type QuerySortBy struct {
	Allow map[string]bool
	Field string
	Desc  bool
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(sort.Field)
		if field == "" || !sort.Allow[field] {
			return stmt
		}
		direction := "asc"
		if sort.Desc {
			direction = "desc"
		}
		return stmt.Order(fmt.Sprintf("%s %s", field, direction))
	})
}

// ApplyPagination applies cursor pagination for queries ordered by
// created_at desc, id desc. It fetches one row past the page size so callers
// can detect another page; pagination.BuildCursorPageInfo trims the extra row.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		limit := page.Limit()
		if token := strings.TrimSpace(page.PageToken); token != "" {
			cursor, err := pagination.DecodeCursor(token)
			if err == nil {
				if ts, parseErr := time.Parse(time.RFC3339, cursor.CreatedAt); parseErr == nil {
					stmt = stmt.Where(
						"created_at < ? OR (created_at = ? AND id < ?)",
						ts, ts, cursor.ID,
					)
				}
			}
		}
		return stmt.Limit(limit + 1)
	})
}
