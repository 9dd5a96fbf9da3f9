package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListUserFilter narrows List results. Empty fields match everything.
type ListUserFilter struct {
	Status string
	Role   string
	Search string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByUsername(ctx context.Context, db *gorm.DB, username string) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	List(ctx context.Context, db *gorm.DB, filter ListUserFilter, page pagination.Pagination) ([]*User, error)
	Count(ctx context.Context, db *gorm.DB, filter ListUserFilter) (int64, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
