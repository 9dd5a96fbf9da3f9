package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListVehicleFilter narrows List results. Empty fields match everything.
type ListVehicleFilter struct {
	Search string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, vehicle *Vehicle) error
	FindByPlate(ctx context.Context, db *gorm.DB, plate string) (*Vehicle, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	List(ctx context.Context, db *gorm.DB, filter ListVehicleFilter, page pagination.Pagination) ([]*Vehicle, error)
	Count(ctx context.Context, db *gorm.DB, filter ListVehicleFilter) (int64, error)
}
