package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListAnalysisFilter narrows List and Count. Zero values match everything;
// StartAt and EndAt bound recorded_at inclusively.
type ListAnalysisFilter struct {
	UserID  snowflake.ID
	Kind    Kind
	StartAt *time.Time
	EndAt   *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, analysis *Analysis) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Analysis, error)
	FindByProtocol(ctx context.Context, db *gorm.DB, protocol string) (*Analysis, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	List(ctx context.Context, db *gorm.DB, filter ListAnalysisFilter, page pagination.Pagination) ([]*Analysis, error)
	Count(ctx context.Context, db *gorm.DB, filter ListAnalysisFilter) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
