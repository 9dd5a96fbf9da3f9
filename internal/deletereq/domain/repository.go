package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status      string
	RequestedBy snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, request *DeletionRequest) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*DeletionRequest, error)
	// FindPendingByAnalysis returns the open request for an analysis, if
	// any. At most one can exist at a time.
	FindPendingByAnalysis(ctx context.Context, db *gorm.DB, analysisID snowflake.ID) (*DeletionRequest, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, limit int) ([]DeletionRequest, error)
	Count(ctx context.Context, db *gorm.DB, filter ListFilter) (int64, error)
}
