package domain

import (
	"context"

	"gorm.io/gorm"
)

// KindCount is one aggregate row of the by-kind breakdown.
type KindCount struct {
	Kind  string `gorm:"column:kind"`
	Count int64  `gorm:"column:count"`
}

type Repository interface {
	CountByKind(ctx context.Context, db *gorm.DB) ([]KindCount, error)
	TopUsers(ctx context.Context, db *gorm.DB, limit int) ([]UserActivity, error)
}
