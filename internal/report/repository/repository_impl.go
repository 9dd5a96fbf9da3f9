package repository

import (
	"context"

	"github.com/locafrota/fleetsla/internal/report/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CountByKind(ctx context.Context, db *gorm.DB) ([]domain.KindCount, error) {
	var rows []domain.KindCount
	err := db.WithContext(ctx).Raw(
		`SELECT kind, COUNT(*) AS count FROM analyses GROUP BY kind`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) TopUsers(ctx context.Context, db *gorm.DB, limit int) ([]domain.UserActivity, error) {
	var rows []domain.UserActivity
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, username, COUNT(*) AS analyses, MAX(recorded_at) AS last_at
		 FROM analyses
		 GROUP BY user_id, username
		 ORDER BY analyses DESC, user_id ASC
		 LIMIT ?`, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
