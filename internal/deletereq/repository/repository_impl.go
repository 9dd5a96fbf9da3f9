package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/internal/deletereq/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, request *domain.DeletionRequest) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO deletion_requests (id, analysis_id, protocol, requested_by, reason,
			status, reviewed_by, review_notes, requested_at, reviewed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		request.ID,
		request.AnalysisID,
		request.Protocol,
		request.RequestedBy,
		request.Reason,
		request.Status,
		request.ReviewedBy,
		request.ReviewNotes,
		request.RequestedAt,
		request.ReviewedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.DeletionRequest, error) {
	var request domain.DeletionRequest
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM deletion_requests WHERE id = ?`, id,
	).Scan(&request).Error
	if err != nil {
		return nil, err
	}
	if request.ID == 0 {
		return nil, nil
	}
	return &request, nil
}

func (r *repo) FindPendingByAnalysis(ctx context.Context, db *gorm.DB, analysisID snowflake.ID) (*domain.DeletionRequest, error) {
	var request domain.DeletionRequest
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM deletion_requests WHERE analysis_id = ? AND status = ?`,
		analysisID, domain.StatusPending,
	).Scan(&request).Error
	if err != nil {
		return nil, err
	}
	if request.ID == 0 {
		return nil, nil
	}
	return &request, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.DeletionRequest{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, limit int) ([]domain.DeletionRequest, error) {
	var requests []domain.DeletionRequest
	stmt := applyFilter(db.WithContext(ctx).Model(&domain.DeletionRequest{}), filter).
		Order("requested_at desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, filter domain.ListFilter) (int64, error) {
	var count int64
	stmt := applyFilter(db.WithContext(ctx).Model(&domain.DeletionRequest{}), filter)
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyFilter(stmt *gorm.DB, filter domain.ListFilter) *gorm.DB {
	if status := strings.TrimSpace(filter.Status); status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if filter.RequestedBy != 0 {
		stmt = stmt.Where("requested_by = ?", filter.RequestedBy)
	}
	return stmt
}
