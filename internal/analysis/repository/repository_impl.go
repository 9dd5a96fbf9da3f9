package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/internal/analysis/domain"
	"github.com/locafrota/fleetsla/pkg/db/option"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, analysis *domain.Analysis) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO analyses (id, protocol, user_id, username, kind, client_name, plate,
			payload, final_total, savings, pdf_path, recorded_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		analysis.ID,
		analysis.Protocol,
		analysis.UserID,
		analysis.Username,
		analysis.Kind,
		analysis.ClientName,
		analysis.Plate,
		analysis.Payload,
		analysis.FinalTotal,
		analysis.Savings,
		analysis.PDFPath,
		analysis.RecordedAt,
		analysis.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Analysis, error) {
	var analysis domain.Analysis
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM analyses WHERE id = ?`, id,
	).Scan(&analysis).Error
	if err != nil {
		return nil, err
	}
	if analysis.ID == 0 {
		return nil, nil
	}
	return &analysis, nil
}

func (r *repo) FindByProtocol(ctx context.Context, db *gorm.DB, protocol string) (*domain.Analysis, error) {
	var analysis domain.Analysis
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM analyses WHERE protocol = ?`, protocol,
	).Scan(&analysis).Error
	if err != nil {
		return nil, err
	}
	if analysis.ID == 0 {
		return nil, nil
	}
	return &analysis, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Analysis{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListAnalysisFilter, page pagination.Pagination) ([]*domain.Analysis, error) {
	var analyses []*domain.Analysis
	stmt := applyAnalysisFilter(db.WithContext(ctx).Model(&domain.Analysis{}), filter)
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&analyses).Error
	if err != nil {
		return nil, err
	}
	return analyses, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, filter domain.ListAnalysisFilter) (int64, error) {
	var count int64
	stmt := applyAnalysisFilter(db.WithContext(ctx).Model(&domain.Analysis{}), filter)
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Analysis{}).Error
}

func applyAnalysisFilter(stmt *gorm.DB, filter domain.ListAnalysisFilter) *gorm.DB {
	if filter.UserID != 0 {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if kind := strings.TrimSpace(string(filter.Kind)); kind != "" {
		stmt = stmt.Where("kind = ?", kind)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("recorded_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("recorded_at <= ?", filter.EndAt.UTC())
	}
	return stmt
}
