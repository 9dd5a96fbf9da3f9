package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/internal/clientbase/domain"
	"github.com/locafrota/fleetsla/pkg/db/option"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, vehicle *domain.Vehicle) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO vehicles (id, plate, client_name, monthly_fee, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		vehicle.ID,
		vehicle.Plate,
		vehicle.ClientName,
		vehicle.MonthlyFee,
		vehicle.CreatedAt,
		vehicle.UpdatedAt,
	).Error
}

func (r *repo) FindByPlate(ctx context.Context, db *gorm.DB, plate string) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM vehicles WHERE plate = ?`, plate,
	).Scan(&vehicle).Error
	if err != nil {
		return nil, err
	}
	if vehicle.ID == 0 {
		return nil, nil
	}
	return &vehicle, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Vehicle{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListVehicleFilter, page pagination.Pagination) ([]*domain.Vehicle, error) {
	var vehicles []*domain.Vehicle
	stmt := applyVehicleFilter(db.WithContext(ctx).Model(&domain.Vehicle{}), filter)
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, filter domain.ListVehicleFilter) (int64, error) {
	var count int64
	stmt := applyVehicleFilter(db.WithContext(ctx).Model(&domain.Vehicle{}), filter)
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyVehicleFilter(stmt *gorm.DB, filter domain.ListVehicleFilter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where("LOWER(plate) LIKE ? OR LOWER(client_name) LIKE ?", pattern, pattern)
	}
	return stmt
}
