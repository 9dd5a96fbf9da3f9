package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	"github.com/locafrota/fleetsla/internal/clientbase/domain"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
	"github.com/locafrota/fleetsla/pkg/money"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	headerClient = "CLIENTE"
	headerPlate  = "PLACA"
	headerFee    = "VALOR MENSALIDADE"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Audit auditdomain.Recorder
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	audit auditdomain.Recorder
}

func New(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("clientbase.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *service) Lookup(ctx context.Context, plate string) (*domain.Vehicle, error) {
	normalized := domain.NormalizePlate(plate)
	if normalized == "" {
		return nil, domain.ErrInvalidPlate
	}

	vehicle, err := s.repo.FindByPlate(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, domain.ErrNotFound
	}
	return vehicle, nil
}

func (s *service) List(ctx context.Context, req domain.ListVehiclesRequest) (domain.ListVehiclesResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListVehicleFilter{Search: req.Search}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListVehiclesResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(vehicle *domain.Vehicle) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        vehicle.ID.String(),
			CreatedAt: vehicle.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	vehicles := make([]domain.Vehicle, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		vehicles = append(vehicles, *item)
	}

	resp := domain.ListVehiclesResponse{Vehicles: vehicles}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.db, domain.ListVehicleFilter{})
}

func (s *service) Import(ctx context.Context, r io.Reader) (*domain.ImportSummary, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.ErrEmptyWorkbook
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrEmptyWorkbook
	}

	clientCol, plateCol, feeCol := -1, -1, -1
	for i, header := range rows[0] {
		switch strings.ToUpper(strings.TrimSpace(header)) {
		case headerClient:
			clientCol = i
		case headerPlate:
			plateCol = i
		case headerFee:
			feeCol = i
		}
	}
	if clientCol < 0 || plateCol < 0 || feeCol < 0 {
		return nil, domain.ErrMissingColumns
	}

	summary := &domain.ImportSummary{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, row := range rows[1:] {
			rowNum := i + 2

			plate := domain.NormalizePlate(cellAt(row, plateCol))
			client := strings.TrimSpace(cellAt(row, clientCol))
			feeRaw := strings.TrimSpace(cellAt(row, feeCol))

			if plate == "" && client == "" && feeRaw == "" {
				continue
			}
			if plate == "" {
				summary.Skipped++
				summary.Problems = append(summary.Problems, fmt.Sprintf("linha %d: placa vazia", rowNum))
				continue
			}
			if client == "" {
				summary.Skipped++
				summary.Problems = append(summary.Problems, fmt.Sprintf("linha %d: cliente vazio", rowNum))
				continue
			}
			fee, err := money.ParseBRL(feeRaw)
			if err != nil {
				summary.Skipped++
				summary.Problems = append(summary.Problems, fmt.Sprintf("linha %d: mensalidade inválida (%s)", rowNum, feeRaw))
				continue
			}

			existing, err := s.repo.FindByPlate(ctx, tx, plate)
			if err != nil {
				return err
			}

			now := s.clock.Now()
			if existing != nil {
				err = s.repo.UpdateFields(ctx, tx, existing.ID, map[string]any{
					"client_name": client,
					"monthly_fee": fee,
					"updated_at":  now,
				})
				if err != nil {
					return err
				}
				summary.Updated++
				continue
			}

			vehicle := &domain.Vehicle{
				ID:         s.genID.Generate(),
				Plate:      plate,
				ClientName: client,
				MonthlyFee: fee,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.repo.Insert(ctx, tx, vehicle); err != nil {
				return err
			}
			summary.Imported++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("client base imported",
		zap.Int("imported", summary.Imported),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
	)
	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionVehiclesImported,
		TargetType: "vehicle",
		Metadata: map[string]any{
			"imported": summary.Imported,
			"updated":  summary.Updated,
			"skipped":  summary.Skipped,
		},
	})
	return summary, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
