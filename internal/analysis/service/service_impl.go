package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/locafrota/fleetsla/internal/analysis/domain"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	clientbasedomain "github.com/locafrota/fleetsla/internal/clientbase/domain"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	"github.com/locafrota/fleetsla/internal/sla"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	SLA   *config.SLAConfigHolder
	Repo  domain.Repository
	Audit auditdomain.Recorder
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	sla   *config.SLAConfigHolder
	repo  domain.Repository
	audit auditdomain.Recorder
}

func New(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("analysis.service"),
		genID: p.GenID,
		clock: p.Clock,
		sla:   p.SLA,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

// CreateSimple evaluates the submission against the current thresholds and
// persists the result. The protocol and timestamp are assigned here, at
// persist time, never earlier.
func (s *service) CreateSimple(ctx context.Context, req domain.CreateSimpleRequest) (*domain.Analysis, error) {
	client := strings.TrimSpace(req.Client)
	plate := clientbasedomain.NormalizePlate(req.Plate)
	if req.UserID == 0 || client == "" || plate == "" {
		return nil, domain.ErrMissingFields
	}

	eval := sla.Evaluate(req.Input, s.sla.Thresholds())
	payload, err := json.Marshal(domain.SimpleRecord{
		Client:     client,
		Plate:      plate,
		Evaluation: eval,
	})
	if err != nil {
		return nil, err
	}

	analysis := &domain.Analysis{
		Kind:       domain.KindSimple,
		Payload:    datatypes.JSON(payload),
		FinalTotal: eval.MonthlyFee.Sub(eval.Discount).Round(2),
	}
	if err := s.persist(ctx, analysis, req.UserID, req.Username, client, plate); err != nil {
		return nil, err
	}
	return analysis, nil
}

// CreateComparison ranks the scenario set and persists one record holding
// every scenario plus the outcome.
func (s *service) CreateComparison(ctx context.Context, req domain.CreateComparisonRequest) (*domain.Analysis, error) {
	client := strings.TrimSpace(req.Client)
	plate := clientbasedomain.NormalizePlate(req.Plate)
	if req.UserID == 0 || client == "" || plate == "" {
		return nil, domain.ErrMissingFields
	}
	if len(req.Scenarios) < s.sla.MinScenarios() {
		return nil, domain.ErrTooFewScenarios
	}

	ranking := sla.Rank(req.Scenarios)
	payload, err := json.Marshal(domain.ComparisonRecord{
		Scenarios: req.Scenarios,
		BestIndex: ranking.BestIndex,
		Savings:   ranking.Savings,
	})
	if err != nil {
		return nil, err
	}

	analysis := &domain.Analysis{
		Kind:       domain.KindComparison,
		Payload:    datatypes.JSON(payload),
		FinalTotal: ranking.Best.FinalTotal,
	}
	if ranking.Savings != nil {
		savings := *ranking.Savings
		analysis.Savings = &savings
	}
	if err := s.persist(ctx, analysis, req.UserID, req.Username, client, plate); err != nil {
		return nil, err
	}
	return analysis, nil
}

func (s *service) persist(ctx context.Context, analysis *domain.Analysis, userID snowflake.ID, username, client, plate string) error {
	now := s.clock.Now()
	analysis.ID = s.genID.Generate()
	analysis.Protocol = uuid.NewString()
	analysis.UserID = userID
	analysis.Username = strings.TrimSpace(username)
	analysis.ClientName = client
	analysis.Plate = plate
	analysis.RecordedAt = now
	analysis.CreatedAt = now

	if err := s.repo.Insert(ctx, s.db, analysis); err != nil {
		s.log.Error("failed to insert analysis",
			zap.String("protocol", analysis.Protocol),
			zap.Error(err),
		)
		return err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionAnalysisCreated,
		TargetType: "analysis",
		TargetID:   analysis.ID.String(),
		Metadata: map[string]any{
			"protocol": analysis.Protocol,
			"kind":     string(analysis.Kind),
			"client":   client,
			"plate":    plate,
		},
	})
	return nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, err
	}
	analysis, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, domain.ErrNotFound
	}
	return analysis, nil
}

func (s *service) GetByProtocol(ctx context.Context, protocol string) (*domain.Analysis, error) {
	protocol = strings.TrimSpace(protocol)
	if protocol == "" {
		return nil, domain.ErrNotFound
	}
	analysis, err := s.repo.FindByProtocol(ctx, s.db, protocol)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, domain.ErrNotFound
	}
	return analysis, nil
}

func (s *service) List(ctx context.Context, req domain.ListAnalysisRequest) (domain.ListAnalysisResponse, error) {
	filter, err := listFilter(req)
	if err != nil {
		return domain.ListAnalysisResponse{}, err
	}

	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	page := pagination.Pagination{PageToken: req.PageToken, PageSize: size}

	rows, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListAnalysisResponse{}, err
	}

	rows, pageInfo := pagination.BuildCursorPageInfo(rows, page.Limit(), analysisCursor)

	resp := domain.ListAnalysisResponse{
		Analyses: make([]domain.Analysis, 0, len(rows)),
		PageInfo: *pageInfo,
	}
	for _, row := range rows {
		resp.Analyses = append(resp.Analyses, *row)
	}
	return resp, nil
}

func (s *service) Count(ctx context.Context, req domain.ListAnalysisRequest) (int64, error) {
	filter, err := listFilter(req)
	if err != nil {
		return 0, err
	}
	return s.repo.Count(ctx, s.db, filter)
}

// AttachPDF records where the rendered document lives. Computed figures are
// immutable after persist; this is the only mutation an analysis supports.
func (s *service) AttachPDF(ctx context.Context, id snowflake.ID, pdfPath string) error {
	pdfPath = strings.TrimSpace(pdfPath)
	if pdfPath == "" {
		return domain.ErrMissingFields
	}

	analysis, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if analysis == nil {
		return domain.ErrNotFound
	}

	return s.repo.UpdateFields(ctx, s.db, id, map[string]any{
		"pdf_path": pdfPath,
	})
}

func (s *service) Delete(ctx context.Context, id snowflake.ID) error {
	analysis, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if analysis == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.Delete(ctx, s.db, id); err != nil {
		s.log.Error("failed to delete analysis",
			zap.String("protocol", analysis.Protocol),
			zap.Error(err),
		)
		return err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionAnalysisDeleted,
		TargetType: "analysis",
		TargetID:   analysis.ID.String(),
		Metadata: map[string]any{
			"protocol": analysis.Protocol,
			"kind":     string(analysis.Kind),
		},
	})
	return nil
}

func listFilter(req domain.ListAnalysisRequest) (domain.ListAnalysisFilter, error) {
	if req.Kind != "" && !req.Kind.Valid() {
		return domain.ListAnalysisFilter{}, domain.ErrInvalidKind
	}
	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return domain.ListAnalysisFilter{}, domain.ErrInvalidTimeRange
	}
	return domain.ListAnalysisFilter{
		UserID:  req.UserID,
		Kind:    req.Kind,
		StartAt: req.StartAt,
		EndAt:   req.EndAt,
	}, nil
}

func analysisCursor(a *domain.Analysis) string {
	token, err := pagination.EncodeCursor(pagination.Cursor{
		ID:        a.ID.String(),
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return ""
	}
	return token
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}
