package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/deletereq/domain"
	"github.com/locafrota/fleetsla/internal/providers/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Analyses analysisdomain.Service
	Blobs    storage.Store
	Audit    auditdomain.Recorder
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	analyses analysisdomain.Service
	blobs    storage.Store
	audit    auditdomain.Recorder
}

func New(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("deletereq.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		analyses: p.Analyses,
		blobs:    p.Blobs,
		audit:    p.Audit,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.DeletionRequest, error) {
	protocol := strings.TrimSpace(req.Protocol)
	reason := strings.TrimSpace(req.Reason)
	if req.RequestedBy == 0 || protocol == "" || reason == "" {
		return nil, domain.ErrMissingFields
	}

	analysis, err := s.analyses.GetByProtocol(ctx, protocol)
	if err != nil {
		return nil, err
	}
	if analysis.UserID != req.RequestedBy {
		return nil, domain.ErrNotOwner
	}

	open, err := s.repo.FindPendingByAnalysis(ctx, s.db, analysis.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, domain.ErrDuplicate
	}

	request := &domain.DeletionRequest{
		ID:          s.genID.Generate(),
		AnalysisID:  analysis.ID,
		Protocol:    analysis.Protocol,
		RequestedBy: req.RequestedBy,
		Reason:      reason,
		Status:      domain.StatusPending,
		RequestedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, request); err != nil {
		s.log.Error("failed to insert deletion request", zap.Error(err))
		return nil, err
	}

	s.log.Info("deletion requested",
		zap.String("protocol", request.Protocol),
		zap.String("requested_by", request.RequestedBy.String()),
	)
	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionDeletionRequestCreated,
		TargetType: "analysis",
		TargetID:   request.Protocol,
		Metadata:   map[string]any{"reason": reason},
	})
	return request, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.DeletionRequest, error) {
	request, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domain.ErrNotFound
	}
	return request, nil
}

func (s *service) List(ctx context.Context, req domain.ListRequest) ([]domain.DeletionRequest, error) {
	status := strings.TrimSpace(req.Status)
	if status != "" && !domain.ValidStatus(status) {
		return nil, domain.ErrInvalidStatus
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	return s.repo.List(ctx, s.db, domain.ListFilter{
		Status:      status,
		RequestedBy: req.RequestedBy,
	}, limit)
}

func (s *service) CountPending(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.db, domain.ListFilter{Status: domain.StatusPending})
}

func (s *service) Review(ctx context.Context, req domain.ReviewRequest) (*domain.DeletionRequest, error) {
	if req.ReviewerID == 0 {
		return nil, domain.ErrMissingFields
	}

	request, err := s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !request.IsPending() {
		return nil, domain.ErrAlreadyReviewed
	}

	notes := strings.TrimSpace(req.Notes)
	if !req.Approve && notes == "" {
		return nil, domain.ErrNotesRequired
	}

	if req.Approve {
		if err := s.deleteAnalysis(ctx, request); err != nil {
			// The request stays pending so the review can be retried.
			return nil, err
		}
	}

	now := s.clock.Now()
	status := domain.StatusRejected
	action := auditdomain.ActionDeletionRequestRejected
	if req.Approve {
		status = domain.StatusApproved
		action = auditdomain.ActionDeletionRequestApproved
	}

	err = s.repo.UpdateFields(ctx, s.db, request.ID, map[string]any{
		"status":       status,
		"reviewed_by":  req.ReviewerID,
		"review_notes": notes,
		"reviewed_at":  now,
	})
	if err != nil {
		return nil, err
	}

	request.Status = status
	request.ReviewedBy = &req.ReviewerID
	request.ReviewNotes = notes
	request.ReviewedAt = &now

	s.log.Info("deletion request reviewed",
		zap.String("protocol", request.Protocol),
		zap.String("status", status),
		zap.String("reviewer_id", req.ReviewerID.String()),
	)
	s.audit.Record(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: "analysis",
		TargetID:   request.Protocol,
		Metadata:   map[string]any{"notes": notes},
	})
	return request, nil
}

// deleteAnalysis removes the analysis row and its rendered document. An
// already deleted analysis counts as success; a leftover blob is only
// warned about since the row is the source of truth.
func (s *service) deleteAnalysis(ctx context.Context, request *domain.DeletionRequest) error {
	analysis, err := s.analyses.GetByID(ctx, request.AnalysisID.String())
	if err != nil {
		if errors.Is(err, analysisdomain.ErrNotFound) {
			s.log.Warn("analysis already gone at approval",
				zap.String("protocol", request.Protocol))
			return nil
		}
		return err
	}

	if err := s.analyses.Delete(ctx, analysis.ID); err != nil {
		return err
	}
	if analysis.PDFPath != "" {
		if err := s.blobs.Delete(ctx, analysis.PDFPath); err != nil {
			s.log.Warn("failed to remove analysis document",
				zap.String("key", analysis.PDFPath), zap.Error(err))
		}
	}
	return nil
}
