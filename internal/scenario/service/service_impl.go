package service

import (
	"context"
	"fmt"
	"strings"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	clientbasedomain "github.com/locafrota/fleetsla/internal/clientbase/domain"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	"github.com/locafrota/fleetsla/internal/scenario/domain"
	"github.com/locafrota/fleetsla/internal/sla"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	SLA      *config.SLAConfigHolder
	Store    domain.Store
	Analyses analysisdomain.Service
}

type service struct {
	log      *zap.Logger
	clock    clock.Clock
	sla      *config.SLAConfigHolder
	store    domain.Store
	analyses analysisdomain.Service
}

func New(p Params) domain.Service {
	return &service{
		log:      p.Log.Named("scenario.service"),
		clock:    p.Clock,
		sla:      p.SLA,
		store:    p.Store,
		analyses: p.Analyses,
	}
}

// Add evaluates the submission and appends it to the session's set. The
// evaluation happens here so the stored scenario matches what the user was
// shown when they added it.
func (s *service) Add(ctx context.Context, req domain.AddScenarioRequest) (*domain.Set, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	client := strings.TrimSpace(req.Client)
	plate := clientbasedomain.NormalizePlate(req.Plate)
	if sessionID == "" || client == "" || plate == "" {
		return nil, domain.ErrMissingFields
	}
	for _, part := range req.Parts {
		if strings.TrimSpace(part.Description) == "" || part.Amount.IsNegative() {
			return nil, domain.ErrInvalidPart
		}
	}

	set, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		set = &domain.Set{SessionID: sessionID}
	}

	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = fmt.Sprintf("Cenário %d", len(set.Scenarios)+1)
	}

	eval := sla.Evaluate(req.Input, s.sla.Thresholds())
	set.Client = client
	set.Plate = plate
	set.Scenarios = append(set.Scenarios, sla.NewScenario(label, eval, req.Parts))
	set.UpdatedAt = s.clock.Now()

	if err := s.store.Save(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

// Get returns the session's working set, empty when nothing was added yet.
func (s *service) Get(ctx context.Context, sessionID string) (*domain.Set, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrMissingFields
	}

	set, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		set = &domain.Set{SessionID: sessionID, Scenarios: []sla.Scenario{}}
	}
	return set, nil
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.ErrMissingFields
	}
	return s.store.Delete(ctx, sessionID)
}

func (s *service) Finalize(ctx context.Context, req domain.FinalizeRequest) (*analysisdomain.Analysis, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, domain.ErrMissingFields
	}

	set, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if set == nil || len(set.Scenarios) == 0 {
		return nil, analysisdomain.ErrTooFewScenarios
	}

	created, err := s.analyses.CreateComparison(ctx, analysisdomain.CreateComparisonRequest{
		UserID:    req.UserID,
		Username:  req.Username,
		Client:    set.Client,
		Plate:     set.Plate,
		Scenarios: set.Scenarios,
	})
	if err != nil {
		return nil, err
	}

	// The comparison record is already persisted; a leftover set only lives
	// until its TTL.
	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.log.Warn("failed to clear scenario set after finalize",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
	return created, nil
}
