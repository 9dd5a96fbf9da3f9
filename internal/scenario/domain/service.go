package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	"github.com/locafrota/fleetsla/internal/sla"
)

var (
	ErrMissingFields = errors.New("missing_fields")
	ErrInvalidPart   = errors.New("invalid_part_cost")
)

type AddScenarioRequest struct {
	SessionID string
	Client    string
	Plate     string
	Label     string
	Input     sla.EvaluationInput
	Parts     []sla.PartCost
}

type FinalizeRequest struct {
	SessionID string
	UserID    snowflake.ID
	Username  string
}

type Service interface {
	Add(ctx context.Context, req AddScenarioRequest) (*Set, error)
	Get(ctx context.Context, sessionID string) (*Set, error)
	Clear(ctx context.Context, sessionID string) error
	// Finalize ranks the session's set, persists the comparison record and
	// clears the set. The record survives even if the clear fails.
	Finalize(ctx context.Context, req FinalizeRequest) (*analysisdomain.Analysis, error)
}
