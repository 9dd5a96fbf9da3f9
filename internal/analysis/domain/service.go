package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/internal/sla"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
)

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("analysis_not_found")
	ErrMissingFields    = errors.New("missing_fields")
	ErrInvalidKind      = errors.New("invalid_kind")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrTooFewScenarios  = errors.New("too_few_scenarios")
)

// CreateSimpleRequest persists one evaluator run. The service recomputes
// the evaluation from Input at persist time; callers never submit figures.
type CreateSimpleRequest struct {
	UserID   snowflake.ID
	Username string
	Client   string
	Plate    string
	Input    sla.EvaluationInput
}

// CreateComparisonRequest persists one ranked scenario set. Ranking happens
// inside the service so the stored best index and savings always derive
// from the stored scenarios.
type CreateComparisonRequest struct {
	UserID    snowflake.ID
	Username  string
	Client    string
	Plate     string
	Scenarios []sla.Scenario
}

// ListAnalysisRequest filters the history listing. A zero UserID lists
// every user's analyses; StartAt and EndAt are both inclusive.
type ListAnalysisRequest struct {
	UserID    snowflake.ID
	Kind      Kind
	StartAt   *time.Time
	EndAt     *time.Time
	PageToken string
	PageSize  int
}

type ListAnalysisResponse struct {
	Analyses []Analysis
	PageInfo pagination.PageInfo
}

type Service interface {
	CreateSimple(ctx context.Context, req CreateSimpleRequest) (*Analysis, error)
	CreateComparison(ctx context.Context, req CreateComparisonRequest) (*Analysis, error)
	GetByID(ctx context.Context, id string) (*Analysis, error)
	GetByProtocol(ctx context.Context, protocol string) (*Analysis, error)
	List(ctx context.Context, req ListAnalysisRequest) (ListAnalysisResponse, error)
	Count(ctx context.Context, req ListAnalysisRequest) (int64, error)
	AttachPDF(ctx context.Context, id snowflake.ID, pdfPath string) error
	Delete(ctx context.Context, id snowflake.ID) error
}
