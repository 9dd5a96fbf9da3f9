package domain

import (
	"context"
	"errors"
	"io"

	"github.com/locafrota/fleetsla/pkg/db/pagination"
)

var (
	ErrInvalidPlate   = errors.New("invalid_plate")
	ErrNotFound       = errors.New("vehicle_not_found")
	ErrEmptyWorkbook  = errors.New("empty_workbook")
	ErrMissingColumns = errors.New("missing_columns")
)

// ImportSummary reports what an upload did to the registry. Problems lists
// rejected rows in sheet order with their row numbers.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Problems []string `json:"problems,omitempty"`
}

type ListVehiclesRequest struct {
	Search    string
	PageToken string
	PageSize  int
}

type ListVehiclesResponse struct {
	Vehicles []Vehicle
	PageInfo pagination.PageInfo
}

type Service interface {
	// Lookup resolves a plate (any formatting) to its registry entry.
	Lookup(ctx context.Context, plate string) (*Vehicle, error)
	List(ctx context.Context, req ListVehiclesRequest) (ListVehiclesResponse, error)
	Count(ctx context.Context) (int64, error)
	// Import upserts the registry from an uploaded workbook using the
	// CLIENTE / PLACA / VALOR MENSALIDADE columns.
	Import(ctx context.Context, r io.Reader) (*ImportSummary, error)
}
