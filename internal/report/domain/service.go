package domain

import (
	"context"
	"io"
	"time"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
)

// ExportRequest filters the workbook the same way the history listing is
// filtered; an empty request exports everything. Filter problems surface
// as the analysis listing errors.
type ExportRequest struct {
	Kind    analysisdomain.Kind
	StartAt *time.Time
	EndAt   *time.Time
}

type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	// ExportAnalyses builds the admin workbook and returns it with its
	// download filename.
	ExportAnalyses(ctx context.Context, req ExportRequest) (io.Reader, string, error)
}
