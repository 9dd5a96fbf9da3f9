// Package pdf renders analysis reports. Every stored analysis can be
// regenerated from its payload at any time; the document always carries
// the persisted protocol.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gosimple/slug"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	appconfig "github.com/locafrota/fleetsla/internal/config"
	"github.com/locafrota/fleetsla/internal/sla"
)

type Provider interface {
	RenderAnalysis(ctx context.Context, analysis *analysisdomain.Analysis) (io.Reader, error)
}

type renderer struct {
	location *time.Location
}

func New(cfg appconfig.Config) Provider {
	return &renderer{location: cfg.Location()}
}

func (r *renderer) RenderAnalysis(_ context.Context, analysis *analysisdomain.Analysis) (io.Reader, error) {
	switch analysis.Kind {
	case analysisdomain.KindSimple:
		return r.renderSimple(analysis)
	case analysisdomain.KindComparison:
		return r.renderComparison(analysis)
	default:
		return nil, fmt.Errorf("pdf: unknown analysis kind %q", analysis.Kind)
	}
}

// Filename builds the blob key for an analysis document:
// <protocol>-<slugged client>.pdf.
func Filename(analysis *analysisdomain.Analysis) string {
	return fmt.Sprintf("%s-%s.pdf", analysis.Protocol, slug.Make(analysis.ClientName))
}

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	return maroto.New(cfg)
}

func (r *renderer) addHeader(m core.Maroto, analysis *analysisdomain.Analysis, title string) {
	m.AddRow(8,
		text.NewCol(12, "LocaFrota SLA", props.Text{
			Size:  10,
			Style: fontstyle.Bold,
		}),
	)
	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
		}),
	)
	m.AddRow(16,
		text.NewCol(12, "Protocolo: "+analysis.Protocol, props.Text{Size: 9}),
	)
	m.AddRow(12,
		text.NewCol(6, "Data: "+r.stamp(analysis.RecordedAt), props.Text{Size: 9}),
		text.NewCol(6, "Usuário: "+analysis.Username, props.Text{Size: 9, Align: align.Right}),
	)
}

func addFigureRow(m core.Maroto, label, value string) {
	m.AddRow(7,
		text.NewCol(6, label, props.Text{Size: 9}),
		text.NewCol(6, value, props.Text{Size: 9, Align: align.Right}),
	)
}

func generate(m core.Maroto) (io.Reader, error) {
	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func (r *renderer) stamp(t time.Time) string {
	return t.In(r.location).Format("02/01/2006 15:04")
}

func dateBR(t time.Time) string {
	return t.Format("02/01/2006")
}

func serviceLabel(t sla.ServiceType) string {
	switch t {
	case sla.ServicePreventive:
		return "Preventiva"
	case sla.ServiceCorrective:
		return "Corretiva"
	case sla.ServicePreventiveCorrective:
		return "Preventiva + Corretiva"
	case sla.ServiceEngine:
		return "Motor"
	default:
		return string(t)
	}
}

func statusLabel(status string) string {
	if status == sla.StatusWithinSLA {
		return "Dentro do prazo"
	}
	return "Fora do prazo"
}
