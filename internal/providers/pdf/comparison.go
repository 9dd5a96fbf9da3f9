package pdf

import (
	"io"
	"strconv"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	"github.com/locafrota/fleetsla/internal/sla"
	"github.com/locafrota/fleetsla/pkg/money"
)

func (r *renderer) renderComparison(analysis *analysisdomain.Analysis) (io.Reader, error) {
	record, err := analysis.Comparison()
	if err != nil {
		return nil, err
	}

	m := newDocument()
	r.addHeader(m, analysis, "Relatório Comparativo de Cenários")

	m.AddRow(14, col.New(12).Add(
		text.New("Cliente: "+analysis.ClientName, props.Text{Size: 10}),
		text.New("Placa: "+analysis.Plate, props.Text{Size: 10, Top: 6}),
	))

	for i, scenario := range record.Scenarios {
		addScenarioSection(m, scenario, i == record.BestIndex)
	}

	if record.Savings != nil {
		m.AddRow(14,
			text.NewCol(12, "Economia estimada: "+money.FormatBRL(*record.Savings), props.Text{
				Size:  12,
				Style: fontstyle.Bold,
				Top:   4,
			}),
		)
	}

	return generate(m)
}

func addScenarioSection(m core.Maroto, scenario sla.Scenario, best bool) {
	title := scenario.Label
	if best {
		title += " (melhor opção)"
	}
	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Top:   4,
		}),
	)

	eval := scenario.Evaluation
	addFigureRow(m, "Tipo de serviço", serviceLabel(eval.ServiceType))
	addFigureRow(m, "Período", dateBR(eval.EntryDate)+" a "+dateBR(eval.ExitDate))
	addFigureRow(m, "Dias úteis", strconv.Itoa(eval.BusinessDays))
	addFigureRow(m, "Prazo SLA (dias úteis)", strconv.Itoa(eval.ThresholdDays))
	addFigureRow(m, "Desconto aplicado", money.FormatBRL(eval.Discount))

	for _, part := range scenario.Parts {
		addFigureRow(m, "Peça: "+part.Description, money.FormatBRL(part.Amount))
	}

	m.AddRow(9,
		text.NewCol(6, "Valor final", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(6, money.FormatBRL(scenario.FinalTotal), props.Text{
			Size:  10,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)
	addFigureRow(m, "Status", statusLabel(eval.Status))
}
