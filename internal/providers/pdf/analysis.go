package pdf

import (
	"io"
	"strconv"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	"github.com/locafrota/fleetsla/pkg/money"
)

func (r *renderer) renderSimple(analysis *analysisdomain.Analysis) (io.Reader, error) {
	record, err := analysis.Simple()
	if err != nil {
		return nil, err
	}

	m := newDocument()
	r.addHeader(m, analysis, "Relatório de Análise SLA")

	m.AddRow(20, col.New(12).Add(
		text.New("Cliente: "+record.Client, props.Text{Size: 10}),
		text.New("Placa: "+record.Plate, props.Text{Size: 10, Top: 6}),
		text.New("Tipo de serviço: "+serviceLabel(record.ServiceType), props.Text{Size: 10, Top: 12}),
	))

	addFigureRow(m, "Data de entrada", dateBR(record.EntryDate))
	addFigureRow(m, "Data de saída", dateBR(record.ExitDate))
	addFigureRow(m, "Feriados no período", strconv.Itoa(record.Holidays))
	addFigureRow(m, "Dias úteis", strconv.Itoa(record.BusinessDays))
	addFigureRow(m, "Prazo SLA (dias úteis)", strconv.Itoa(record.ThresholdDays))
	addFigureRow(m, "Dias excedentes", strconv.Itoa(record.ExcessDays))
	addFigureRow(m, "Mensalidade", money.FormatBRL(record.MonthlyFee))
	addFigureRow(m, "Desconto aplicado", money.FormatBRL(record.Discount))

	m.AddRow(10,
		text.NewCol(6, "Valor final", props.Text{Size: 11, Style: fontstyle.Bold}),
		text.NewCol(6, money.FormatBRL(analysis.FinalTotal), props.Text{
			Size:  11,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)
	m.AddRow(12,
		text.NewCol(12, "Status: "+statusLabel(record.Status), props.Text{
			Size:  11,
			Style: fontstyle.Bold,
			Top:   3,
		}),
	)

	return generate(m)
}
