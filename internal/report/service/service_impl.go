package service

import (
	"context"
	"fmt"
	"io"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	deletereqdomain "github.com/locafrota/fleetsla/internal/deletereq/domain"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
	"github.com/locafrota/fleetsla/internal/report/domain"
	"github.com/locafrota/fleetsla/internal/sla"
	ticketdomain "github.com/locafrota/fleetsla/internal/ticket/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	topUsersLimit   = 10
	recentLimit     = 5
	exportPageSize  = 200
	exportSheetName = "Análises"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Cfg       config.Config
	Clock     clock.Clock
	Repo      domain.Repository
	Analyses  analysisdomain.Service
	Users     identitydomain.Service
	Deletions deletereqdomain.Service
	Tickets   ticketdomain.Service
	Audit     auditdomain.Recorder
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       config.Config
	clock     clock.Clock
	repo      domain.Repository
	analyses  analysisdomain.Service
	users     identitydomain.Service
	deletions deletereqdomain.Service
	tickets   ticketdomain.Service
	audit     auditdomain.Recorder
}

func New(p Params) domain.Service {
	return &service{
		db:        p.DB,
		log:       p.Log.Named("report.service"),
		cfg:       p.Cfg,
		clock:     p.Clock,
		repo:      p.Repo,
		analyses:  p.Analyses,
		users:     p.Users,
		deletions: p.Deletions,
		tickets:   p.Tickets,
		audit:     p.Audit,
	}
}

func (s *service) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	dash := &domain.Dashboard{}

	kinds, err := s.repo.CountByKind(ctx, s.db)
	if err != nil {
		return nil, err
	}
	for _, row := range kinds {
		dash.TotalAnalyses += row.Count
		switch analysisdomain.Kind(row.Kind) {
		case analysisdomain.KindSimple:
			dash.Totals.Simple = row.Count
		case analysisdomain.KindComparison:
			dash.Totals.Comparison = row.Count
		}
	}

	dash.TopUsers, err = s.repo.TopUsers(ctx, s.db, topUsersLimit)
	if err != nil {
		return nil, err
	}

	recent, err := s.analyses.List(ctx, analysisdomain.ListAnalysisRequest{PageSize: recentLimit})
	if err != nil {
		return nil, err
	}
	dash.Recent = recent.Analyses

	if dash.PendingUsers, err = s.users.CountPending(ctx); err != nil {
		return nil, err
	}
	if dash.PendingDeletions, err = s.deletions.CountPending(ctx); err != nil {
		return nil, err
	}
	if dash.OpenTickets, err = s.tickets.CountOpen(ctx); err != nil {
		return nil, err
	}
	return dash, nil
}

func (s *service) ExportAnalyses(ctx context.Context, req domain.ExportRequest) (io.Reader, string, error) {
	analyses, err := s.collectAnalyses(ctx, req)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return nil, "", err
	}
	if err := s.writeHeader(f); err != nil {
		return nil, "", err
	}

	moneyFmt := `"R$" #,##0.00`
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return nil, "", err
	}
	linkStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "1265BE", Underline: "single"},
	})
	if err != nil {
		return nil, "", err
	}

	loc := s.cfg.Location()
	for i, analysis := range analyses {
		row := i + 2
		recordedAt := analysis.RecordedAt.In(loc)

		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			f.SetCellValue(exportSheetName, cell, value)
		}

		set(1, analysis.Protocol)
		set(2, analysis.ClientName)
		set(3, analysis.Plate)
		set(4, s.serviceColumn(&analysis))
		set(5, analysis.FinalTotal.InexactFloat64())
		if analysis.Savings != nil {
			set(6, analysis.Savings.InexactFloat64())
		}
		set(7, analysis.Username)
		set(8, recordedAt.Format("02/01/2006"))
		set(9, recordedAt.Format("15:04"))

		valueCell, _ := excelize.CoordinatesToCellName(5, row)
		savingsCell, _ := excelize.CoordinatesToCellName(6, row)
		f.SetCellStyle(exportSheetName, valueCell, savingsCell, moneyStyle)

		if analysis.PDFPath != "" {
			pdfCell, _ := excelize.CoordinatesToCellName(10, row)
			f.SetCellValue(exportSheetName, pdfCell, "Abrir PDF")
			f.SetCellStyle(exportSheetName, pdfCell, pdfCell, linkStyle)
			url := fmt.Sprintf("%s/analyses/%s/pdf", s.cfg.BaseURL, analysis.Protocol)
			if err := f.SetCellHyperLink(exportSheetName, pdfCell, url, "External"); err != nil {
				return nil, "", err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	s.log.Info("analyses exported", zap.Int("rows", len(analyses)))
	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionReportExported,
		TargetType: "report",
		Metadata:   map[string]any{"rows": len(analyses)},
	})

	filename := fmt.Sprintf("analises-%s.xlsx", s.clock.Now().In(loc).Format("2006-01-02"))
	return buf, filename, nil
}

func (s *service) collectAnalyses(ctx context.Context, req domain.ExportRequest) ([]analysisdomain.Analysis, error) {
	var out []analysisdomain.Analysis
	token := ""
	for {
		page, err := s.analyses.List(ctx, analysisdomain.ListAnalysisRequest{
			Kind:      req.Kind,
			StartAt:   req.StartAt,
			EndAt:     req.EndAt,
			PageToken: token,
			PageSize:  exportPageSize,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Analyses...)
		if !page.PageInfo.HasMore {
			return out, nil
		}
		token = page.PageInfo.NextPageToken
	}
}

func (s *service) writeHeader(f *excelize.File) error {
	headers := []string{
		"Protocolo", "Cliente", "Placa", "Serviço", "Valor Final",
		"Economia", "Usuário", "Data", "Hora", "PDF",
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheetName, cell, header); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(exportSheetName, "A1", "J1", bold); err != nil {
		return err
	}

	widths := map[string]float64{"A": 38, "B": 30, "C": 12, "D": 24, "E": 14, "F": 14, "G": 16, "H": 12, "I": 8, "J": 12}
	for col, width := range widths {
		if err := f.SetColWidth(exportSheetName, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) serviceColumn(analysis *analysisdomain.Analysis) string {
	if analysis.Kind == analysisdomain.KindComparison {
		return "Comparação de cenários"
	}
	record, err := analysis.Simple()
	if err != nil {
		s.log.Warn("unreadable analysis payload",
			zap.String("protocol", analysis.Protocol), zap.Error(err))
		return "-"
	}
	return serviceLabel(record.ServiceType)
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
