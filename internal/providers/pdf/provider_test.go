package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	appconfig "github.com/locafrota/fleetsla/internal/config"
	"github.com/locafrota/fleetsla/internal/sla"
)

func testRenderer(t *testing.T) Provider {
	t.Helper()
	return New(appconfig.Config{Timezone: "America/Sao_Paulo"})
}

func simpleAnalysis(t *testing.T) *analysisdomain.Analysis {
	t.Helper()

	eval := sla.Evaluate(sla.EvaluationInput{
		EntryDate:   time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		ExitDate:    time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC),
		ServiceType: sla.ServiceCorrective,
		MonthlyFee:  decimal.NewFromInt(3000),
	}, sla.DefaultThresholds())

	payload, err := json.Marshal(analysisdomain.SimpleRecord{
		Client:     "Transportadora Azul",
		Plate:      "ABC1D23",
		Evaluation: eval,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	return &analysisdomain.Analysis{
		ID:         1,
		Protocol:   "0f9de3cb-6d24-4a0e-9c61-1bb7f621f3aa",
		UserID:     7,
		Username:   "carlos",
		Kind:       analysisdomain.KindSimple,
		ClientName: "Transportadora Azul",
		Plate:      "ABC1D23",
		Payload:    datatypes.JSON(payload),
		FinalTotal: eval.MonthlyFee.Sub(eval.Discount).Round(2),
		RecordedAt: time.Date(2025, time.March, 14, 18, 0, 0, 0, time.UTC),
	}
}

func comparisonAnalysis(t *testing.T) *analysisdomain.Analysis {
	t.Helper()

	thresholds := sla.DefaultThresholds()
	entry := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	first := sla.NewScenario("Oficina A", sla.Evaluate(sla.EvaluationInput{
		EntryDate:   entry,
		ExitDate:    entry.AddDate(0, 0, 2),
		ServiceType: sla.ServiceCorrective,
		MonthlyFee:  decimal.NewFromInt(3000),
	}, thresholds), []sla.PartCost{{Description: "Filtro de óleo", Amount: decimal.NewFromInt(500)}})

	second := sla.NewScenario("Oficina B", sla.Evaluate(sla.EvaluationInput{
		EntryDate:   entry,
		ExitDate:    entry.AddDate(0, 0, 4),
		ServiceType: sla.ServicePreventive,
		MonthlyFee:  decimal.NewFromInt(3000),
	}, thresholds), []sla.PartCost{{Description: "Correia", Amount: decimal.NewFromInt(100)}})

	ranking := sla.Rank([]sla.Scenario{first, second})
	payload, err := json.Marshal(analysisdomain.ComparisonRecord{
		Scenarios: []sla.Scenario{first, second},
		BestIndex: ranking.BestIndex,
		Savings:   ranking.Savings,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	return &analysisdomain.Analysis{
		ID:         2,
		Protocol:   "41c5dd0e-8a17-4f9f-9a3a-d2f5ce0c9b6f",
		UserID:     7,
		Username:   "carlos",
		Kind:       analysisdomain.KindComparison,
		ClientName: "Transportadora Azul",
		Plate:      "ABC1D23",
		Payload:    datatypes.JSON(payload),
		FinalTotal: ranking.Best.FinalTotal,
		Savings:    ranking.Savings,
		RecordedAt: time.Date(2025, time.March, 14, 18, 0, 0, 0, time.UTC),
	}
}

func TestRenderSimpleProducesDocument(t *testing.T) {
	r := testRenderer(t)

	out, err := r.RenderAnalysis(context.Background(), simpleAnalysis(t))
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	data, err := io.ReadAll(out)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected a pdf document, got %q", data[:min(len(data), 8)])
	}
}

func TestRenderComparisonProducesDocument(t *testing.T) {
	r := testRenderer(t)

	out, err := r.RenderAnalysis(context.Background(), comparisonAnalysis(t))
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	data, err := io.ReadAll(out)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected a pdf document, got %q", data[:min(len(data), 8)])
	}
}

func TestRenderRejectsUnknownKind(t *testing.T) {
	r := testRenderer(t)

	broken := simpleAnalysis(t)
	broken.Kind = "weird"

	if _, err := r.RenderAnalysis(context.Background(), broken); err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
}

func TestFilenameSlugsClientName(t *testing.T) {
	a := simpleAnalysis(t)

	got := Filename(a)
	want := a.Protocol + "-transportadora-azul.pdf"
	if got != want {
		t.Fatalf("filename = %q, want %q", got, want)
	}
}

func TestLabels(t *testing.T) {
	cases := map[sla.ServiceType]string{
		sla.ServicePreventive:           "Preventiva",
		sla.ServiceCorrective:           "Corretiva",
		sla.ServicePreventiveCorrective: "Preventiva + Corretiva",
		sla.ServiceEngine:               "Motor",
		sla.ServiceType("other"):        "other",
	}
	for in, want := range cases {
		if got := serviceLabel(in); got != want {
			t.Fatalf("serviceLabel(%q) = %q, want %q", in, got, want)
		}
	}

	if got := statusLabel(sla.StatusWithinSLA); got != "Dentro do prazo" {
		t.Fatalf("statusLabel(within) = %q", got)
	}
	if got := statusLabel(sla.StatusOutOfSLA); got != "Fora do prazo" {
		t.Fatalf("statusLabel(out) = %q", got)
	}
}
