package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	"github.com/locafrota/fleetsla/internal/clientbase/domain"
	"github.com/locafrota/fleetsla/internal/clientbase/repository"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/pkg/db"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type auditSink struct {
	entries []auditdomain.Entry
}

func (a *auditSink) Record(_ context.Context, entry auditdomain.Entry) {
	a.entries = append(a.entries, entry)
}

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.Vehicle{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
		Audit: &auditSink{},
	})
}

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("failed to build cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("failed to set cell: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}
	return buf
}

func TestImportCreatesAndUpdates(t *testing.T) {
	svc := newTestService(t)

	buf := buildWorkbook(t, [][]any{
		{"CLIENTE", "PLACA", "VALOR MENSALIDADE"},
		{"Transportadora Azul", "abc-1d23", "R$ 1.234,56"},
		{"Logística Verde", "XYZ9876", "987,65"},
	})
	summary, err := svc.Import(context.Background(), buf)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if summary.Imported != 2 || summary.Updated != 0 || summary.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	vehicle, err := svc.Lookup(context.Background(), " abc-1d23 ")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if vehicle.ClientName != "Transportadora Azul" {
		t.Fatalf("unexpected client %q", vehicle.ClientName)
	}
	if !vehicle.MonthlyFee.Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("unexpected fee %s", vehicle.MonthlyFee)
	}

	// A second upload with the same plates updates in place.
	buf = buildWorkbook(t, [][]any{
		{"CLIENTE", "PLACA", "VALOR MENSALIDADE"},
		{"Transportadora Azul", "ABC1D23", "2.000,00"},
	})
	summary, err = svc.Import(context.Background(), buf)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if summary.Imported != 0 || summary.Updated != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	vehicle, err = svc.Lookup(context.Background(), "ABC1D23")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !vehicle.MonthlyFee.Equal(decimal.RequireFromString("2000")) {
		t.Fatalf("expected updated fee, got %s", vehicle.MonthlyFee)
	}

	count, err := svc.Count(context.Background())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 vehicles, got %d", count)
	}
}

func TestImportSkipsBadRows(t *testing.T) {
	svc := newTestService(t)

	buf := buildWorkbook(t, [][]any{
		{"CLIENTE", "PLACA", "VALOR MENSALIDADE"},
		{"Sem Placa", "", "100,00"},
		{"Frota Norte", "QWE1234", "não é número"},
		{"Frota Sul", "RTY5678", 550},
	})
	summary, err := svc.Import(context.Background(), buf)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if summary.Imported != 1 {
		t.Fatalf("expected one imported row, got %+v", summary)
	}
	if summary.Skipped != 2 || len(summary.Problems) != 2 {
		t.Fatalf("expected two skipped rows with problems, got %+v", summary)
	}

	vehicle, err := svc.Lookup(context.Background(), "RTY5678")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !vehicle.MonthlyFee.Equal(decimal.RequireFromString("550")) {
		t.Fatalf("unexpected fee %s", vehicle.MonthlyFee)
	}
}

func TestImportMissingColumns(t *testing.T) {
	svc := newTestService(t)

	buf := buildWorkbook(t, [][]any{
		{"NOME", "IDENTIFICADOR"},
		{"Qualquer", "AAA0000"},
	})
	if _, err := svc.Import(context.Background(), buf); !errors.Is(err, domain.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}

func TestLookupErrors(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Lookup(context.Background(), "---"); !errors.Is(err, domain.ErrInvalidPlate) {
		t.Fatalf("expected ErrInvalidPlate, got %v", err)
	}
	if _, err := svc.Lookup(context.Background(), "QQQ1111"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSearch(t *testing.T) {
	svc := newTestService(t)

	buf := buildWorkbook(t, [][]any{
		{"CLIENTE", "PLACA", "VALOR MENSALIDADE"},
		{"Transportadora Azul", "ABC1D23", "1.000,00"},
		{"Logística Verde", "XYZ9876", "2.000,00"},
	})
	if _, err := svc.Import(context.Background(), buf); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	resp, err := svc.List(context.Background(), domain.ListVehiclesRequest{Search: "azul"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(resp.Vehicles) != 1 || resp.Vehicles[0].Plate != "ABC1D23" {
		t.Fatalf("unexpected result %+v", resp.Vehicles)
	}
}
