package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	analysisrepository "github.com/locafrota/fleetsla/internal/analysis/repository"
	analysisservice "github.com/locafrota/fleetsla/internal/analysis/service"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	"github.com/locafrota/fleetsla/internal/deletereq/domain"
	"github.com/locafrota/fleetsla/internal/deletereq/repository"
	"github.com/locafrota/fleetsla/internal/providers/storage"
	"github.com/locafrota/fleetsla/internal/sla"
	"github.com/locafrota/fleetsla/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type auditSink struct {
	entries []auditdomain.Entry
}

func (a *auditSink) Record(_ context.Context, entry auditdomain.Entry) {
	a.entries = append(a.entries, entry)
}

func (a *auditSink) actions() []string {
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type testEnv struct {
	svc      domain.Service
	analyses analysisdomain.Service
	blobs    storage.Store
	clock    *clock.FakeClock
	audit    *auditSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&analysisdomain.Analysis{}, &domain.DeletionRequest{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(8)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	holder, err := config.NewSLAConfigHolder()
	if err != nil {
		t.Fatalf("failed to build sla config: %v", err)
	}

	env := &testEnv{
		blobs: storage.NewMem(),
		clock: clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
		audit: &auditSink{},
	}
	env.analyses = analysisservice.New(analysisservice.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: env.clock,
		SLA:   holder,
		Repo:  analysisrepository.Provide(),
		Audit: env.audit,
	})
	env.svc = New(Params{
		DB:       dbConn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    env.clock,
		Repo:     repository.Provide(),
		Analyses: env.analyses,
		Blobs:    env.blobs,
		Audit:    env.audit,
	})
	return env
}

func seedAnalysis(t *testing.T, env *testEnv, userID snowflake.ID, client string) *analysisdomain.Analysis {
	t.Helper()
	analysis, err := env.analyses.CreateSimple(context.Background(), analysisdomain.CreateSimpleRequest{
		UserID:   userID,
		Username: "carlos",
		Client:   client,
		Plate:    "ABC1D23",
		Input: sla.EvaluationInput{
			EntryDate:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			ExitDate:    time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
			ServiceType: sla.ServiceCorrective,
			MonthlyFee:  decimal.NewFromInt(3000),
		},
	})
	if err != nil {
		t.Fatalf("seed analysis: %v", err)
	}
	return analysis
}

func TestCreatePendingRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, env, 101, "Transportadora Azul")
	env.clock.Advance(time.Hour)

	request, err := env.svc.Create(ctx, domain.CreateRequest{
		Protocol:    analysis.Protocol,
		RequestedBy: 101,
		Reason:      "Dados lançados errados",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if request.Status != domain.StatusPending {
		t.Fatalf("status = %q", request.Status)
	}
	if request.Protocol != analysis.Protocol || request.AnalysisID != analysis.ID {
		t.Fatalf("request binds %q/%v", request.Protocol, request.AnalysisID)
	}
	if !request.RequestedAt.Equal(env.clock.Now()) {
		t.Fatalf("requested_at = %v", request.RequestedAt)
	}

	found := false
	for _, action := range env.audit.actions() {
		if action == auditdomain.ActionDeletionRequestCreated {
			found = true
		}
	}
	if !found {
		t.Fatalf("audit actions = %v", env.audit.actions())
	}
}

func TestCreateValidations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, env, 101, "Transportadora Azul")

	if _, err := env.svc.Create(ctx, domain.CreateRequest{Protocol: analysis.Protocol, RequestedBy: 101, Reason: "  "}); !errors.Is(err, domain.ErrMissingFields) {
		t.Fatalf("blank reason err = %v", err)
	}
	if _, err := env.svc.Create(ctx, domain.CreateRequest{Protocol: "b2d7c9e1-0000-0000-0000-000000000000", RequestedBy: 101, Reason: "x"}); !errors.Is(err, analysisdomain.ErrNotFound) {
		t.Fatalf("unknown protocol err = %v", err)
	}
	if _, err := env.svc.Create(ctx, domain.CreateRequest{Protocol: analysis.Protocol, RequestedBy: 202, Reason: "x"}); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("foreign analysis err = %v", err)
	}

	if _, err := env.svc.Create(ctx, domain.CreateRequest{Protocol: analysis.Protocol, RequestedBy: 101, Reason: "primeira"}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := env.svc.Create(ctx, domain.CreateRequest{Protocol: analysis.Protocol, RequestedBy: 101, Reason: "segunda"}); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("duplicate err = %v", err)
	}
}

func TestApproveDeletesAnalysisAndDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, env, 101, "Transportadora Azul")
	pdfKey := "reports/" + analysis.Protocol + ".pdf"
	if err := env.blobs.Save(ctx, pdfKey, strings.NewReader("%PDF fake")); err != nil {
		t.Fatalf("save blob: %v", err)
	}
	if err := env.analyses.AttachPDF(ctx, analysis.ID, pdfKey); err != nil {
		t.Fatalf("attach pdf: %v", err)
	}

	request, err := env.svc.Create(ctx, domain.CreateRequest{
		Protocol:    analysis.Protocol,
		RequestedBy: 101,
		Reason:      "Solicitação do cliente",
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	env.clock.Advance(time.Hour)
	reviewed, err := env.svc.Review(ctx, domain.ReviewRequest{
		ID:         request.ID,
		ReviewerID: 999,
		Approve:    true,
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if reviewed.Status != domain.StatusApproved {
		t.Fatalf("status = %q", reviewed.Status)
	}
	if reviewed.ReviewedBy == nil || *reviewed.ReviewedBy != 999 {
		t.Fatalf("reviewed_by = %v", reviewed.ReviewedBy)
	}
	if reviewed.ReviewedAt == nil || !reviewed.ReviewedAt.Equal(env.clock.Now()) {
		t.Fatalf("reviewed_at = %v", reviewed.ReviewedAt)
	}

	if _, err := env.analyses.GetByProtocol(ctx, analysis.Protocol); !errors.Is(err, analysisdomain.ErrNotFound) {
		t.Fatalf("analysis lookup err = %v, want gone", err)
	}
	if ok, _ := env.blobs.Exists(ctx, pdfKey); ok {
		t.Fatal("pdf blob still present after approval")
	}

	found := false
	for _, action := range env.audit.actions() {
		if action == auditdomain.ActionDeletionRequestApproved {
			found = true
		}
	}
	if !found {
		t.Fatalf("audit actions = %v", env.audit.actions())
	}
}

func TestRejectRequiresNotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, env, 101, "Transportadora Azul")
	request, err := env.svc.Create(ctx, domain.CreateRequest{
		Protocol:    analysis.Protocol,
		RequestedBy: 101,
		Reason:      "Não preciso mais",
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	if _, err := env.svc.Review(ctx, domain.ReviewRequest{ID: request.ID, ReviewerID: 999, Approve: false, Notes: "  "}); !errors.Is(err, domain.ErrNotesRequired) {
		t.Fatalf("empty notes err = %v", err)
	}

	still, err := env.svc.Get(ctx, request.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if still.Status != domain.StatusPending {
		t.Fatalf("status after failed reject = %q", still.Status)
	}

	rejected, err := env.svc.Review(ctx, domain.ReviewRequest{
		ID:         request.ID,
		ReviewerID: 999,
		Approve:    false,
		Notes:      "Registro exigido por auditoria fiscal",
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.StatusRejected || rejected.ReviewNotes != "Registro exigido por auditoria fiscal" {
		t.Fatalf("rejected = %+v", rejected)
	}

	// The analysis survives a rejection.
	if _, err := env.analyses.GetByProtocol(ctx, analysis.Protocol); err != nil {
		t.Fatalf("analysis lookup after reject: %v", err)
	}

	if _, err := env.svc.Review(ctx, domain.ReviewRequest{ID: request.ID, ReviewerID: 999, Approve: true}); !errors.Is(err, domain.ErrAlreadyReviewed) {
		t.Fatalf("double review err = %v", err)
	}

	// A settled request no longer blocks a new petition.
	if _, err := env.svc.Create(ctx, domain.CreateRequest{Protocol: analysis.Protocol, RequestedBy: 101, Reason: "tentando de novo"}); err != nil {
		t.Fatalf("new request after rejection: %v", err)
	}
}

func TestApproveWhenAnalysisAlreadyGone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, env, 101, "Transportadora Azul")
	request, err := env.svc.Create(ctx, domain.CreateRequest{
		Protocol:    analysis.Protocol,
		RequestedBy: 101,
		Reason:      "duplicado",
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	if err := env.analyses.Delete(ctx, analysis.ID); err != nil {
		t.Fatalf("direct delete: %v", err)
	}

	reviewed, err := env.svc.Review(ctx, domain.ReviewRequest{ID: request.ID, ReviewerID: 999, Approve: true})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if reviewed.Status != domain.StatusApproved {
		t.Fatalf("status = %q", reviewed.Status)
	}
}

func TestListAndCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := seedAnalysis(t, env, 101, "Transportadora Azul")
	second := seedAnalysis(t, env, 202, "Logística Verde")

	reqA, err := env.svc.Create(ctx, domain.CreateRequest{Protocol: first.Protocol, RequestedBy: 101, Reason: "a"})
	if err != nil {
		t.Fatalf("request a: %v", err)
	}
	env.clock.Advance(time.Minute)
	reqB, err := env.svc.Create(ctx, domain.CreateRequest{Protocol: second.Protocol, RequestedBy: 202, Reason: "b"})
	if err != nil {
		t.Fatalf("request b: %v", err)
	}

	if _, err := env.svc.Review(ctx, domain.ReviewRequest{ID: reqA.ID, ReviewerID: 999, Approve: true}); err != nil {
		t.Fatalf("approve a: %v", err)
	}

	all, err := env.svc.List(ctx, domain.ListRequest{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("listed %d requests", len(all))
	}
	if all[0].ID != reqB.ID {
		t.Fatalf("newest first expected, got %v", all[0].ID)
	}

	pending, err := env.svc.List(ctx, domain.ListRequest{Status: domain.StatusPending})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != reqB.ID {
		t.Fatalf("pending = %+v", pending)
	}

	mine, err := env.svc.List(ctx, domain.ListRequest{RequestedBy: 202})
	if err != nil {
		t.Fatalf("list by requester: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != reqB.ID {
		t.Fatalf("requester filter = %+v", mine)
	}

	if _, err := env.svc.List(ctx, domain.ListRequest{Status: "weird"}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("invalid status err = %v", err)
	}

	count, err := env.svc.CountPending(ctx)
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if count != 1 {
		t.Fatalf("pending count = %d", count)
	}
}
