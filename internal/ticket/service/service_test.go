package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
	"github.com/locafrota/fleetsla/internal/providers/email"
	"github.com/locafrota/fleetsla/internal/providers/storage"
	"github.com/locafrota/fleetsla/internal/ticket/domain"
	"github.com/locafrota/fleetsla/internal/ticket/repository"
	"github.com/locafrota/fleetsla/pkg/db"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type mailRecorder struct {
	sent []email.Message
}

func (m *mailRecorder) Send(_ context.Context, msg email.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type auditSink struct {
	entries []auditdomain.Entry
}

func (a *auditSink) Record(_ context.Context, entry auditdomain.Entry) {
	a.entries = append(a.entries, entry)
}

// userDirectory stubs the one identity lookup the mailer needs.
type userDirectory struct {
	identitydomain.Service
	users map[string]*identitydomain.User
}

func (d *userDirectory) GetByID(_ context.Context, id string) (*identitydomain.User, error) {
	if user, ok := d.users[id]; ok {
		return user, nil
	}
	return nil, identitydomain.ErrNotFound
}

type testEnv struct {
	svc   domain.Service
	clock *clock.FakeClock
	mail  *mailRecorder
	blobs storage.Store
	audit *auditSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.Ticket{}, &domain.Attachment{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	env := &testEnv{
		clock: clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
		mail:  &mailRecorder{},
		blobs: storage.NewMem(),
		audit: &auditSink{},
	}
	dir := &userDirectory{users: map[string]*identitydomain.User{
		"101": {ID: 101, Username: "carlos", Email: "carlos@locafrota.com.br"},
	}}

	env.svc = New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: env.clock,
		Cfg:   config.Config{BaseURL: "http://sla.local"},
		Repo:  repository.Provide(),
		Blobs: env.blobs,
		Mail:  env.mail,
		Users: dir,
		Audit: env.audit,
	})
	return env
}

func openTicket(t *testing.T, env *testEnv, userID snowflake.ID) *domain.Ticket {
	t.Helper()
	ticket, err := env.svc.Create(context.Background(), domain.CreateTicketRequest{
		UserID:  userID,
		Subject: "Erro no cálculo",
		Body:    "O desconto ficou diferente do contrato.",
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func TestCreateAssignsReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ticket := openTicket(t, env, 101)

	if _, err := ulid.Parse(ticket.Reference); err != nil {
		t.Fatalf("reference %q is not a ulid: %v", ticket.Reference, err)
	}
	if ticket.Status != domain.StatusOpen {
		t.Fatalf("status = %q, want open", ticket.Status)
	}
	if !ticket.CreatedAt.Equal(env.clock.Now()) {
		t.Fatalf("created_at = %v", ticket.CreatedAt)
	}

	found, err := env.svc.GetByReference(ctx, ticket.Reference)
	if err != nil {
		t.Fatalf("get by reference: %v", err)
	}
	if found.ID != ticket.ID || found.Subject != "Erro no cálculo" {
		t.Fatalf("round trip mismatch: %+v", found)
	}

	if len(env.audit.entries) != 1 || env.audit.entries[0].Action != auditdomain.ActionTicketCreated {
		t.Fatalf("audit entries = %+v", env.audit.entries)
	}
}

func TestCreateValidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []domain.CreateTicketRequest{
		{UserID: 0, Subject: "a", Body: "b"},
		{UserID: 101, Subject: "   ", Body: "b"},
		{UserID: 101, Subject: "a", Body: ""},
	}
	for _, req := range cases {
		if _, err := env.svc.Create(ctx, req); !errors.Is(err, domain.ErrMissingFields) {
			t.Fatalf("Create(%+v) err = %v, want ErrMissingFields", req, err)
		}
	}
}

func TestReplyAnswersAndMails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ticket := openTicket(t, env, 101)
	env.clock.Advance(time.Hour)

	answered, err := env.svc.Reply(ctx, domain.ReplyTicketRequest{
		Reference: ticket.Reference,
		AdminID:   999,
		Reply:     "Corrigimos o cadastro do veículo.",
	})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if answered.Status != domain.StatusAnswered {
		t.Fatalf("status = %q, want answered", answered.Status)
	}
	if answered.RepliedBy == nil || *answered.RepliedBy != 999 {
		t.Fatalf("replied_by = %v", answered.RepliedBy)
	}
	if answered.RepliedAt == nil || !answered.RepliedAt.Equal(env.clock.Now()) {
		t.Fatalf("replied_at = %v", answered.RepliedAt)
	}

	stored, err := env.svc.GetByReference(ctx, ticket.Reference)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.StatusAnswered || stored.Reply != "Corrigimos o cadastro do veículo." {
		t.Fatalf("stored ticket = %+v", stored)
	}

	if len(env.mail.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(env.mail.sent))
	}
	msg := env.mail.sent[0]
	if msg.Kind != email.KindTicketAnswered {
		t.Fatalf("mail kind = %q", msg.Kind)
	}
	if msg.To[0] != "carlos@locafrota.com.br" {
		t.Fatalf("mail to = %v", msg.To)
	}
	if !strings.Contains(msg.CTAURL, ticket.Reference) {
		t.Fatalf("cta url = %q, want ticket reference", msg.CTAURL)
	}
}

func TestReplyWithoutOwnerStillAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ticket := openTicket(t, env, 555) // not in the directory

	answered, err := env.svc.Reply(ctx, domain.ReplyTicketRequest{
		Reference: ticket.Reference,
		AdminID:   999,
		Reply:     "Resolvido.",
	})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if answered.Status != domain.StatusAnswered {
		t.Fatalf("status = %q", answered.Status)
	}
	if len(env.mail.sent) != 0 {
		t.Fatalf("sent %d mails, want none", len(env.mail.sent))
	}
}

func TestReplyRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ticket := openTicket(t, env, 101)

	if _, err := env.svc.Reply(ctx, domain.ReplyTicketRequest{Reference: ticket.Reference, AdminID: 999, Reply: "  "}); !errors.Is(err, domain.ErrMissingFields) {
		t.Fatalf("empty reply err = %v", err)
	}
	if _, err := env.svc.Reply(ctx, domain.ReplyTicketRequest{Reference: "01ARZ3NDEKTSV4RRFFQ69G5FAV", AdminID: 999, Reply: "oi"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown reference err = %v", err)
	}

	if _, err := env.svc.Close(ctx, ticket.Reference); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := env.svc.Reply(ctx, domain.ReplyTicketRequest{Reference: ticket.Reference, AdminID: 999, Reply: "tarde demais"}); !errors.Is(err, domain.ErrTicketClosed) {
		t.Fatalf("closed ticket err = %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ticket := openTicket(t, env, 101)

	first, err := env.svc.Close(ctx, ticket.Reference)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := env.svc.Close(ctx, ticket.Reference)
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if first.Status != domain.StatusClosed || second.Status != domain.StatusClosed {
		t.Fatalf("statuses = %q, %q", first.Status, second.Status)
	}
}

func TestAttachAndDownload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ticket := openTicket(t, env, 101)

	attachment, err := env.svc.Attach(ctx, domain.AttachFileRequest{
		Reference: ticket.Reference,
		FileName:  "nota fiscal.pdf",
		Content:   strings.NewReader("conteudo do arquivo"),
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if attachment.FileName != "nota fiscal.pdf" {
		t.Fatalf("file name = %q", attachment.FileName)
	}
	if attachment.SizeBytes != int64(len("conteudo do arquivo")) {
		t.Fatalf("size = %d", attachment.SizeBytes)
	}
	if !strings.HasPrefix(attachment.StorageKey, "tickets/"+ticket.Reference+"/") {
		t.Fatalf("storage key = %q", attachment.StorageKey)
	}

	list, err := env.svc.Attachments(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("list attachments: %v", err)
	}
	if len(list) != 1 || list[0].ID != attachment.ID {
		t.Fatalf("attachments = %+v", list)
	}

	meta, rc, err := env.svc.OpenAttachment(ctx, attachment.ID)
	if err != nil {
		t.Fatalf("open attachment: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read attachment: %v", err)
	}
	if string(data) != "conteudo do arquivo" || meta.FileName != "nota fiscal.pdf" {
		t.Fatalf("downloaded %q as %q", data, meta.FileName)
	}
}

func TestAttachRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ticket := openTicket(t, env, 101)

	// Client-supplied paths flatten to their base name.
	attachment, err := env.svc.Attach(ctx, domain.AttachFileRequest{
		Reference: ticket.Reference,
		FileName:  "../../evil.sh",
		Content:   strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("attach traversal name: %v", err)
	}
	if attachment.FileName != "evil.sh" {
		t.Fatalf("file name = %q, want base name only", attachment.FileName)
	}

	huge := bytes.Repeat([]byte("a"), maxAttachmentBytes+1)
	if _, err := env.svc.Attach(ctx, domain.AttachFileRequest{
		Reference: ticket.Reference,
		FileName:  "grande.bin",
		Content:   bytes.NewReader(huge),
	}); !errors.Is(err, domain.ErrAttachmentTooLarge) {
		t.Fatalf("oversized err = %v", err)
	}

	if _, err := env.svc.Close(ctx, ticket.Reference); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := env.svc.Attach(ctx, domain.AttachFileRequest{
		Reference: ticket.Reference,
		FileName:  "depois.txt",
		Content:   strings.NewReader("x"),
	}); !errors.Is(err, domain.ErrTicketClosed) {
		t.Fatalf("closed ticket err = %v", err)
	}

	if _, _, err := env.svc.OpenAttachment(ctx, attachment.ID+1); !errors.Is(err, domain.ErrAttachmentNotFound) {
		t.Fatalf("unknown attachment err = %v", err)
	}
}

func TestListFiltersAndCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := openTicket(t, env, 101)
	env.clock.Advance(time.Minute)
	second := openTicket(t, env, 101)
	env.clock.Advance(time.Minute)
	third := openTicket(t, env, 202)

	if _, err := env.svc.Reply(ctx, domain.ReplyTicketRequest{Reference: second.Reference, AdminID: 999, Reply: "ok"}); err != nil {
		t.Fatalf("reply: %v", err)
	}

	all, err := env.svc.List(ctx, domain.ListTicketsRequest{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all.Tickets) != 3 {
		t.Fatalf("listed %d tickets", len(all.Tickets))
	}
	if all.Tickets[0].ID != third.ID {
		t.Fatalf("newest first expected, got %v", all.Tickets[0].ID)
	}

	mine, err := env.svc.List(ctx, domain.ListTicketsRequest{UserID: 101})
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine.Tickets) != 2 {
		t.Fatalf("listed %d own tickets", len(mine.Tickets))
	}

	open, err := env.svc.List(ctx, domain.ListTicketsRequest{Status: domain.StatusOpen})
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open.Tickets) != 2 {
		t.Fatalf("listed %d open tickets", len(open.Tickets))
	}
	for _, item := range open.Tickets {
		if item.ID == second.ID {
			t.Fatal("answered ticket in open listing")
		}
	}

	if _, err := env.svc.List(ctx, domain.ListTicketsRequest{Status: "weird"}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("invalid status err = %v", err)
	}

	count, err := env.svc.CountOpen(ctx)
	if err != nil {
		t.Fatalf("count open: %v", err)
	}
	if count != 2 {
		t.Fatalf("open count = %d", count)
	}
	_ = first
}

func TestListPaginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		openTicket(t, env, 101)
		env.clock.Advance(time.Minute)
	}

	page, err := env.svc.List(ctx, domain.ListTicketsRequest{PageSize: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(page.Tickets) != 2 || !page.PageInfo.HasMore {
		t.Fatalf("first page = %d tickets, has_more=%v", len(page.Tickets), page.PageInfo.HasMore)
	}

	rest, err := env.svc.List(ctx, domain.ListTicketsRequest{PageSize: 2, PageToken: page.PageInfo.NextPageToken})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(rest.Tickets) != 1 || rest.PageInfo.HasMore {
		t.Fatalf("second page = %d tickets, has_more=%v", len(rest.Tickets), rest.PageInfo.HasMore)
	}
	if rest.Tickets[0].ID == page.Tickets[0].ID || rest.Tickets[0].ID == page.Tickets[1].ID {
		t.Fatal("pages overlap")
	}
}
