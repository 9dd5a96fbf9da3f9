package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
	"github.com/locafrota/fleetsla/internal/providers/email"
	"github.com/locafrota/fleetsla/internal/providers/storage"
	"github.com/locafrota/fleetsla/internal/ticket/domain"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Attachment uploads are capped; the limit guards the blob store, not the
// request body (the server layer has its own multipart cap).
const maxAttachmentBytes = 10 << 20

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Cfg   config.Config
	Repo  domain.Repository
	Blobs storage.Store
	Mail  email.Provider
	Users identitydomain.Service
	Audit auditdomain.Recorder
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	cfg   config.Config
	repo  domain.Repository
	blobs storage.Store
	mail  email.Provider
	users identitydomain.Service
	audit auditdomain.Recorder
}

func New(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("ticket.service"),
		genID: p.GenID,
		clock: p.Clock,
		cfg:   p.Cfg,
		repo:  p.Repo,
		blobs: p.Blobs,
		mail:  p.Mail,
		users: p.Users,
		audit: p.Audit,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateTicketRequest) (*domain.Ticket, error) {
	subject := strings.TrimSpace(req.Subject)
	body := strings.TrimSpace(req.Body)
	if req.UserID == 0 || subject == "" || body == "" {
		return nil, domain.ErrMissingFields
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		ID:        s.genID.Generate(),
		Reference: ulid.Make().String(),
		UserID:    req.UserID,
		Subject:   subject,
		Body:      body,
		Status:    domain.StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, ticket); err != nil {
		s.log.Error("failed to insert ticket", zap.Error(err))
		return nil, err
	}

	s.log.Info("ticket opened",
		zap.String("reference", ticket.Reference),
		zap.String("user_id", ticket.UserID.String()),
	)
	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionTicketCreated,
		TargetType: "ticket",
		TargetID:   ticket.Reference,
		Metadata:   map[string]any{"subject": ticket.Subject},
	})
	return ticket, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Ticket, error) {
	ticket, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, domain.ErrNotFound
	}
	return ticket, nil
}

func (s *service) GetByReference(ctx context.Context, reference string) (*domain.Ticket, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.ErrNotFound
	}

	ticket, err := s.repo.FindByReference(ctx, s.db, reference)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, domain.ErrNotFound
	}
	return ticket, nil
}

func (s *service) List(ctx context.Context, req domain.ListTicketsRequest) (domain.ListTicketsResponse, error) {
	status := strings.TrimSpace(req.Status)
	if status != "" && !domain.ValidStatus(status) {
		return domain.ListTicketsResponse{}, domain.ErrInvalidStatus
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListTicketFilter{
		UserID: req.UserID,
		Status: status,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListTicketsResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, ticketCursor)

	tickets := make([]domain.Ticket, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		tickets = append(tickets, *item)
	}

	resp := domain.ListTicketsResponse{Tickets: tickets}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *service) CountOpen(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.db, domain.ListTicketFilter{Status: domain.StatusOpen})
}

func (s *service) Reply(ctx context.Context, req domain.ReplyTicketRequest) (*domain.Ticket, error) {
	reply := strings.TrimSpace(req.Reply)
	if req.AdminID == 0 || reply == "" {
		return nil, domain.ErrMissingFields
	}

	ticket, err := s.GetByReference(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	if ticket.IsClosed() {
		return nil, domain.ErrTicketClosed
	}

	now := s.clock.Now()
	err = s.repo.UpdateFields(ctx, s.db, ticket.ID, map[string]any{
		"reply":      reply,
		"replied_by": req.AdminID,
		"replied_at": now,
		"status":     domain.StatusAnswered,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}

	ticket.Reply = reply
	ticket.RepliedBy = &req.AdminID
	ticket.RepliedAt = &now
	ticket.Status = domain.StatusAnswered
	ticket.UpdatedAt = now

	s.sendAnsweredMail(ctx, ticket)

	s.log.Info("ticket answered",
		zap.String("reference", ticket.Reference),
		zap.String("admin_id", req.AdminID.String()),
	)
	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionTicketReplied,
		TargetType: "ticket",
		TargetID:   ticket.Reference,
	})
	return ticket, nil
}

// Close is terminal and idempotent: closing a closed ticket returns it
// unchanged.
func (s *service) Close(ctx context.Context, reference string) (*domain.Ticket, error) {
	ticket, err := s.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if ticket.IsClosed() {
		return ticket, nil
	}

	now := s.clock.Now()
	err = s.repo.UpdateFields(ctx, s.db, ticket.ID, map[string]any{
		"status":     domain.StatusClosed,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}

	ticket.Status = domain.StatusClosed
	ticket.UpdatedAt = now
	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionTicketClosed,
		TargetType: "ticket",
		TargetID:   ticket.Reference,
	})
	return ticket, nil
}

func (s *service) Attach(ctx context.Context, req domain.AttachFileRequest) (*domain.Attachment, error) {
	name := safeFileName(req.FileName)
	if name == "" || req.Content == nil {
		return nil, domain.ErrMissingFields
	}

	ticket, err := s.GetByReference(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	if ticket.IsClosed() {
		return nil, domain.ErrTicketClosed
	}

	data, err := io.ReadAll(io.LimitReader(req.Content, maxAttachmentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxAttachmentBytes {
		return nil, domain.ErrAttachmentTooLarge
	}

	attachment := &domain.Attachment{
		ID:        s.genID.Generate(),
		TicketID:  ticket.ID,
		FileName:  name,
		SizeBytes: int64(len(data)),
		CreatedAt: s.clock.Now(),
	}
	attachment.StorageKey = fmt.Sprintf("tickets/%s/%s-%s", ticket.Reference, attachment.ID, name)

	if err := s.blobs.Save(ctx, attachment.StorageKey, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	if err := s.repo.InsertAttachment(ctx, s.db, attachment); err != nil {
		// Orphaned blobs are harmless; remove eagerly anyway.
		if rmErr := s.blobs.Delete(ctx, attachment.StorageKey); rmErr != nil {
			s.log.Warn("failed to remove orphaned attachment blob",
				zap.String("key", attachment.StorageKey), zap.Error(rmErr))
		}
		return nil, err
	}
	return attachment, nil
}

func (s *service) Attachments(ctx context.Context, ticketID snowflake.ID) ([]domain.Attachment, error) {
	return s.repo.ListAttachments(ctx, s.db, ticketID)
}

func (s *service) OpenAttachment(ctx context.Context, id snowflake.ID) (*domain.Attachment, io.ReadCloser, error) {
	attachment, err := s.repo.FindAttachment(ctx, s.db, id)
	if err != nil {
		return nil, nil, err
	}
	if attachment == nil {
		return nil, nil, domain.ErrAttachmentNotFound
	}

	rc, err := s.blobs.Open(ctx, attachment.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return attachment, rc, nil
}

func (s *service) sendAnsweredMail(ctx context.Context, ticket *domain.Ticket) {
	user, err := s.users.GetByID(ctx, ticket.UserID.String())
	if err != nil {
		s.log.Warn("failed to load ticket owner for mail",
			zap.String("reference", ticket.Reference), zap.Error(err))
		return
	}

	msg := email.Message{
		To:        []string{user.Email},
		Subject:   "Seu chamado foi respondido - " + ticket.Reference,
		Kind:      email.KindTicketAnswered,
		Title:     "Chamado respondido",
		Subtitle:  ticket.Subject,
		BodyLines: []string{"Nossa equipe respondeu ao seu chamado:", ticket.Reply},
		CTALabel:  "Ver chamado",
		CTAURL:    s.cfg.BaseURL + "/tickets/" + ticket.Reference,
		Footer:    "Em caso de dúvidas, procure o administrador do sistema.",
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.log.Warn("failed to send ticket answered mail",
			zap.String("reference", ticket.Reference), zap.Error(err))
	}
}

func ticketCursor(ticket *domain.Ticket) string {
	token, err := pagination.EncodeCursor(pagination.Cursor{
		ID:        ticket.ID.String(),
		CreatedAt: ticket.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return ""
	}
	return token
}

// safeFileName flattens a client-supplied name to its final path element.
func safeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
