package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/internal/ticket/domain"
	"github.com/locafrota/fleetsla/pkg/db/option"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, ticket *domain.Ticket) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tickets (id, reference, user_id, subject, body, status, reply,
			replied_by, replied_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.ID,
		ticket.Reference,
		ticket.UserID,
		ticket.Subject,
		ticket.Body,
		ticket.Status,
		ticket.Reply,
		ticket.RepliedBy,
		ticket.RepliedAt,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM tickets WHERE id = ?`, id,
	).Scan(&ticket).Error
	if err != nil {
		return nil, err
	}
	if ticket.ID == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM tickets WHERE reference = ?`, reference,
	).Scan(&ticket).Error
	if err != nil {
		return nil, err
	}
	if ticket.ID == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListTicketFilter, page pagination.Pagination) ([]*domain.Ticket, error) {
	var tickets []*domain.Ticket
	stmt := applyTicketFilter(db.WithContext(ctx).Model(&domain.Ticket{}), filter)
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, filter domain.ListTicketFilter) (int64, error) {
	var count int64
	stmt := applyTicketFilter(db.WithContext(ctx).Model(&domain.Ticket{}), filter)
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) InsertAttachment(ctx context.Context, db *gorm.DB, attachment *domain.Attachment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ticket_attachments (id, ticket_id, file_name, storage_key, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		attachment.ID,
		attachment.TicketID,
		attachment.FileName,
		attachment.StorageKey,
		attachment.SizeBytes,
		attachment.CreatedAt,
	).Error
}

func (r *repo) FindAttachment(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Attachment, error) {
	var attachment domain.Attachment
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM ticket_attachments WHERE id = ?`, id,
	).Scan(&attachment).Error
	if err != nil {
		return nil, err
	}
	if attachment.ID == 0 {
		return nil, nil
	}
	return &attachment, nil
}

func (r *repo) ListAttachments(ctx context.Context, db *gorm.DB, ticketID snowflake.ID) ([]domain.Attachment, error) {
	var attachments []domain.Attachment
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM ticket_attachments WHERE ticket_id = ? ORDER BY created_at asc, id asc`, ticketID,
	).Scan(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

func applyTicketFilter(stmt *gorm.DB, filter domain.ListTicketFilter) *gorm.DB {
	if filter.UserID != 0 {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	return stmt
}
