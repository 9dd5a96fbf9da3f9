package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListTicketFilter struct {
	UserID snowflake.ID
	Status string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, ticket *Ticket) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Ticket, error)
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*Ticket, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	List(ctx context.Context, db *gorm.DB, filter ListTicketFilter, page pagination.Pagination) ([]*Ticket, error)
	Count(ctx context.Context, db *gorm.DB, filter ListTicketFilter) (int64, error)

	InsertAttachment(ctx context.Context, db *gorm.DB, attachment *Attachment) error
	FindAttachment(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Attachment, error)
	ListAttachments(ctx context.Context, db *gorm.DB, ticketID snowflake.ID) ([]Attachment, error)
}
