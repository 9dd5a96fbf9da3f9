package domain

import (
	"context"
	"errors"
	"io"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
)

var (
	ErrMissingFields      = errors.New("missing_required_fields")
	ErrNotFound           = errors.New("ticket_not_found")
	ErrTicketClosed       = errors.New("ticket_closed")
	ErrInvalidStatus      = errors.New("invalid_ticket_status")
	ErrAttachmentNotFound = errors.New("attachment_not_found")
	ErrAttachmentTooLarge = errors.New("attachment_too_large")
)

type CreateTicketRequest struct {
	UserID  snowflake.ID
	Subject string
	Body    string
}

type ReplyTicketRequest struct {
	Reference string
	AdminID   snowflake.ID
	Reply     string
}

// AttachFileRequest uploads one file onto an existing ticket. Content is
// drained fully; oversized uploads fail before anything is stored.
type AttachFileRequest struct {
	Reference string
	FileName  string
	Content   io.Reader
}

type ListTicketsRequest struct {
	// UserID scopes the listing to one requester; zero lists everyone,
	// which only the admin surface exposes.
	UserID    snowflake.ID
	Status    string
	PageToken string
	PageSize  int
}

type ListTicketsResponse struct {
	Tickets  []Ticket            `json:"tickets"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	Create(ctx context.Context, req CreateTicketRequest) (*Ticket, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Ticket, error)
	GetByReference(ctx context.Context, reference string) (*Ticket, error)
	List(ctx context.Context, req ListTicketsRequest) (ListTicketsResponse, error)
	CountOpen(ctx context.Context) (int64, error)
	Reply(ctx context.Context, req ReplyTicketRequest) (*Ticket, error)
	Close(ctx context.Context, reference string) (*Ticket, error)
	Attach(ctx context.Context, req AttachFileRequest) (*Attachment, error)
	Attachments(ctx context.Context, ticketID snowflake.ID) ([]Attachment, error)
	// OpenAttachment returns the stored metadata and a reader over the
	// blob. The caller owns closing the reader.
	OpenAttachment(ctx context.Context, id snowflake.ID) (*Attachment, io.ReadCloser, error)
}
