// Package domain contains support ticket types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Ticket lifecycle. A ticket carries at most one staff reply; replying
// moves it to answered, closing is terminal.
const (
	StatusOpen     = "open"
	StatusAnswered = "answered"
	StatusClosed   = "closed"
)

func ValidStatus(status string) bool {
	return status == StatusOpen || status == StatusAnswered || status == StatusClosed
}

// Ticket is one support request. Reference is the user-facing identifier
// printed in mails and URLs; the snowflake ID stays internal.
type Ticket struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	Reference string        `gorm:"type:text;not null;uniqueIndex:idx_tickets_reference" json:"reference"`
	UserID    snowflake.ID  `gorm:"column:user_id;not null;index:idx_tickets_user_id" json:"user_id"`
	Subject   string        `gorm:"type:text;not null" json:"subject"`
	Body      string        `gorm:"type:text;not null" json:"body"`
	Status    string        `gorm:"type:text;not null;default:'open';index:idx_tickets_status" json:"status"`
	Reply     string        `gorm:"type:text;not null;default:''" json:"reply,omitempty"`
	RepliedBy *snowflake.ID `gorm:"column:replied_by" json:"replied_by,omitempty"`
	RepliedAt *time.Time    `gorm:"column:replied_at" json:"replied_at,omitempty"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Ticket) TableName() string { return "tickets" }

func (t *Ticket) IsClosed() bool { return t.Status == StatusClosed }

// Attachment is one uploaded file on a ticket. The bytes live in the blob
// store under StorageKey; the key never leaves the service.
type Attachment struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TicketID   snowflake.ID `gorm:"column:ticket_id;not null;index:idx_ticket_attachments_ticket_id" json:"ticket_id"`
	FileName   string       `gorm:"column:file_name;type:text;not null" json:"file_name"`
	StorageKey string       `gorm:"column:storage_key;type:text;not null" json:"-"`
	SizeBytes  int64        `gorm:"column:size_bytes;not null;default:0" json:"size_bytes"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Attachment) TableName() string { return "ticket_attachments" }
