package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
)

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)

// Entry is what callers hand to the recorder. Actor, request id and client
// address are taken from the request context at record time.
type Entry struct {
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

// Recorder persists audit entries. Record never fails the calling operation;
// write problems are logged and dropped.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// AuditCursor marks a position in the audit stream for keyset paging.
type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	ActorID    string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}

type ListAuditLogRequest struct {
	Action     string
	ActorID    string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
	PageToken  string
	PageSize   int
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	Recorder
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}
