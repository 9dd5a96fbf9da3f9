package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrMissingFields   = errors.New("missing_required_fields")
	ErrNotFound        = errors.New("deletion_request_not_found")
	ErrNotOwner        = errors.New("analysis_not_owned")
	ErrDuplicate       = errors.New("deletion_already_requested")
	ErrAlreadyReviewed = errors.New("deletion_request_already_reviewed")
	ErrNotesRequired   = errors.New("review_notes_required")
	ErrInvalidStatus   = errors.New("invalid_request_status")
)

type CreateRequest struct {
	Protocol    string
	RequestedBy snowflake.ID
	Reason      string
}

// ReviewRequest settles one pending petition. Notes are mandatory on a
// rejection and optional on an approval.
type ReviewRequest struct {
	ID         snowflake.ID
	ReviewerID snowflake.ID
	Approve    bool
	Notes      string
}

type ListRequest struct {
	Status      string
	RequestedBy snowflake.ID
	Limit       int
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*DeletionRequest, error)
	Get(ctx context.Context, id snowflake.ID) (*DeletionRequest, error)
	List(ctx context.Context, req ListRequest) ([]DeletionRequest, error)
	CountPending(ctx context.Context) (int64, error)
	// Review approves or rejects a pending request. Approval removes the
	// analysis row and its rendered document before the request flips state.
	Review(ctx context.Context, req ReviewRequest) (*DeletionRequest, error)
}
