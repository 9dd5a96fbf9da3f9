// Package domain defines the chat helper contract. The helper answers
// fleet maintenance and SLA questions for signed-in users; it keeps no
// conversation state, callers resend the turns they want in context.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrDisabled      = errors.New("assistant_disabled")
	ErrMissingFields = errors.New("missing_required_fields")
	ErrInvalidRole   = errors.New("invalid_message_role")
	ErrUpstream      = errors.New("assistant_unavailable")
)

// RateLimitedError reports that the user's message budget is spent.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string { return "assistant_rate_limited" }

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn in the completion wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidHistoryRole reports whether clients may submit a turn with this
// role. The system turn is always injected server side.
func ValidHistoryRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

type ChatRequest struct {
	UserID  snowflake.ID
	History []Message
	Prompt  string
}

type ChatReply struct {
	Reply string
	Model string
}

type Service interface {
	// Enabled reports whether an API key is configured.
	Enabled() bool

	Chat(ctx context.Context, req ChatRequest) (*ChatReply, error)
}
