package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
)

type LoginRequest struct {
	Username  string
	Password  string
	IP        string
	UserAgent string
}

// LoginResult reports a successful login plus the gates the UI must walk
// through before the account reaches the home screen.
type LoginResult struct {
	User               *identitydomain.User
	RawToken           string
	ExpiresAt          time.Time
	MustAcceptTerms    bool
	MustChangePassword bool
}

type ChangePasswordRequest struct {
	UserID          snowflake.ID
	NewPassword     string
	PasswordConfirm string
}

type ResetPasswordRequest struct {
	RawToken        string
	NewPassword     string
	PasswordConfirm string
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*identitydomain.User, *Session, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	IssueSetupLink(ctx context.Context, userID snowflake.ID) (string, error)
}
