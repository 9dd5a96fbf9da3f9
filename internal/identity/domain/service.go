package domain

import (
	"context"
	"errors"

	"github.com/locafrota/fleetsla/pkg/db/pagination"
)

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("user_not_found")
	ErrMissingFields    = errors.New("missing_fields")
	ErrPasswordMismatch = errors.New("password_mismatch")
	ErrWeakPassword     = errors.New("weak_password")
	ErrUsernameTaken    = errors.New("username_taken")
	ErrEmailTaken       = errors.New("email_taken")
	ErrInvalidRole      = errors.New("invalid_role")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrProtectedUser    = errors.New("protected_user")
)

// PolicyError carries the password policy violations for the signup and
// change-password forms. It unwraps to ErrWeakPassword.
type PolicyError struct {
	Problems []string
}

func (e *PolicyError) Error() string { return ErrWeakPassword.Error() }

func (e *PolicyError) Unwrap() error { return ErrWeakPassword }

type SignupRequest struct {
	Username        string
	FullName        string
	Matricula       string
	Email           string
	Password        string
	PasswordConfirm string
}

type PreRegisterRequest struct {
	Username  string
	FullName  string
	Matricula string
	Email     string
	Role      string
}

type ListUsersRequest struct {
	Status    string
	Role      string
	Search    string
	PageToken string
	PageSize  int
}

type ListUsersResponse struct {
	Users    []User
	PageInfo pagination.PageInfo
}

type SetRoleRequest struct {
	UserID string
	Role   string
}

type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*User, error)
	PreRegister(ctx context.Context, req PreRegisterRequest) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, req ListUsersRequest) (ListUsersResponse, error)
	CountPending(ctx context.Context) (int64, error)
	Approve(ctx context.Context, id string) (*User, error)
	Reject(ctx context.Context, id string) (*User, error)
	SetRole(ctx context.Context, req SetRoleRequest) (*User, error)
	Delete(ctx context.Context, id string) error
	AcceptTerms(ctx context.Context, id string) error
}
