package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountPending     = errors.New("account_pending")
	ErrAccountRejected    = errors.New("account_rejected")
	ErrAccountNoPassword  = errors.New("account_without_password")
	ErrInvalidSession     = errors.New("invalid_session")
	ErrSessionExpired     = errors.New("session_expired")
	ErrSessionRevoked     = errors.New("session_revoked")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrTokenExpired       = errors.New("token_expired")
	ErrMissingFields      = errors.New("missing_fields")
	ErrPasswordMismatch   = errors.New("password_mismatch")
	ErrSamePassword       = errors.New("same_password")
	ErrEmailNotFound      = errors.New("email_not_found")
	ErrUserNotFound       = errors.New("user_not_found")
)
