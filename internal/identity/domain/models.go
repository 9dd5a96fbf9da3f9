// Package domain contains core types for the identity service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusRejected = "rejected"
)

// User is an operator account. Signups start pending and only active
// accounts may log in. Matricula is the corporate registration number.
type User struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	Username           string       `gorm:"type:text;not null;uniqueIndex:idx_users_username" json:"username"`
	Email              string       `gorm:"type:text;not null;uniqueIndex:idx_users_email" json:"email"`
	FullName           string       `gorm:"type:text;not null" json:"full_name"`
	Matricula          string       `gorm:"type:text;not null" json:"matricula"`
	PasswordHash       string       `gorm:"type:text;not null" json:"-"`
	Role               string       `gorm:"type:text;not null" json:"role"`
	Status             string       `gorm:"type:text;not null" json:"status"`
	ForcePasswordReset bool         `gorm:"column:force_password_reset;not null" json:"force_password_reset"`
	PasswordChangedAt  time.Time    `gorm:"column:password_changed_at;not null" json:"password_changed_at"`
	TermsAcceptedAt    *time.Time   `gorm:"column:terms_accepted_at" json:"terms_accepted_at,omitempty"`
	LastLoginAt        *time.Time   `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// IsActive reports whether the account may log in.
func (u User) IsActive() bool { return u.Status == StatusActive }

// HasPassword reports whether the account finished credential setup.
// Pre-registered accounts carry an empty hash until the invite is used.
func (u User) HasPassword() bool { return u.PasswordHash != "" }

// PasswordExpired reports whether the credential aged past maxAge.
func (u User) PasswordExpired(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	if u.PasswordChangedAt.IsZero() {
		return true
	}
	return now.After(u.PasswordChangedAt.Add(maxAge))
}

// MustChangePassword reports whether login has to detour through the
// change-password step before anything else.
func (u User) MustChangePassword(now time.Time, maxAge time.Duration) bool {
	return u.ForcePasswordReset || u.PasswordExpired(now, maxAge)
}

// TermsAccepted reports whether the consent step was completed.
func (u User) TermsAccepted() bool { return u.TermsAcceptedAt != nil }
