// Package domain contains the audit trail types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog is one recorded action. Actor and request fields come from the
// request context at record time.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"column:actor_type;type:text;not null" json:"actor_type"`
	ActorID    string            `gorm:"column:actor_id;type:text;not null;index" json:"actor_id"`
	ActorRole  string            `gorm:"column:actor_role;type:text;not null" json:"actor_role"`
	Action     string            `gorm:"type:text;not null;index" json:"action"`
	TargetType string            `gorm:"column:target_type;type:text;not null" json:"target_type"`
	TargetID   string            `gorm:"column:target_id;type:text;not null" json:"target_id"`
	RequestID  string            `gorm:"column:request_id;type:text;not null" json:"request_id"`
	IP         string            `gorm:"type:text;not null" json:"ip"`
	UserAgent  string            `gorm:"column:user_agent;type:text;not null" json:"user_agent"`
	Metadata   datatypes.JSONMap `gorm:"not null;default:'{}'" json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

const (
	ActorTypeUser   = "user"
	ActorTypeSystem = "system"
)

const (
	ActionLogin                   = "auth.login"
	ActionLoginFailed             = "auth.login_failed"
	ActionLogout                  = "auth.logout"
	ActionPasswordChanged         = "auth.password_changed"
	ActionPasswordResetRequested  = "auth.password_reset_requested"
	ActionPasswordResetCompleted  = "auth.password_reset_completed"
	ActionSignup                  = "user.signup"
	ActionUserPreRegistered       = "user.pre_registered"
	ActionUserApproved            = "user.approved"
	ActionUserRejected            = "user.rejected"
	ActionUserRoleChanged         = "user.role_changed"
	ActionUserDeleted             = "user.deleted"
	ActionTermsAccepted           = "user.terms_accepted"
	ActionAnalysisCreated         = "analysis.created"
	ActionAnalysisDeleted         = "analysis.deleted"
	ActionVehiclesImported        = "vehicles.imported"
	ActionReportExported          = "report.exported"
	ActionTicketCreated           = "ticket.created"
	ActionTicketReplied           = "ticket.replied"
	ActionTicketClosed            = "ticket.closed"
	ActionDeletionRequestCreated  = "deletion_request.created"
	ActionDeletionRequestApproved = "deletion_request.approved"
	ActionDeletionRequestRejected = "deletion_request.rejected"
	ActionAuthorizationDenied     = "authorization.denied"
)
