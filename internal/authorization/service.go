// Package authorization enforces role-based access over the application's
// capabilities. Policies live in the database through the casbin gorm
// adapter and are seeded on startup.
package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	ObjectCalculator      = "calculator"
	ObjectAnalysis        = "analysis"
	ObjectDeletionRequest = "deletion_request"
	ObjectVehicle         = "vehicle"
	ObjectReport          = "report"
	ObjectDashboard       = "dashboard"
	ObjectTicket          = "ticket"
	ObjectUser            = "user"
	ObjectAuditLog        = "audit_log"
	ObjectAssistant       = "assistant"
)

const (
	ActionCalculatorUse = "calculator.use"

	ActionAnalysisCreate  = "analysis.create"
	ActionAnalysisView    = "analysis.view"
	ActionAnalysisViewAll = "analysis.view_all"
	ActionAnalysisDelete  = "analysis.delete"

	ActionDeletionRequestCreate = "deletion_request.create"
	ActionDeletionRequestReview = "deletion_request.review"

	ActionVehicleView   = "vehicle.view"
	ActionVehicleImport = "vehicle.import"

	ActionReportExport  = "report.export"
	ActionDashboardView = "dashboard.view"

	ActionTicketCreate = "ticket.create"
	ActionTicketView   = "ticket.view"
	ActionTicketReply  = "ticket.reply"

	ActionUserManage = "user.manage"

	ActionAuditLogView = "audit_log.view"

	ActionAssistantUse = "assistant.use"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

// SubjectSystem identifies automated callers such as scheduler jobs.
const SubjectSystem = "system"

// SubjectForUser builds the casbin subject for a user id.
func SubjectForUser(id snowflake.ID) string {
	return "user:" + id.String()
}

type Service interface {
	// Authorize checks whether the subject, acting under role, may perform
	// action on object. A denial is written to the audit trail.
	Authorize(ctx context.Context, subject string, role string, object string, action string) error
}
