// Package domain contains the analysis deletion-request workflow types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

func ValidStatus(status string) bool {
	return status == StatusPending || status == StatusApproved || status == StatusRejected
}

// DeletionRequest is one user petition to remove an analysis. Protocol is
// denormalized so the request history stays readable after an approval
// deletes the analysis row itself.
type DeletionRequest struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	AnalysisID  snowflake.ID  `gorm:"column:analysis_id;not null;index:idx_deletion_requests_analysis_id" json:"analysis_id"`
	Protocol    string        `gorm:"type:text;not null" json:"protocol"`
	RequestedBy snowflake.ID  `gorm:"column:requested_by;not null;index:idx_deletion_requests_requested_by" json:"requested_by"`
	Reason      string        `gorm:"type:text;not null" json:"reason"`
	Status      string        `gorm:"type:text;not null;default:'pending';index:idx_deletion_requests_status" json:"status"`
	ReviewedBy  *snowflake.ID `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewNotes string        `gorm:"column:review_notes;type:text;not null;default:''" json:"review_notes,omitempty"`
	RequestedAt time.Time     `gorm:"column:requested_at;not null" json:"requested_at"`
	ReviewedAt  *time.Time    `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
}

// TableName sets the database table name.
func (DeletionRequest) TableName() string { return "deletion_requests" }

func (r *DeletionRequest) IsPending() bool { return r.Status == StatusPending }
