// Package domain contains the admin reporting types: dashboard aggregates
// and the spreadsheet export contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
)

// KindTotals splits the analysis count by record kind.
type KindTotals struct {
	Simple     int64 `json:"simple"`
	Comparison int64 `json:"comparison"`
}

// UserActivity is one row of the per-user breakdown, busiest users first.
type UserActivity struct {
	UserID   snowflake.ID `json:"user_id"`
	Username string       `json:"username"`
	Analyses int64        `json:"analyses"`
	LastAt   time.Time    `json:"last_at"`
}

// Dashboard is the admin landing summary. Pending figures come from the
// owning services; this package never reaches into their tables.
type Dashboard struct {
	TotalAnalyses    int64                     `json:"total_analyses"`
	Totals           KindTotals                `json:"totals"`
	TopUsers         []UserActivity            `json:"top_users"`
	Recent           []analysisdomain.Analysis `json:"recent"`
	PendingUsers     int64                     `json:"pending_users"`
	PendingDeletions int64                     `json:"pending_deletions"`
	OpenTickets      int64                     `json:"open_tickets"`
}
