// Package domain holds the per-session comparison working set.
package domain

import (
	"time"

	"github.com/locafrota/fleetsla/internal/sla"
)

// Set accumulates evaluated scenarios for one session's comparison flow.
// Scenario figures freeze at add time; a threshold change between add and
// finalize does not rewrite what the user already saw.
type Set struct {
	SessionID string         `json:"session_id"`
	Client    string         `json:"client"`
	Plate     string         `json:"plate"`
	Scenarios []sla.Scenario `json:"scenarios"`
	UpdatedAt time.Time      `json:"updated_at"`
}
