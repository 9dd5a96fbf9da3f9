// Package domain contains the persisted analysis record and its payload
// variants.
package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/internal/sla"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Kind discriminates the payload union.
type Kind string

const (
	KindSimple     Kind = "sla_monthly"
	KindComparison Kind = "scenarios"
)

func (k Kind) Valid() bool {
	return k == KindSimple || k == KindComparison
}

// Analysis is one persisted evaluator or ranker run. The computed figures
// are immutable after insert; only PDFPath may change once the rendered
// document exists.
type Analysis struct {
	ID         snowflake.ID     `gorm:"primaryKey" json:"id"`
	Protocol   string           `gorm:"type:text;not null;uniqueIndex:idx_analyses_protocol" json:"protocol"`
	UserID     snowflake.ID     `gorm:"column:user_id;not null;index:idx_analyses_user_id" json:"user_id"`
	Username   string           `gorm:"type:text;not null;default:''" json:"username"`
	Kind       Kind             `gorm:"type:text;not null;index:idx_analyses_kind" json:"kind"`
	ClientName string           `gorm:"column:client_name;type:text;not null;default:''" json:"client_name"`
	Plate      string           `gorm:"type:text;not null;default:''" json:"plate"`
	Payload    datatypes.JSON   `gorm:"not null" json:"payload"`
	FinalTotal decimal.Decimal  `gorm:"column:final_total;type:numeric;not null" json:"final_total"`
	Savings    *decimal.Decimal `gorm:"type:numeric" json:"savings,omitempty"`
	PDFPath    string           `gorm:"column:pdf_path;type:text;not null;default:''" json:"pdf_path"`
	RecordedAt time.Time        `gorm:"column:recorded_at;not null;index:idx_analyses_recorded_at" json:"recorded_at"`
	CreatedAt  time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Analysis) TableName() string { return "analyses" }

// ErrPayloadKind is returned when a payload accessor does not match the
// record's kind.
var ErrPayloadKind = errors.New("payload_kind_mismatch")

// SimpleRecord is the payload of a single-service analysis. The embedded
// evaluation keeps its figures flat in the stored JSON.
type SimpleRecord struct {
	Client string `json:"client"`
	Plate  string `json:"plate"`
	sla.Evaluation
}

// ComparisonRecord is the payload of a scenario comparison. Savings is nil
// when the set tied; a zero amount is never stored.
type ComparisonRecord struct {
	Scenarios []sla.Scenario   `json:"scenarios"`
	BestIndex int              `json:"best_index"`
	Savings   *decimal.Decimal `json:"savings,omitempty"`
}

// Simple decodes the payload of a sla_monthly record.
func (a *Analysis) Simple() (*SimpleRecord, error) {
	if a.Kind != KindSimple {
		return nil, ErrPayloadKind
	}
	var rec SimpleRecord
	if err := json.Unmarshal(a.Payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Comparison decodes the payload of a scenarios record.
func (a *Analysis) Comparison() (*ComparisonRecord, error) {
	if a.Kind != KindComparison {
		return nil, ErrPayloadKind
	}
	var rec ComparisonRecord
	if err := json.Unmarshal(a.Payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
