// Package domain contains core types for the vehicle client base.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Vehicle maps a fleet plate to the paying client and its monthly fee.
type Vehicle struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	Plate      string          `gorm:"type:text;not null;uniqueIndex:idx_vehicles_plate" json:"plate"`
	ClientName string          `gorm:"type:text;not null;index:idx_vehicles_client_name" json:"client_name"`
	MonthlyFee decimal.Decimal `gorm:"type:numeric;not null" json:"monthly_fee"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Vehicle) TableName() string { return "vehicles" }

// NormalizePlate uppercases and strips everything outside A-Z0-9, so
// "abc-1d23" and "ABC1D23" address the same vehicle.
func NormalizePlate(plate string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(plate)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
