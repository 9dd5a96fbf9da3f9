package sla

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceType names a maintenance category bound to a contractual
// turnaround limit in business days.
type ServiceType string

const (
	ServicePreventive           ServiceType = "preventive"
	ServiceCorrective           ServiceType = "corrective"
	ServicePreventiveCorrective ServiceType = "preventive_corrective"
	ServiceEngine               ServiceType = "engine"
)

// Statuses partition every evaluation on businessDays <= thresholdDays.
const (
	StatusWithinSLA = "within SLA"
	StatusOutOfSLA  = "out of SLA"
)

// Thresholds maps service types to their SLA limit in business days.
// The mapping is process-wide read-only configuration.
type Thresholds map[ServiceType]int

// DefaultThresholds returns the contractual mapping.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ServicePreventive:           2,
		ServiceCorrective:           3,
		ServicePreventiveCorrective: 5,
		ServiceEngine:               15,
	}
}

// Days returns the limit for t. Unknown service types resolve to 0,
// the maximally strict fallback: every elapsed business day counts as
// excess. That is a documented contract, not an error.
func (th Thresholds) Days(t ServiceType) int {
	return th[t]
}

// EvaluationInput carries one user submission. ExitDate is expected to be
// on or after EntryDate and Holidays and MonthlyFee non-negative; enforcing
// that is the form boundary's job, not the evaluator's.
type EvaluationInput struct {
	EntryDate   time.Time       `json:"entry_date"`
	ExitDate    time.Time       `json:"exit_date"`
	Holidays    int             `json:"holidays"`
	ServiceType ServiceType     `json:"service_type"`
	MonthlyFee  decimal.Decimal `json:"monthly_fee"`
}

// Evaluation is the immutable result of one SLA evaluation. Records are
// never corrected in place; a correction is a new evaluation.
type Evaluation struct {
	EntryDate     time.Time       `json:"entry_date"`
	ExitDate      time.Time       `json:"exit_date"`
	Holidays      int             `json:"holidays"`
	ServiceType   ServiceType     `json:"service_type"`
	MonthlyFee    decimal.Decimal `json:"monthly_fee"`
	BusinessDays  int             `json:"business_days"`
	ThresholdDays int             `json:"threshold_days"`
	ExcessDays    int             `json:"excess_days"`
	Discount      decimal.Decimal `json:"discount"`
	Status        string          `json:"status"`
}

var thirty = decimal.NewFromInt(30)

// CountBusinessDays counts Mondays through Fridays in the half-open range
// [from, to). Time-of-day is ignored. Callers wanting both calendar
// endpoints included pass to = exit plus one day; Evaluate does exactly
// that, so an entry and exit on the same weekday count as one day.
func CountBusinessDays(from, to time.Time) int {
	from = truncateDay(from)
	to = truncateDay(to)

	n := 0
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			n++
		}
	}
	return n
}

// Evaluate computes elapsed business days net of holidays, the excess over
// the service type's threshold and the pro-rated discount. It is pure and
// never fails: inverted ranges, oversized holiday counts, zero fees and
// unknown service types all collapse into the clamped values below.
//
//  1. businessDays = weekdays in [entry, exit+1d), minus holidays,
//     floored at 0.
//  2. excessDays = max(0, businessDays - threshold).
//  3. discount = (monthlyFee / 30) * excessDays when excessDays > 0,
//     else exactly zero. The divisor is a fixed 30-day month regardless
//     of the actual calendar month; contract compatibility depends on it.
//
// Money stays decimal end to end; the discount is rounded to cents here
// and never recomputed from a formatted string.
func Evaluate(in EvaluationInput, thresholds Thresholds) Evaluation {
	raw := CountBusinessDays(in.EntryDate, in.ExitDate.AddDate(0, 0, 1))

	days := raw - in.Holidays
	if days < 0 {
		days = 0
	}

	threshold := thresholds.Days(in.ServiceType)

	excess := days - threshold
	if excess < 0 {
		excess = 0
	}

	discount := decimal.Zero
	if excess > 0 {
		discount = in.MonthlyFee.Div(thirty).Mul(decimal.NewFromInt(int64(excess))).Round(2)
	}

	status := StatusOutOfSLA
	if days <= threshold {
		status = StatusWithinSLA
	}

	return Evaluation{
		EntryDate:     truncateDay(in.EntryDate),
		ExitDate:      truncateDay(in.ExitDate),
		Holidays:      in.Holidays,
		ServiceType:   in.ServiceType,
		MonthlyFee:    in.MonthlyFee,
		BusinessDays:  days,
		ThresholdDays: threshold,
		ExcessDays:    excess,
		Discount:      discount,
		Status:        status,
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
