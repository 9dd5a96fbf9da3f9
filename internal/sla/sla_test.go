package sla

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func evalInput(entry, exit time.Time, holidays int, svc ServiceType, fee string) EvaluationInput {
	return EvaluationInput{
		EntryDate:   entry,
		ExitDate:    exit,
		Holidays:    holidays,
		ServiceType: svc,
		MonthlyFee:  decimal.RequireFromString(fee),
	}
}

// Range boundaries first: the counter spans [entry, exit+1d), so entry and
// exit are both inclusive. Getting this off by one silently shifts every
// discount downstream.
func TestCountBusinessDays_Boundaries(t *testing.T) {
	monday := date(2024, time.January, 1)
	saturday := date(2024, time.January, 6)
	sunday := date(2024, time.January, 7)

	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"same weekday counts once", monday, monday.AddDate(0, 0, 1), 1},
		{"same saturday counts zero", saturday, saturday.AddDate(0, 0, 1), 0},
		{"same sunday counts zero", sunday, sunday.AddDate(0, 0, 1), 0},
		{"monday through tuesday", monday, date(2024, time.January, 3), 2},
		{"full week mon-sun", monday, date(2024, time.January, 8), 5},
		{"weekend only", saturday, date(2024, time.January, 8), 0},
		{"friday to monday spans weekend", date(2024, time.January, 5), date(2024, time.January, 9), 2},
		{"empty half-open range", monday, monday, 0},
		{"inverted range yields zero", monday, date(2023, time.December, 25), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountBusinessDays(tt.from, tt.to))
		})
	}
}

func TestCountBusinessDays_IgnoresTimeOfDay(t *testing.T) {
	from := time.Date(2024, time.January, 1, 23, 59, 0, 0, time.UTC)
	to := time.Date(2024, time.January, 2, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, CountBusinessDays(from, to))
}

func TestEvaluate_WithinSLA(t *testing.T) {
	// Entry Mon 2024-01-01, exit Tue 2024-01-02, threshold 2.
	out := Evaluate(evalInput(date(2024, time.January, 1), date(2024, time.January, 2), 0, ServicePreventive, "3000"), DefaultThresholds())

	assert.Equal(t, 2, out.BusinessDays)
	assert.Equal(t, 2, out.ThresholdDays)
	assert.Equal(t, 0, out.ExcessDays)
	assert.True(t, out.Discount.IsZero())
	assert.Equal(t, StatusWithinSLA, out.Status)
}

func TestEvaluate_OutOfSLAProRatesDiscount(t *testing.T) {
	// Entry Mon 2024-01-01, exit Wed 2024-01-10: 8 business days in range,
	// corrective threshold 3, fee 3000 -> 5 excess days at 100/day.
	out := Evaluate(evalInput(date(2024, time.January, 1), date(2024, time.January, 10), 0, ServiceCorrective, "3000"), DefaultThresholds())

	require.Equal(t, 8, out.BusinessDays)
	assert.Equal(t, 3, out.ThresholdDays)
	assert.Equal(t, 5, out.ExcessDays)
	assert.Equal(t, "500", out.Discount.String())
	assert.Equal(t, StatusOutOfSLA, out.Status)
}

func TestEvaluate_HolidaysReduceBusinessDays(t *testing.T) {
	out := Evaluate(evalInput(date(2024, time.January, 1), date(2024, time.January, 10), 2, ServiceCorrective, "3000"), DefaultThresholds())

	assert.Equal(t, 6, out.BusinessDays)
	assert.Equal(t, 3, out.ExcessDays)
	assert.Equal(t, "300", out.Discount.String())
}

func TestEvaluate_HolidaysClampToZeroNotNegative(t *testing.T) {
	out := Evaluate(evalInput(date(2024, time.January, 1), date(2024, time.January, 2), 10, ServicePreventive, "3000"), DefaultThresholds())

	assert.Equal(t, 0, out.BusinessDays)
	assert.Equal(t, 0, out.ExcessDays)
	assert.True(t, out.Discount.IsZero())
	assert.Equal(t, StatusWithinSLA, out.Status)
}

func TestEvaluate_UnknownServiceTypeUsesZeroThreshold(t *testing.T) {
	// One business day against a zero threshold is already excess.
	out := Evaluate(evalInput(date(2024, time.January, 1), date(2024, time.January, 1), 0, ServiceType("upholstery"), "3000"), DefaultThresholds())

	require.Equal(t, 1, out.BusinessDays)
	assert.Equal(t, 0, out.ThresholdDays)
	assert.Equal(t, 1, out.ExcessDays)
	assert.Equal(t, "100", out.Discount.String())
	assert.Equal(t, StatusOutOfSLA, out.Status)
}

func TestEvaluate_SameDayEntryExit(t *testing.T) {
	weekday := Evaluate(evalInput(date(2024, time.January, 1), date(2024, time.January, 1), 0, ServiceEngine, "900"), DefaultThresholds())
	assert.Equal(t, 1, weekday.BusinessDays)

	weekend := Evaluate(evalInput(date(2024, time.January, 6), date(2024, time.January, 6), 0, ServiceEngine, "900"), DefaultThresholds())
	assert.Equal(t, 0, weekend.BusinessDays)
}

func TestEvaluate_ZeroFeeYieldsZeroDiscount(t *testing.T) {
	out := Evaluate(evalInput(date(2024, time.January, 1), date(2024, time.January, 10), 0, ServiceCorrective, "0"), DefaultThresholds())

	assert.Equal(t, 5, out.ExcessDays)
	assert.True(t, out.Discount.IsZero())
}

func TestEvaluate_DiscountRoundsToCents(t *testing.T) {
	// 1000/30 = 33.333... per day; one excess day rounds half-up to 33.33.
	out := Evaluate(evalInput(date(2024, time.January, 1), date(2024, time.January, 1), 0, ServiceType("unknown"), "1000"), DefaultThresholds())

	assert.Equal(t, "33.33", out.Discount.StringFixed(2))
}

func TestEvaluate_StatusPartitionsOnThreshold(t *testing.T) {
	th := DefaultThresholds()
	entry := date(2024, time.January, 1)

	for exitOffset := 0; exitOffset < 30; exitOffset++ {
		out := Evaluate(evalInput(entry, entry.AddDate(0, 0, exitOffset), 0, ServiceCorrective, "3000"), th)
		if out.BusinessDays <= out.ThresholdDays {
			assert.Equal(t, StatusWithinSLA, out.Status)
			assert.Zero(t, out.ExcessDays)
		} else {
			assert.Equal(t, StatusOutOfSLA, out.Status)
			assert.Positive(t, out.ExcessDays)
		}
	}
}

func TestEvaluate_DiscountNonNegative(t *testing.T) {
	th := DefaultThresholds()
	fees := []string{"0", "0.01", "150.50", "3000", "99999.99"}
	entry := date(2024, time.March, 4)

	for _, fee := range fees {
		for offset := 0; offset < 25; offset++ {
			out := Evaluate(evalInput(entry, entry.AddDate(0, 0, offset), 1, ServicePreventiveCorrective, fee), th)
			assert.False(t, out.Discount.IsNegative(), "fee=%s offset=%d", fee, offset)
			if out.ExcessDays == 0 {
				assert.True(t, out.Discount.IsZero(), "fee=%s offset=%d", fee, offset)
			}
		}
	}
}

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, 2, th.Days(ServicePreventive))
	assert.Equal(t, 3, th.Days(ServiceCorrective))
	assert.Equal(t, 5, th.Days(ServicePreventiveCorrective))
	assert.Equal(t, 15, th.Days(ServiceEngine))
	assert.Equal(t, 0, th.Days(ServiceType("bodywork")))
}
