package sla

import "github.com/shopspring/decimal"

// PartCost is one non-negative extra cost line item attached to a scenario.
type PartCost struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Scenario is one fully evaluated candidate in a comparison set: an SLA
// evaluation plus itemized part costs and the resulting final total.
type Scenario struct {
	Label      string          `json:"label"`
	Evaluation Evaluation      `json:"evaluation"`
	Parts      []PartCost      `json:"parts,omitempty"`
	FinalTotal decimal.Decimal `json:"final_total"`
}

// NewScenario computes the scenario's final total:
// (monthlyFee - discount) + sum(parts), rounded to cents. Part amounts
// accumulate as decimals; nothing round-trips through a display string.
func NewScenario(label string, eval Evaluation, parts []PartCost) Scenario {
	total := eval.MonthlyFee.Sub(eval.Discount)
	for _, p := range parts {
		total = total.Add(p.Amount)
	}
	return Scenario{
		Label:      label,
		Evaluation: eval,
		Parts:      parts,
		FinalTotal: total.Round(2),
	}
}

// PartsTotal sums the scenario's line items.
func (s Scenario) PartsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Parts {
		total = total.Add(p.Amount)
	}
	return total.Round(2)
}

// Ranking is the outcome of comparing a scenario set.
type Ranking struct {
	Best      Scenario `json:"best"`
	BestIndex int      `json:"best_index"`
	// Savings is the spread between the most and least expensive
	// scenario. Nil unless the set has at least two members and the
	// spread is strictly positive: an all-tied set reports no savings
	// at all, never a zero amount.
	Savings *decimal.Decimal `json:"savings,omitempty"`
}

// Rank selects the scenario with the minimum final total, ties broken by
// first occurrence. Ranking is order-invariant apart from that stability
// rule. Calling Rank with an empty set is a caller contract violation;
// it returns a zero Ranking with BestIndex -1 rather than panicking, but
// the comparison flow gates on a two-scenario minimum before ever
// reaching it.
func Rank(scenarios []Scenario) Ranking {
	if len(scenarios) == 0 {
		return Ranking{BestIndex: -1}
	}

	best := 0
	max := scenarios[0].FinalTotal
	for i := 1; i < len(scenarios); i++ {
		if scenarios[i].FinalTotal.LessThan(scenarios[best].FinalTotal) {
			best = i
		}
		if scenarios[i].FinalTotal.GreaterThan(max) {
			max = scenarios[i].FinalTotal
		}
	}

	r := Ranking{Best: scenarios[best], BestIndex: best}
	if len(scenarios) >= 2 {
		if spread := max.Sub(scenarios[best].FinalTotal); spread.IsPositive() {
			spread = spread.Round(2)
			r.Savings = &spread
		}
	}
	return r
}
