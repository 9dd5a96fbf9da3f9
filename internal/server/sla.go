package server

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	"github.com/locafrota/fleetsla/internal/sla"
)

type EvaluateRequest struct {
	Client      string          `json:"client"`
	Plate       string          `json:"plate"`
	EntryDate   string          `json:"entry_date"`
	ExitDate    string          `json:"exit_date"`
	Holidays    int             `json:"holidays"`
	ServiceType string          `json:"service_type"`
	MonthlyFee  decimal.Decimal `json:"monthly_fee"`
}

// evaluationInput enforces the form-boundary contract: parseable dates, a
// non-inverted range and non-negative holidays and fee. The evaluator itself
// accepts anything.
func (req EvaluateRequest) evaluationInput() (sla.EvaluationInput, error) {
	entry, err := parseOptionalTime(req.EntryDate, false)
	if err != nil || entry == nil {
		return sla.EvaluationInput{}, newValidationError("entry_date", "invalid_date", "entry_date must be an RFC 3339 timestamp or a YYYY-MM-DD date")
	}
	exit, err := parseOptionalTime(req.ExitDate, false)
	if err != nil || exit == nil {
		return sla.EvaluationInput{}, newValidationError("exit_date", "invalid_date", "exit_date must be an RFC 3339 timestamp or a YYYY-MM-DD date")
	}
	if exit.Before(*entry) {
		return sla.EvaluationInput{}, newValidationError("exit_date", "invalid_time_range", "exit_date must be on or after entry_date")
	}
	if req.Holidays < 0 {
		return sla.EvaluationInput{}, newValidationError("holidays", "invalid_holidays", "holidays cannot be negative")
	}
	if req.MonthlyFee.IsNegative() {
		return sla.EvaluationInput{}, newValidationError("monthly_fee", "invalid_monthly_fee", "monthly_fee cannot be negative")
	}
	return sla.EvaluationInput{
		EntryDate:   *entry,
		ExitDate:    *exit,
		Holidays:    req.Holidays,
		ServiceType: sla.ServiceType(req.ServiceType),
		MonthlyFee:  req.MonthlyFee,
	}, nil
}

type serviceTypeView struct {
	Value         string `json:"value"`
	Label         string `json:"label"`
	ThresholdDays int    `json:"threshold_days"`
}

var serviceTypeLabels = map[sla.ServiceType]string{
	sla.ServicePreventive:           "Preventiva",
	sla.ServiceCorrective:           "Corretiva",
	sla.ServicePreventiveCorrective: "Preventiva + Corretiva",
	sla.ServiceEngine:               "Motor",
}

var serviceTypeOrder = []sla.ServiceType{
	sla.ServicePreventive,
	sla.ServiceCorrective,
	sla.ServicePreventiveCorrective,
	sla.ServiceEngine,
}

// EvaluateForm feeds the calculator page: the configured service types with
// their current limits, in a stable order.
func (s *Server) EvaluateForm(c *gin.Context) {
	thresholds := s.slaCfg.Thresholds()

	views := make([]serviceTypeView, 0, len(thresholds))
	seen := make(map[sla.ServiceType]bool, len(thresholds))
	for _, svc := range serviceTypeOrder {
		days, ok := thresholds[svc]
		if !ok {
			continue
		}
		seen[svc] = true
		views = append(views, serviceTypeView{
			Value:         string(svc),
			Label:         serviceTypeLabels[svc],
			ThresholdDays: days,
		})
	}

	extras := make([]sla.ServiceType, 0)
	for svc := range thresholds {
		if !seen[svc] {
			extras = append(extras, svc)
		}
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i] < extras[j] })
	for _, svc := range extras {
		views = append(views, serviceTypeView{
			Value:         string(svc),
			Label:         string(svc),
			ThresholdDays: thresholds[svc],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"service_types": views,
		"min_scenarios": s.slaCfg.MinScenarios(),
	})
}

// Evaluate runs one SLA evaluation and persists it under a fresh protocol.
// Range and sign checks happen here; the evaluator itself never fails.
func (s *Server) Evaluate(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	input, err := req.evaluationInput()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	analysis, err := s.analysisSvc.CreateSimple(c.Request.Context(), analysisdomain.CreateSimpleRequest{
		UserID:   user.ID,
		Username: user.Username,
		Client:   req.Client,
		Plate:    req.Plate,
		Input:    input,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	record, err := analysis.Simple()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"analysis": analysis,
		"result":   record,
	})
}
