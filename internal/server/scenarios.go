package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	scenariodomain "github.com/locafrota/fleetsla/internal/scenario/domain"
	"github.com/locafrota/fleetsla/internal/sla"
)

type AddScenarioRequest struct {
	EvaluateRequest
	Label string         `json:"label"`
	Parts []sla.PartCost `json:"parts"`
}

// AddScenario evaluates one candidate and appends it to the session's
// working set. The set is keyed by the login session, so a second browser
// tab shares the same basket.
func (s *Server) AddScenario(c *gin.Context) {
	sess, ok := s.currentSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req AddScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	input, err := req.evaluationInput()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	set, err := s.scenarioSvc.Add(c.Request.Context(), scenariodomain.AddScenarioRequest{
		SessionID: sess.ID.String(),
		Client:    req.Client,
		Plate:     req.Plate,
		Label:     req.Label,
		Input:     input,
		Parts:     req.Parts,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"set": set})
}

func (s *Server) GetScenarios(c *gin.Context) {
	sess, ok := s.currentSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	set, err := s.scenarioSvc.Get(c.Request.Context(), sess.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"set": set})
}

func (s *Server) ClearScenarios(c *gin.Context) {
	sess, ok := s.currentSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.scenarioSvc.Clear(c.Request.Context(), sess.ID.String()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CompareScenarios ranks the working set, persists the comparison under a
// fresh protocol and empties the basket.
func (s *Server) CompareScenarios(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	sess, ok := s.currentSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	analysis, err := s.scenarioSvc.Finalize(c.Request.Context(), scenariodomain.FinalizeRequest{
		SessionID: sess.ID.String(),
		UserID:    user.ID,
		Username:  user.Username,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	record, err := analysis.Comparison()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"analysis": analysis,
		"result":   record,
	})
}
