package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	deletereqdomain "github.com/locafrota/fleetsla/internal/deletereq/domain"
)

type CreateDeletionRequestRequest struct {
	Protocol string `json:"protocol"`
	Reason   string `json:"reason"`
}

type ReviewDeletionRequestRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// CreateDeletionRequest files a petition to remove one of the caller's own
// analyses. The record itself stays until an admin approves.
func (s *Server) CreateDeletionRequest(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req CreateDeletionRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	request, err := s.deletionSvc.Create(c.Request.Context(), deletereqdomain.CreateRequest{
		Protocol:    req.Protocol,
		RequestedBy: user.ID,
		Reason:      req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"deletion_request": request})
}

func (s *Server) ListDeletionRequests(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_int", "limit must be an integer"))
		return
	}

	req := deletereqdomain.ListRequest{
		Status: strings.TrimSpace(c.Query("status")),
	}
	if limit != nil {
		req.Limit = *limit
	}

	requests, err := s.deletionSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": requests})
}

func (s *Server) ReviewDeletionRequest(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		AbortWithError(c, deletereqdomain.ErrNotFound)
		return
	}

	var req ReviewDeletionRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	request, err := s.deletionSvc.Review(c.Request.Context(), deletereqdomain.ReviewRequest{
		ID:         id,
		ReviewerID: user.ID,
		Approve:    req.Approve,
		Notes:      req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deletion_request": request})
}
