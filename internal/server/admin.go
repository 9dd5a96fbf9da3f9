package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
	reportdomain "github.com/locafrota/fleetsla/internal/report/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type PreRegisterUserRequest struct {
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Matricula string `json:"matricula"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type SetUserRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) ListUsers(c *gin.Context) {
	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_int", "page_size must be an integer"))
		return
	}

	req := identitydomain.ListUsersRequest{
		Status:    strings.TrimSpace(c.Query("status")),
		Role:      strings.TrimSpace(c.Query("role")),
		Search:    strings.TrimSpace(c.Query("search")),
		PageToken: strings.TrimSpace(c.Query("page_token")),
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}

	resp, err := s.identitySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Users,
		"page_info": resp.PageInfo,
	})
}

// PreRegisterUser creates an active account without a password; the invite
// mail carries the setup link.
func (s *Server) PreRegisterUser(c *gin.Context) {
	var req PreRegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.identitySvc.PreRegister(c.Request.Context(), identitydomain.PreRegisterRequest{
		Username:  req.Username,
		FullName:  req.FullName,
		Matricula: req.Matricula,
		Email:     req.Email,
		Role:      req.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (s *Server) ApproveUser(c *gin.Context) {
	user, err := s.identitySvc.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) RejectUser(c *gin.Context) {
	user, err := s.identitySvc.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) SetUserRole(c *gin.Context) {
	var req SetUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.identitySvc.SetRole(c.Request.Context(), identitydomain.SetRoleRequest{
		UserID: c.Param("id"),
		Role:   req.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) DeleteUser(c *gin.Context) {
	if err := s.identitySvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetDashboard(c *gin.Context) {
	dashboard, err := s.reportSvc.Dashboard(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dashboard": dashboard})
}

// ExportAnalyses streams the history workbook with the same filters the
// listing accepts.
func (s *Server) ExportAnalyses(c *gin.Context) {
	startAt, err := parseOptionalTime(c.Query("start"), false)
	if err != nil {
		AbortWithError(c, newValidationError("start", "invalid_time", "start must be an RFC 3339 timestamp or a YYYY-MM-DD date"))
		return
	}
	endAt, err := parseOptionalTime(c.Query("end"), true)
	if err != nil {
		AbortWithError(c, newValidationError("end", "invalid_time", "end must be an RFC 3339 timestamp or a YYYY-MM-DD date"))
		return
	}

	workbook, filename, err := s.reportSvc.ExportAnalyses(c.Request.Context(), reportdomain.ExportRequest{
		Kind:    analysisdomain.Kind(strings.TrimSpace(c.Query("kind"))),
		StartAt: startAt,
		EndAt:   endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := io.ReadAll(workbook)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
