package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	clientdomain "github.com/locafrota/fleetsla/internal/clientbase/domain"
)

// LookupVehicle resolves a plate to its registry entry so the calculator
// can prefill the client and monthly fee.
func (s *Server) LookupVehicle(c *gin.Context) {
	vehicle, err := s.vehicleSvc.Lookup(c.Request.Context(), c.Query("plate"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

func (s *Server) ListVehicles(c *gin.Context) {
	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_int", "page_size must be an integer"))
		return
	}

	req := clientdomain.ListVehiclesRequest{
		Search:    strings.TrimSpace(c.Query("search")),
		PageToken: strings.TrimSpace(c.Query("page_token")),
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}

	resp, err := s.vehicleSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Vehicles,
		"page_info": resp.PageInfo,
	})
}

// ImportVehicles upserts the registry from an uploaded workbook.
func (s *Server) ImportVehicles(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "missing_file", "request must carry a workbook under the file field"))
		return
	}

	f, err := header.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer f.Close()

	summary, err := s.vehicleSvc.Import(c.Request.Context(), f)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
