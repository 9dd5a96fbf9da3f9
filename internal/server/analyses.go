package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	"github.com/locafrota/fleetsla/internal/authorization"
	"github.com/locafrota/fleetsla/internal/providers/pdf"
	"github.com/locafrota/fleetsla/internal/providers/storage"
)

func (s *Server) ListAnalyses(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	all, err := parseOptionalBool(c.Query("all"))
	if err != nil {
		AbortWithError(c, newValidationError("all", "invalid_bool", "all must be true or false"))
		return
	}
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
	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_int", "page_size must be an integer"))
		return
	}

	req := analysisdomain.ListAnalysisRequest{
		UserID:    user.ID,
		Kind:      analysisdomain.Kind(strings.TrimSpace(c.Query("kind"))),
		StartAt:   startAt,
		EndAt:     endAt,
		PageToken: strings.TrimSpace(c.Query("page_token")),
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}

	// all=true widens the listing to every user, behind its own grant.
	if all != nil && *all {
		err := s.authzSvc.Authorize(c.Request.Context(),
			authorization.SubjectForUser(user.ID), user.Role,
			authorization.ObjectAnalysis, authorization.ActionAnalysisViewAll)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.UserID = 0
	}

	resp, err := s.analysisSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Analyses,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) GetAnalysis(c *gin.Context) {
	analysis, ok := s.analysisForViewer(c)
	if !ok {
		return
	}

	var result any
	switch analysis.Kind {
	case analysisdomain.KindSimple:
		record, err := analysis.Simple()
		if err != nil {
			AbortWithError(c, err)
			return
		}
		result = record
	case analysisdomain.KindComparison:
		record, err := analysis.Comparison()
		if err != nil {
			AbortWithError(c, err)
			return
		}
		result = record
	}

	c.JSON(http.StatusOK, gin.H{
		"analysis": analysis,
		"result":   result,
	})
}

// DownloadAnalysisPDF streams the rendered document, rendering and storing
// it on first request. Re-renders are always possible since the payload
// holds everything the document shows.
func (s *Server) DownloadAnalysisPDF(c *gin.Context) {
	analysis, ok := s.analysisForViewer(c)
	if !ok {
		return
	}

	if analysis.PDFPath != "" {
		blob, err := s.blobs.Open(c.Request.Context(), analysis.PDFPath)
		if err == nil {
			defer blob.Close()
			data, err := io.ReadAll(blob)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			servePDF(c, analysis, data)
			return
		}
		if !errors.Is(err, storage.ErrNotFound) {
			AbortWithError(c, err)
			return
		}
	}

	doc, err := s.pdfSvc.RenderAnalysis(c.Request.Context(), analysis)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	data, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	key := "reports/" + pdf.Filename(analysis)
	if err := s.blobs.Save(c.Request.Context(), key, bytes.NewReader(data)); err != nil {
		AbortWithError(c, err)
		return
	}
	// The blob exists either way; a stale pointer only costs a re-render.
	if err := s.analysisSvc.AttachPDF(c.Request.Context(), analysis.ID, key); err != nil {
		s.log.Warn("failed to attach pdf path",
			zap.String("protocol", analysis.Protocol),
			zap.Error(err),
		)
	}

	servePDF(c, analysis, data)
}

func servePDF(c *gin.Context, analysis *analysisdomain.Analysis, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.Filename(analysis)))
	c.Data(http.StatusOK, "application/pdf", data)
}

// analysisForViewer resolves the protocol route parameter and enforces
// ownership: someone else's protocol reads as not found unless the caller
// holds the view-all grant.
func (s *Server) analysisForViewer(c *gin.Context) (*analysisdomain.Analysis, bool) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return nil, false
	}

	analysis, err := s.analysisSvc.GetByProtocol(c.Request.Context(), c.Param("protocol"))
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}

	if analysis.UserID != user.ID {
		err := s.authzSvc.Authorize(c.Request.Context(),
			authorization.SubjectForUser(user.ID), user.Role,
			authorization.ObjectAnalysis, authorization.ActionAnalysisViewAll)
		if err != nil {
			AbortWithError(c, analysisdomain.ErrNotFound)
			return nil, false
		}
	}
	return analysis, true
}
