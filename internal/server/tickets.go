package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/locafrota/fleetsla/internal/authorization"
	ticketdomain "github.com/locafrota/fleetsla/internal/ticket/domain"
)

type CreateTicketRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type ReplyTicketRequest struct {
	Reply string `json:"reply"`
}

func (s *Server) CreateTicket(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ticket, err := s.ticketSvc.Create(c.Request.Context(), ticketdomain.CreateTicketRequest{
		UserID:  user.ID,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ticket": ticket})
}

func (s *Server) ListTickets(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	req, ok := s.bindTicketListing(c)
	if !ok {
		return
	}
	req.UserID = user.ID

	resp, err := s.ticketSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Tickets,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) GetTicket(c *gin.Context) {
	ticket, ok := s.ticketForViewer(c)
	if !ok {
		return
	}

	attachments, err := s.ticketSvc.Attachments(c.Request.Context(), ticket.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticket":      ticket,
		"attachments": attachments,
	})
}

func (s *Server) AttachTicketFile(c *gin.Context) {
	ticket, ok := s.ticketForViewer(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "missing_file", "request must carry an upload under the file field"))
		return
	}

	f, err := header.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer f.Close()

	attachment, err := s.ticketSvc.Attach(c.Request.Context(), ticketdomain.AttachFileRequest{
		Reference: ticket.Reference,
		FileName:  header.Filename,
		Content:   f,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"attachment": attachment})
}

func (s *Server) DownloadTicketAttachment(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		AbortWithError(c, ticketdomain.ErrAttachmentNotFound)
		return
	}

	attachment, blob, err := s.ticketSvc.OpenAttachment(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer blob.Close()

	ticket, err := s.ticketSvc.GetByID(c.Request.Context(), attachment.TicketID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if ticket.UserID != user.ID {
		if err := s.authorizeStaffTicketAccess(c, user.ID, user.Role); err != nil {
			AbortWithError(c, ticketdomain.ErrAttachmentNotFound)
			return
		}
	}

	c.DataFromReader(http.StatusOK, attachment.SizeBytes, "application/octet-stream", blob,
		map[string]string{"Content-Disposition": fmt.Sprintf("attachment; filename=%q", attachment.FileName)})
}

func (s *Server) ListAllTickets(c *gin.Context) {
	req, ok := s.bindTicketListing(c)
	if !ok {
		return
	}

	resp, err := s.ticketSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Tickets,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) ReplyTicket(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req ReplyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ticket, err := s.ticketSvc.Reply(c.Request.Context(), ticketdomain.ReplyTicketRequest{
		Reference: c.Param("reference"),
		AdminID:   user.ID,
		Reply:     req.Reply,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

func (s *Server) CloseTicket(c *gin.Context) {
	ticket, err := s.ticketSvc.Close(c.Request.Context(), c.Param("reference"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

func (s *Server) bindTicketListing(c *gin.Context) (ticketdomain.ListTicketsRequest, bool) {
	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_int", "page_size must be an integer"))
		return ticketdomain.ListTicketsRequest{}, false
	}

	req := ticketdomain.ListTicketsRequest{
		Status:    strings.TrimSpace(c.Query("status")),
		PageToken: strings.TrimSpace(c.Query("page_token")),
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}
	return req, true
}

// ticketForViewer resolves the reference route parameter and enforces
// ownership. Cross-user reads ride on the reply grant, which only staff
// roles hold.
func (s *Server) ticketForViewer(c *gin.Context) (*ticketdomain.Ticket, bool) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return nil, false
	}

	ticket, err := s.ticketSvc.GetByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}

	if ticket.UserID != user.ID {
		if err := s.authorizeStaffTicketAccess(c, user.ID, user.Role); err != nil {
			AbortWithError(c, ticketdomain.ErrNotFound)
			return nil, false
		}
	}
	return ticket, true
}

func (s *Server) authorizeStaffTicketAccess(c *gin.Context, userID snowflake.ID, role string) error {
	return s.authzSvc.Authorize(c.Request.Context(),
		authorization.SubjectForUser(userID), role,
		authorization.ObjectTicket, authorization.ActionTicketReply)
}
