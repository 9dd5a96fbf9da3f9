package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	assistantdomain "github.com/locafrota/fleetsla/internal/assistant/domain"
)

type AssistantChatRequest struct {
	Prompt  string                    `json:"prompt"`
	History []assistantdomain.Message `json:"history"`
}

// AssistantChat forwards one turn to the chat helper. History is whatever
// context the client chooses to resend; nothing is stored server side.
func (s *Server) AssistantChat(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req AssistantChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	reply, err := s.assistantSvc.Chat(c.Request.Context(), assistantdomain.ChatRequest{
		UserID:  user.ID,
		History: req.History,
		Prompt:  req.Prompt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reply": reply.Reply,
		"model": reply.Model,
	})
}
