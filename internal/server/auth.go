package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authdomain "github.com/locafrota/fleetsla/internal/auth/domain"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	Matricula       string `json:"matricula"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type ChangePasswordRequest struct {
	NewPassword     string `json:"new_password"`
	PasswordConfirm string `json:"password_confirm"`
}

type ForgotRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	PasswordConfirm string `json:"password_confirm"`
}

type sessionView struct {
	User               *identitydomain.User `json:"user"`
	MustAcceptTerms    bool                 `json:"must_accept_terms"`
	MustChangePassword bool                 `json:"must_change_password"`
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Username:  strings.TrimSpace(req.Username),
		Password:  req.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	c.JSON(http.StatusOK, sessionView{
		User:               result.User,
		MustAcceptTerms:    result.MustAcceptTerms,
		MustChangePassword: result.MustChangePassword,
	})
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.identitySvc.Signup(c.Request.Context(), identitydomain.SignupRequest{
		Username:        req.Username,
		FullName:        req.FullName,
		Matricula:       req.Matricula,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	user, _, err := s.authenticate(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionView{
		User:               user,
		MustAcceptTerms:    !user.TermsAccepted(),
		MustChangePassword: user.MustChangePassword(s.clock.Now(), s.cfg.PasswordMaxAge),
	})
}

func (s *Server) ChangePassword(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.authsvc.ChangePassword(c.Request.Context(), authdomain.ChangePasswordRequest{
		UserID:          user.ID,
		NewPassword:     req.NewPassword,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Forgot always answers 204. Whether the address exists is not observable
// from the outside.
func (s *Server) Forgot(c *gin.Context) {
	var req ForgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.authsvc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, authdomain.ErrEmailNotFound),
			errors.Is(err, authdomain.ErrAccountPending),
			errors.Is(err, authdomain.ErrMissingFields):
			s.log.Debug("password reset request dropped", zap.Error(err))
		default:
			AbortWithError(c, err)
			return
		}
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.authsvc.ResetPassword(c.Request.Context(), authdomain.ResetPasswordRequest{
		RawToken:        req.Token,
		NewPassword:     req.NewPassword,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) AcceptTerms(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.identitySvc.AcceptTerms(c.Request.Context(), user.ID.String()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
