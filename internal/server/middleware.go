package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authdomain "github.com/locafrota/fleetsla/internal/auth/domain"
	"github.com/locafrota/fleetsla/internal/authorization"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
	"github.com/locafrota/fleetsla/internal/observability/obsctx"
)

const (
	contextUserKey    = "current_user"
	contextSessionKey = "current_session"
)

// AuthRequired authenticates the session cookie and stores the user and
// session on the request. The actor also lands in the request context so
// logs and audit records carry it.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, sess, err := s.authenticate(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		s.attachPrincipal(c, user, sess)
		c.Next()
	}
}

// RequireSettled rejects accounts that still owe the forced password change
// or the consent step. The password gate wins when both are owed.
func (s *Server) RequireSettled() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := s.currentUser(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if user.MustChangePassword(s.clock.Now(), s.cfg.PasswordMaxAge) {
			AbortWithError(c, ErrPasswordChangeRequired)
			return
		}
		if !user.TermsAccepted() {
			AbortWithError(c, ErrTermsNotAccepted)
			return
		}
		c.Next()
	}
}

func (s *Server) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := s.currentUser(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}

// authorize consults the enforcer for the authenticated user. Denials are
// recorded on the audit trail by the authorization service itself.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := s.currentUser(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		subject := authorization.SubjectForUser(user.ID)
		if err := s.authzSvc.Authorize(c.Request.Context(), subject, user.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// PageAuth is AuthRequired for the HTML surface: an unauthenticated visit
// redirects to the login page instead of rendering a JSON error.
func (s *Server) PageAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, sess, err := s.authenticate(c)
		if err != nil {
			s.sessions.Clear(c)
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		s.attachPrincipal(c, user, sess)
		c.Next()
	}
}

func (s *Server) authenticate(c *gin.Context) (*identitydomain.User, *authdomain.Session, error) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		return nil, nil, ErrUnauthorized
	}
	return s.authsvc.Authenticate(c.Request.Context(), token)
}

func (s *Server) attachPrincipal(c *gin.Context, user *identitydomain.User, sess *authdomain.Session) {
	c.Set(contextUserKey, user)
	c.Set(contextSessionKey, sess)

	ctx := obsctx.WithActor(c.Request.Context(), obsctx.Actor{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
	})
	c.Request = c.Request.WithContext(ctx)
}

func (s *Server) currentUser(c *gin.Context) (*identitydomain.User, bool) {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*identitydomain.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

func (s *Server) currentSession(c *gin.Context) (*authdomain.Session, bool) {
	value, ok := c.Get(contextSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := value.(*authdomain.Session)
	if !ok || sess == nil {
		return nil, false
	}
	return sess, true
}

// gateRedirect names the page an authenticated user still has to visit, or
// empty when the account is settled.
func (s *Server) gateRedirect(user *identitydomain.User) string {
	if user.MustChangePassword(s.clock.Now(), s.cfg.PasswordMaxAge) {
		return "/change-password"
	}
	if !user.TermsAccepted() {
		return "/terms"
	}
	return ""
}
