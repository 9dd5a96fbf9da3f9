package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
)

// HomePage routes by session state: anonymous visitors land on the login
// form, gated accounts on their pending step, everyone else on the
// calculator.
func (s *Server) HomePage(c *gin.Context) {
	user, _, err := s.authenticate(c)
	if err != nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if target := s.gateRedirect(user); target != "" {
		c.Redirect(http.StatusFound, target)
		return
	}
	c.Redirect(http.StatusFound, "/calculator")
}

func (s *Server) LoginPage(c *gin.Context) {
	if _, _, err := s.authenticate(c); err == nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{"Title": "Entrar"})
}

func (s *Server) SignupPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{"Title": "Criar conta"})
}

func (s *Server) ForgotPage(c *gin.Context) {
	c.HTML(http.StatusOK, "forgot.html", gin.H{"Title": "Esqueci minha senha"})
}

func (s *Server) ResetPage(c *gin.Context) {
	c.HTML(http.StatusOK, "reset.html", gin.H{
		"Title": "Redefinir senha",
		"Token": c.Query("token"),
	})
}

func (s *Server) TermsPage(c *gin.Context) {
	user, _ := s.currentUser(c)
	c.HTML(http.StatusOK, "terms.html", gin.H{
		"Title": "Termos de uso",
		"User":  user,
	})
}

func (s *Server) ChangePasswordPage(c *gin.Context) {
	user, _ := s.currentUser(c)
	c.HTML(http.StatusOK, "change_password.html", gin.H{
		"Title": "Alterar senha",
		"User":  user,
	})
}

func (s *Server) CalculatorPage(c *gin.Context) {
	s.renderSettled(c, "calculator.html", "Calculadora SLA")
}

func (s *Server) ComparisonPage(c *gin.Context) {
	s.renderSettled(c, "comparison.html", "Comparar cenários")
}

func (s *Server) HistoryPage(c *gin.Context) {
	s.renderSettled(c, "history.html", "Histórico")
}

func (s *Server) SupportPage(c *gin.Context) {
	s.renderSettled(c, "support.html", "Suporte")
}

func (s *Server) AdminPage(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if user.Role != identitydomain.RoleAdmin && user.Role != identitydomain.RoleSuperAdmin {
		c.Redirect(http.StatusFound, "/")
		return
	}
	s.renderSettled(c, "admin.html", "Administração")
}

// renderSettled renders an application page, bouncing accounts that still
// owe a gate step first.
func (s *Server) renderSettled(c *gin.Context, page, title string) {
	user, ok := s.currentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if target := s.gateRedirect(user); target != "" {
		c.Redirect(http.StatusFound, target)
		return
	}

	c.HTML(http.StatusOK, page, gin.H{
		"Title": title,
		"User":  user,
		"IsAdmin": user.Role == identitydomain.RoleAdmin ||
			user.Role == identitydomain.RoleSuperAdmin,
	})
}
