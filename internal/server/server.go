package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	assistantdomain "github.com/locafrota/fleetsla/internal/assistant/domain"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	authdomain "github.com/locafrota/fleetsla/internal/auth/domain"
	"github.com/locafrota/fleetsla/internal/auth/session"
	"github.com/locafrota/fleetsla/internal/authorization"
	clientdomain "github.com/locafrota/fleetsla/internal/clientbase/domain"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	deletereqdomain "github.com/locafrota/fleetsla/internal/deletereq/domain"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
	"github.com/locafrota/fleetsla/internal/observability"
	obsmiddleware "github.com/locafrota/fleetsla/internal/observability/logger"
	obsmetrics "github.com/locafrota/fleetsla/internal/observability/metrics"
	obstracing "github.com/locafrota/fleetsla/internal/observability/tracing"
	"github.com/locafrota/fleetsla/internal/providers/pdf"
	"github.com/locafrota/fleetsla/internal/providers/storage"
	reportdomain "github.com/locafrota/fleetsla/internal/report/domain"
	scenariodomain "github.com/locafrota/fleetsla/internal/scenario/domain"
	ticketdomain "github.com/locafrota/fleetsla/internal/ticket/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.SetHTMLTemplate(pageTemplates())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	slaCfg       *config.SLAConfigHolder
	log          *zap.Logger
	db           *gorm.DB
	clock        clock.Clock
	sessions     *session.Manager
	authsvc      authdomain.Service
	identitySvc  identitydomain.Service
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	vehicleSvc   clientdomain.Service
	analysisSvc  analysisdomain.Service
	scenarioSvc  scenariodomain.Service
	ticketSvc    ticketdomain.Service
	deletionSvc  deletereqdomain.Service
	reportSvc    reportdomain.Service
	assistantSvc assistantdomain.Service
	pdfSvc       pdf.Provider
	blobs        storage.Store
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	SLACfg       *config.SLAConfigHolder
	Log          *zap.Logger
	DB           *gorm.DB
	Clock        clock.Clock
	Sessions     *session.Manager
	Authsvc      authdomain.Service
	IdentitySvc  identitydomain.Service
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	VehicleSvc   clientdomain.Service
	AnalysisSvc  analysisdomain.Service
	ScenarioSvc  scenariodomain.Service
	TicketSvc    ticketdomain.Service
	DeletionSvc  deletereqdomain.Service
	ReportSvc    reportdomain.Service
	AssistantSvc assistantdomain.Service
	PDFSvc       pdf.Provider
	Blobs        storage.Store
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		slaCfg:       p.SLACfg,
		log:          p.Log.Named("server"),
		db:           p.DB,
		clock:        p.Clock,
		sessions:     p.Sessions,
		authsvc:      p.Authsvc,
		identitySvc:  p.IdentitySvc,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		vehicleSvc:   p.VehicleSvc,
		analysisSvc:  p.AnalysisSvc,
		scenarioSvc:  p.ScenarioSvc,
		ticketSvc:    p.TicketSvc,
		deletionSvc:  p.DeletionSvc,
		reportSvc:    p.ReportSvc,
		assistantSvc: p.AssistantSvc,
		pdfSvc:       p.PDFSvc,
		blobs:        p.Blobs,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerPageRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/signup", s.Signup)
	auth.POST("/forgot", s.Forgot)
	auth.POST("/reset", s.ResetPassword)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.Me)

	// Change-password and accept-terms stay reachable for accounts still
	// behind the login gates; everything else goes through RequireSettled.
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
	auth.POST("/accept-terms", s.AuthRequired(), s.AcceptTerms)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.Use(s.AuthRequired())
	api.Use(s.RequireSettled())

	// -------- Calculator --------
	api.GET("/sla/evaluate", s.authorize(authorization.ObjectCalculator, authorization.ActionCalculatorUse), s.EvaluateForm)
	api.POST("/sla/evaluate", s.authorize(authorization.ObjectCalculator, authorization.ActionCalculatorUse), s.Evaluate)

	// -------- Scenario comparison --------
	api.POST("/scenarios", s.authorize(authorization.ObjectCalculator, authorization.ActionCalculatorUse), s.AddScenario)
	api.GET("/scenarios", s.authorize(authorization.ObjectCalculator, authorization.ActionCalculatorUse), s.GetScenarios)
	api.DELETE("/scenarios", s.authorize(authorization.ObjectCalculator, authorization.ActionCalculatorUse), s.ClearScenarios)
	api.POST("/scenarios/compare", s.authorize(authorization.ObjectAnalysis, authorization.ActionAnalysisCreate), s.CompareScenarios)

	// -------- Analyses --------
	api.GET("/analyses", s.authorize(authorization.ObjectAnalysis, authorization.ActionAnalysisView), s.ListAnalyses)
	api.GET("/analyses/:protocol", s.authorize(authorization.ObjectAnalysis, authorization.ActionAnalysisView), s.GetAnalysis)
	api.GET("/analyses/:protocol/pdf", s.authorize(authorization.ObjectAnalysis, authorization.ActionAnalysisView), s.DownloadAnalysisPDF)

	// -------- Vehicles --------
	api.GET("/vehicles/lookup", s.authorize(authorization.ObjectVehicle, authorization.ActionVehicleView), s.LookupVehicle)

	// -------- Deletion requests --------
	api.POST("/deletion-requests", s.authorize(authorization.ObjectDeletionRequest, authorization.ActionDeletionRequestCreate), s.CreateDeletionRequest)

	// -------- Tickets --------
	api.POST("/tickets", s.authorize(authorization.ObjectTicket, authorization.ActionTicketCreate), s.CreateTicket)
	api.GET("/tickets", s.authorize(authorization.ObjectTicket, authorization.ActionTicketView), s.ListTickets)
	api.GET("/tickets/:reference", s.authorize(authorization.ObjectTicket, authorization.ActionTicketView), s.GetTicket)
	api.POST("/tickets/:reference/attachments", s.authorize(authorization.ObjectTicket, authorization.ActionTicketCreate), s.AttachTicketFile)
	api.GET("/tickets/attachments/:id", s.authorize(authorization.ObjectTicket, authorization.ActionTicketView), s.DownloadTicketAttachment)

	// -------- Assistant --------
	api.POST("/assistant/chat", s.authorize(authorization.ObjectAssistant, authorization.ActionAssistantUse), s.AssistantChat)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin/api")

	admin.Use(s.AuthRequired())
	admin.Use(s.RequireSettled())
	admin.Use(s.RequireRole(identitydomain.RoleAdmin, identitydomain.RoleSuperAdmin))

	// -------- Users --------
	admin.GET("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.ListUsers)
	admin.POST("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.PreRegisterUser)
	admin.POST("/users/:id/approve", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.ApproveUser)
	admin.POST("/users/:id/reject", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.RejectUser)
	admin.POST("/users/:id/role", s.RequireRole(identitydomain.RoleSuperAdmin), s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.SetUserRole)
	admin.DELETE("/users/:id", s.RequireRole(identitydomain.RoleSuperAdmin), s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.DeleteUser)

	// -------- Dashboard --------
	admin.GET("/dashboard", s.authorize(authorization.ObjectDashboard, authorization.ActionDashboardView), s.GetDashboard)

	// -------- Vehicles --------
	admin.GET("/vehicles", s.authorize(authorization.ObjectVehicle, authorization.ActionVehicleView), s.ListVehicles)
	admin.POST("/vehicles/import", s.authorize(authorization.ObjectVehicle, authorization.ActionVehicleImport), s.ImportVehicles)

	// -------- Reports --------
	admin.GET("/export", s.authorize(authorization.ObjectReport, authorization.ActionReportExport), s.ExportAnalyses)

	// -------- Deletion requests --------
	admin.GET("/deletion-requests", s.authorize(authorization.ObjectDeletionRequest, authorization.ActionDeletionRequestReview), s.ListDeletionRequests)
	admin.POST("/deletion-requests/:id/review", s.authorize(authorization.ObjectDeletionRequest, authorization.ActionDeletionRequestReview), s.ReviewDeletionRequest)

	// -------- Tickets --------
	admin.GET("/tickets", s.authorize(authorization.ObjectTicket, authorization.ActionTicketView), s.ListAllTickets)
	admin.POST("/tickets/:reference/reply", s.authorize(authorization.ObjectTicket, authorization.ActionTicketReply), s.ReplyTicket)
	admin.POST("/tickets/:reference/close", s.authorize(authorization.ObjectTicket, authorization.ActionTicketReply), s.CloseTicket)

	// -------- Audit --------
	admin.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) registerPageRoutes() {
	r := s.engine

	r.GET("/", s.HomePage)
	r.GET("/login", s.LoginPage)
	r.GET("/signup", s.SignupPage)
	r.GET("/forgot", s.ForgotPage)
	r.GET("/reset", s.ResetPage)

	r.GET("/terms", s.PageAuth(), s.TermsPage)
	r.GET("/change-password", s.PageAuth(), s.ChangePasswordPage)
	r.GET("/calculator", s.PageAuth(), s.CalculatorPage)
	r.GET("/comparison", s.PageAuth(), s.ComparisonPage)
	r.GET("/history", s.PageAuth(), s.HistoryPage)
	r.GET("/support", s.PageAuth(), s.SupportPage)
	r.GET("/admin", s.PageAuth(), s.AdminPage)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/auth/") || strings.HasPrefix(path, "/admin/api/") {
			AbortWithError(c, ErrNotFound)
			return
		}
		c.Redirect(http.StatusFound, "/")
	})
}

// parseIDParam reads a snowflake id from the named route parameter.
func parseIDParam(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
