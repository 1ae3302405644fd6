package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/audit"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/authorization"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/blob"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/credit"
	creditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/credit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback"
	feedbackdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/itcheck"
	itcheckdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/itcheck/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/license"
	licensedomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/license/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/observability"
	obsmiddleware "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/logger"
	obsmetrics "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/metrics"
	obstracing "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/tracing"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/ratelimit"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/sequence"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/ticket"
	ticketdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/ticket/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/user"
	userdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/user/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/vault"
	vaultdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/vault/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	ratelimit.Module,
	blob.Module,
	sequence.Module,
	user.Module,
	itcheck.Module,
	license.Module,
	vault.Module,
	ticket.Module,
	credit.Module,
	feedback.Module,
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
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	clock       clock.Clock
	settings    *config.SettingsHolder
	authsvc     authdomain.Service
	authzSvc    authorization.Service
	auditSvc    auditdomain.Service
	userSvc     userdomain.Service
	itCheckSvc  itcheckdomain.Service
	licenseSvc  licensedomain.Service
	vaultSvc    vaultdomain.Service
	ticketSvc   ticketdomain.Service
	creditSvc   creditdomain.Service
	feedbackSvc feedbackdomain.Service
	limiter     *ratelimit.Limiter
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Clock       clock.Clock
	Settings    *config.SettingsHolder `optional:"true"`
	Authsvc     authdomain.Service
	AuthzSvc    authorization.Service
	AuditSvc    auditdomain.Service
	UserSvc     userdomain.Service
	ITCheckSvc  itcheckdomain.Service
	LicenseSvc  licensedomain.Service
	VaultSvc    vaultdomain.Service
	TicketSvc   ticketdomain.Service
	CreditSvc   creditdomain.Service
	FeedbackSvc feedbackdomain.Service
	Limiter     *ratelimit.Limiter  `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		clock:       p.Clock,
		settings:    p.Settings,
		authsvc:     p.Authsvc,
		authzSvc:    p.AuthzSvc,
		auditSvc:    p.AuditSvc,
		userSvc:     p.UserSvc,
		itCheckSvc:  p.ITCheckSvc,
		licenseSvc:  p.LicenseSvc,
		vaultSvc:    p.VaultSvc,
		ticketSvc:   p.TicketSvc,
		creditSvc:   p.CreditSvc,
		feedbackSvc: p.FeedbackSvc,
		limiter:     p.Limiter,
		obsMetrics:  p.ObsMetrics,
	}
	if svc.clock == nil {
		svc.clock = clock.New()
	}

	svc.registerHealthRoutes()
	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerPublicRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/health", s.Health)
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth")

	auth.POST("/login", s.RateLimit("login", loginLimit), s.Login)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Users --------
	users := api.Group("/users")
	{
		users.GET("", s.RequireRole(authorization.ObjectUser, authorization.ActionView), s.ListUsers)
		users.POST("", s.RequireRole(authorization.ObjectUser, authorization.ActionCreate), s.CreateUser)
		users.GET("/:id", s.RequireRole(authorization.ObjectUser, authorization.ActionView), s.GetUser)
		users.PUT("/:id", s.RequireRole(authorization.ObjectUser, authorization.ActionUpdate), s.UpdateUser)
		users.DELETE("/:id", s.RequireRole(authorization.ObjectUser, authorization.ActionDelete), s.DeleteUser)
	}

	// -------- IT checks --------
	itChecks := api.Group("/it-checks", RequirePermission(identity.PermissionITCheck))
	{
		itChecks.GET("", s.RequireRole(authorization.ObjectITCheck, authorization.ActionView), s.ListITChecks)
		itChecks.POST("", s.RequireRole(authorization.ObjectITCheck, authorization.ActionCreate), s.CreateITCheck)
		itChecks.GET("/:id", s.RequireRole(authorization.ObjectITCheck, authorization.ActionView), s.GetITCheck)
		itChecks.PUT("/:id", s.RequireRole(authorization.ObjectITCheck, authorization.ActionUpdate), s.UpdateITCheck)
		itChecks.DELETE("/:id", s.RequireRole(authorization.ObjectITCheck, authorization.ActionDelete), s.DeleteITCheck)
	}

	// -------- Licenses --------
	licenses := api.Group("/licenses", RequirePermission(identity.PermissionLicenses))
	{
		licenses.GET("", s.RequireRole(authorization.ObjectLicense, authorization.ActionView), s.ListLicenses)
		licenses.POST("", s.RequireRole(authorization.ObjectLicense, authorization.ActionCreate), s.CreateLicense)
		licenses.GET("/:id", s.RequireRole(authorization.ObjectLicense, authorization.ActionView), s.GetLicense)
		licenses.PUT("/:id", s.RequireRole(authorization.ObjectLicense, authorization.ActionUpdate), s.UpdateLicense)
		licenses.DELETE("/:id", s.RequireRole(authorization.ObjectLicense, authorization.ActionDelete), s.DeleteLicense)
	}

	// -------- Passwords --------
	passwords := api.Group("/passwords", RequirePermission(identity.PermissionPasswords))
	{
		passwords.GET("", s.RequireRole(authorization.ObjectPassword, authorization.ActionView), s.ListPasswords)
		passwords.POST("", s.RequireRole(authorization.ObjectPassword, authorization.ActionCreate), s.CreatePassword)
		passwords.GET("/:id", s.RequireRole(authorization.ObjectPassword, authorization.ActionView), s.GetPassword)
		passwords.PUT("/:id", s.RequireRole(authorization.ObjectPassword, authorization.ActionUpdate), s.UpdatePassword)
		passwords.DELETE("/:id", s.RequireRole(authorization.ObjectPassword, authorization.ActionDelete), s.DeletePassword)
		passwords.POST("/:id/reveal", s.RequireRole(authorization.ObjectPassword, authorization.ActionReveal), s.RevealPassword)
	}

	// -------- Tickets --------
	tickets := api.Group("/tickets", RequirePermission(identity.PermissionTickets))
	{
		tickets.GET("", s.RequireRole(authorization.ObjectTicket, authorization.ActionView), s.ListTickets)
		tickets.POST("", s.RequireRole(authorization.ObjectTicket, authorization.ActionCreate), s.CreateTicket)
		tickets.GET("/:id", s.RequireRole(authorization.ObjectTicket, authorization.ActionView), s.GetTicket)
		tickets.PUT("/:id", s.RequireRole(authorization.ObjectTicket, authorization.ActionUpdate), s.UpdateTicket)
		tickets.DELETE("/:id", s.RequireRole(authorization.ObjectTicket, authorization.ActionDelete), s.DeleteTicket)
		tickets.POST("/:id/comments", s.RequireRole(authorization.ObjectTicket, authorization.ActionView), s.AddTicketComment)
		tickets.POST("/:id/attachments", s.RequireRole(authorization.ObjectTicket, authorization.ActionView), s.UploadTicketAttachment)
		tickets.GET("/:id/attachments/:attachmentId", s.RequireRole(authorization.ObjectTicket, authorization.ActionView), s.DownloadTicketAttachment)
	}

	// -------- Credits --------
	credits := api.Group("/credits", RequirePermission(identity.PermissionCredits))
	{
		credits.GET("/summary", s.RequireRole(authorization.ObjectCredit, authorization.ActionView), s.CreditSummary)
		credits.GET("/statement.pdf", s.RequireRole(authorization.ObjectCredit, authorization.ActionView), s.CreditStatement)

		credits.GET("/blocks", s.RequireRole(authorization.ObjectCredit, authorization.ActionView), s.ListCreditBlocks)
		credits.POST("/blocks", s.RequireRole(authorization.ObjectCredit, authorization.ActionCreate), s.CreateCreditBlock)
		credits.GET("/blocks/:id", s.RequireRole(authorization.ObjectCredit, authorization.ActionView), s.GetCreditBlock)
		credits.PUT("/blocks/:id", s.RequireRole(authorization.ObjectCredit, authorization.ActionUpdate), s.UpdateCreditBlock)
		credits.DELETE("/blocks/:id", s.RequireRole(authorization.ObjectCredit, authorization.ActionDelete), s.DeleteCreditBlock)

		credits.GET("/log-entries", s.RequireRole(authorization.ObjectCredit, authorization.ActionView), s.ListCreditEntries)
		credits.POST("/log-entries", s.RequireRole(authorization.ObjectCredit, authorization.ActionCreate), s.CreateCreditEntry)
		credits.POST("/log-entries/import", s.RequireRole(authorization.ObjectCredit, authorization.ActionImport), s.ImportCreditEntries)
		credits.GET("/log-entries/:id", s.RequireRole(authorization.ObjectCredit, authorization.ActionView), s.GetCreditEntry)
		credits.PUT("/log-entries/:id", s.RequireRole(authorization.ObjectCredit, authorization.ActionUpdate), s.UpdateCreditEntry)
		credits.DELETE("/log-entries/:id", s.RequireRole(authorization.ObjectCredit, authorization.ActionDelete), s.DeleteCreditEntry)
	}

	// -------- Feedback --------
	feedbackLinks := api.Group("/feedback", RequirePermission(identity.PermissionFeedback))
	{
		feedbackLinks.GET("", s.RequireRole(authorization.ObjectFeedback, authorization.ActionView), s.ListFeedbackLinks)
		feedbackLinks.POST("", s.RequireRole(authorization.ObjectFeedback, authorization.ActionCreate), s.CreateFeedbackLink)
		feedbackLinks.GET("/:id", s.RequireRole(authorization.ObjectFeedback, authorization.ActionView), s.GetFeedbackLink)
		feedbackLinks.PUT("/:id", s.RequireRole(authorization.ObjectFeedback, authorization.ActionUpdate), s.UpdateFeedbackLink)
		feedbackLinks.DELETE("/:id", s.RequireRole(authorization.ObjectFeedback, authorization.ActionDelete), s.DeleteFeedbackLink)
	}

	// -------- Audit --------
	api.GET("/audit-logs", s.RequireRole(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/api/public", s.RateLimit("feedback", feedbackLimit))

	public.GET("/feedback/:code", s.GetPublicFeedback)
	public.POST("/feedback/:code/responses", s.SubmitPublicFeedback)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

// Health pings the database with a short deadline.
func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}
