package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	acldomain "github.com/bell24h/bell24h/internal/acl/domain"
	auditdomain "github.com/bell24h/bell24h/internal/audit/domain"
	"github.com/bell24h/bell24h/internal/authorization"
	"github.com/bell24h/bell24h/internal/config"
	"github.com/bell24h/bell24h/internal/observability"
	obsmiddleware "github.com/bell24h/bell24h/internal/observability/logger"
	"github.com/bell24h/bell24h/internal/observability/metrics"
	obstracing "github.com/bell24h/bell24h/internal/observability/tracing"
	organizationdomain "github.com/bell24h/bell24h/internal/organization/domain"
	"github.com/bell24h/bell24h/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(metrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if obsCfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	organizationSvc organizationdomain.Service
	aclSvc          acldomain.Service
	resolver        acldomain.Resolver
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	limiter         *ratelimit.PermissionQueryLimiter
	resolverMetrics *metrics.ResolverMetrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	OrganizationSvc organizationdomain.Service
	AclSvc          acldomain.Service
	Resolver        acldomain.Resolver
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	Limiter         *ratelimit.PermissionQueryLimiter `optional:"true"`
	ResolverMetrics *metrics.ResolverMetrics          `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		organizationSvc: p.OrganizationSvc,
		aclSvc:          p.AclSvc,
		resolver:        p.Resolver,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		limiter:         p.Limiter,
		resolverMetrics: p.ResolverMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.AuthRequired())

	// -------- Organizations --------
	api.POST("/organizations", s.CreateOrganization)
	api.GET("/organizations", s.ListOrganizations)
	api.GET("/organizations/:id", s.GetOrganization)
	api.POST("/organizations/:id/members", s.AddOrganizationMember)
	api.DELETE("/organizations/:id/members/:user_id", s.RemoveOrganizationMember)
	api.GET("/organizations/:id/audit-logs", s.ListAuditLogs)

	// -------- Teams --------
	api.GET("/organizations/:id/teams", s.ListTeams)
	api.POST("/organizations/:id/teams", s.CreateTeam)
	api.POST("/teams/:id/members", s.AddTeamMember)
	api.DELETE("/teams/:id/members/:user_id", s.RemoveTeamMember)

	// -------- ACLs --------
	api.GET("/acls", s.ListAcls)
	api.POST("/acls", s.CreateAcl)
	api.GET("/acls/:id", s.GetAcl)
	api.PATCH("/acls/:id", s.UpdateAcl)
	api.DELETE("/acls/:id", s.DeleteAcl)

	// -------- Rules --------
	api.GET("/acls/:id/rules", s.ListRules)
	api.POST("/acls/:id/rules", s.CreateRule)
	api.GET("/rules/:id", s.GetRule)
	api.PATCH("/rules/:id", s.UpdateRule)
	api.DELETE("/rules/:id", s.DeleteRule)

	// -------- Assignments --------
	api.GET("/acls/:id/assignments", s.ListAssignments)
	api.POST("/acls/:id/assignments", s.CreateAssignment)
	api.GET("/assignments/:id", s.GetAssignment)
	api.DELETE("/assignments/:id", s.DeleteAssignment)

	// -------- Permissions --------
	permissions := api.Group("/permissions", s.PermissionQueryRateLimit())
	permissions.GET("/effective", s.GetEffectivePermission)
	permissions.GET("/check", s.CheckPermission)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
