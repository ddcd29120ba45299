package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/sparksai/insight-server/internal/adapter/handler/http"
	"github.com/sparksai/insight-server/internal/adapter/repository"
	"github.com/sparksai/insight-server/internal/config"
	"github.com/sparksai/insight-server/internal/usecase"
	"go.uber.org/zap"
)

// Dependencies are the wired usecases the HTTP layer exposes.
type Dependencies struct {
	Hierarchy *usecase.HierarchyUsecase
	Reports   *usecase.ReportService
	Sprints   repository.SprintMetricsRepository
}

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
	deps   *Dependencies
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps *Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PATCH, echo.DELETE},
	}))

	return &Server{
		config: cfg,
		logger: logger,
		echo:   e,
		deps:   deps,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Initialize handlers
	reportHandler := handlers.NewReportHandler(s.logger, s.deps.Reports)
	groupHandler := handlers.NewGroupHandler(s.logger, s.deps.Hierarchy)
	teamHandler := handlers.NewTeamHandler(s.logger, s.deps.Hierarchy)
	sprintHandler := handlers.NewSprintHandler(s.logger, s.deps.Sprints)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Reports
	v1.GET("/reports", reportHandler.ListReports)
	v1.GET("/reports/:report_id", reportHandler.GetReportInstance)
	v1.DELETE("/reports/cache", reportHandler.InvalidateReportCache)

	// Groups
	v1.GET("/groups", groupHandler.GetAllGroups)
	v1.POST("/groups", groupHandler.CreateGroup)
	v1.PATCH("/groups/:groupId", groupHandler.UpdateGroup)
	v1.DELETE("/groups/:groupId", groupHandler.DeleteGroup)
	v1.GET("/groups/:groupId/teams", groupHandler.GetTeamsInGroup)

	// Teams
	v1.GET("/teams", teamHandler.GetAllTeams)
	v1.GET("/teams/names", teamHandler.GetTeamNames)

	// Sprints
	v1.GET("/sprints", sprintHandler.GetAllSprints)
}
