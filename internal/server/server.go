package server

import (
	"net/http"

	"deepguard/internal/config"
	"deepguard/internal/handler"
	"deepguard/internal/middleware"
	"deepguard/internal/repository"
	"deepguard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	cfg    *config.Config
	logger *zap.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, logger *zap.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		db:     db,
		cfg:    cfg,
		logger: logger,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	orgRepo := repository.NewOrganizationRepository(s.db, s.logger)
	jobRepo := repository.NewJobRepository(s.db, s.logger)
	feedbackRepo := repository.NewFeedbackRepository(s.db, s.logger)
	versionRepo := repository.NewModelVersionRepository(s.db)

	admission := service.NewAdmissionService(jobRepo, s.cfg.Batch.MaxFiles, s.logger)
	feedback := service.NewFeedbackService(jobRepo, feedbackRepo, s.logger)
	analytics := service.NewAnalyticsService(orgRepo, jobRepo, s.logger)

	detectHandler := handler.NewDetectHandler(admission, s.logger)
	batchHandler := handler.NewBatchHandler(admission, s.logger)
	feedbackHandler := handler.NewFeedbackHandler(feedback, s.logger)
	orgHandler := handler.NewOrganizationHandler(analytics, s.logger)
	modelHandler := handler.NewModelVersionHandler(versionRepo, s.logger)

	// Health check
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// All API routes share the single organization-resolving auth check.
	api := s.router.Group("/api/v1")
	api.Use(middleware.Authenticate(orgRepo, s.cfg.Auth.JWTSecret, s.logger))
	{
		api.POST("/detect", detectHandler.SubmitJob)
		api.GET("/result/:job_id", detectHandler.GetResult)
		api.POST("/batch", batchHandler.SubmitBatch)
		api.GET("/batch/:batch_id", batchHandler.GetBatch)
		api.POST("/feedback", feedbackHandler.Record)
		api.GET("/organization/usage", orgHandler.GetUsage)
		api.GET("/organization/analytics", orgHandler.GetAnalytics)
		api.GET("/models/performance", modelHandler.GetPerformance)
	}
}

func (s *Server) Run(addr string) {
	s.logger.Info("Server starting", zap.String("addr", addr))
	if err := s.router.Run(addr); err != nil {
		s.logger.Fatal("Server failed to start", zap.Error(err))
	}
}
