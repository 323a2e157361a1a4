package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vidaplus/onboarding-backend/internal/handlers"
	"github.com/vidaplus/onboarding-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware       *middleware.AuthMiddleware
	RewardsHandler       *handlers.RewardsHandler
	QuestionnaireHandler *handlers.QuestionnaireHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Rewards
	protected.GET("/rewards/catalog", cfg.RewardsHandler.Catalog)
	protected.GET("/rewards", cfg.RewardsHandler.ListMine)
	protected.POST("/rewards/claim", cfg.RewardsHandler.Claim)
	protected.POST("/rewards/:id/deliver", cfg.RewardsHandler.Deliver)
	protected.POST("/rewards/redeem", cfg.RewardsHandler.Redeem)
	// Questionnaires
	protected.POST("/questionnaires/:id/process", cfg.QuestionnaireHandler.Process)
	protected.GET("/questionnaires/:id/reconcile", cfg.QuestionnaireHandler.Reconcile)
	protected.POST("/questionnaires/reconcile", cfg.QuestionnaireHandler.ReconcileRecent)

	return router
}
