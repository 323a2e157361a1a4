package main

import (
	"fmt"
	"os"

	"github.com/vidaplus/onboarding-backend/internal/clients/redis"
	"github.com/vidaplus/onboarding-backend/internal/db"
	"github.com/vidaplus/onboarding-backend/internal/handlers"
	"github.com/vidaplus/onboarding-backend/internal/locks"
	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/middleware"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/rewards"
	"github.com/vidaplus/onboarding-backend/internal/server"
	"github.com/vidaplus/onboarding-backend/internal/services"
	"github.com/vidaplus/onboarding-backend/internal/temporalx"
	"github.com/vidaplus/onboarding-backend/internal/temporalx/clinical"
	"github.com/vidaplus/onboarding-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	beneficiaryRepo := repos.NewBeneficiaryRepo(thePG, log)
	rewardRepo := repos.NewRewardRepo(thePG, log)
	userRewardRepo := repos.NewUserRewardRepo(thePG, log)
	badgeRepo := repos.NewBadgeRepo(thePG, log)
	pointsRepo := repos.NewPointsTransactionRepo(thePG, log)
	discountRepo := repos.NewDiscountCodeRepo(thePG, log)
	digitalRepo := repos.NewDigitalAccessRepo(thePG, log)
	serviceAccessRepo := repos.NewServiceAccessRepo(thePG, log)
	shippingRepo := repos.NewShippingOrderRepo(thePG, log)
	priorityRepo := repos.NewPriorityAccessRepo(thePG, log)
	featureRepo := repos.NewFeatureAccessRepo(thePG, log)
	questionnaireRepo := repos.NewQuestionnaireRepo(thePG, log)

	// Distributed lock
	log.Info("Setting up distributed lock from main...")
	var locker locks.Locker
	locker, err = redis.NewLocker(log)
	if err != nil {
		log.Warn("Redis locker unavailable; falling back to in-process lock", "error", err)
		locker = locks.NewMemoryLocker()
	}

	// Temporal
	temporalClient, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Temporal init failed", "error", err)
		os.Exit(1)
	}
	if temporalClient != nil {
		defer temporalClient.Close()
	}

	// Services
	log.Info("Setting up Services from main...")
	gamificationService := services.NewGamificationService(thePG, log, badgeRepo, beneficiaryRepo, pointsRepo)
	clinicalScheduler := clinical.NewScheduler(log, temporalClient)
	coordinator := services.NewHealthDataCoordinator(thePG, log, locker, gamificationService, clinicalScheduler, questionnaireRepo)

	downloadBase := utils.GetEnv("DIGITAL_DOWNLOAD_BASE_URL", "https://downloads.vidaplus.com.br", log)
	rewardService := rewards.NewService(
		thePG,
		log,
		userRewardRepo,
		rewardRepo,
		beneficiaryRepo,
		pointsRepo,
		rewards.NewBadgeHandler(log, badgeRepo, gamificationService),
		rewards.NewDiscountHandler(log, discountRepo),
		rewards.NewDigitalItemHandler(log, digitalRepo, downloadBase),
		rewards.NewServiceUpgradeHandler(log, serviceAccessRepo, beneficiaryRepo),
		rewards.NewPhysicalItemHandler(log, shippingRepo, beneficiaryRepo),
		rewards.NewPriorityAccessHandler(log, priorityRepo, beneficiaryRepo),
		rewards.NewFeatureUnlockHandler(log, featureRepo, beneficiaryRepo),
	)

	// Handlers
	log.Info("Setting up handlers from main...")
	rewardsHandler := handlers.NewRewardsHandler(rewardService, rewardRepo, userRewardRepo)
	questionnaireHandler := handlers.NewQuestionnaireHandler(coordinator)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:       authMiddleware,
		RewardsHandler:       rewardsHandler,
		QuestionnaireHandler: questionnaireHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
