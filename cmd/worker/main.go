package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vidaplus/onboarding-backend/internal/db"
	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/temporalx"
	"github.com/vidaplus/onboarding-backend/internal/temporalx/temporalworker"
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
	thePG := postgresService.DB()

	// Repos
	questionnaireRepo := repos.NewQuestionnaireRepo(thePG, log)
	clinicalAlertRepo := repos.NewClinicalAlertRepo(thePG, log)

	// Temporal
	temporalClient, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Temporal init failed", "error", err)
		os.Exit(1)
	}
	if temporalClient == nil {
		log.Error("TEMPORAL_ADDRESS is required for the worker")
		os.Exit(1)
	}
	defer temporalClient.Close()

	runner, err := temporalworker.NewRunner(log, temporalClient, thePG, questionnaireRepo, clinicalAlertRepo)
	if err != nil {
		log.Error("Worker init failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Start(ctx); err != nil {
		log.Error("Worker failed to start", "error", err)
		os.Exit(1)
	}

	log.Info("Worker running; waiting for shutdown signal")
	<-ctx.Done()
	log.Info("Worker shutting down")
}
