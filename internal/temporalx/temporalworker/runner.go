package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/temporalx"
	"github.com/vidaplus/onboarding-backend/internal/temporalx/clinical"
	"github.com/vidaplus/onboarding-backend/internal/utils"
)

// Runner hosts the clinical analysis worker: it registers the workflow and
// activities on the configured task queue and keeps retrying startup until
// the Temporal frontend answers.
type Runner struct {
	log *logger.Logger

	tc         temporalsdkclient.Client
	db         *gorm.DB
	questRepo  repos.QuestionnaireRepo
	alertsRepo repos.ClinicalAlertRepo
}

func NewRunner(
	log *logger.Logger,
	tc temporalsdkclient.Client,
	db *gorm.DB,
	questRepo repos.QuestionnaireRepo,
	alertsRepo repos.ClinicalAlertRepo,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if db == nil || questRepo == nil || alertsRepo == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:        log,
		tc:         tc,
		db:         db,
		questRepo:  questRepo,
		alertsRepo: alertsRepo,
	}, nil
}

func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}

	cfg := temporalx.LoadConfig()
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	maxWait := utils.GetEnvAsInt("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60, r.log)
	deadline := time.Now().Add(time.Duration(maxWait) * time.Second)

	backoff := 250 * time.Millisecond
	for attempt := 1; ; attempt++ {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		w := r.newWorker(cfg)
		startErr := w.Start()
		if startErr == nil {
			if ctx != nil {
				go func() {
					<-ctx.Done()
					w.Stop()
				}()
			}
			r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) {
			// A missing namespace never heals without operator action.
			return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
		}
		if maxWait <= 0 || time.Now().After(deadline) {
			return startErr
		}

		r.log.Warn("Temporal worker failed to start; retrying", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		time.Sleep(backoff)
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
}

func (r *Runner) newWorker(cfg temporalx.Config) worker.Worker {
	concurrency := utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, r.log)
	if concurrency < 1 {
		concurrency = 1
	}

	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &clinical.Activities{
		Log:    r.log,
		DB:     r.db,
		Quests: r.questRepo,
		Alerts: r.alertsRepo,
	}

	w.RegisterWorkflowWithOptions(clinical.Workflow, workflow.RegisterOptions{Name: clinical.WorkflowName})
	w.RegisterActivityWithOptions(acts.Analyze, activity.RegisterOptions{Name: clinical.ActivityAnalyze})
	w.RegisterActivityWithOptions(acts.Report, activity.RegisterOptions{Name: clinical.ActivityReport})
	return w
}
