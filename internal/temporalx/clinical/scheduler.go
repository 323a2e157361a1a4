package clinical

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/temporalx"
)

// Scheduler starts the delayed analysis workflow for a processed
// questionnaire. The workflow id is derived from the questionnaire, so a
// duplicate schedule of the same questionnaire collapses onto the running
// execution.
type Scheduler struct {
	log *logger.Logger
	tc  temporalsdkclient.Client
	cfg temporalx.Config
}

func NewScheduler(baseLog *logger.Logger, tc temporalsdkclient.Client) *Scheduler {
	return &Scheduler{
		log: baseLog.With("service", "ClinicalScheduler"),
		tc:  tc,
		cfg: temporalx.LoadConfig(),
	}
}

func (s *Scheduler) ScheduleAnalysis(ctx context.Context, questionnaireID, beneficiaryID uuid.UUID) error {
	if s.tc == nil {
		return fmt.Errorf("temporal client is not configured")
	}

	opts := temporalsdkclient.StartWorkflowOptions{
		ID:         fmt.Sprintf("clinical_analysis_%s", questionnaireID),
		TaskQueue:  s.cfg.TaskQueue,
		StartDelay: StartDelay,
	}
	input := AnalysisInput{QuestionnaireID: questionnaireID, BeneficiaryID: beneficiaryID}

	run, err := s.tc.ExecuteWorkflow(ctx, opts, WorkflowName, input)
	if err != nil {
		return fmt.Errorf("start clinical analysis workflow: %w", err)
	}

	s.log.Info("Clinical analysis scheduled",
		"questionnaire_id", questionnaireID,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)
	return nil
}
