package clinical

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow analyzes one questionnaire's risk scores and, when the
// analysis produced alerts, generates the follow-up report. The analyze
// activity refuses to run until the gamification phase has committed; the
// retry policy absorbs that window.
func Workflow(ctx workflow.Context, input AnalysisInput) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    10 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    2 * time.Minute,
			MaximumAttempts:    10,
		},
	})

	var analysis AnalysisResult
	if err := workflow.ExecuteActivity(ctx, ActivityAnalyze, input).Get(ctx, &analysis); err != nil {
		return err
	}
	if analysis.AlreadyProcessed || analysis.AlertsCreated == 0 {
		return nil
	}

	var report ReportResult
	return workflow.ExecuteActivity(ctx, ActivityReport, input).Get(ctx, &report)
}
