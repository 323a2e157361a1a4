package clinical

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

const (
	moderateBound = 30.0
	highBound     = 60.0
	criticalBound = 80.0
)

type Activities struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Quests repos.QuestionnaireRepo
	Alerts repos.ClinicalAlertRepo
}

// SeverityFor maps a risk score onto an alert severity; scores under the
// moderate bound produce no alert.
func SeverityFor(score float64) (types.AlertSeverity, bool) {
	switch {
	case score >= criticalBound:
		return types.AlertSeverityCritical, true
	case score >= highBound:
		return types.AlertSeverityHigh, true
	case score >= moderateBound:
		return types.AlertSeverityModerate, true
	default:
		return "", false
	}
}

// Analyze evaluates the live risk scores and creates one alert per category
// over threshold. It returns a plain error while the gamification phase has
// not committed yet, so Temporal retries until the ordering holds.
func (a *Activities) Analyze(ctx context.Context, input AnalysisInput) (AnalysisResult, error) {
	questionnaire, err := a.Quests.GetByID(ctx, nil, input.QuestionnaireID)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("load questionnaire: %w", err)
	}

	status, err := types.DecodeProcessingStatus(questionnaire.ProcessingStatus)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("decode processing status: %w", err)
	}
	if !status.GamificationProcessed {
		return AnalysisResult{}, fmt.Errorf("gamification phase has not completed for questionnaire %s", input.QuestionnaireID)
	}
	if status.ClinicalAlertsProcessed {
		return AnalysisResult{QuestionnaireID: questionnaire.ID, AlreadyProcessed: true}, nil
	}

	scores, err := analysisScores(questionnaire)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("decode risk scores: %w", err)
	}

	alerts := buildAlerts(questionnaire, scores)

	result := AnalysisResult{QuestionnaireID: questionnaire.ID}
	err = a.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := a.Quests.GetByIDForUpdate(ctx, tx, questionnaire.ID)
		if err != nil {
			return err
		}
		lockedStatus, err := types.DecodeProcessingStatus(locked.ProcessingStatus)
		if err != nil {
			return err
		}
		if lockedStatus.ClinicalAlertsProcessed {
			result.AlreadyProcessed = true
			return nil
		}

		if len(alerts) > 0 {
			if _, err := a.Alerts.Create(ctx, tx, alerts); err != nil {
				return fmt.Errorf("create alerts: %w", err)
			}
		}

		now := time.Now().UTC()
		lockedStatus.ClinicalAlertsProcessed = true
		lockedStatus.ClinicalAlertsProcessedAt = &now
		raw, err := types.EncodeProcessingStatus(lockedStatus)
		if err != nil {
			return err
		}
		return a.Quests.SetProcessingStatus(ctx, tx, questionnaire.ID, raw)
	})
	if err != nil {
		return AnalysisResult{}, err
	}
	if result.AlreadyProcessed {
		return result, nil
	}

	result.AlertsCreated = len(alerts)
	result.MaxSeverity = maxSeverity(alerts)
	a.Log.Info("Clinical analysis completed",
		"questionnaire_id", questionnaire.ID,
		"alerts_created", result.AlertsCreated,
		"max_severity", result.MaxSeverity,
	)
	return result, nil
}

// analysisScores decodes the current risk scores; the processing snapshot is
// only a fallback for rows whose live scores were cleared.
func analysisScores(q *types.HealthQuestionnaire) (types.RiskScores, error) {
	source := q.RiskScores
	if len(source) == 0 || string(source) == "null" {
		source = q.RiskScoresSnapshot
	}
	return types.DecodeRiskScores(source)
}

func buildAlerts(q *types.HealthQuestionnaire, scores types.RiskScores) []*types.ClinicalAlert {
	var alerts []*types.ClinicalAlert
	for category, score := range scores.Categories {
		severity, flagged := SeverityFor(score)
		if !flagged {
			continue
		}
		alerts = append(alerts, &types.ClinicalAlert{
			QuestionnaireID: q.ID,
			BeneficiaryID:   q.BeneficiaryID,
			Category:        category,
			Score:           score,
			Severity:        severity,
		})
	}
	if severity, flagged := SeverityFor(scores.OverallRiskScore); flagged {
		alerts = append(alerts, &types.ClinicalAlert{
			QuestionnaireID: q.ID,
			BeneficiaryID:   q.BeneficiaryID,
			Category:        "overall",
			Score:           scores.OverallRiskScore,
			Severity:        severity,
		})
	}
	return alerts
}

func maxSeverity(alerts []*types.ClinicalAlert) string {
	rank := map[types.AlertSeverity]int{
		types.AlertSeverityModerate: 1,
		types.AlertSeverityHigh:     2,
		types.AlertSeverityCritical: 3,
	}
	var best types.AlertSeverity
	for _, alert := range alerts {
		if rank[alert.Severity] > rank[best] {
			best = alert.Severity
		}
	}
	return string(best)
}

// Report summarizes the alerts created for a questionnaire. The summary feeds
// the care team's review queue via logs for now.
func (a *Activities) Report(ctx context.Context, input AnalysisInput) (ReportResult, error) {
	alerts, err := a.Alerts.GetByQuestionnaireID(ctx, nil, input.QuestionnaireID)
	if err != nil {
		return ReportResult{}, fmt.Errorf("load alerts: %w", err)
	}

	bySeverity := map[string]int{}
	for _, alert := range alerts {
		bySeverity[string(alert.Severity)]++
	}

	report := ReportResult{
		QuestionnaireID: input.QuestionnaireID,
		TotalAlerts:     len(alerts),
		BySeverity:      bySeverity,
		GeneratedAt:     time.Now().UTC(),
	}
	a.Log.Info("Clinical report generated",
		"questionnaire_id", input.QuestionnaireID,
		"total_alerts", report.TotalAlerts,
		"moderate", bySeverity[string(types.AlertSeverityModerate)],
		"high", bySeverity[string(types.AlertSeverityHigh)],
		"critical", bySeverity[string(types.AlertSeverityCritical)],
	)
	return report, nil
}
