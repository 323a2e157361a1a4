package clinical

import (
	"time"

	"github.com/google/uuid"
)

const (
	WorkflowName    = "clinical_analysis"
	ActivityAnalyze = "clinical_analyze"
	ActivityReport  = "clinical_report"

	// Alerts fire well after the gamification phase so a beneficiary sees
	// their points before any clinical follow-up reaches out.
	StartDelay = 30 * time.Second
)

type AnalysisInput struct {
	QuestionnaireID uuid.UUID `json:"questionnaire_id"`
	BeneficiaryID   uuid.UUID `json:"beneficiary_id"`
}

type AnalysisResult struct {
	QuestionnaireID  uuid.UUID `json:"questionnaire_id"`
	AlreadyProcessed bool      `json:"already_processed,omitempty"`
	AlertsCreated    int       `json:"alerts_created"`
	MaxSeverity      string    `json:"max_severity,omitempty"`
}

type ReportResult struct {
	QuestionnaireID uuid.UUID      `json:"questionnaire_id"`
	TotalAlerts     int            `json:"total_alerts"`
	BySeverity      map[string]int `json:"by_severity,omitempty"`
	GeneratedAt     time.Time      `json:"generated_at"`
}
