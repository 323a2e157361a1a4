package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// HealthQuestionnaire carries the live risk scores plus the snapshot and
// processing status the coordinator maintains. RiskScoresSnapshot is
// write-once per processing cycle and must be captured before any
// gamification or clinical mutation touches RiskScores.
type HealthQuestionnaire struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BeneficiaryID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"beneficiary_id"`
	Beneficiary        *Beneficiary   `gorm:"constraint:OnDelete:CASCADE;foreignKey:BeneficiaryID;references:ID" json:"beneficiary,omitempty"`
	RiskScores         datatypes.JSON `gorm:"type:jsonb;column:risk_scores" json:"risk_scores"`
	RiskScoresSnapshot datatypes.JSON `gorm:"type:jsonb;column:risk_scores_snapshot" json:"risk_scores_snapshot"`
	ProcessingStatus   datatypes.JSON `gorm:"type:jsonb;column:processing_status" json:"processing_status"`
	CompletedAt        *time.Time     `gorm:"index;column:completed_at" json:"completed_at,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (HealthQuestionnaire) TableName() string { return "health_questionnaire" }

// RiskScores is the decoded shape of the risk_scores column.
type RiskScores struct {
	OverallRiskScore float64            `json:"overall_risk_score"`
	Categories       map[string]float64 `json:"categories"`
}

// ProcessingStatus is append-only: the coordinator and the clinical job each
// set their own fields and never clear the other phase's.
type ProcessingStatus struct {
	StartedAt                 *time.Time `json:"started_at,omitempty"`
	GamificationProcessed     bool       `json:"gamification_processed"`
	GamificationProcessedAt   *time.Time `json:"gamification_processed_at,omitempty"`
	PointsAwarded             int        `json:"points_awarded,omitempty"`
	BadgesAwarded             []string   `json:"badges_awarded,omitempty"`
	ClinicalAlertsProcessed   bool       `json:"clinical_alerts_processed"`
	ClinicalAlertsProcessedAt *time.Time `json:"clinical_alerts_processed_at,omitempty"`
}

func DecodeRiskScores(raw datatypes.JSON) (RiskScores, error) {
	var out RiskScores
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return RiskScores{}, err
	}
	return out, nil
}

func DecodeProcessingStatus(raw datatypes.JSON) (ProcessingStatus, error) {
	var out ProcessingStatus
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return ProcessingStatus{}, err
	}
	return out, nil
}

func EncodeProcessingStatus(ps ProcessingStatus) (datatypes.JSON, error) {
	b, err := json.Marshal(ps)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
