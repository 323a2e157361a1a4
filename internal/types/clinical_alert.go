package types

import (
	"time"

	"github.com/google/uuid"
)

type AlertSeverity string

const (
	AlertSeverityModerate AlertSeverity = "moderate"
	AlertSeverityHigh     AlertSeverity = "high"
	AlertSeverityCritical AlertSeverity = "critical"
)

// ClinicalAlert is produced by the delayed clinical phase when a risk
// category crosses a threshold.
type ClinicalAlert struct {
	ID              uuid.UUID            `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	QuestionnaireID uuid.UUID            `gorm:"type:uuid;not null;index" json:"questionnaire_id"`
	Questionnaire   *HealthQuestionnaire `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionnaireID;references:ID" json:"questionnaire,omitempty"`
	BeneficiaryID   uuid.UUID            `gorm:"type:uuid;not null;index" json:"beneficiary_id"`
	Beneficiary     *Beneficiary         `gorm:"constraint:OnDelete:CASCADE;foreignKey:BeneficiaryID;references:ID" json:"beneficiary,omitempty"`
	Category        string               `gorm:"not null;column:category" json:"category"`
	Score           float64              `gorm:"not null;column:score" json:"score"`
	Severity        AlertSeverity        `gorm:"not null;column:severity" json:"severity"`
	Acknowledged    bool                 `gorm:"not null;default:false;column:acknowledged" json:"acknowledged"`
	CreatedAt       time.Time            `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"not null;default:now()" json:"updated_at"`
}

func (ClinicalAlert) TableName() string { return "clinical_alert" }
