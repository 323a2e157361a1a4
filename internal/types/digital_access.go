package types

import (
	"time"

	"github.com/google/uuid"
)

type DigitalReportType string

const (
	DigitalReportHealth    DigitalReportType = "health_report"
	DigitalReportWellness  DigitalReportType = "wellness_guide"
	DigitalReportNutrition DigitalReportType = "nutrition_plan"
	DigitalReportExercise  DigitalReportType = "exercise_program"
	DigitalReportGeneric   DigitalReportType = "generic"
)

// DigitalAccess grants download access to a generated digital asset. One row
// per beneficiary+reward (the handler's idempotency key).
type DigitalAccess struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BeneficiaryID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:ux_digital_access_claim" json:"beneficiary_id"`
	Beneficiary   *Beneficiary      `gorm:"constraint:OnDelete:CASCADE;foreignKey:BeneficiaryID;references:ID" json:"beneficiary,omitempty"`
	RewardID      uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:ux_digital_access_claim" json:"reward_id"`
	Reward        *Reward           `gorm:"constraint:OnDelete:CASCADE;foreignKey:RewardID;references:ID" json:"reward,omitempty"`
	ReportType    DigitalReportType `gorm:"not null;column:report_type" json:"report_type"`
	AssetPath     string            `gorm:"not null;column:asset_path" json:"asset_path"`
	DownloadToken string            `gorm:"uniqueIndex;not null;column:download_token" json:"download_token"`
	DownloadCount int               `gorm:"not null;default:0;column:download_count" json:"download_count"`
	ExpiresAt     time.Time         `gorm:"not null;column:expires_at" json:"expires_at"`
	CreatedAt     time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (DigitalAccess) TableName() string { return "digital_access" }
