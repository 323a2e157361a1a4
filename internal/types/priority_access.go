package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	PriorityLevelStandard = "standard"
	PriorityLevelHigh     = "high"
	PriorityLevelVIP      = "vip"
)

// PriorityLevelRank orders grant levels; redemption picks the highest-ranked
// active grant covering the requested service.
func PriorityLevelRank(level string) int {
	switch level {
	case PriorityLevelVIP:
		return 3
	case PriorityLevelHigh:
		return 2
	case PriorityLevelStandard:
		return 1
	default:
		return 0
	}
}

// PriorityAccessGrant is time-boxed priority access to a set of services.
// Each delivery creates a new grant.
type PriorityAccessGrant struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BeneficiaryID uuid.UUID      `gorm:"type:uuid;not null;index" json:"beneficiary_id"`
	Beneficiary   *Beneficiary   `gorm:"constraint:OnDelete:CASCADE;foreignKey:BeneficiaryID;references:ID" json:"beneficiary,omitempty"`
	RewardID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"reward_id"`
	Reward        *Reward        `gorm:"constraint:OnDelete:CASCADE;foreignKey:RewardID;references:ID" json:"reward,omitempty"`
	Services      datatypes.JSON `gorm:"type:jsonb;not null;column:services" json:"services"`
	Level         string         `gorm:"not null;default:'standard';column:level" json:"level"`
	UsageLog      datatypes.JSON `gorm:"type:jsonb;column:usage_log" json:"usage_log"`
	ExpiresAt     time.Time      `gorm:"not null;index;column:expires_at" json:"expires_at"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (PriorityAccessGrant) TableName() string { return "priority_access_grant" }

type PriorityUsage struct {
	Service string    `json:"service"`
	UsedAt  time.Time `json:"used_at"`
}
