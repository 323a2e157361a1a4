package types

import (
	"time"

	"github.com/google/uuid"
)

// FeatureAccess unlocks a single feature for a beneficiary. The composite
// unique index makes re-unlocking find the existing row, so UnlockedAt is
// stable across repeat deliveries.
type FeatureAccess struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BeneficiaryID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:ux_feature_access_key" json:"beneficiary_id"`
	Beneficiary   *Beneficiary `gorm:"constraint:OnDelete:CASCADE;foreignKey:BeneficiaryID;references:ID" json:"beneficiary,omitempty"`
	FeatureKey    string       `gorm:"not null;uniqueIndex:ux_feature_access_key;column:feature_key" json:"feature_key"`
	Enabled       bool         `gorm:"not null;default:true;column:enabled" json:"enabled"`
	UnlockedAt    time.Time    `gorm:"not null;column:unlocked_at" json:"unlocked_at"`
	ExpiresAt     *time.Time   `gorm:"column:expires_at" json:"expires_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:now()" json:"updated_at"`
}

func (FeatureAccess) TableName() string { return "feature_access" }
