package types

import (
	"time"

	"github.com/google/uuid"
)

// PointsTransaction is the append-only ledger behind the beneficiary's
// points balance.
type PointsTransaction struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BeneficiaryID uuid.UUID    `gorm:"type:uuid;not null;index" json:"beneficiary_id"`
	Beneficiary   *Beneficiary `gorm:"constraint:OnDelete:CASCADE;foreignKey:BeneficiaryID;references:ID" json:"beneficiary,omitempty"`
	Points        int          `gorm:"not null;column:points" json:"points"`
	Reason        string       `gorm:"not null;index;column:reason" json:"reason"`
	Description   string       `gorm:"column:description" json:"description"`
	CreatedAt     time.Time    `gorm:"not null;default:now()" json:"created_at"`
}

func (PointsTransaction) TableName() string { return "points_transaction" }
