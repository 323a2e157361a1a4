package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ServiceAccess is a premium-service grant. One row per
// beneficiary+service_type; repeat deliveries extend ExpiresAt instead of
// creating a second grant.
type ServiceAccess struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BeneficiaryID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:ux_service_access_grant" json:"beneficiary_id"`
	Beneficiary   *Beneficiary   `gorm:"constraint:OnDelete:CASCADE;foreignKey:BeneficiaryID;references:ID" json:"beneficiary,omitempty"`
	ServiceType   string         `gorm:"not null;uniqueIndex:ux_service_access_grant;column:service_type" json:"service_type"`
	Features      datatypes.JSON `gorm:"type:jsonb;column:features" json:"features"`
	StartsAt      time.Time      `gorm:"not null;column:starts_at" json:"starts_at"`
	ExpiresAt     time.Time      `gorm:"not null;index;column:expires_at" json:"expires_at"`
	Active        bool           `gorm:"not null;default:true;column:active" json:"active"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ServiceAccess) TableName() string { return "service_access" }
