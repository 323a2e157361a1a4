package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Beneficiary is the health-program participant rewards and risk scores are
// applied to. Settings, Permissions and CommunicationPreferences are the
// typed bags defined in beneficiary_bags.go; handlers merge their own
// sub-section instead of replacing the whole column.
type Beneficiary struct {
	ID                       uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email                    string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	FullName                 string         `gorm:"not null;column:full_name" json:"full_name"`
	Phone                    string         `gorm:"column:phone" json:"phone"`
	AddressStreet            string         `gorm:"column:address_street" json:"address_street"`
	AddressNumber            string         `gorm:"column:address_number" json:"address_number"`
	AddressCity              string         `gorm:"column:address_city" json:"address_city"`
	AddressState             string         `gorm:"column:address_state" json:"address_state"`
	AddressPostalCode        string         `gorm:"column:address_postal_code" json:"address_postal_code"`
	Points                   int            `gorm:"not null;default:0;column:points" json:"points"`
	Settings                 datatypes.JSON `gorm:"type:jsonb;column:settings" json:"settings"`
	Permissions              datatypes.JSON `gorm:"type:jsonb;column:permissions" json:"permissions"`
	CommunicationPreferences datatypes.JSON `gorm:"type:jsonb;column:communication_preferences" json:"communication_preferences"`
	CreatedAt                time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt                gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Beneficiary) TableName() string { return "beneficiary" }

// ShippingAddress is the snapshot stored on a shipping order at delivery
// time, so later profile edits do not rewrite history.
type ShippingAddress struct {
	Recipient  string `json:"recipient"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

func (b *Beneficiary) ShippingAddress() ShippingAddress {
	return ShippingAddress{
		Recipient:  b.FullName,
		Street:     b.AddressStreet,
		Number:     b.AddressNumber,
		City:       b.AddressCity,
		State:      b.AddressState,
		PostalCode: b.AddressPostalCode,
	}
}
