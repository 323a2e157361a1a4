package types

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// The beneficiary bags are nested key-value state shared by every delivery
// handler. Each bag is a struct of optional sub-sections; a handler builds a
// patch containing only the sub-section it owns and merges it, so concurrent
// handlers for different reward kinds cannot clobber each other's keys.

type BeneficiarySettings struct {
	Priority    *PrioritySettings    `json:"priority,omitempty"`
	Scheduling  *SchedulingSettings  `json:"scheduling,omitempty"`
	Specialists *SpecialistSettings  `json:"specialists,omitempty"`
	Messaging   *MessagingSettings   `json:"messaging,omitempty"`
	Services    map[string]GrantInfo `json:"services,omitempty"`
}

type PrioritySettings struct {
	Enabled   bool       `json:"enabled"`
	Level     string     `json:"level,omitempty"`
	Services  []string   `json:"services,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type SchedulingSettings struct {
	PriorityScheduling bool `json:"priority_scheduling"`
}

type SpecialistSettings struct {
	SpecialistAccess bool `json:"specialist_access"`
}

type MessagingSettings struct {
	DirectChannel bool `json:"direct_channel"`
}

type GrantInfo struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Merge overwrites only the sub-sections present in patch.
func (s *BeneficiarySettings) Merge(patch BeneficiarySettings) {
	if patch.Priority != nil {
		s.Priority = patch.Priority
	}
	if patch.Scheduling != nil {
		s.Scheduling = patch.Scheduling
	}
	if patch.Specialists != nil {
		s.Specialists = patch.Specialists
	}
	if patch.Messaging != nil {
		s.Messaging = patch.Messaging
	}
	if patch.Services != nil {
		if s.Services == nil {
			s.Services = make(map[string]GrantInfo, len(patch.Services))
		}
		for k, v := range patch.Services {
			s.Services[k] = v
		}
	}
}

type BeneficiaryPermissions struct {
	Features map[string]FeatureGrant `json:"features,omitempty"`
}

type FeatureGrant struct {
	Enabled    bool       `json:"enabled"`
	UnlockedAt time.Time  `json:"unlocked_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Merge is keyed per feature; untouched features keep their grant as-is.
func (p *BeneficiaryPermissions) Merge(patch BeneficiaryPermissions) {
	if patch.Features == nil {
		return
	}
	if p.Features == nil {
		p.Features = make(map[string]FeatureGrant, len(patch.Features))
	}
	for k, v := range patch.Features {
		p.Features[k] = v
	}
}

type CommunicationPreferences struct {
	EmailEnabled bool `json:"email_enabled"`
	SMSEnabled   bool `json:"sms_enabled"`
	PushEnabled  bool `json:"push_enabled"`
}

func DecodeSettings(raw datatypes.JSON) (BeneficiarySettings, error) {
	var out BeneficiarySettings
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return BeneficiarySettings{}, err
	}
	return out, nil
}

func EncodeSettings(s BeneficiarySettings) (datatypes.JSON, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func DecodePermissions(raw datatypes.JSON) (BeneficiaryPermissions, error) {
	var out BeneficiaryPermissions
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return BeneficiaryPermissions{}, err
	}
	return out, nil
}

func EncodePermissions(p BeneficiaryPermissions) (datatypes.JSON, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
