package types

import (
	"testing"
	"time"
)

func TestSettingsMergeKeepsOtherSections(t *testing.T) {
	expires := time.Now().UTC().Add(24 * time.Hour)
	current := BeneficiarySettings{
		Scheduling: &SchedulingSettings{PriorityScheduling: true},
		Services: map[string]GrantInfo{
			"premium": {Active: true, ExpiresAt: &expires},
		},
	}

	current.Merge(BeneficiarySettings{
		Priority: &PrioritySettings{Enabled: true, Level: "vip"},
		Services: map[string]GrantInfo{
			"telehealth": {Active: true},
		},
	})

	if current.Scheduling == nil || !current.Scheduling.PriorityScheduling {
		t.Fatal("merge must not clear sections absent from the patch")
	}
	if current.Priority == nil || current.Priority.Level != "vip" {
		t.Fatal("patched section not applied")
	}
	if len(current.Services) != 2 {
		t.Fatalf("expected service map keys to merge, got %v", current.Services)
	}
	if !current.Services["premium"].Active {
		t.Fatal("existing service grant clobbered by merge")
	}
}

func TestPermissionsMergeIsPerFeature(t *testing.T) {
	first := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	current := BeneficiaryPermissions{
		Features: map[string]FeatureGrant{
			"advanced_reports": {Enabled: true, UnlockedAt: first},
		},
	}

	current.Merge(BeneficiaryPermissions{
		Features: map[string]FeatureGrant{
			"specialist_chat": {Enabled: true, UnlockedAt: first.AddDate(0, 1, 0)},
		},
	})

	if len(current.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(current.Features))
	}
	if got := current.Features["advanced_reports"].UnlockedAt; !got.Equal(first) {
		t.Fatalf("untouched grant changed: %v", got)
	}
}

func TestDecodeSettingsEmpty(t *testing.T) {
	for _, raw := range []string{"", "null"} {
		s, err := DecodeSettings([]byte(raw))
		if err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
		if s.Priority != nil || s.Services != nil {
			t.Fatalf("expected zero settings for %q", raw)
		}
	}
}
