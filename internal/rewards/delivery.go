package rewards

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/types"
)

// Handler implements delivery for exactly one reward kind. Deliver performs
// the provisioning side effect and must be safe to call repeatedly for the
// same claim; Redeem performs the kind-specific "use" action. Both run inside
// a transaction opened by the dispatcher, so a mid-sequence error leaves no
// partial state.
type Handler interface {
	Kind() types.RewardKind
	Deliver(ctx context.Context, tx *gorm.DB, ur *types.UserReward) (map[string]any, error)
	Redeem(ctx context.Context, tx *gorm.DB, ur *types.UserReward, data map[string]any) (map[string]any, error)
	Validate(ur *types.UserReward, now time.Time) bool
}

type DeliveryResult struct {
	Success bool           `json:"success"`
	Details map[string]any `json:"details,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type RedemptionResult struct {
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// baseHandler carries the precondition shared by every kind: only a claimed,
// unexpired reward is deliverable.
type baseHandler struct{}

func (baseHandler) Validate(ur *types.UserReward, now time.Time) bool {
	if ur == nil {
		return false
	}
	return ur.Status == types.UserRewardStatusClaimed && !ur.IsExpired(now)
}

func decodeConfig(raw datatypes.JSON, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode delivery config: %w", err)
	}
	return nil
}

func randomToken(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// randomCode returns n characters from an alphabet without easily confused
// glyphs, for codes beneficiaries type by hand.
func randomCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random code: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
