package clinical

import (
	"testing"

	"github.com/google/uuid"

	"github.com/vidaplus/onboarding-backend/internal/types"
)

func TestSeverityFor(t *testing.T) {
	cases := []struct {
		score   float64
		want    types.AlertSeverity
		flagged bool
	}{
		{0, "", false},
		{29.9, "", false},
		{30, types.AlertSeverityModerate, true},
		{59.9, types.AlertSeverityModerate, true},
		{60, types.AlertSeverityHigh, true},
		{79.9, types.AlertSeverityHigh, true},
		{80, types.AlertSeverityCritical, true},
		{100, types.AlertSeverityCritical, true},
	}
	for _, tc := range cases {
		severity, flagged := SeverityFor(tc.score)
		if flagged != tc.flagged || severity != tc.want {
			t.Errorf("SeverityFor(%v) = (%q, %v), want (%q, %v)",
				tc.score, severity, flagged, tc.want, tc.flagged)
		}
	}
}

func TestAnalysisScoresPrefersLiveValues(t *testing.T) {
	q := &types.HealthQuestionnaire{
		RiskScores:         []byte(`{"overall_risk_score":85,"categories":{"stress":90}}`),
		RiskScoresSnapshot: []byte(`{"overall_risk_score":20,"categories":{"stress":10}}`),
	}

	// A questionnaire re-scored after processing must be analyzed against the
	// current values, not the ones the gamification phase saw.
	scores, err := analysisScores(q)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if scores.OverallRiskScore != 85 || scores.Categories["stress"] != 90 {
		t.Fatalf("expected live scores, got %+v", scores)
	}

	// The snapshot only backstops rows whose live scores were cleared.
	q.RiskScores = nil
	scores, err = analysisScores(q)
	if err != nil {
		t.Fatalf("decode fallback: %v", err)
	}
	if scores.OverallRiskScore != 20 {
		t.Fatalf("expected snapshot fallback, got %+v", scores)
	}

	q.RiskScores = []byte("null")
	scores, err = analysisScores(q)
	if err != nil {
		t.Fatalf("decode null fallback: %v", err)
	}
	if scores.OverallRiskScore != 20 {
		t.Fatalf("expected snapshot fallback for null scores, got %+v", scores)
	}
}

func TestBuildAlerts(t *testing.T) {
	q := &types.HealthQuestionnaire{ID: uuid.New(), BeneficiaryID: uuid.New()}
	scores := types.RiskScores{
		OverallRiskScore: 45,
		Categories: map[string]float64{
			"sleep":     10,
			"stress":    65,
			"nutrition": 85,
		},
	}

	alerts := buildAlerts(q, scores)
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(alerts))
	}

	bySeverity := map[string]types.AlertSeverity{}
	for _, alert := range alerts {
		if alert.QuestionnaireID != q.ID || alert.BeneficiaryID != q.BeneficiaryID {
			t.Fatalf("alert not bound to questionnaire: %+v", alert)
		}
		bySeverity[alert.Category] = alert.Severity
	}
	if bySeverity["stress"] != types.AlertSeverityHigh {
		t.Fatalf("stress severity %q", bySeverity["stress"])
	}
	if bySeverity["nutrition"] != types.AlertSeverityCritical {
		t.Fatalf("nutrition severity %q", bySeverity["nutrition"])
	}
	if bySeverity["overall"] != types.AlertSeverityModerate {
		t.Fatalf("overall severity %q", bySeverity["overall"])
	}
	if _, ok := bySeverity["sleep"]; ok {
		t.Fatal("low-risk category must not raise an alert")
	}

	if got := maxSeverity(alerts); got != string(types.AlertSeverityCritical) {
		t.Fatalf("maxSeverity = %q", got)
	}
	if got := maxSeverity(nil); got != "" {
		t.Fatalf("maxSeverity(nil) = %q", got)
	}
}
