package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/locks"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/repos/testutil"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type recordingDispatcher struct {
	calls []uuid.UUID
	err   error
}

func (d *recordingDispatcher) ScheduleAnalysis(ctx context.Context, questionnaireID, beneficiaryID uuid.UUID) error {
	d.calls = append(d.calls, questionnaireID)
	return d.err
}

func newTestCoordinator(t *testing.T, tx *gorm.DB, locker locks.Locker, dispatcher ClinicalDispatcher) *HealthDataCoordinator {
	t.Helper()
	log := testutil.Logger(t)

	benefRepo := repos.NewBeneficiaryRepo(tx, log)
	badgeRepo := repos.NewBadgeRepo(tx, log)
	ptsRepo := repos.NewPointsTransactionRepo(tx, log)
	questRepo := repos.NewQuestionnaireRepo(tx, log)
	gamification := NewGamificationService(tx, log, badgeRepo, benefRepo, ptsRepo)

	return NewHealthDataCoordinator(tx, log, locker, gamification, dispatcher, questRepo)
}

func TestCompletionPoints(t *testing.T) {
	cases := []struct {
		name   string
		scores types.RiskScores
		want   int
	}{
		{
			name:   "no categories moderate overall",
			scores: types.RiskScores{OverallRiskScore: 55},
			want:   100,
		},
		{
			name: "one low category",
			scores: types.RiskScores{
				OverallRiskScore: 55,
				Categories:       map[string]float64{"sleep": 12, "nutrition": 60},
			},
			want: 110,
		},
		{
			name: "category at threshold earns nothing",
			scores: types.RiskScores{
				OverallRiskScore: 55,
				Categories:       map[string]float64{"sleep": 30},
			},
			want: 100,
		},
		{
			name: "excellent overall",
			scores: types.RiskScores{
				OverallRiskScore: 24.9,
				Categories:       map[string]float64{"sleep": 10, "nutrition": 15},
			},
			want: 170,
		},
		{
			name:   "good overall boundary",
			scores: types.RiskScores{OverallRiskScore: 25},
			want:   125,
		},
		{
			name:   "above good boundary",
			scores: types.RiskScores{OverallRiskScore: 40},
			want:   100,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CompletionPoints(tc.scores); got != tc.want {
				t.Fatalf("CompletionPoints = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAllCategoriesLowRequiresCategories(t *testing.T) {
	if allCategoriesLow(types.RiskScores{OverallRiskScore: 5}) {
		t.Fatal("no categories must not count as low risk")
	}
	if allCategoriesLow(types.RiskScores{Categories: map[string]float64{"sleep": 10, "stress": 30}}) {
		t.Fatal("category at the threshold is not low")
	}
	if !allCategoriesLow(types.RiskScores{Categories: map[string]float64{"sleep": 10, "stress": 29.9}}) {
		t.Fatal("all categories under the threshold should count")
	}
}

func TestProcessQuestionnaireAwardsOnce(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dispatcher := &recordingDispatcher{}
	coordinator := newTestCoordinator(t, tx, locks.NewMemoryLocker(), dispatcher)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "coord-once@test.dev")
	questionnaire := testutil.SeedQuestionnaire(t, ctx, tx, beneficiary, types.RiskScores{
		OverallRiskScore: 20,
		Categories:       map[string]float64{"sleep": 10, "nutrition": 15},
	}, true)

	result, err := coordinator.ProcessQuestionnaire(ctx, questionnaire.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	// 100 base + 2 low categories + excellent overall, plus badge points.
	if result.PointsAwarded != 170 {
		t.Fatalf("points awarded %d, want 170", result.PointsAwarded)
	}
	wantBadges := map[string]bool{"first_assessment": true, "low_risk_champion": true}
	if len(result.BadgesAwarded) != len(wantBadges) {
		t.Fatalf("badges awarded %v", result.BadgesAwarded)
	}
	for _, slug := range result.BadgesAwarded {
		if !wantBadges[slug] {
			t.Fatalf("unexpected badge %q", slug)
		}
	}
	if !result.ClinicalScheduled || len(dispatcher.calls) != 1 {
		t.Fatalf("expected one clinical dispatch, got %d", len(dispatcher.calls))
	}

	var processed types.HealthQuestionnaire
	if err := tx.First(&processed, "id = ?", questionnaire.ID).Error; err != nil {
		t.Fatalf("reload questionnaire: %v", err)
	}
	status, err := types.DecodeProcessingStatus(processed.ProcessingStatus)
	if err != nil {
		t.Fatalf("decode processing status: %v", err)
	}
	if status.StartedAt == nil {
		t.Fatal("expected started_at to be recorded")
	}
	if !status.GamificationProcessed || status.GamificationProcessedAt == nil {
		t.Fatalf("gamification phase not recorded: %+v", status)
	}
	if status.PointsAwarded != 170 || len(status.BadgesAwarded) != 2 {
		t.Fatalf("awards not recorded in processing status: %+v", status)
	}

	// Second run is a no-op.
	again, err := coordinator.ProcessQuestionnaire(ctx, questionnaire.ID)
	if err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if !again.Success || !again.AlreadyProcessed {
		t.Fatalf("expected already-processed result, got %+v", again)
	}
	if again.PointsAwarded != 0 || len(dispatcher.calls) != 1 {
		t.Fatal("reprocessing must not award points or dispatch again")
	}

	// Completion points plus first_assessment (50) and low_risk_champion (75).
	var stored types.Beneficiary
	if err := tx.First(&stored, "id = ?", beneficiary.ID).Error; err != nil {
		t.Fatalf("reload beneficiary: %v", err)
	}
	if stored.Points != 170+50+75 {
		t.Fatalf("beneficiary points %d, want %d", stored.Points, 170+50+75)
	}
}

func TestProcessQuestionnaireSnapshotsBeforeMutation(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	coordinator := newTestCoordinator(t, tx, locks.NewMemoryLocker(), &recordingDispatcher{})

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "coord-snap@test.dev")
	questionnaire := testutil.SeedQuestionnaire(t, ctx, tx, beneficiary, types.RiskScores{
		OverallRiskScore: 70,
		Categories:       map[string]float64{"stress": 70},
	}, true)

	if _, err := coordinator.ProcessQuestionnaire(ctx, questionnaire.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	var stored types.HealthQuestionnaire
	if err := tx.First(&stored, "id = ?", questionnaire.ID).Error; err != nil {
		t.Fatalf("reload questionnaire: %v", err)
	}
	snapshot, err := types.DecodeRiskScores(stored.RiskScoresSnapshot)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.OverallRiskScore != 70 {
		t.Fatalf("snapshot overall %v, want 70", snapshot.OverallRiskScore)
	}

	// Live scores can change later; the snapshot stays put and reconcile
	// flags the divergence.
	if err := tx.Model(&types.HealthQuestionnaire{}).Where("id = ?", questionnaire.ID).
		UpdateColumn("risk_scores", []byte(`{"overall_risk_score":10,"categories":{}}`)).Error; err != nil {
		t.Fatalf("mutate live scores: %v", err)
	}
	report, err := coordinator.ReconcileProcessing(ctx, questionnaire.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !report.SnapshotTaken || !report.SnapshotDiverged {
		t.Fatalf("expected diverged snapshot report, got %+v", report)
	}
	if !report.GamificationProcessed || report.ClinicalProcessed {
		t.Fatalf("unexpected phase flags: %+v", report)
	}
}

func TestProcessQuestionnaireLockContention(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	locker := locks.NewMemoryLocker()
	dispatcher := &recordingDispatcher{}
	coordinator := newTestCoordinator(t, tx, locker, dispatcher)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "coord-lock@test.dev")
	questionnaire := testutil.SeedQuestionnaire(t, ctx, tx, beneficiary, types.RiskScores{
		OverallRiskScore: 50,
	}, true)

	key := fmt.Sprintf("questionnaire_processing_%s", questionnaire.ID)
	token, ok, err := locker.Acquire(ctx, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}

	result, err := coordinator.ProcessQuestionnaire(ctx, questionnaire.ID)
	if err != nil {
		t.Fatalf("process under contention: %v", err)
	}
	if result.Success {
		t.Fatal("expected contended processing to report busy")
	}
	if result.Message != "questionnaire is already being processed" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if len(dispatcher.calls) != 0 {
		t.Fatal("busy processing must not dispatch clinical analysis")
	}

	if err := locker.Release(ctx, key, token); err != nil {
		t.Fatalf("release: %v", err)
	}
	if result, err = coordinator.ProcessQuestionnaire(ctx, questionnaire.ID); err != nil || !result.Success {
		t.Fatalf("expected processing after release, got %+v err=%v", result, err)
	}
}

func TestProcessQuestionnaireRequiresCompletion(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	coordinator := newTestCoordinator(t, tx, locks.NewMemoryLocker(), &recordingDispatcher{})

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "coord-incomplete@test.dev")
	questionnaire := testutil.SeedQuestionnaire(t, ctx, tx, beneficiary, types.RiskScores{
		OverallRiskScore: 50,
	}, false)

	if _, err := coordinator.ProcessQuestionnaire(ctx, questionnaire.ID); err == nil {
		t.Fatal("expected incomplete questionnaire to be rejected")
	}

	// The failed run must not leave gamification marked as done.
	report, err := coordinator.ReconcileProcessing(ctx, questionnaire.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.GamificationProcessed {
		t.Fatal("failed run must not mark gamification processed")
	}
	if report.LockHeld {
		t.Fatal("lock must be released after a failed run")
	}
}

func TestProcessQuestionnaireToleratesDispatchFailure(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dispatcher := &recordingDispatcher{err: fmt.Errorf("task queue unavailable")}
	coordinator := newTestCoordinator(t, tx, locks.NewMemoryLocker(), dispatcher)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "coord-dispatch@test.dev")
	questionnaire := testutil.SeedQuestionnaire(t, ctx, tx, beneficiary, types.RiskScores{
		OverallRiskScore: 50,
	}, true)

	result, err := coordinator.ProcessQuestionnaire(ctx, questionnaire.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.Success {
		t.Fatal("dispatch failure must not fail the gamification phase")
	}
	if result.ClinicalScheduled {
		t.Fatal("expected clinical_scheduled false on dispatch failure")
	}
	if result.Message != "clinical analysis could not be scheduled" {
		t.Fatalf("unexpected message %q", result.Message)
	}

	// Points committed despite the failed dispatch.
	var stored types.Beneficiary
	if err := tx.First(&stored, "id = ?", beneficiary.ID).Error; err != nil {
		t.Fatalf("reload beneficiary: %v", err)
	}
	if stored.Points == 0 {
		t.Fatal("expected committed points despite dispatch failure")
	}
}

func TestReconcileRecent(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dispatcher := &recordingDispatcher{}
	coordinator := newTestCoordinator(t, tx, locks.NewMemoryLocker(), dispatcher)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "coord-sweep@test.dev")
	processed := testutil.SeedQuestionnaire(t, ctx, tx, beneficiary, types.RiskScores{
		OverallRiskScore: 50,
	}, true)
	pending := testutil.SeedQuestionnaire(t, ctx, tx, beneficiary, types.RiskScores{
		OverallRiskScore: 50,
	}, true)

	if _, err := coordinator.ProcessQuestionnaire(ctx, processed.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	reports, err := coordinator.ReconcileRecent(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("reconcile recent: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	byID := map[uuid.UUID]*ReconcileReport{}
	for _, report := range reports {
		byID[report.QuestionnaireID] = report
	}
	if report := byID[processed.ID]; report == nil || !report.GamificationProcessed {
		t.Fatalf("processed questionnaire not reported as done: %+v", report)
	}
	if report := byID[pending.ID]; report == nil || report.GamificationProcessed {
		t.Fatalf("pending questionnaire wrongly reported as done: %+v", report)
	}
}
