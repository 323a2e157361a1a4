package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/locks"
	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

const (
	processingLockTTL = 60 * time.Second

	basePoints            = 100
	lowCategoryThreshold  = 30.0
	lowCategoryBonus      = 10
	overallExcellentBound = 25.0
	overallExcellentBonus = 50
	overallGoodBound      = 40.0
	overallGoodBonus      = 25

	milestoneCount = 5

	reconcileConcurrency = 4
)

// ClinicalDispatcher hands a processed questionnaire off for delayed clinical
// analysis. The coordinator treats scheduling as best-effort: a dispatch
// failure is logged and reported, never rolled back into the gamification
// phase.
type ClinicalDispatcher interface {
	ScheduleAnalysis(ctx context.Context, questionnaireID, beneficiaryID uuid.UUID) error
}

type ProcessResult struct {
	Success           bool     `json:"success"`
	Message           string   `json:"message,omitempty"`
	AlreadyProcessed  bool     `json:"already_processed,omitempty"`
	PointsAwarded     int      `json:"points_awarded,omitempty"`
	BadgesAwarded     []string `json:"badges_awarded,omitempty"`
	ClinicalScheduled bool     `json:"clinical_scheduled"`
}

// HealthDataCoordinator processes a completed questionnaire exactly once:
// snapshot the risk scores, run gamification against the snapshot, then
// schedule the clinical analysis job. A per-questionnaire distributed lock
// keeps concurrent submissions from double-awarding.
type HealthDataCoordinator struct {
	db           *gorm.DB
	log          *logger.Logger
	locker       locks.Locker
	gamification GamificationService
	dispatcher   ClinicalDispatcher

	questRepo repos.QuestionnaireRepo
}

func NewHealthDataCoordinator(
	db *gorm.DB,
	baseLog *logger.Logger,
	locker locks.Locker,
	gamification GamificationService,
	dispatcher ClinicalDispatcher,
	questRepo repos.QuestionnaireRepo,
) *HealthDataCoordinator {
	return &HealthDataCoordinator{
		db:           db,
		log:          baseLog.With("service", "HealthDataCoordinator"),
		locker:       locker,
		gamification: gamification,
		dispatcher:   dispatcher,
		questRepo:    questRepo,
	}
}

func processingLockKey(questionnaireID uuid.UUID) string {
	return fmt.Sprintf("questionnaire_processing_%s", questionnaireID)
}

func (c *HealthDataCoordinator) ProcessQuestionnaire(ctx context.Context, questionnaireID uuid.UUID) (*ProcessResult, error) {
	if questionnaireID == uuid.Nil {
		return nil, fmt.Errorf("missing questionnaire id")
	}

	key := processingLockKey(questionnaireID)
	token, acquired, err := c.locker.Acquire(ctx, key, processingLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire processing lock: %w", err)
	}
	if !acquired {
		c.log.Info("Questionnaire already being processed", "questionnaire_id", questionnaireID)
		return &ProcessResult{Success: false, Message: "questionnaire is already being processed"}, nil
	}
	defer func() {
		if err := c.locker.Release(ctx, key, token); err != nil {
			c.log.Warn("Failed to release processing lock", "questionnaire_id", questionnaireID, "error", err)
		}
	}()

	var (
		result        ProcessResult
		beneficiaryID uuid.UUID
	)
	err = c.db.Transaction(func(tx *gorm.DB) error {
		questionnaire, err := c.questRepo.GetByIDForUpdate(ctx, tx, questionnaireID)
		if err != nil {
			return fmt.Errorf("load questionnaire: %w", err)
		}
		beneficiaryID = questionnaire.BeneficiaryID

		if questionnaire.CompletedAt == nil {
			return fmt.Errorf("questionnaire is not completed")
		}

		status, err := types.DecodeProcessingStatus(questionnaire.ProcessingStatus)
		if err != nil {
			return fmt.Errorf("decode processing status: %w", err)
		}
		if status.GamificationProcessed {
			result = ProcessResult{Success: true, AlreadyProcessed: true, Message: "questionnaire already processed"}
			return nil
		}

		now := time.Now().UTC()
		status.StartedAt = &now
		raw, err := types.EncodeProcessingStatus(status)
		if err != nil {
			return fmt.Errorf("encode processing status: %w", err)
		}
		if err := c.questRepo.SetProcessingStatus(ctx, tx, questionnaireID, raw); err != nil {
			return err
		}

		// Snapshot before any mutation so reconciliation can tell whether
		// the awards were computed against scores that later changed.
		if len(questionnaire.RiskScoresSnapshot) == 0 || string(questionnaire.RiskScoresSnapshot) == "null" {
			if err := c.questRepo.SetSnapshot(ctx, tx, questionnaireID, questionnaire.RiskScores); err != nil {
				return fmt.Errorf("snapshot risk scores: %w", err)
			}
		}

		scores, err := types.DecodeRiskScores(questionnaire.RiskScores)
		if err != nil {
			return fmt.Errorf("decode risk scores: %w", err)
		}

		points := CompletionPoints(scores)
		if err := c.gamification.AwardPoints(ctx, tx, beneficiaryID, points, "questionnaire_completed", "Health questionnaire completed"); err != nil {
			return fmt.Errorf("award points: %w", err)
		}

		badges, err := c.awardBadges(ctx, tx, beneficiaryID, scores)
		if err != nil {
			return fmt.Errorf("award badges: %w", err)
		}

		status.GamificationProcessed = true
		status.GamificationProcessedAt = &now
		status.PointsAwarded = points
		status.BadgesAwarded = badges
		raw, err = types.EncodeProcessingStatus(status)
		if err != nil {
			return err
		}
		if err := c.questRepo.SetProcessingStatus(ctx, tx, questionnaireID, raw); err != nil {
			return err
		}

		result = ProcessResult{Success: true, PointsAwarded: points, BadgesAwarded: badges}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.AlreadyProcessed {
		return &result, nil
	}

	if err := c.dispatcher.ScheduleAnalysis(ctx, questionnaireID, beneficiaryID); err != nil {
		// Gamification already committed; the reconcile sweep picks up
		// questionnaires whose clinical phase never ran.
		c.log.Error("Failed to schedule clinical analysis", "questionnaire_id", questionnaireID, "error", err)
		result.Message = "clinical analysis could not be scheduled"
	} else {
		result.ClinicalScheduled = true
	}

	c.log.Info("Questionnaire processed",
		"questionnaire_id", questionnaireID,
		"points_awarded", result.PointsAwarded,
		"badges_awarded", len(result.BadgesAwarded),
		"clinical_scheduled", result.ClinicalScheduled,
	)
	return &result, nil
}

// CompletionPoints computes the gamification award for a completed
// questionnaire: a base amount, a bonus per low-risk category, and a bonus
// tier for the overall score.
func CompletionPoints(scores types.RiskScores) int {
	points := basePoints
	for _, v := range scores.Categories {
		if v < lowCategoryThreshold {
			points += lowCategoryBonus
		}
	}
	switch {
	case scores.OverallRiskScore < overallExcellentBound:
		points += overallExcellentBonus
	case scores.OverallRiskScore < overallGoodBound:
		points += overallGoodBonus
	}
	return points
}

func (c *HealthDataCoordinator) awardBadges(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, scores types.RiskScores) ([]string, error) {
	completed, err := c.questRepo.CountCompletedForBeneficiary(ctx, tx, beneficiaryID)
	if err != nil {
		return nil, err
	}

	var candidates []*types.Badge
	if completed == 1 {
		candidates = append(candidates, &types.Badge{
			Slug:        "first_assessment",
			Name:        "First Assessment",
			Description: "Completed the first health questionnaire",
			PointsValue: 50,
		})
	}
	if completed == milestoneCount {
		candidates = append(candidates, &types.Badge{
			Slug:        "assessment_streak_5",
			Name:        "Assessment Streak",
			Description: "Completed five health questionnaires",
			PointsValue: 100,
		})
	}
	if allCategoriesLow(scores) {
		candidates = append(candidates, &types.Badge{
			Slug:        "low_risk_champion",
			Name:        "Low Risk Champion",
			Description: "Every risk category under control",
			PointsValue: 75,
		})
	}

	awarded := []string{}
	for _, candidate := range candidates {
		badge, err := c.gamification.AwardBadge(ctx, tx, beneficiaryID, candidate)
		if err != nil {
			return nil, err
		}
		if badge != nil {
			awarded = append(awarded, badge.Slug)
		}
	}
	return awarded, nil
}

func allCategoriesLow(scores types.RiskScores) bool {
	if len(scores.Categories) == 0 {
		return false
	}
	for _, v := range scores.Categories {
		if v >= lowCategoryThreshold {
			return false
		}
	}
	return true
}

// ReconcileProcessing re-checks one questionnaire without mutating it. It
// reports whether both phases ran and warns when the live scores have
// drifted from the snapshot the phases were computed against.
func (c *HealthDataCoordinator) ReconcileProcessing(ctx context.Context, questionnaireID uuid.UUID) (*ReconcileReport, error) {
	questionnaire, err := c.questRepo.GetByID(ctx, nil, questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("load questionnaire: %w", err)
	}

	status, err := types.DecodeProcessingStatus(questionnaire.ProcessingStatus)
	if err != nil {
		return nil, fmt.Errorf("decode processing status: %w", err)
	}

	report := &ReconcileReport{
		QuestionnaireID:       questionnaire.ID,
		GamificationProcessed: status.GamificationProcessed,
		ClinicalProcessed:     status.ClinicalAlertsProcessed,
	}

	if len(questionnaire.RiskScoresSnapshot) > 0 && string(questionnaire.RiskScoresSnapshot) != "null" {
		report.SnapshotTaken = true
		if !bytes.Equal(questionnaire.RiskScoresSnapshot, questionnaire.RiskScores) {
			report.SnapshotDiverged = true
			c.log.Warn("Risk scores diverged from processing snapshot",
				"questionnaire_id", questionnaire.ID,
			)
		}
	}

	held, err := c.locker.Held(ctx, processingLockKey(questionnaire.ID))
	if err == nil {
		report.LockHeld = held
	}
	return report, nil
}

type ReconcileReport struct {
	QuestionnaireID       uuid.UUID `json:"questionnaire_id"`
	GamificationProcessed bool      `json:"gamification_processed"`
	ClinicalProcessed     bool      `json:"clinical_processed"`
	SnapshotTaken         bool      `json:"snapshot_taken"`
	SnapshotDiverged      bool      `json:"snapshot_diverged"`
	LockHeld              bool      `json:"lock_held"`
}

// ReconcileRecent sweeps questionnaires completed since the given time and
// reports each one. Reads fan out with bounded concurrency.
func (c *HealthDataCoordinator) ReconcileRecent(ctx context.Context, since time.Time) ([]*ReconcileReport, error) {
	questionnaires, err := c.questRepo.ListCompletedSince(ctx, nil, since)
	if err != nil {
		return nil, fmt.Errorf("list completed questionnaires: %w", err)
	}

	reports := make([]*ReconcileReport, len(questionnaires))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(reconcileConcurrency)
	for i, questionnaire := range questionnaires {
		group.Go(func() error {
			report, err := c.ReconcileProcessing(groupCtx, questionnaire.ID)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
