package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type QuestionnaireRepo interface {
	Create(ctx context.Context, tx *gorm.DB, questionnaires []*types.HealthQuestionnaire) ([]*types.HealthQuestionnaire, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.HealthQuestionnaire, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.HealthQuestionnaire, error)
	SetSnapshot(ctx context.Context, tx *gorm.DB, id uuid.UUID, snapshot datatypes.JSON) error
	SetProcessingStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status datatypes.JSON) error
	SetRiskScores(ctx context.Context, tx *gorm.DB, id uuid.UUID, scores datatypes.JSON) error
	CountCompletedForBeneficiary(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) (int64, error)
	ListCompletedSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.HealthQuestionnaire, error)
}

type questionnaireRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionnaireRepo(db *gorm.DB, baseLog *logger.Logger) QuestionnaireRepo {
	return &questionnaireRepo{db: db, log: baseLog.With("repo", "QuestionnaireRepo")}
}

func (r *questionnaireRepo) Create(ctx context.Context, tx *gorm.DB, questionnaires []*types.HealthQuestionnaire) ([]*types.HealthQuestionnaire, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(questionnaires) == 0 {
		return []*types.HealthQuestionnaire{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&questionnaires).Error; err != nil {
		return nil, err
	}
	return questionnaires, nil
}

func (r *questionnaireRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.HealthQuestionnaire, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil, fmt.Errorf("missing questionnaire id")
	}

	var result types.HealthQuestionnaire
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *questionnaireRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.HealthQuestionnaire, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil, fmt.Errorf("missing questionnaire id")
	}

	var result types.HealthQuestionnaire
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *questionnaireRepo) SetSnapshot(ctx context.Context, tx *gorm.DB, id uuid.UUID, snapshot datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.HealthQuestionnaire{}).
		Where("id = ?", id).
		UpdateColumn("risk_scores_snapshot", snapshot).Error
}

func (r *questionnaireRepo) SetProcessingStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.HealthQuestionnaire{}).
		Where("id = ?", id).
		UpdateColumn("processing_status", status).Error
}

func (r *questionnaireRepo) SetRiskScores(ctx context.Context, tx *gorm.DB, id uuid.UUID, scores datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.HealthQuestionnaire{}).
		Where("id = ?", id).
		UpdateColumn("risk_scores", scores).Error
}

func (r *questionnaireRepo) CountCompletedForBeneficiary(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.HealthQuestionnaire{}).
		Where("beneficiary_id = ? AND completed_at IS NOT NULL", beneficiaryID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *questionnaireRepo) ListCompletedSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.HealthQuestionnaire, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.HealthQuestionnaire
	if err := transaction.WithContext(ctx).
		Where("completed_at IS NOT NULL AND completed_at >= ?", since).
		Order("completed_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
