package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type ClinicalAlertRepo interface {
	Create(ctx context.Context, tx *gorm.DB, alerts []*types.ClinicalAlert) ([]*types.ClinicalAlert, error)
	GetByQuestionnaireID(ctx context.Context, tx *gorm.DB, questionnaireID uuid.UUID) ([]*types.ClinicalAlert, error)
}

type clinicalAlertRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClinicalAlertRepo(db *gorm.DB, baseLog *logger.Logger) ClinicalAlertRepo {
	return &clinicalAlertRepo{db: db, log: baseLog.With("repo", "ClinicalAlertRepo")}
}

func (r *clinicalAlertRepo) Create(ctx context.Context, tx *gorm.DB, alerts []*types.ClinicalAlert) ([]*types.ClinicalAlert, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(alerts) == 0 {
		return []*types.ClinicalAlert{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *clinicalAlertRepo) GetByQuestionnaireID(ctx context.Context, tx *gorm.DB, questionnaireID uuid.UUID) ([]*types.ClinicalAlert, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ClinicalAlert
	if questionnaireID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("questionnaire_id = ?", questionnaireID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
