package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidaplus/onboarding-backend/internal/services"
)

type QuestionnaireHandler struct {
	coordinator *services.HealthDataCoordinator
}

func NewQuestionnaireHandler(coordinator *services.HealthDataCoordinator) *QuestionnaireHandler {
	return &QuestionnaireHandler{coordinator: coordinator}
}

func (qh *QuestionnaireHandler) Process(c *gin.Context) {
	questionnaireID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid questionnaire id"))
		return
	}

	result, err := qh.coordinator.ProcessQuestionnaire(c.Request.Context(), questionnaireID)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "processing_failed", err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusConflict, result)
		return
	}
	RespondOK(c, result)
}

func (qh *QuestionnaireHandler) Reconcile(c *gin.Context) {
	questionnaireID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid questionnaire id"))
		return
	}

	report, err := qh.coordinator.ReconcileProcessing(c.Request.Context(), questionnaireID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "reconcile_failed", err)
		return
	}
	RespondOK(c, report)
}

type reconcileRecentRequest struct {
	SinceHours int `json:"since_hours"`
}

func (qh *QuestionnaireHandler) ReconcileRecent(c *gin.Context) {
	// Body is optional; an empty sweep request defaults to the last day.
	var req reconcileRecentRequest
	_ = c.ShouldBindJSON(&req)
	if req.SinceHours <= 0 {
		req.SinceHours = 24
	}

	since := time.Now().UTC().Add(-time.Duration(req.SinceHours) * time.Hour)
	reports, err := qh.coordinator.ReconcileRecent(c.Request.Context(), since)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "reconcile_failed", err)
		return
	}
	RespondOK(c, gin.H{"reports": reports, "since": since})
}
