package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidaplus/onboarding-backend/internal/middleware"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/rewards"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type RewardsHandler struct {
	rewardService  *rewards.Service
	rewardRepo     repos.RewardRepo
	userRewardRepo repos.UserRewardRepo
}

func NewRewardsHandler(rewardService *rewards.Service, rewardRepo repos.RewardRepo, userRewardRepo repos.UserRewardRepo) *RewardsHandler {
	return &RewardsHandler{
		rewardService:  rewardService,
		rewardRepo:     rewardRepo,
		userRewardRepo: userRewardRepo,
	}
}

func (rh *RewardsHandler) Catalog(c *gin.Context) {
	kind := types.RewardKind(c.Query("kind"))
	if kind == "" {
		RespondError(c, http.StatusBadRequest, "missing_kind", fmt.Errorf("query parameter 'kind' is required"))
		return
	}
	list, err := rh.rewardRepo.ListByKind(c.Request.Context(), nil, kind)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "catalog_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"rewards": list})
}

func (rh *RewardsHandler) ListMine(c *gin.Context) {
	beneficiaryID, ok := middleware.BeneficiaryID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", fmt.Errorf("missing beneficiary"))
		return
	}
	list, err := rh.userRewardRepo.GetByBeneficiaryID(c.Request.Context(), nil, beneficiaryID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "rewards_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"user_rewards": list})
}

type claimRequest struct {
	RewardID uuid.UUID `json:"reward_id" binding:"required"`
}

func (rh *RewardsHandler) Claim(c *gin.Context) {
	beneficiaryID, ok := middleware.BeneficiaryID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", fmt.Errorf("missing beneficiary"))
		return
	}

	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	claim, err := rh.rewardService.Claim(c.Request.Context(), beneficiaryID, req.RewardID)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "claim_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_reward": claim})
}

func (rh *RewardsHandler) Deliver(c *gin.Context) {
	beneficiaryID, ok := middleware.BeneficiaryID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", fmt.Errorf("missing beneficiary"))
		return
	}

	userRewardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid user reward id"))
		return
	}

	ur, err := rh.userRewardRepo.GetByID(c.Request.Context(), nil, userRewardID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("user reward not found"))
		return
	}
	if ur.BeneficiaryID != beneficiaryID {
		RespondError(c, http.StatusForbidden, "forbidden", fmt.Errorf("reward belongs to another beneficiary"))
		return
	}

	result := rh.rewardService.Deliver(c.Request.Context(), userRewardID)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	RespondOK(c, result)
}

type redeemRequest struct {
	RedemptionCode string         `json:"redemption_code" binding:"required"`
	Data           map[string]any `json:"data"`
}

func (rh *RewardsHandler) Redeem(c *gin.Context) {
	beneficiaryID, ok := middleware.BeneficiaryID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", fmt.Errorf("missing beneficiary"))
		return
	}

	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	ur, err := rh.userRewardRepo.GetByRedemptionCode(c.Request.Context(), nil, req.RedemptionCode)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("redemption code not found"))
		return
	}
	if ur.BeneficiaryID != beneficiaryID {
		RespondError(c, http.StatusForbidden, "forbidden", fmt.Errorf("reward belongs to another beneficiary"))
		return
	}

	result := rh.rewardService.Redeem(c.Request.Context(), req.RedemptionCode, req.Data)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	RespondOK(c, result)
}
