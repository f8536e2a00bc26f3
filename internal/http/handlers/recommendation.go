package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/visiblelabs/aivis-backend/internal/http/response"
	"github.com/visiblelabs/aivis-backend/internal/platform/apperr"
	"github.com/visiblelabs/aivis-backend/internal/services"
)

type RecommendationHandler struct {
	recs      services.RecommendationService
	lifecycle services.LifecycleService
}

func NewRecommendationHandler(recs services.RecommendationService, lifecycle services.LifecycleService) *RecommendationHandler {
	return &RecommendationHandler{recs: recs, lifecycle: lifecycle}
}

// GET /api/recommendations/:id
func (h *RecommendationHandler) GetRecommendation(c *gin.Context) {
	recID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_recommendation_id", err)
		return
	}
	rec, err := h.recs.Get(c.Request.Context(), recID)
	if err != nil {
		respondLifecycleError(c, "recommendation_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"recommendation": rec})
}

// POST /api/recommendations/:id/implemented
func (h *RecommendationHandler) MarkImplemented(c *gin.Context) {
	recID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_recommendation_id", err)
		return
	}
	rec, err := h.lifecycle.MarkImplemented(c.Request.Context(), recID)
	if err != nil {
		respondLifecycleError(c, "mark_implemented_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"recommendation": rec})
}

// POST /api/recommendations/:id/skip
func (h *RecommendationHandler) Skip(c *gin.Context) {
	recID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_recommendation_id", err)
		return
	}
	rec, err := h.lifecycle.Skip(c.Request.Context(), recID, time.Now())
	if err != nil {
		respondLifecycleError(c, "skip_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"recommendation": rec})
}

type confirmDetectionRequest struct {
	Confirmed *bool `json:"confirmed" binding:"required"`
}

// POST /api/detections/:id/confirm
func (h *RecommendationHandler) ConfirmDetection(c *gin.Context) {
	recID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_recommendation_id", err)
		return
	}
	var req confirmDetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	rec, err := h.lifecycle.ConfirmAutoDetection(c.Request.Context(), recID, *req.Confirmed)
	if err != nil {
		respondLifecycleError(c, "confirm_detection_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"recommendation": rec})
}

// respondLifecycleError maps service errors onto HTTP statuses. An early skip
// comes back as 422 with the remaining wait so clients can render a countdown.
func respondLifecycleError(c *gin.Context, code string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		response.RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	if ite, ok := apperr.AsInvalidTransition(err); ok {
		if ite.DaysRemaining > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": gin.H{
					"message":        ite.Error(),
					"code":           code,
					"days_remaining": ite.DaysRemaining,
				},
			})
			return
		}
		response.RespondError(c, http.StatusConflict, code, err)
		return
	}
	if errors.Is(err, apperr.ErrInvalidArgument) {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return
	}
	response.RespondError(c, http.StatusInternalServerError, code, err)
}
