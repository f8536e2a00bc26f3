package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/visiblelabs/aivis-backend/internal/http/response"
	"github.com/visiblelabs/aivis-backend/internal/services"
)

type ScanHandler struct {
	intake    services.ScanIntakeService
	recs      services.RecommendationService
	scheduler services.SchedulerService
}

func NewScanHandler(intake services.ScanIntakeService, recs services.RecommendationService, scheduler services.SchedulerService) *ScanHandler {
	return &ScanHandler{intake: intake, recs: recs, scheduler: scheduler}
}

// POST /api/scans
func (h *ScanHandler) IntakeScan(c *gin.Context) {
	var input services.IntakeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	result, err := h.intake.IntakeScan(c.Request.Context(), input)
	if err != nil {
		respondLifecycleError(c, "scan_intake_failed", err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GET /api/scans/:id/recommendations
func (h *ScanHandler) ListRecommendations(c *gin.Context) {
	scanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_scan_id", err)
		return
	}
	scan, err := h.intake.Get(c.Request.Context(), scanID)
	if err != nil {
		respondLifecycleError(c, "scan_not_found", err)
		return
	}
	list, err := h.recs.ListForScan(c.Request.Context(), scan.UserID, scanID, time.Now())
	if err != nil {
		respondLifecycleError(c, "list_recommendations_failed", err)
		return
	}
	response.RespondOK(c, list)
}

// POST /api/scans/:id/replacement
func (h *ScanHandler) TriggerReplacement(c *gin.Context) {
	scanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_scan_id", err)
		return
	}
	scan, err := h.intake.Get(c.Request.Context(), scanID)
	if err != nil {
		respondLifecycleError(c, "scan_not_found", err)
		return
	}
	// The schedule gate is bypassed here; the lazy check on every list read
	// already covers the non-forcing path.
	result, err := h.scheduler.CheckAndReplace(c.Request.Context(), scan.UserID, scanID, time.Now(), true)
	if err != nil {
		respondLifecycleError(c, "replacement_failed", err)
		return
	}
	response.RespondOK(c, result)
}
