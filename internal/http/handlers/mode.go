package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/visiblelabs/aivis-backend/internal/http/response"
	"github.com/visiblelabs/aivis-backend/internal/services"
)

type ModeHandler struct {
	mode services.ModeService
}

func NewModeHandler(mode services.ModeService) *ModeHandler {
	return &ModeHandler{mode: mode}
}

// GET /api/users/:id/mode
func (h *ModeHandler) GetMode(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	result, err := h.mode.GetMode(c.Request.Context(), userID)
	if err != nil {
		respondLifecycleError(c, "get_mode_failed", err)
		return
	}
	response.RespondOK(c, result)
}
