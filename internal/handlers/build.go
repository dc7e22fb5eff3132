// internal/handlers/build.go
package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/partforge/catalog-backend/internal/catalog"
	"github.com/partforge/catalog-backend/internal/models"
	"github.com/partforge/catalog-backend/internal/services"
	"github.com/partforge/catalog-backend/internal/utils"
)

type BuildHandler struct {
	compatService *services.CompatService
}

func NewBuildHandler(compatService *services.CompatService) *BuildHandler {
	return &BuildHandler{compatService: compatService}
}

type evaluateRequest struct {
	// Build maps category name to the selected component ID. Partial builds
	// are legal; rules for absent categories are skipped.
	Build map[string]string `json:"build" binding:"required"`
}

// Evaluate handles POST /v1/builds/evaluate
func (h *BuildHandler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid build payload", err.Error())
		return
	}

	build := make(map[models.Category]uuid.UUID, len(req.Build))
	for rawCategory, rawID := range req.Build {
		category := models.Category(strings.ToLower(rawCategory))
		if !category.Valid() {
			utils.BadRequestResponse(c, "Unknown category "+rawCategory, nil)
			return
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid component ID for "+rawCategory, nil)
			return
		}
		build[category] = id
	}

	verdicts, err := h.compatService.Evaluate(build)
	if err != nil {
		if errors.Is(err, catalog.ErrComponentMissing) {
			utils.NotFoundResponse(c, "Component")
			return
		}
		utils.InternalErrorResponse(c, "Failed to evaluate build")
		return
	}

	utils.SuccessResponse(c, verdicts)
}
