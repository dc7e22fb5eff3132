// internal/handlers/repair.go
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

// RepairHandler exposes the operator-facing repair reports and the
// confirm-gated merge endpoint.
type RepairHandler struct {
	dedupService      *services.DedupService
	reportService     *services.ReportService
	classifierService *services.ClassifierService
}

func NewRepairHandler(dedupService *services.DedupService, reportService *services.ReportService, classifierService *services.ClassifierService) *RepairHandler {
	return &RepairHandler{
		dedupService:      dedupService,
		reportService:     reportService,
		classifierService: classifierService,
	}
}

// GetDuplicates handles GET /v1/repair/duplicates/:category
func (h *RepairHandler) GetDuplicates(c *gin.Context) {
	category := models.Category(strings.ToLower(c.Param("category")))
	if !category.Valid() {
		utils.BadRequestResponse(c, "Unknown component category", nil)
		return
	}

	groups, err := h.dedupService.FindDuplicates(category)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to find duplicates")
		return
	}

	utils.SuccessResponseWithMeta(c, groups, gin.H{"groups": len(groups)})
}

// GetUnclassified handles GET /v1/repair/unclassified/:category
func (h *RepairHandler) GetUnclassified(c *gin.Context) {
	category := models.Category(strings.ToLower(c.Param("category")))
	if !category.Valid() {
		utils.BadRequestResponse(c, "Unknown component category", nil)
		return
	}

	components, err := h.reportService.Unclassified(category)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list unclassified records")
		return
	}

	utils.SuccessResponse(c, components)
}

// GetHeldForReview handles GET /v1/repair/held/:category
func (h *RepairHandler) GetHeldForReview(c *gin.Context) {
	category := models.Category(strings.ToLower(c.Param("category")))
	if !category.Valid() {
		utils.BadRequestResponse(c, "Unknown component category", nil)
		return
	}

	components, err := h.reportService.HeldForReview(category)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list held records")
		return
	}

	utils.SuccessResponse(c, components)
}

// GetMisfiled handles GET /v1/repair/misfiled/:category
func (h *RepairHandler) GetMisfiled(c *gin.Context) {
	category := models.Category(strings.ToLower(c.Param("category")))
	if !category.Valid() {
		utils.BadRequestResponse(c, "Unknown component category", nil)
		return
	}

	records, err := h.classifierService.Misfiled(category)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list misfiled records")
		return
	}

	utils.SuccessResponse(c, records)
}

// GetUnderTracked handles GET /v1/repair/under-tracked
func (h *RepairHandler) GetUnderTracked(c *gin.Context) {
	components, err := h.reportService.UnderTracked()
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list under-tracked components")
		return
	}

	utils.SuccessResponse(c, components)
}

type mergeRequest struct {
	SurvivorID   string   `json:"survivor_id" binding:"required"`
	DuplicateIDs []string `json:"duplicate_ids" binding:"required"`
	// Confirm must be set for the merge to execute; without it the response
	// reports what would happen and nothing changes.
	Confirm bool `json:"confirm"`
}

// Merge handles POST /v1/repair/merge
func (h *RepairHandler) Merge(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid merge payload", err.Error())
		return
	}

	survivorID, err := uuid.Parse(req.SurvivorID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid survivor ID", nil)
		return
	}

	duplicateIDs := make([]uuid.UUID, 0, len(req.DuplicateIDs))
	for _, raw := range req.DuplicateIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid duplicate ID "+raw, nil)
			return
		}
		duplicateIDs = append(duplicateIDs, id)
	}

	result, err := h.dedupService.Merge(survivorID, duplicateIDs, req.Confirm)
	if err != nil {
		var mismatch *catalog.CategoryMismatchError
		switch {
		case errors.Is(err, catalog.ErrComponentMissing):
			utils.NotFoundResponse(c, "Survivor component")
		case errors.As(err, &mismatch):
			utils.ConflictResponse(c, mismatch.Error())
		default:
			utils.InternalErrorResponse(c, "Merge failed")
		}
		return
	}

	utils.SuccessResponse(c, result)
}
