// internal/handlers/catalog.go
package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/partforge/catalog-backend/internal/catalog"
	"github.com/partforge/catalog-backend/internal/models"
	"github.com/partforge/catalog-backend/internal/services"
	"github.com/partforge/catalog-backend/internal/utils"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ListComponents handles GET /v1/catalog/:category
func (h *CatalogHandler) ListComponents(c *gin.Context) {
	category := models.Category(strings.ToLower(c.Param("category")))
	if !category.Valid() {
		utils.BadRequestResponse(c, "Unknown component category", nil)
		return
	}

	filter := services.CatalogFilter{
		PaginationParams: utils.GetPaginationParams(c),
		Manufacturer:     c.Query("manufacturer"),
	}

	if subType := c.Query("sub_type"); subType != "" {
		st := models.SubType(subType)
		filter.SubType = &st
	}
	if available := c.Query("available"); available != "" {
		if parsed, err := strconv.ParseBool(available); err == nil {
			filter.Available = &parsed
		}
	}
	if priceMin := c.Query("price_min"); priceMin != "" {
		if parsed, err := strconv.ParseFloat(priceMin, 64); err == nil {
			filter.PriceMin = &parsed
		}
	}
	if priceMax := c.Query("price_max"); priceMax != "" {
		if parsed, err := strconv.ParseFloat(priceMax, 64); err == nil {
			filter.PriceMax = &parsed
		}
	}

	result, err := h.catalogService.ListByCategory(category, filter)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list components")
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GetComponent handles GET /v1/catalog/:category/:id
func (h *CatalogHandler) GetComponent(c *gin.Context) {
	category := models.Category(strings.ToLower(c.Param("category")))
	if !category.Valid() {
		utils.BadRequestResponse(c, "Unknown component category", nil)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid component ID", nil)
		return
	}

	component, err := h.catalogService.GetComponent(category, id)
	if err != nil {
		if errors.Is(err, catalog.ErrComponentMissing) {
			utils.NotFoundResponse(c, "Component")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load component")
		return
	}

	utils.SuccessResponse(c, component)
}

// GetHistory handles GET /v1/catalog/:category/:id/history
func (h *CatalogHandler) GetHistory(c *gin.Context) {
	category := models.Category(strings.ToLower(c.Param("category")))
	if !category.Valid() {
		utils.BadRequestResponse(c, "Unknown component category", nil)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid component ID", nil)
		return
	}

	history, err := h.catalogService.GetHistory(category, id)
	if err != nil {
		if errors.Is(err, catalog.ErrComponentMissing) {
			utils.NotFoundResponse(c, "Component")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load history")
		return
	}

	trend := models.Component{Observations: history}
	utils.SuccessResponse(c, gin.H{
		"component_id":         id,
		"length":               len(history),
		"price_change_percent": trend.PriceChangePercent(),
		"observations":         history,
	})
}
