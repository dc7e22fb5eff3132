// internal/services/catalog_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partforge/catalog-backend/internal/catalog"
	"github.com/partforge/catalog-backend/internal/models"
	"github.com/partforge/catalog-backend/internal/utils"
)

// CatalogService is the query surface the external API layer consumes.
type CatalogService struct {
	db     *gorm.DB
	ledger *LedgerService
}

func NewCatalogService(db *gorm.DB, ledger *LedgerService) *CatalogService {
	return &CatalogService{db: db, ledger: ledger}
}

func (s *CatalogService) GetComponent(category models.Category, id uuid.UUID) (*models.Component, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	var component models.Component
	err := s.db.First(&component, "id = ? AND category = ?", id, category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrComponentMissing
		}
		return nil, fmt.Errorf("failed to load component: %w", err)
	}
	return &component, nil
}

type CatalogFilter struct {
	utils.PaginationParams
	Manufacturer string
	SubType      *models.SubType
	Available    *bool
	PriceMin     *float64
	PriceMax     *float64
}

func (s *CatalogService) ListByCategory(category models.Category, filter CatalogFilter) (*utils.PaginationResult, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	query := s.db.Model(&models.Component{}).Where("category = ?", category)

	if filter.Manufacturer != "" {
		query = query.Where("manufacturer ILIKE ?", filter.Manufacturer)
	}
	if filter.SubType != nil {
		query = query.Where("sub_type = ?", *filter.SubType)
	}
	if filter.Available != nil {
		query = query.Where("is_available = ?", *filter.Available)
	}
	if filter.PriceMin != nil {
		query = query.Where("current_price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		query = query.Where("current_price <= ?", *filter.PriceMax)
	}
	if filter.Search != "" {
		query = query.Where("to_tsvector('english', name || ' ' || manufacturer) @@ plainto_tsquery('english', ?)", filter.Search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count components: %w", err)
	}

	var components []models.Component
	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "current_price", "name"})
	query = utils.ApplyPagination(query, filter.PaginationParams)
	if err := query.Find(&components).Error; err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}

	result := utils.CreatePaginationResult(components, total, filter.PaginationParams)
	return &result, nil
}

func (s *CatalogService) GetHistory(category models.Category, id uuid.UUID) ([]models.PriceObservation, error) {
	if _, err := s.GetComponent(category, id); err != nil {
		return nil, err
	}
	return s.ledger.History(id)
}
