// internal/services/report_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/partforge/catalog-backend/internal/models"
)

// ReportService exposes the repair-facing read side: everything an operator
// reviews before confirming a destructive pass, plus the idempotent
// normalization batch job itself.
type ReportService struct {
	db         *gorm.DB
	normalizer *NormalizerService
	threshold  int64
}

func NewReportService(db *gorm.DB, normalizer *NormalizerService, underTrackedThreshold int) *ReportService {
	return &ReportService{
		db:         db,
		normalizer: normalizer,
		threshold:  int64(underTrackedThreshold),
	}
}

// UnderTrackedComponent is a catalog record with too short a history to
// chart, prioritized for repeat observation.
type UnderTrackedComponent struct {
	ComponentID   uuid.UUID       `json:"component_id"`
	Category      models.Category `json:"category"`
	Name          string          `json:"name"`
	HistoryLength int64           `json:"history_length"`
}

// UnderTracked lists components whose history length is at or below the
// configured threshold, across all categories.
func (s *ReportService) UnderTracked() ([]UnderTrackedComponent, error) {
	var results []UnderTrackedComponent
	err := s.db.Model(&models.Component{}).
		Select("components.id AS component_id, components.category, components.name, COUNT(price_observations.id) AS history_length").
		Joins("LEFT JOIN price_observations ON price_observations.component_id = components.id").
		Where("components.deleted_at IS NULL").
		Group("components.id, components.category, components.name").
		Having("COUNT(price_observations.id) <= ?", s.threshold).
		Order("history_length ASC, components.name ASC").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list under-tracked components: %w", err)
	}
	return results, nil
}

// Unclassified lists the records the classifier abstained on in a category.
func (s *ReportService) Unclassified(category models.Category) ([]models.Component, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	var components []models.Component
	err := s.db.Where("category = ? AND sub_type = ?", category, models.SubTypeUnclassified).
		Order("created_at ASC").Find(&components).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unclassified components: %w", err)
	}
	return components, nil
}

// HeldForReview lists records flagged by normalization failures.
func (s *ReportService) HeldForReview(category models.Category) ([]models.Component, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	var components []models.Component
	err := s.db.Where("category = ? AND status = ?", category, models.ComponentStatusNeedsReview).
		Order("created_at ASC").Find(&components).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list held components: %w", err)
	}
	return components, nil
}

// PendingCorrections lists classifier proposals awaiting operator review.
func (s *ReportService) PendingCorrections(category models.Category) ([]models.Correction, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	var corrections []models.Correction
	err := s.db.Where("category = ? AND status = ?", category, models.CorrectionStatusPending).
		Order("created_at ASC").Find(&corrections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list corrections: %w", err)
	}
	return corrections, nil
}

type NormalizeReport struct {
	Category models.Category `json:"category"`
	Total    int             `json:"total"`
	Changed  int             `json:"changed"`
	Held     int             `json:"held"`
	DryRun   bool            `json:"dry_run"`
}

// NormalizeCategory re-runs the unit normalizer over every record in a
// category and persists the canonical spec blocks. Normalization is
// idempotent, so re-running the pass is always safe; records that still
// fail a field stay flagged for review.
func (s *ReportService) NormalizeCategory(category models.Category, confirm bool) (*NormalizeReport, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	var components []models.Component
	if err := s.db.Where("category = ?", category).Find(&components).Error; err != nil {
		return nil, fmt.Errorf("failed to load category %s: %w", category, err)
	}

	report := &NormalizeReport{Category: category, Total: len(components), DryRun: !confirm}

	for i := range components {
		component := &components[i]
		normalized, fieldErrors := s.normalizer.Normalize(category, component.Specs)

		status := models.ComponentStatusActive
		if len(fieldErrors) > 0 {
			status = models.ComponentStatusNeedsReview
			report.Held++
		}

		if !specsEqual(component.Specs, normalized) || component.Status != status {
			report.Changed++
			if confirm {
				updates := map[string]interface{}{
					"specs":  normalized,
					"status": status,
				}
				if err := s.db.Model(&models.Component{}).Where("id = ?", component.ID).
					Updates(updates).Error; err != nil {
					return nil, fmt.Errorf("failed to update component %s: %w", component.ID, err)
				}
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"category": category,
		"total":    report.Total,
		"changed":  report.Changed,
		"held":     report.Held,
		"dry_run":  report.DryRun,
	}).Info("Normalization pass finished")

	return report, nil
}

func specsEqual(a, b models.JSONB) bool {
	if len(a) != len(b) {
		return false
	}
	for key, av := range a {
		bv, ok := b[key]
		if !ok || fmt.Sprintf("%v", av) != fmt.Sprintf("%v", bv) {
			return false
		}
	}
	return true
}
