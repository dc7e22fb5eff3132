// internal/services/classifier_service.go
package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/partforge/catalog-backend/internal/catalog"
	"github.com/partforge/catalog-backend/internal/models"
)

// keywordRule maps a free-text keyword to the sub-type it diagnoses. Longer
// keywords are more specific and win ties.
type keywordRule struct {
	keyword string
	subType models.SubType
	weight  float64
}

// keywordTables holds the per-category keyword rules, in declaration order.
// Special cases accumulate here as data, not as new code paths.
var keywordTables = map[models.Category][]keywordRule{
	models.CategoryStorage: {
		{keyword: "nvme", subType: models.SubTypeSSD, weight: 0.95},
		{keyword: "m.2", subType: models.SubTypeSSD, weight: 0.9},
		{keyword: "solid state", subType: models.SubTypeSSD, weight: 0.9},
		{keyword: "ssd", subType: models.SubTypeSSD, weight: 0.85},
		{keyword: "7200rpm", subType: models.SubTypeHDD, weight: 0.95},
		{keyword: "5400rpm", subType: models.SubTypeHDD, weight: 0.95},
		{keyword: "hard drive", subType: models.SubTypeHDD, weight: 0.9},
		{keyword: "hdd", subType: models.SubTypeHDD, weight: 0.85},
	},
	models.CategoryCooler: {
		{keyword: "liquid", subType: models.SubTypeLiquidCooler, weight: 0.9},
		{keyword: "radiator", subType: models.SubTypeLiquidCooler, weight: 0.85},
		{keyword: "aio", subType: models.SubTypeLiquidCooler, weight: 0.8},
		{keyword: "tower cooler", subType: models.SubTypeAirCooler, weight: 0.9},
		{keyword: "air cooler", subType: models.SubTypeAirCooler, weight: 0.9},
		{keyword: "heatsink", subType: models.SubTypeAirCooler, weight: 0.8},
	},
	models.CategoryPSU: {
		{keyword: "fully modular", subType: models.SubTypeModularPSU, weight: 0.9},
		{keyword: "semi modular", subType: models.SubTypeModularPSU, weight: 0.85},
	},
}

// ClassifierService re-derives a component's sub-type from its name and spec
// signals when the declared type is wrong or missing. It proposes a
// Correction and never mutates the record itself.
type ClassifierService struct {
	db    *gorm.DB
	floor float64
}

func NewClassifierService(db *gorm.DB, confidenceFloor float64) *ClassifierService {
	return &ClassifierService{
		db:    db,
		floor: confidenceFloor,
	}
}

// Classify runs the ordered signal checks: the declared sub-type, the
// category keyword table against the free-text name, then diagnostic spec
// fields. The first matching rule wins; among keyword matches the longest
// keyword is the most specific and takes the tie. Below the confidence floor
// the classifier abstains with ErrUnclassified instead of guessing.
func (s *ClassifierService) Classify(category models.Category, component *models.Component) (*models.Correction, error) {
	subType, confidence, rule := s.derive(category, component)

	if subType == models.SubTypeUnclassified || confidence < s.floor {
		return nil, catalog.ErrUnclassified
	}

	if subType == component.SubType {
		return nil, nil
	}

	return &models.Correction{
		ComponentID: component.ID,
		Category:    category,
		OldSubType:  component.SubType,
		NewSubType:  subType,
		Rule:        rule,
		Confidence:  confidence,
		Status:      models.CorrectionStatusPending,
	}, nil
}

func (s *ClassifierService) derive(category models.Category, component *models.Component) (models.SubType, float64, string) {
	name := strings.ToLower(component.Name)

	// Keyword table: longest matching keyword wins.
	var bestRule keywordRule
	for _, rule := range keywordTables[category] {
		if !strings.Contains(name, rule.keyword) {
			continue
		}
		if len(rule.keyword) > len(bestRule.keyword) {
			bestRule = rule
		}
	}
	if bestRule.keyword != "" {
		return bestRule.subType, bestRule.weight, fmt.Sprintf("keyword:%s", bestRule.keyword)
	}

	// Diagnostic fields: some signals identify a category regardless of the
	// declared one, e.g. a wattage rating on a record filed under Case means
	// a PSU got misfiled.
	if category == models.CategoryStorage {
		if _, hasRPM := component.Specs["rpm"]; hasRPM {
			return models.SubTypeHDD, 0.8, "field:rpm"
		}
		if iface, ok := component.SpecString("interface"); ok && strings.Contains(strings.ToLower(iface), "pcie") {
			return models.SubTypeSSD, 0.75, "field:interface"
		}
	}

	// Declared type is trusted last: it is exactly what the repair pass is
	// double-checking.
	if component.SubType != models.SubTypeUnclassified && component.SubType != "" {
		return component.SubType, s.floor, "declared"
	}

	return models.SubTypeUnclassified, 0, ""
}

// MisfiledCategory checks for the cross-category signals the old fix scripts
// handled one-off: a wattage rating under Case means the record is a PSU.
// It returns the category the record appears to belong to, or the declared
// one when nothing diagnostic fires.
func (s *ClassifierService) MisfiledCategory(component *models.Component) models.Category {
	if component.Category == models.CategoryCase {
		if w, ok := component.SpecNumber(models.SpecWattage); ok && w > 0 {
			return models.CategoryPSU
		}
	}
	return component.Category
}

// MisfiledRecord proposes a category move. Moves are never applied
// automatically, even with confirm: re-filing a record changes which
// duplicate groups and compatibility rules it participates in, so an
// operator stays in the loop.
type MisfiledRecord struct {
	ComponentID       uuid.UUID       `json:"component_id"`
	Name              string          `json:"name"`
	DeclaredCategory  models.Category `json:"declared_category"`
	SuggestedCategory models.Category `json:"suggested_category"`
	Rule              string          `json:"rule"`
}

func (s *ClassifierService) misfiledRecord(component *models.Component) *MisfiledRecord {
	suggested := s.MisfiledCategory(component)
	if suggested == component.Category {
		return nil
	}
	return &MisfiledRecord{
		ComponentID:       component.ID,
		Name:              component.Name,
		DeclaredCategory:  component.Category,
		SuggestedCategory: suggested,
		Rule:              "field:" + models.SpecWattage,
	}
}

// Misfiled scans a category for records whose diagnostic fields point at a
// different category.
func (s *ClassifierService) Misfiled(category models.Category) ([]MisfiledRecord, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	var components []models.Component
	if err := s.db.Where("category = ?", category).Find(&components).Error; err != nil {
		return nil, fmt.Errorf("failed to load category %s: %w", category, err)
	}

	records := make([]MisfiledRecord, 0)
	for i := range components {
		if record := s.misfiledRecord(&components[i]); record != nil {
			records = append(records, *record)
		}
	}
	return records, nil
}

// RepairCategory classifies every record in a category and persists pending
// corrections. With confirm, corrections are applied to the components in
// the same pass and marked applied. Unclassified records are reported, not
// guessed at.
func (s *ClassifierService) RepairCategory(category models.Category, confirm bool) (*ClassifyReport, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	var components []models.Component
	if err := s.db.Where("category = ?", category).Find(&components).Error; err != nil {
		return nil, fmt.Errorf("failed to load category %s: %w", category, err)
	}

	report := &ClassifyReport{Category: category, Total: len(components), DryRun: !confirm}

	for i := range components {
		component := &components[i]

		// A record whose diagnostic fields point at another category is
		// reported for a manual move; its sub-type is not touched, since
		// reclassifying it against the wrong category's tables would only
		// compound the misfile.
		if misfiled := s.misfiledRecord(component); misfiled != nil {
			report.Misfiled = append(report.Misfiled, *misfiled)
			continue
		}

		correction, err := s.Classify(category, component)
		if err != nil {
			report.Unclassified = append(report.Unclassified, component.ID.String())
			continue
		}
		if correction == nil {
			continue
		}

		report.Corrections = append(report.Corrections, *correction)
		if !confirm {
			continue
		}

		correction.Status = models.CorrectionStatusApplied
		if err := s.db.Create(correction).Error; err != nil {
			return nil, fmt.Errorf("failed to save correction: %w", err)
		}
		if err := s.db.Model(&models.Component{}).Where("id = ?", component.ID).
			Update("sub_type", correction.NewSubType).Error; err != nil {
			return nil, fmt.Errorf("failed to apply correction: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"category":     category,
		"total":        report.Total,
		"corrections":  len(report.Corrections),
		"unclassified": len(report.Unclassified),
		"misfiled":     len(report.Misfiled),
		"dry_run":      report.DryRun,
	}).Info("Classification repair pass finished")

	return report, nil
}

type ClassifyReport struct {
	Category     models.Category     `json:"category"`
	Total        int                 `json:"total"`
	Corrections  []models.Correction `json:"corrections"`
	Unclassified []string            `json:"unclassified"`
	Misfiled     []MisfiledRecord    `json:"misfiled"`
	DryRun       bool                `json:"dry_run"`
}
