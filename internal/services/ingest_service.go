// internal/services/ingest_service.go
package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/partforge/catalog-backend/internal/catalog"
	"github.com/partforge/catalog-backend/internal/models"
	"github.com/partforge/catalog-backend/internal/utils"
)

// IngestTuple is one raw observation from the scraping collaborator.
type IngestTuple struct {
	Category     string                 `json:"category" validate:"required,category"`
	Name         string                 `json:"name" validate:"required,min=2,max=255"`
	Manufacturer string                 `json:"manufacturer,omitempty"`
	Price        float64                `json:"price" validate:"min=0"`
	Available    bool                   `json:"available"`
	Specs        map[string]interface{} `json:"specs,omitempty"`
	ObservedAt   time.Time              `json:"observed_at" validate:"required"`
	Source       string                 `json:"source" validate:"required,source_ref"`
}

type TupleStatus string

const (
	TupleAccepted TupleStatus = "accepted"
	TupleHeld     TupleStatus = "held_for_review"
	TupleRejected TupleStatus = "rejected"
)

// TupleResult reports per-tuple accept/reject status. There is no partial
// silent acceptance: every tuple gets an explicit outcome.
type TupleResult struct {
	Index       int                          `json:"index"`
	Status      TupleStatus                  `json:"status"`
	ComponentID uuid.UUID                    `json:"component_id,omitempty"`
	Append      AppendStatus                 `json:"append,omitempty"`
	Reason      string                       `json:"reason,omitempty"`
	FieldErrors []catalog.NormalizationError `json:"field_errors,omitempty"`
}

// IngestService accepts raw observation tuples, creating components on
// first sight and running them through normalization, classification, and
// the ledger. Each tuple is independent: one malformed record never blocks
// the rest of a batch.
type IngestService struct {
	db         *gorm.DB
	normalizer *NormalizerService
	ledger     *LedgerService
	classifier *ClassifierService
}

func NewIngestService(db *gorm.DB, normalizer *NormalizerService, ledger *LedgerService, classifier *ClassifierService) *IngestService {
	return &IngestService{
		db:         db,
		normalizer: normalizer,
		ledger:     ledger,
		classifier: classifier,
	}
}

// Ingest processes a batch of tuples and returns one result per tuple, in
// input order.
func (s *IngestService) Ingest(tuples []IngestTuple) []TupleResult {
	results := make([]TupleResult, 0, len(tuples))
	for i, tuple := range tuples {
		result := s.ingestOne(tuple)
		result.Index = i
		results = append(results, result)
	}
	return results
}

func (s *IngestService) ingestOne(tuple IngestTuple) TupleResult {
	if err := utils.ValidateStruct(&tuple); err != nil {
		return TupleResult{Status: TupleRejected, Reason: fmt.Sprintf("invalid tuple: %v", err)}
	}

	category := models.Category(strings.ToLower(tuple.Category))
	specs, fieldErrors := s.normalizer.Normalize(category, tuple.Specs)

	component, created, err := s.findOrCreate(category, tuple, specs, len(fieldErrors) > 0)
	if err != nil {
		return TupleResult{Status: TupleRejected, Reason: err.Error()}
	}

	appendResult, err := s.ledger.Append(component.ID, tuple.Price, tuple.Available, tuple.ObservedAt, tuple.Source)
	if err != nil {
		var outOfOrder *catalog.OutOfOrderError
		if errors.As(err, &outOfOrder) {
			return TupleResult{
				Status:      TupleRejected,
				ComponentID: component.ID,
				Reason:      outOfOrder.Error(),
				FieldErrors: fieldErrors,
			}
		}
		return TupleResult{Status: TupleRejected, ComponentID: component.ID, Reason: err.Error()}
	}

	// Classification runs on ingest so misdeclared sub-types surface early;
	// the proposal is stored pending, never auto-applied here.
	if correction, err := s.classifier.Classify(category, component); err == nil && correction != nil {
		if err := s.db.Create(correction).Error; err != nil {
			logrus.WithError(err).Warn("Failed to store classification correction")
		}
	}

	status := TupleAccepted
	if len(fieldErrors) > 0 {
		status = TupleHeld
	}

	if created {
		logrus.WithFields(logrus.Fields{
			"category":  category,
			"component": component.ID,
			"name":      component.Name,
			"source":    tuple.Source,
		}).Info("New component discovered")
	}

	return TupleResult{
		Status:      status,
		ComponentID: component.ID,
		Append:      appendResult.Status,
		FieldErrors: fieldErrors,
	}
}

func (s *IngestService) findOrCreate(category models.Category, tuple IngestTuple, specs models.JSONB, needsReview bool) (*models.Component, bool, error) {
	name := NormalizeText(tuple.Name)

	var component models.Component
	err := s.db.Where("category = ? AND LOWER(name) = ?", category, NormalizeKey(name)).
		First(&component).Error
	if err == nil {
		if err := s.refresh(&component, tuple, specs, needsReview); err != nil {
			return nil, false, err
		}
		return &component, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up component: %w", err)
	}

	status := models.ComponentStatusActive
	if needsReview {
		status = models.ComponentStatusNeedsReview
	}

	component = models.Component{
		Category:     category,
		Name:         name,
		Manufacturer: NormalizeText(tuple.Manufacturer),
		SubType:      models.SubTypeUnclassified,
		Specs:        specs,
		CurrentPrice: tuple.Price,
		IsAvailable:  tuple.Available,
		Status:       status,
		SourceRef:    tuple.Source,
	}
	if err := s.db.Create(&component).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create component: %w", err)
	}

	return &component, true, nil
}

// refresh folds a later scrape of a known component back into the record:
// freshly normalized spec fields are overlaid onto the stored block, a blank
// manufacturer is filled in, and a tuple with unparseable fields flags the
// record for review so the held report sees it.
func (s *IngestService) refresh(component *models.Component, tuple IngestTuple, specs models.JSONB, needsReview bool) error {
	merged, changed := mergeSpecs(component.Specs, specs)
	component.Specs = merged

	if component.Manufacturer == "" && tuple.Manufacturer != "" {
		component.Manufacturer = NormalizeText(tuple.Manufacturer)
		changed = true
	}
	if needsReview && component.Status == models.ComponentStatusActive {
		component.Status = models.ComponentStatusNeedsReview
		changed = true
	}
	if !changed {
		return nil
	}
	if err := s.db.Save(component).Error; err != nil {
		return fmt.Errorf("failed to refresh component: %w", err)
	}
	return nil
}

// mergeSpecs overlays freshly normalized fields onto a stored spec block.
// Fields a later scrape omits are kept, never erased. The second return
// reports whether anything actually changed.
func mergeSpecs(existing, fresh models.JSONB) (models.JSONB, bool) {
	if len(fresh) == 0 {
		return existing, false
	}

	merged := make(models.JSONB, len(existing)+len(fresh))
	for key, value := range existing {
		merged[key] = value
	}

	changed := false
	for key, value := range fresh {
		if prev, ok := merged[key]; ok && reflect.DeepEqual(prev, value) {
			continue
		}
		merged[key] = value
		changed = true
	}

	return merged, changed
}
