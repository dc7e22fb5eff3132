// internal/services/ledger_service.go
package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/partforge/catalog-backend/internal/catalog"
	"github.com/partforge/catalog-backend/internal/database"
	"github.com/partforge/catalog-backend/internal/models"
)

type AppendStatus string

const (
	AppendStatusAppended      AppendStatus = "appended"
	AppendStatusCompressed    AppendStatus = "compressed"
	AppendStatusDuplicate     AppendStatus = "duplicate"
	AppendStatusBackfilled    AppendStatus = "backfilled"
	AppendStatusAlreadySeeded AppendStatus = "already_seeded"
)

type AppendResult struct {
	Status      AppendStatus             `json:"status"`
	Observation *models.PriceObservation `json:"observation,omitempty"`
}

// LedgerService owns each component's append-only price history and keeps
// the denormalized current_price/is_available fields consistent with it.
// The ledger is the authoritative side; the component row is a read model.
type LedgerService struct {
	db          *gorm.DB
	dedupWindow time.Duration
}

func NewLedgerService(db *gorm.DB, dedupWindowHours int) *LedgerService {
	return &LedgerService{
		db:          db,
		dedupWindow: time.Duration(dedupWindowHours) * time.Hour,
	}
}

// Append records one observation. It rejects out-of-order timestamps, is
// idempotent on (observed_at, source), and compresses a repeat reading that
// falls inside the dedup window into the previous entry. The insert and the
// denormalized component update commit as one transaction, with the
// component row locked against concurrent appenders.
func (s *LedgerService) Append(componentID uuid.UUID, price float64, available bool, observedAt time.Time, source string) (*AppendResult, error) {
	if price < 0 {
		return nil, fmt.Errorf("price must not be negative")
	}

	result := &AppendResult{}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var component models.Component
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&component, "id = ?", componentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.ErrComponentMissing
			}
			return fmt.Errorf("failed to lock component: %w", err)
		}

		var latest models.PriceObservation
		hasLatest := true
		if err := tx.Where("component_id = ?", componentID).
			Order("observed_at DESC").First(&latest).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to read latest observation: %w", err)
			}
			hasLatest = false
		}

		if hasLatest {
			// Idempotent re-ingestion: same (observed_at, source) is a no-op.
			var count int64
			if err := tx.Model(&models.PriceObservation{}).
				Where("component_id = ? AND observed_at = ? AND source = ?", componentID, observedAt, source).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check for duplicate observation: %w", err)
			}
			if count > 0 {
				result.Status = AppendStatusDuplicate
				result.Observation = &latest
				return nil
			}

			if observedAt.Before(latest.ObservedAt) {
				return &catalog.OutOfOrderError{
					ComponentID: componentID.String(),
					ObservedAt:  observedAt,
					LatestAt:    latest.ObservedAt,
				}
			}

			// An unchanged reading inside the window advances the previous
			// entry instead of inserting a near-duplicate row. Only observed_at
			// moves; the entry keeps the source that first reported the reading.
			if latest.Price == price && latest.IsAvailable == available &&
				s.withinWindow(latest.ObservedAt, observedAt) {
				latest.ObservedAt = observedAt
				if err := tx.Save(&latest).Error; err != nil {
					return fmt.Errorf("failed to compress observation: %w", err)
				}
				result.Status = AppendStatusCompressed
				result.Observation = &latest
				return s.syncReadModel(tx, &component, &latest)
			}
		}

		obs := models.PriceObservation{
			ComponentID: componentID,
			Price:       price,
			IsAvailable: available,
			ObservedAt:  observedAt,
			Source:      source,
		}
		if err := tx.Create(&obs).Error; err != nil {
			return fmt.Errorf("failed to append observation: %w", err)
		}

		result.Status = AppendStatusAppended
		result.Observation = &obs
		return s.syncReadModel(tx, &component, &obs)
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// BackfillInitial inserts one synthetic entry at the head of a history. It
// exists to seed components discovered with a single observation and is only
// valid while the history has at most one entry; anything longer reports
// AlreadySeeded and leaves the ledger untouched.
func (s *LedgerService) BackfillInitial(componentID uuid.UUID, price float64, available bool, observedAt time.Time, source string) (*AppendResult, error) {
	result := &AppendResult{}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var component models.Component
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&component, "id = ?", componentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.ErrComponentMissing
			}
			return fmt.Errorf("failed to lock component: %w", err)
		}

		var count int64
		if err := tx.Model(&models.PriceObservation{}).
			Where("component_id = ?", componentID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count history: %w", err)
		}

		if count > 1 {
			result.Status = AppendStatusAlreadySeeded
			return nil
		}

		if count == 1 {
			var first models.PriceObservation
			if err := tx.Where("component_id = ?", componentID).
				Order("observed_at ASC").First(&first).Error; err != nil {
				return fmt.Errorf("failed to read first observation: %w", err)
			}
			if !observedAt.Before(first.ObservedAt) {
				return fmt.Errorf("backfill entry at %s must predate the existing head at %s",
					observedAt.Format(time.RFC3339), first.ObservedAt.Format(time.RFC3339))
			}
		}

		obs := models.PriceObservation{
			ComponentID: componentID,
			Price:       price,
			IsAvailable: available,
			ObservedAt:  observedAt,
			Source:      source,
			Backfilled:  true,
		}
		if err := tx.Create(&obs).Error; err != nil {
			return fmt.Errorf("failed to backfill observation: %w", err)
		}

		result.Status = AppendStatusBackfilled
		result.Observation = &obs

		if count == 0 {
			return s.syncReadModel(tx, &component, &obs)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	if result.Status == AppendStatusAlreadySeeded {
		logrus.WithField("component_id", componentID).Debug("Backfill skipped, history already seeded")
	}

	return result, nil
}

// Reconcile reloads the denormalized price fields from the latest stored
// observation. Run after a crash between append and read-model update; the
// ledger wins.
func (s *LedgerService) Reconcile(componentID uuid.UUID) error {
	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var component models.Component
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&component, "id = ?", componentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.ErrComponentMissing
			}
			return err
		}

		var latest models.PriceObservation
		if err := tx.Where("component_id = ?", componentID).
			Order("observed_at DESC").First(&latest).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		return s.syncReadModel(tx, &component, &latest)
	})
}

func (s *LedgerService) syncReadModel(tx *gorm.DB, component *models.Component, latest *models.PriceObservation) error {
	component.CurrentPrice = latest.Price
	component.IsAvailable = latest.IsAvailable
	component.LastPriceAt = &latest.ObservedAt
	if err := tx.Save(component).Error; err != nil {
		return fmt.Errorf("failed to update component read model: %w", err)
	}
	return nil
}

// History returns a component's observations in ascending observed_at order.
func (s *LedgerService) History(componentID uuid.UUID) ([]models.PriceObservation, error) {
	var observations []models.PriceObservation
	err := s.db.Where("component_id = ?", componentID).
		Order("observed_at ASC").Find(&observations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return observations, nil
}

func (s *LedgerService) HistoryLength(componentID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.Model(&models.PriceObservation{}).
		Where("component_id = ?", componentID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}

// IsUnderTracked flags a component whose history is at or below the
// threshold, so repeat observation can be prioritized.
func (s *LedgerService) IsUnderTracked(componentID uuid.UUID, threshold int64) (bool, error) {
	length, err := s.HistoryLength(componentID)
	if err != nil {
		return false, err
	}
	return length <= threshold, nil
}

// BackfillSeedTime picks the timestamp for a synthetic head entry. The
// component's creation time is used when it predates the first observation;
// otherwise the seed lands one dedup window before that observation, since
// scrapers stamp observed_at before the catalog row exists and creation time
// routinely postdates the head.
func (s *LedgerService) BackfillSeedTime(createdAt, firstObservedAt time.Time) time.Time {
	if createdAt.Before(firstObservedAt) {
		return createdAt
	}
	return firstObservedAt.Add(-s.dedupWindow)
}

func (s *LedgerService) withinWindow(prev, next time.Time) bool {
	// The 24h default means "same calendar day", matching how scrape runs
	// are scheduled; any other window is a plain duration.
	if s.dedupWindow == 24*time.Hour {
		py, pm, pd := prev.Date()
		ny, nm, nd := next.Date()
		return py == ny && pm == nm && pd == nd
	}
	return next.Sub(prev) <= s.dedupWindow
}

// CompressSequence re-applies the ledger's ordering and dedup rules to an
// in-memory observation list, as merge does after concatenating two
// histories. The input is not mutated.
func (s *LedgerService) CompressSequence(observations []models.PriceObservation) []models.PriceObservation {
	if len(observations) == 0 {
		return nil
	}

	// Ties on observed_at are broken by source, then price, so the result
	// never depends on the order the inputs arrived in.
	sorted := make([]models.PriceObservation, len(observations))
	copy(sorted, observations)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ObservedAt.Equal(sorted[j].ObservedAt) {
			return sorted[i].ObservedAt.Before(sorted[j].ObservedAt)
		}
		if sorted[i].Source != sorted[j].Source {
			return sorted[i].Source < sorted[j].Source
		}
		return sorted[i].Price < sorted[j].Price
	})

	type dedupKey struct {
		at     time.Time
		source string
	}

	seen := make(map[dedupKey]struct{}, len(sorted))
	result := make([]models.PriceObservation, 0, len(sorted))

	for _, obs := range sorted {
		key := dedupKey{at: obs.ObservedAt.UTC(), source: obs.Source}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if len(result) > 0 {
			prev := &result[len(result)-1]
			if prev.SameReading(&obs) && s.withinWindow(prev.ObservedAt, obs.ObservedAt) {
				prev.ObservedAt = obs.ObservedAt
				continue
			}
		}

		result = append(result, obs)
	}

	return result
}
