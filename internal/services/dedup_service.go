// internal/services/dedup_service.go
package services

import (
	"errors"
	"fmt"
	"sort"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/partforge/catalog-backend/internal/catalog"
	"github.com/partforge/catalog-backend/internal/database"
	"github.com/partforge/catalog-backend/internal/models"
)

// DuplicateGroup is one set of catalog records believed to describe the same
// physical product, with the survivor the deterministic tie-break selects.
type DuplicateGroup struct {
	Category     models.Category `json:"category"`
	Key          string          `json:"key"`
	Pass         string          `json:"pass"`
	SurvivorID   uuid.UUID       `json:"survivor_id"`
	DuplicateIDs []uuid.UUID     `json:"duplicate_ids"`
}

type MergeResult struct {
	SurvivorID    uuid.UUID   `json:"survivor_id"`
	MergedIDs     []uuid.UUID `json:"merged_ids"`
	SkippedIDs    []uuid.UUID `json:"skipped_ids"`
	HistoryLength int         `json:"history_length"`
	DryRun        bool        `json:"dry_run"`
}

type SweepResult struct {
	Category models.Category `json:"category"`
	Groups   int             `json:"groups"`
	Merged   int             `json:"merged"`
	DryRun   bool            `json:"dry_run"`
	Results  []MergeResult   `json:"results"`
}

// DedupService finds and merges duplicate catalog records within one
// category. Merges are destructive, so they are confirm-gated and fenced
// with a per-category advisory lock.
type DedupService struct {
	db         *gorm.DB
	ledger     *LedgerService
	similarity float64
}

func NewDedupService(db *gorm.DB, ledger *LedgerService, similarity float64) *DedupService {
	return &DedupService{
		db:         db,
		ledger:     ledger,
		similarity: similarity,
	}
}

// survivorCandidate pairs a component with its history length for the
// tie-break. Exported selection logic lives in SelectSurvivor so the rule is
// testable without a database.
type survivorCandidate struct {
	Component     models.Component
	HistoryLength int64
}

// SelectSurvivor picks the record that survives a merge: longest price
// history first, then earliest created_at, then lexicographically smallest
// ID. The order of the input does not affect the outcome.
func SelectSurvivor(candidates []survivorCandidate) uuid.UUID {
	if len(candidates) == 0 {
		return uuid.Nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.HistoryLength > best.HistoryLength:
			best = c
		case c.HistoryLength < best.HistoryLength:
		case c.Component.CreatedAt.Before(best.Component.CreatedAt):
			best = c
		case c.Component.CreatedAt.After(best.Component.CreatedAt):
		case c.Component.ID.String() < best.Component.ID.String():
			best = c
		}
	}
	return best.Component.ID
}

// FindDuplicates runs both grouping passes over a category: exact match on
// the normalized title, then a fuzzy pass pairing near-identical titles that
// share the same current price. Real catalogs accumulate duplicates under
// both causes, so neither pass alone is enough.
func (s *DedupService) FindDuplicates(category models.Category) ([]DuplicateGroup, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	var components []models.Component
	if err := s.db.Where("category = ? AND status <> ?", category, models.ComponentStatusMerged).
		Order("created_at ASC").Find(&components).Error; err != nil {
		return nil, fmt.Errorf("failed to load category %s: %w", category, err)
	}

	lengths, err := s.historyLengths(components)
	if err != nil {
		return nil, err
	}

	var groups []DuplicateGroup

	// Pass 1: exact normalized-title match.
	byKey := make(map[string][]models.Component)
	for _, c := range components {
		byKey[NormalizeKey(c.Name)] = append(byKey[NormalizeKey(c.Name)], c)
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	grouped := make(map[uuid.UUID]bool)
	for _, key := range keys {
		members := byKey[key]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, s.buildGroup(category, key, "exact_title", members, lengths))
		for _, m := range members {
			grouped[m.ID] = true
		}
	}

	// Pass 2: near-identical titles at the same recorded price, usually the
	// same product scraped from two source URLs.
	var remaining []models.Component
	for _, c := range components {
		if !grouped[c.ID] {
			remaining = append(remaining, c)
		}
	}

	used := make(map[uuid.UUID]bool)
	for i := 0; i < len(remaining); i++ {
		if used[remaining[i].ID] {
			continue
		}
		members := []models.Component{remaining[i]}
		for j := i + 1; j < len(remaining); j++ {
			if used[remaining[j].ID] {
				continue
			}
			if remaining[i].CurrentPrice != remaining[j].CurrentPrice {
				continue
			}
			similarity := matchr.JaroWinkler(NormalizeKey(remaining[i].Name), NormalizeKey(remaining[j].Name), false)
			if similarity >= s.similarity {
				members = append(members, remaining[j])
				used[remaining[j].ID] = true
			}
		}
		if len(members) > 1 {
			used[remaining[i].ID] = true
			groups = append(groups, s.buildGroup(category, NormalizeKey(remaining[i].Name), "fuzzy_title_price", members, lengths))
		}
	}

	return groups, nil
}

func (s *DedupService) buildGroup(category models.Category, key, pass string, members []models.Component, lengths map[uuid.UUID]int64) DuplicateGroup {
	candidates := make([]survivorCandidate, 0, len(members))
	for _, m := range members {
		candidates = append(candidates, survivorCandidate{Component: m, HistoryLength: lengths[m.ID]})
	}
	survivor := SelectSurvivor(candidates)

	group := DuplicateGroup{
		Category:   category,
		Key:        key,
		Pass:       pass,
		SurvivorID: survivor,
	}
	for _, m := range members {
		if m.ID != survivor {
			group.DuplicateIDs = append(group.DuplicateIDs, m.ID)
		}
	}
	sort.Slice(group.DuplicateIDs, func(i, j int) bool {
		return group.DuplicateIDs[i].String() < group.DuplicateIDs[j].String()
	})
	return group
}

func (s *DedupService) historyLengths(components []models.Component) (map[uuid.UUID]int64, error) {
	lengths := make(map[uuid.UUID]int64, len(components))
	if len(components) == 0 {
		return lengths, nil
	}

	ids := make([]uuid.UUID, 0, len(components))
	for _, c := range components {
		ids = append(ids, c.ID)
	}

	type row struct {
		ComponentID uuid.UUID
		Total       int64
	}
	var rows []row
	err := s.db.Model(&models.PriceObservation{}).
		Select("component_id, COUNT(*) AS total").
		Where("component_id IN ?", ids).
		Group("component_id").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count histories: %w", err)
	}

	for _, r := range rows {
		lengths[r.ComponentID] = r.Total
	}
	return lengths, nil
}

// Merge folds the duplicates into the survivor: histories concatenate and
// are re-sorted and re-deduplicated under the ledger's rules, list-valued
// fields union, and the duplicates are deleted. Without confirm it reports
// what would happen and changes nothing. A duplicate already deleted by a
// racing merge counts as success.
func (s *DedupService) Merge(survivorID uuid.UUID, duplicateIDs []uuid.UUID, confirm bool) (*MergeResult, error) {
	result := &MergeResult{SurvivorID: survivorID, DryRun: !confirm}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var survivor models.Component
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&survivor, "id = ?", survivorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.ErrComponentMissing
			}
			return fmt.Errorf("failed to load survivor: %w", err)
		}

		// Merges within one category must not race each other; the advisory
		// lock is released at commit.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", string(survivor.Category)).Error; err != nil {
			return fmt.Errorf("failed to acquire category lock: %w", err)
		}

		var duplicates []models.Component
		for _, id := range duplicateIDs {
			var dup models.Component
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&dup, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// Second writer in a race: already merged elsewhere.
					result.SkippedIDs = append(result.SkippedIDs, id)
					continue
				}
				return fmt.Errorf("failed to load duplicate %s: %w", id, err)
			}
			if dup.Category != survivor.Category {
				return &catalog.CategoryMismatchError{Expected: survivor.Category, Got: dup.Category}
			}
			duplicates = append(duplicates, dup)
		}

		if len(duplicates) == 0 {
			return nil
		}

		combined, err := s.combinedHistory(tx, survivor, duplicates)
		if err != nil {
			return err
		}

		// Survivor selection must be reproducible before anything is deleted.
		if chosen := s.verifySurvivor(tx, survivor, duplicates); chosen != survivorID {
			return fmt.Errorf("survivor %s does not match deterministic choice %s", survivorID, chosen)
		}

		merged := s.ledger.CompressSequence(combined)
		result.HistoryLength = len(merged)
		for _, dup := range duplicates {
			result.MergedIDs = append(result.MergedIDs, dup.ID)
		}

		if !confirm {
			return nil
		}

		ids := []uuid.UUID{survivor.ID}
		for _, dup := range duplicates {
			ids = append(ids, dup.ID)
		}
		if err := tx.Where("component_id IN ?", ids).
			Delete(&models.PriceObservation{}).Error; err != nil {
			return fmt.Errorf("failed to clear histories: %w", err)
		}
		if len(merged) > 0 {
			for i := range merged {
				merged[i].ID = uuid.New()
				merged[i].ComponentID = survivor.ID
			}
			if err := tx.Create(&merged).Error; err != nil {
				return fmt.Errorf("failed to write merged history: %w", err)
			}
		}

		for _, dup := range duplicates {
			survivor.Features = unionStrings(survivor.Features, dup.Features)
			survivor.Sockets = unionStrings(survivor.Sockets, dup.Sockets)
			survivor.FormFactors = unionStrings(survivor.FormFactors, dup.FormFactors)
		}

		if len(merged) > 0 {
			latest := merged[len(merged)-1]
			survivor.CurrentPrice = latest.Price
			survivor.IsAvailable = latest.IsAvailable
			survivor.LastPriceAt = &latest.ObservedAt
		}
		if err := tx.Save(&survivor).Error; err != nil {
			return fmt.Errorf("failed to update survivor: %w", err)
		}

		for _, dup := range duplicates {
			if err := tx.Model(&models.Component{}).Where("id = ?", dup.ID).
				Update("status", models.ComponentStatusMerged).Error; err != nil {
				return fmt.Errorf("failed to mark duplicate merged: %w", err)
			}
			if err := tx.Delete(&models.Component{}, "id = ?", dup.ID).Error; err != nil {
				return fmt.Errorf("failed to delete duplicate: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	if confirm && len(result.MergedIDs) > 0 {
		logrus.WithFields(logrus.Fields{
			"survivor": result.SurvivorID,
			"merged":   len(result.MergedIDs),
			"history":  result.HistoryLength,
		}).Info("Duplicate records merged")
	}

	return result, nil
}

func (s *DedupService) combinedHistory(tx *gorm.DB, survivor models.Component, duplicates []models.Component) ([]models.PriceObservation, error) {
	ids := []uuid.UUID{survivor.ID}
	for _, dup := range duplicates {
		ids = append(ids, dup.ID)
	}

	var observations []models.PriceObservation
	if err := tx.Where("component_id IN ?", ids).
		Order("observed_at ASC").Find(&observations).Error; err != nil {
		return nil, fmt.Errorf("failed to load histories: %w", err)
	}
	return observations, nil
}

func (s *DedupService) verifySurvivor(tx *gorm.DB, survivor models.Component, duplicates []models.Component) uuid.UUID {
	all := append([]models.Component{survivor}, duplicates...)
	candidates := make([]survivorCandidate, 0, len(all))
	for _, c := range all {
		var count int64
		tx.Model(&models.PriceObservation{}).Where("component_id = ?", c.ID).Count(&count)
		candidates = append(candidates, survivorCandidate{Component: c, HistoryLength: count})
	}
	return SelectSurvivor(candidates)
}

// SweepCategory runs FindDuplicates and merges every group. Dry-run unless
// confirmed.
func (s *DedupService) SweepCategory(category models.Category, confirm bool) (*SweepResult, error) {
	groups, err := s.FindDuplicates(category)
	if err != nil {
		return nil, err
	}

	sweep := &SweepResult{Category: category, Groups: len(groups), DryRun: !confirm}
	for _, group := range groups {
		result, err := s.Merge(group.SurvivorID, group.DuplicateIDs, confirm)
		if err != nil {
			return nil, fmt.Errorf("merge failed for group %s: %w", group.Key, err)
		}
		sweep.Merged += len(result.MergedIDs)
		sweep.Results = append(sweep.Results, *result)
	}

	return sweep, nil
}

func unionStrings(a, b pq.StringArray) pq.StringArray {
	seen := make(map[string]struct{}, len(a)+len(b))
	var result pq.StringArray
	for _, list := range []pq.StringArray{a, b} {
		for _, v := range list {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	sort.Strings(result)
	return result
}
