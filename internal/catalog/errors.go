// internal/catalog/errors.go
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/partforge/catalog-backend/internal/models"
)

// Sentinel results shared across the engine. AlreadySeeded and Unclassified
// are informational outcomes, not failures; they use the error type so
// callers can branch with errors.Is without a parallel status enum.
var (
	ErrAlreadySeeded    = errors.New("history already seeded")
	ErrUnclassified     = errors.New("classifier abstained")
	ErrComponentMissing = errors.New("component not found")
	ErrNotConfirmed     = errors.New("destructive operation requires confirmation")
)

// NormalizationError reports a field that could not be converted to its
// canonical typed value. The record is held for review, never dropped.
type NormalizationError struct {
	Field    string `json:"field"`
	RawValue string `json:"raw_value"`
	Reason   string `json:"reason"`
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("cannot normalize %s=%q: %s", e.Field, e.RawValue, e.Reason)
}

// OutOfOrderError rejects an observation older than the stored latest.
// Callers retry through the backfill path or drop the tuple.
type OutOfOrderError struct {
	ComponentID string
	ObservedAt  time.Time
	LatestAt    time.Time
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("observation at %s predates latest %s for component %s",
		e.ObservedAt.Format(time.RFC3339), e.LatestAt.Format(time.RFC3339), e.ComponentID)
}

// CategoryMismatchError marks an attempted cross-category merge. This is a
// programmer or config error: fatal to the operation, logged, never retried.
type CategoryMismatchError struct {
	Expected models.Category
	Got      models.Category
}

func (e *CategoryMismatchError) Error() string {
	return fmt.Sprintf("category mismatch: expected %s, got %s", e.Expected, e.Got)
}
