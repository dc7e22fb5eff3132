// internal/services/ledger_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partforge/catalog-backend/internal/models"
)

func obs(price float64, available bool, at time.Time, source string) models.PriceObservation {
	return models.PriceObservation{
		ID:          uuid.New(),
		Price:       price,
		IsAvailable: available,
		ObservedAt:  at,
		Source:      source,
	}
}

func TestCompressSequenceSortsByObservedAt(t *testing.T) {
	ledger := NewLedgerService(nil, 24)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	merged := ledger.CompressSequence([]models.PriceObservation{
		obs(219.99, true, base.AddDate(0, 0, 2), "shop-b"),
		obs(199.99, true, base, "shop-a"),
		obs(209.99, true, base.AddDate(0, 0, 1), "shop-a"),
	})

	require.Len(t, merged, 3)
	assert.Equal(t, 199.99, merged[0].Price)
	assert.Equal(t, 209.99, merged[1].Price)
	assert.Equal(t, 219.99, merged[2].Price)
	for i := 1; i < len(merged); i++ {
		assert.False(t, merged[i].ObservedAt.Before(merged[i-1].ObservedAt))
	}
}

func TestCompressSequenceDropsExactDuplicates(t *testing.T) {
	ledger := NewLedgerService(nil, 24)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Appending the same (price, availability, observedAt, source) tuple
	// twice must yield the same history as appending it once.
	merged := ledger.CompressSequence([]models.PriceObservation{
		obs(199.99, true, at, "shop-a"),
		obs(199.99, true, at, "shop-a"),
	})

	require.Len(t, merged, 1)
}

func TestCompressSequenceCompressesSameReadingWithinWindow(t *testing.T) {
	ledger := NewLedgerService(nil, 24)
	morning := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	merged := ledger.CompressSequence([]models.PriceObservation{
		obs(199.99, true, morning, "shop-a"),
		obs(199.99, true, evening, "shop-b"),
		obs(199.99, true, nextDay, "shop-a"),
	})

	// Same calendar day compresses; the next day's reading stays separate.
	require.Len(t, merged, 2)
	assert.Equal(t, evening, merged[0].ObservedAt)
	assert.Equal(t, nextDay, merged[1].ObservedAt)
}

func TestCompressSequenceKeepsAvailabilityTransitions(t *testing.T) {
	ledger := NewLedgerService(nil, 24)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	merged := ledger.CompressSequence([]models.PriceObservation{
		obs(199.99, true, base, "shop-a"),
		obs(199.99, false, base.Add(2*time.Hour), "shop-a"),
		obs(199.99, true, base.Add(4*time.Hour), "shop-a"),
	})

	// Price never changed but availability flipped twice; nothing may be
	// compressed away.
	require.Len(t, merged, 3)
}

func TestCompressSequenceIsIdempotent(t *testing.T) {
	ledger := NewLedgerService(nil, 24)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	input := []models.PriceObservation{
		obs(199.99, true, base, "shop-a"),
		obs(199.99, true, base.Add(time.Hour), "shop-b"),
		obs(189.99, true, base.AddDate(0, 0, 1), "shop-a"),
	}

	once := ledger.CompressSequence(input)
	twice := ledger.CompressSequence(once)
	assert.Equal(t, once, twice)
}

func TestWithinWindowDuration(t *testing.T) {
	ledger := NewLedgerService(nil, 6)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.True(t, ledger.withinWindow(base, base.Add(5*time.Hour)))
	assert.False(t, ledger.withinWindow(base, base.Add(7*time.Hour)))
}

func TestCompressSequenceKeepsOriginalSource(t *testing.T) {
	ledger := NewLedgerService(nil, 24)
	morning := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)

	merged := ledger.CompressSequence([]models.PriceObservation{
		obs(199.99, true, morning, "shop-a"),
		obs(199.99, true, evening, "shop-b"),
	})

	// Compression advances observed_at but the entry keeps the source that
	// first reported the reading.
	require.Len(t, merged, 1)
	assert.Equal(t, evening, merged[0].ObservedAt)
	assert.Equal(t, "shop-a", merged[0].Source)
}

func TestCompressSequenceOrderIndependentOnTiedTimestamps(t *testing.T) {
	ledger := NewLedgerService(nil, 24)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	a := obs(199.99, true, at, "shop-a")
	b := obs(204.99, true, at, "shop-b")
	later := obs(189.99, true, at.AddDate(0, 0, 1), "shop-a")

	forward := ledger.CompressSequence([]models.PriceObservation{a, b, later})
	reversed := ledger.CompressSequence([]models.PriceObservation{later, b, a})

	// Two records can report the same timestamp; merging their histories in
	// either order must produce the same sequence.
	assert.Equal(t, forward, reversed)
	require.Len(t, forward, 3)
	assert.Equal(t, "shop-a", forward[0].Source)
	assert.Equal(t, "shop-b", forward[1].Source)
}

func TestBackfillSeedTime(t *testing.T) {
	ledger := NewLedgerService(nil, 24)
	head := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// A creation time that predates the head is used as-is.
	early := head.Add(-48 * time.Hour)
	assert.Equal(t, early, ledger.BackfillSeedTime(early, head))

	// Components are created at ingest, after the scraper stamped the first
	// observation, so creation time usually postdates the head; the seed must
	// still land strictly before it.
	late := head.Add(2 * time.Second)
	seed := ledger.BackfillSeedTime(late, head)
	assert.True(t, seed.Before(head))
	assert.Equal(t, head.Add(-24*time.Hour), seed)
}
