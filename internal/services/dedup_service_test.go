// internal/services/dedup_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/partforge/catalog-backend/internal/models"
)

func candidate(id string, created time.Time, historyLength int64) survivorCandidate {
	c := models.Component{}
	c.ID = uuid.MustParse(id)
	c.CreatedAt = created
	return survivorCandidate{Component: c, HistoryLength: historyLength}
}

func TestSelectSurvivorPrefersLongerHistory(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	a := candidate("11111111-1111-1111-1111-111111111111", late, 5)
	b := candidate("22222222-2222-2222-2222-222222222222", early, 2)

	assert.Equal(t, a.Component.ID, SelectSurvivor([]survivorCandidate{a, b}))
	assert.Equal(t, a.Component.ID, SelectSurvivor([]survivorCandidate{b, a}))
}

func TestSelectSurvivorTieBreaksOnCreatedAt(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	a := candidate("11111111-1111-1111-1111-111111111111", late, 3)
	b := candidate("22222222-2222-2222-2222-222222222222", early, 3)

	assert.Equal(t, b.Component.ID, SelectSurvivor([]survivorCandidate{a, b}))
	assert.Equal(t, b.Component.ID, SelectSurvivor([]survivorCandidate{b, a}))
}

func TestSelectSurvivorTieBreaksOnSmallestID(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := candidate("99999999-9999-9999-9999-999999999999", created, 1)
	b := candidate("11111111-1111-1111-1111-111111111111", created, 1)
	c := candidate("55555555-5555-5555-5555-555555555555", created, 1)

	// Deterministic regardless of input order.
	want := b.Component.ID
	assert.Equal(t, want, SelectSurvivor([]survivorCandidate{a, b, c}))
	assert.Equal(t, want, SelectSurvivor([]survivorCandidate{c, a, b}))
	assert.Equal(t, want, SelectSurvivor([]survivorCandidate{b, c, a}))
}

func TestSelectSurvivorEmpty(t *testing.T) {
	assert.Equal(t, uuid.Nil, SelectSurvivor(nil))
}

func TestUnionStrings(t *testing.T) {
	a := pq.StringArray{"LGA1700", "AM5"}
	b := pq.StringArray{"AM5", "AM4"}

	union := unionStrings(a, b)
	assert.Equal(t, pq.StringArray{"AM4", "AM5", "LGA1700"}, union)

	// Union with itself changes nothing.
	assert.Equal(t, union, unionStrings(union, union))
}
