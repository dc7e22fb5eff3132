// internal/models/observation.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PriceObservation is one immutable price/availability snapshot in a
// component's ledger. Rows are only ever inserted (or compressed into the
// previous row by the ledger itself); nothing outside the ledger writes here.
type PriceObservation struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ComponentID uuid.UUID `json:"component_id" gorm:"type:uuid;not null;index:idx_observations_component_time,priority:1"`
	Price       float64   `json:"price" gorm:"type:decimal(10,2);not null"`
	IsAvailable bool      `json:"is_available"`
	ObservedAt  time.Time `json:"observed_at" gorm:"not null;index:idx_observations_component_time,priority:2"`
	Source      string    `json:"source" gorm:"size:100;not null"`
	Backfilled  bool      `json:"backfilled" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
}

// SameReading reports whether two observations carry an identical
// price/availability pair, the condition under which the ledger compresses
// rather than appends.
func (o *PriceObservation) SameReading(other *PriceObservation) bool {
	return o.Price == other.Price && o.IsAvailable == other.IsAvailable
}
