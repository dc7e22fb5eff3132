// internal/models/component.go
package models

import (
	"time"

	"github.com/lib/pq"
)

type Component struct {
	BaseModel
	Category     Category        `json:"category" gorm:"type:varchar(20);not null;index:idx_components_category_name"`
	Name         string          `json:"name" gorm:"size:255;not null;index:idx_components_category_name"`
	Manufacturer string          `json:"manufacturer" gorm:"size:100;index"`
	SubType      SubType         `json:"sub_type" gorm:"type:varchar(30);default:'unclassified';index"`
	Specs        JSONB           `json:"specs" gorm:"type:jsonb"`
	Features     pq.StringArray  `json:"features" gorm:"type:text[]"`
	Sockets      pq.StringArray  `json:"sockets" gorm:"type:text[]"`
	FormFactors  pq.StringArray  `json:"form_factors" gorm:"type:text[]"`
	CurrentPrice float64         `json:"current_price" gorm:"type:decimal(10,2);not null"`
	IsAvailable  bool            `json:"is_available" gorm:"default:false"`
	Status       ComponentStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	SourceRef    string          `json:"source_ref" gorm:"size:255"`
	LastPriceAt  *time.Time      `json:"last_price_at,omitempty"`

	// Relationships
	Observations []PriceObservation `json:"observations,omitempty" gorm:"foreignKey:ComponentID"`
	Corrections  []Correction       `json:"corrections,omitempty" gorm:"foreignKey:ComponentID"`
}

// Spec field keys shared by the normalizer and the compatibility resolver.
// Specs is schemaless jsonb; these constants keep the two sides agreeing on
// what a field is called once it has been normalized.
const (
	SpecSocket       = "socket"
	SpecCapacityGB   = "capacity_gb"
	SpecSpeedMHz     = "speed_mhz"
	SpecWattage      = "wattage"
	SpecTDP          = "tdp"
	SpecLengthMM     = "length_mm"
	SpecHeightMM     = "height_mm"
	SpecMaxGPULength = "max_gpu_length_mm"
	SpecMaxCoolerHt  = "max_cooler_height_mm"
	SpecMemoryType   = "memory_type"
	SpecFormFactor   = "form_factor"
)

// SpecNumber reads a numeric spec field. The second return is false when the
// field is absent or not numeric (raw records can still carry strings before
// a normalization pass has run).
func (c *Component) SpecNumber(key string) (float64, bool) {
	v, ok := c.Specs[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// SpecString reads a string spec field.
func (c *Component) SpecString(key string) (string, bool) {
	v, ok := c.Specs[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// PriceChangePercent derives the relative change between the first and the
// latest observation. Requires Observations to be preloaded; returns 0 when
// the history is too short to compare.
func (c *Component) PriceChangePercent() float64 {
	if len(c.Observations) < 2 {
		return 0
	}
	first := c.Observations[0].Price
	last := c.Observations[len(c.Observations)-1].Price
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}
