// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type Category string

const (
	CategoryCPU         Category = "cpu"
	CategoryGPU         Category = "gpu"
	CategoryMotherboard Category = "motherboard"
	CategoryRAM         Category = "ram"
	CategoryPSU         Category = "psu"
	CategoryCase        Category = "case"
	CategoryCooler      Category = "cooler"
	CategoryStorage     Category = "storage"
	CategoryAddon       Category = "addon"
)

// AllCategories lists every catalog partition, in the order batch jobs sweep them.
var AllCategories = []Category{
	CategoryCPU,
	CategoryGPU,
	CategoryMotherboard,
	CategoryRAM,
	CategoryPSU,
	CategoryCase,
	CategoryCooler,
	CategoryStorage,
	CategoryAddon,
}

func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

type ComponentStatus string

const (
	ComponentStatusActive      ComponentStatus = "active"
	ComponentStatusNeedsReview ComponentStatus = "needs_review"
	ComponentStatusMerged      ComponentStatus = "merged"
)

type SubType string

const (
	SubTypeSSD          SubType = "ssd"
	SubTypeHDD          SubType = "hdd"
	SubTypeAirCooler    SubType = "air_cooler"
	SubTypeLiquidCooler SubType = "liquid_cooler"
	SubTypeModularPSU   SubType = "modular_psu"
	SubTypeUnclassified SubType = "unclassified"
)

type CorrectionStatus string

const (
	CorrectionStatusPending    CorrectionStatus = "pending"
	CorrectionStatusApplied    CorrectionStatus = "applied"
	CorrectionStatusRolledBack CorrectionStatus = "rolled_back"
)

type Relation string

const (
	RelationEquals    Relation = "equals"
	RelationGte       Relation = "gte"
	RelationLte       Relation = "lte"
	RelationIntersect Relation = "intersects"
)

type Verdict string

const (
	VerdictPass          Verdict = "pass"
	VerdictFail          Verdict = "fail"
	VerdictIndeterminate Verdict = "indeterminate"
)
