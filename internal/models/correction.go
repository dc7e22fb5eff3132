// internal/models/correction.go
package models

import (
	"github.com/google/uuid"
)

// Correction is an auditable classifier proposal: the old and new sub-type,
// the rule that fired, and whether an operator applied it. The classifier
// never mutates a component directly; corrections are applied (or rolled
// back) by the caller.
type Correction struct {
	BaseModel
	ComponentID uuid.UUID        `json:"component_id" gorm:"type:uuid;not null;index"`
	Category    Category         `json:"category" gorm:"type:varchar(20);not null;index"`
	OldSubType  SubType          `json:"old_sub_type" gorm:"type:varchar(30)"`
	NewSubType  SubType          `json:"new_sub_type" gorm:"type:varchar(30);not null"`
	Rule        string           `json:"rule" gorm:"size:100;not null"`
	Confidence  float64          `json:"confidence" gorm:"type:decimal(4,3);not null"`
	Status      CorrectionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
}
