// internal/models/constraint.go
package models

// CompatibilityConstraint is one declarative rule between two component
// categories. Rules are configuration: loaded at startup, never created by
// the resolver at runtime. New category pairs register rows, not code.
type CompatibilityConstraint struct {
	BaseModel
	Name            string   `json:"name" gorm:"size:100;not null;uniqueIndex"`
	SubjectCategory Category `json:"subject_category" gorm:"type:varchar(20);not null;index:idx_constraints_pair,priority:1"`
	SubjectField    string   `json:"subject_field" gorm:"size:50;not null"`
	TargetCategory  Category `json:"target_category" gorm:"type:varchar(20);not null;index:idx_constraints_pair,priority:2"`
	TargetField     string   `json:"target_field" gorm:"size:50;not null"`
	Relation        Relation `json:"relation" gorm:"type:varchar(20);not null"`
	// Strict turns gte into > and lte into < at clearance boundaries. Scraped
	// spec sheets are ambiguous about inclusivity, so every numeric rule must
	// declare which comparison it means.
	Strict bool `json:"strict" gorm:"default:false"`
	// Offset is added to the target value before comparing, for headroom
	// rules like PSU wattage over GPU draw.
	Offset  float64 `json:"offset" gorm:"type:decimal(10,2);default:0"`
	Message string  `json:"message" gorm:"size:255"`
	Enabled bool    `json:"enabled" gorm:"default:true;index"`
}

// DefaultConstraints seeds the rule table on first migration. Operators add
// or disable rules as rows afterwards.
func DefaultConstraints() []CompatibilityConstraint {
	return []CompatibilityConstraint{
		{
			Name:            "cpu_socket_matches_motherboard",
			SubjectCategory: CategoryMotherboard,
			SubjectField:    SpecSocket,
			TargetCategory:  CategoryCPU,
			TargetField:     SpecSocket,
			Relation:        RelationEquals,
			Message:         "CPU socket must match the motherboard socket",
			Enabled:         true,
		},
		{
			Name:            "ram_type_matches_motherboard",
			SubjectCategory: CategoryMotherboard,
			SubjectField:    SpecMemoryType,
			TargetCategory:  CategoryRAM,
			TargetField:     SpecMemoryType,
			Relation:        RelationEquals,
			Message:         "RAM generation must match the motherboard memory type",
			Enabled:         true,
		},
		{
			Name:            "case_fits_gpu_length",
			SubjectCategory: CategoryCase,
			SubjectField:    SpecMaxGPULength,
			TargetCategory:  CategoryGPU,
			TargetField:     SpecLengthMM,
			Relation:        RelationGte,
			Strict:          false,
			Message:         "GPU is longer than the case clearance allows",
			Enabled:         true,
		},
		{
			Name:            "case_fits_cooler_height",
			SubjectCategory: CategoryCase,
			SubjectField:    SpecMaxCoolerHt,
			TargetCategory:  CategoryCooler,
			TargetField:     SpecHeightMM,
			Relation:        RelationGte,
			Strict:          false,
			Message:         "Cooler is taller than the case clearance allows",
			Enabled:         true,
		},
		{
			Name:            "case_supports_motherboard_form_factor",
			SubjectCategory: CategoryCase,
			SubjectField:    "form_factors",
			TargetCategory:  CategoryMotherboard,
			TargetField:     SpecFormFactor,
			Relation:        RelationIntersect,
			Message:         "Case does not support the motherboard form factor",
			Enabled:         true,
		},
		{
			Name:            "cooler_supports_cpu_socket",
			SubjectCategory: CategoryCooler,
			SubjectField:    "sockets",
			TargetCategory:  CategoryCPU,
			TargetField:     SpecSocket,
			Relation:        RelationIntersect,
			Message:         "Cooler mounting kit does not cover the CPU socket",
			Enabled:         true,
		},
		{
			Name:            "psu_covers_gpu_draw",
			SubjectCategory: CategoryPSU,
			SubjectField:    SpecWattage,
			TargetCategory:  CategoryGPU,
			TargetField:     SpecTDP,
			Relation:        RelationGte,
			Strict:          true,
			Offset:          150,
			Message:         "PSU wattage leaves no headroom over the GPU power draw",
			Enabled:         true,
		},
	}
}
