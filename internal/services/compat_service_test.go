// internal/services/compat_service_test.go
package services

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partforge/catalog-backend/internal/models"
)

func component(category models.Category, specs models.JSONB) *models.Component {
	return &models.Component{Category: category, Specs: specs}
}

func newTestCompatService() *CompatService {
	s := NewCompatService(nil)
	s.SetConstraints(models.DefaultConstraints())
	return s
}

func TestEvaluateSocketMismatchFails(t *testing.T) {
	s := newTestCompatService()

	verdicts := s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryMotherboard: component(models.CategoryMotherboard, models.JSONB{
			models.SpecSocket: "LGA1851",
		}),
		models.CategoryCPU: component(models.CategoryCPU, models.JSONB{
			models.SpecSocket: "LGA1700",
		}),
	})

	assert.False(t, verdicts.Compatible)
	require.Len(t, verdicts.Failures, 1)
	assert.Equal(t, "cpu_socket_matches_motherboard", verdicts.Failures[0].Rule)
	assert.Contains(t, verdicts.Failures[0].Reason, "LGA1851")
}

func TestEvaluateSocketMatchPasses(t *testing.T) {
	s := newTestCompatService()

	verdicts := s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryMotherboard: component(models.CategoryMotherboard, models.JSONB{
			models.SpecSocket: "AM5",
		}),
		models.CategoryCPU: component(models.CategoryCPU, models.JSONB{
			models.SpecSocket: "am5",
		}),
	})

	assert.True(t, verdicts.Compatible)
	require.Len(t, verdicts.Passes, 1)
	assert.Empty(t, verdicts.Failures)
	assert.Empty(t, verdicts.Warnings)
}

func TestEvaluateGPUClearance(t *testing.T) {
	s := newTestCompatService()
	gpu := component(models.CategoryGPU, models.JSONB{models.SpecLengthMM: float64(350)})

	// Clearance below the GPU length fails.
	verdicts := s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryGPU: gpu,
		models.CategoryCase: component(models.CategoryCase, models.JSONB{
			models.SpecMaxGPULength: float64(300),
		}),
	})
	assert.False(t, verdicts.Compatible)
	require.Len(t, verdicts.Failures, 1)
	assert.Equal(t, "case_fits_gpu_length", verdicts.Failures[0].Rule)

	// Unknown clearance is indeterminate, reported as a warning on a
	// compatible verdict, not a failure.
	verdicts = s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryGPU:  gpu,
		models.CategoryCase: component(models.CategoryCase, models.JSONB{}),
	})
	assert.True(t, verdicts.Compatible)
	assert.Empty(t, verdicts.Failures)
	require.Len(t, verdicts.Warnings, 1)
	assert.Equal(t, models.VerdictIndeterminate, verdicts.Warnings[0].Verdict)

	// Enough clearance passes.
	verdicts = s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryGPU: gpu,
		models.CategoryCase: component(models.CategoryCase, models.JSONB{
			models.SpecMaxGPULength: float64(400),
		}),
	})
	assert.True(t, verdicts.Compatible)
	assert.Empty(t, verdicts.Warnings)
}

func TestEvaluateClearanceBoundaryIsInclusive(t *testing.T) {
	// The default clearance rule declares gte non-strict: a GPU exactly at
	// the case limit fits.
	s := newTestCompatService()

	verdicts := s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryGPU: component(models.CategoryGPU, models.JSONB{
			models.SpecLengthMM: float64(300),
		}),
		models.CategoryCase: component(models.CategoryCase, models.JSONB{
			models.SpecMaxGPULength: float64(300),
		}),
	})

	assert.True(t, verdicts.Compatible)
	assert.Empty(t, verdicts.Failures)
}

func TestEvaluateStrictBoundary(t *testing.T) {
	s := NewCompatService(nil)
	s.SetConstraints([]models.CompatibilityConstraint{
		{
			Name:            "strict_clearance",
			SubjectCategory: models.CategoryCase,
			SubjectField:    models.SpecMaxGPULength,
			TargetCategory:  models.CategoryGPU,
			TargetField:     models.SpecLengthMM,
			Relation:        models.RelationGte,
			Strict:          true,
			Message:         "GPU too long",
			Enabled:         true,
		},
	})

	verdicts := s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryGPU: component(models.CategoryGPU, models.JSONB{
			models.SpecLengthMM: float64(300),
		}),
		models.CategoryCase: component(models.CategoryCase, models.JSONB{
			models.SpecMaxGPULength: float64(300),
		}),
	})

	// Strict means the boundary itself fails.
	assert.False(t, verdicts.Compatible)
}

func TestEvaluateFormFactorIntersection(t *testing.T) {
	s := newTestCompatService()

	itxCase := component(models.CategoryCase, models.JSONB{})
	itxCase.FormFactors = pq.StringArray{"ITX", "mATX"}

	verdicts := s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryCase: itxCase,
		models.CategoryMotherboard: component(models.CategoryMotherboard, models.JSONB{
			models.SpecFormFactor: "ATX",
		}),
	})
	assert.False(t, verdicts.Compatible)

	verdicts = s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryCase: itxCase,
		models.CategoryMotherboard: component(models.CategoryMotherboard, models.JSONB{
			models.SpecFormFactor: "itx",
		}),
	})
	assert.True(t, verdicts.Compatible)
}

func TestEvaluatePartialBuildSkipsAbsentPairs(t *testing.T) {
	s := newTestCompatService()

	verdicts := s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryCPU: component(models.CategoryCPU, models.JSONB{
			models.SpecSocket: "AM5",
		}),
	})

	// No rule has both sides present; nothing to report either way.
	assert.True(t, verdicts.Compatible)
	assert.Empty(t, verdicts.Passes)
	assert.Empty(t, verdicts.Failures)
	assert.Empty(t, verdicts.Warnings)
}

func TestEvaluateFullBuildAllRulesPass(t *testing.T) {
	s := newTestCompatService()

	caseComponent := component(models.CategoryCase, models.JSONB{
		models.SpecMaxGPULength: float64(400),
		models.SpecMaxCoolerHt:  float64(170),
	})
	caseComponent.FormFactors = pq.StringArray{"ATX", "mATX"}

	cooler := component(models.CategoryCooler, models.JSONB{
		models.SpecHeightMM: float64(160),
	})
	cooler.Sockets = pq.StringArray{"AM5", "LGA1700"}

	verdicts := s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryCPU: component(models.CategoryCPU, models.JSONB{
			models.SpecSocket: "AM5",
		}),
		models.CategoryMotherboard: component(models.CategoryMotherboard, models.JSONB{
			models.SpecSocket:     "AM5",
			models.SpecMemoryType: "DDR5",
			models.SpecFormFactor: "ATX",
		}),
		models.CategoryRAM: component(models.CategoryRAM, models.JSONB{
			models.SpecMemoryType: "DDR5",
		}),
		models.CategoryGPU: component(models.CategoryGPU, models.JSONB{
			models.SpecLengthMM: float64(320),
			models.SpecTDP:      float64(320),
		}),
		models.CategoryPSU: component(models.CategoryPSU, models.JSONB{
			models.SpecWattage: float64(850),
		}),
		models.CategoryCase:   caseComponent,
		models.CategoryCooler: cooler,
	})

	assert.True(t, verdicts.Compatible)
	assert.Empty(t, verdicts.Failures)
	assert.Empty(t, verdicts.Warnings)
	assert.Len(t, verdicts.Passes, len(models.DefaultConstraints()))
}

func TestEvaluatePSUHeadroom(t *testing.T) {
	s := newTestCompatService()

	// 850W against a 320W GPU clears the 150W headroom offset; 400W does not.
	gpu := component(models.CategoryGPU, models.JSONB{models.SpecTDP: float64(320)})

	verdicts := s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryGPU: gpu,
		models.CategoryPSU: component(models.CategoryPSU, models.JSONB{
			models.SpecWattage: float64(400),
		}),
	})
	assert.False(t, verdicts.Compatible)

	verdicts = s.EvaluateComponents(map[models.Category]*models.Component{
		models.CategoryGPU: gpu,
		models.CategoryPSU: component(models.CategoryPSU, models.JSONB{
			models.SpecWattage: float64(850),
		}),
	})
	assert.True(t, verdicts.Compatible)
}
