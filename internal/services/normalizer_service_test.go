// internal/services/normalizer_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partforge/catalog-backend/internal/models"
)

func TestNormalizeCapacityStrings(t *testing.T) {
	n := NewNormalizerService()

	tests := []struct {
		raw  interface{}
		want float64
	}{
		{"2TB", 2000},
		{"2 TB", 2000},
		{"1.5tb", 1500},
		{"500GB", 500},
		{"500 gb", 500},
		{float64(256), 256},
		{int(512), 512},
		{"960", 960},
	}

	for _, tt := range tests {
		specs, errs := n.Normalize(models.CategoryStorage, map[string]interface{}{"capacity": tt.raw})
		require.Empty(t, errs, "capacity %v should normalize", tt.raw)
		assert.Equal(t, tt.want, specs[models.SpecCapacityGB], "capacity %v", tt.raw)
	}
}

func TestNormalizeUnitSuffixes(t *testing.T) {
	n := NewNormalizerService()

	specs, errs := n.Normalize(models.CategoryGPU, map[string]interface{}{
		"length": "350mm",
		"tdp":    "320 W",
	})
	require.Empty(t, errs)
	assert.Equal(t, float64(350), specs[models.SpecLengthMM])
	assert.Equal(t, float64(320), specs[models.SpecTDP])

	specs, errs = n.Normalize(models.CategoryRAM, map[string]interface{}{
		"speed": "3600MHz",
	})
	require.Empty(t, errs)
	assert.Equal(t, float64(3600), specs[models.SpecSpeedMHz])
}

func TestNormalizeRejectsBadValues(t *testing.T) {
	n := NewNormalizerService()

	tests := []struct {
		name string
		raw  map[string]interface{}
	}{
		{"unparseable capacity", map[string]interface{}{"capacity": "two terabytes"}},
		{"zero capacity", map[string]interface{}{"capacity": "0GB"}},
		{"negative wattage", map[string]interface{}{"wattage": float64(-750)}},
		{"empty string", map[string]interface{}{"capacity": "  "}},
		{"wrong type", map[string]interface{}{"capacity": []string{"2TB"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs, errs := n.Normalize(models.CategoryStorage, tt.raw)
			require.Len(t, errs, 1)
			assert.NotEmpty(t, errs[0].Field)
			assert.NotEmpty(t, errs[0].RawValue)
			// The raw value is carried through for review, never dropped.
			for key := range tt.raw {
				assert.Contains(t, specs, key)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := NewNormalizerService()

	raw := map[string]interface{}{
		"capacity":    "2TB",
		"speed":       "3600MHz",
		"socket":      " LGA1700 ",
		"form_factor": "ATX",
	}

	once, errs := n.Normalize(models.CategoryStorage, raw)
	require.Empty(t, errs)

	twice, errs := n.Normalize(models.CategoryStorage, once)
	require.Empty(t, errs)
	assert.Equal(t, once, twice)
}

func TestNormalizePassesThroughFreeFormFields(t *testing.T) {
	n := NewNormalizerService()

	specs, errs := n.Normalize(models.CategoryMotherboard, map[string]interface{}{
		"Socket":      "LGA1851",
		"memory_type": "DDR5",
	})
	require.Empty(t, errs)
	assert.Equal(t, "LGA1851", specs[models.SpecSocket])
	assert.Equal(t, "DDR5", specs[models.SpecMemoryType])
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "Samsung 970 EVO Plus 2TB", NormalizeText("  Samsung   970 EVO\tPlus 2TB "))
	assert.Equal(t, "samsung 970 evo plus 2tb", NormalizeKey("  Samsung   970 EVO Plus 2TB "))
}
