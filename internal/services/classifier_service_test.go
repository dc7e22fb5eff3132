// internal/services/classifier_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partforge/catalog-backend/internal/catalog"
	"github.com/partforge/catalog-backend/internal/models"
)

func newTestClassifier() *ClassifierService {
	return NewClassifierService(nil, 0.6)
}

func TestClassifyStorageByKeyword(t *testing.T) {
	s := newTestClassifier()

	tests := []struct {
		name string
		want models.SubType
	}{
		{"Samsung 970 EVO Plus NVMe M.2 2TB", models.SubTypeSSD},
		{"Crucial MX500 SSD 1TB", models.SubTypeSSD},
		{"Seagate BarraCuda 7200RPM 4TB", models.SubTypeHDD},
		{"WD Blue Hard Drive 2TB", models.SubTypeHDD},
	}

	for _, tt := range tests {
		c := &models.Component{Name: tt.name, SubType: models.SubTypeUnclassified}
		correction, err := s.Classify(models.CategoryStorage, c)
		require.NoError(t, err, tt.name)
		require.NotNil(t, correction, tt.name)
		assert.Equal(t, tt.want, correction.NewSubType, tt.name)
		assert.Equal(t, models.CorrectionStatusPending, correction.Status)
	}
}

func TestClassifyLongestKeywordWins(t *testing.T) {
	s := newTestClassifier()

	// "hard drive" (specific) should beat "hdd" even if both could appear;
	// here "solid state" must beat the shorter "ssd" contained in the name.
	c := &models.Component{Name: "PNY CS900 Solid State Drive SSD", SubType: models.SubTypeUnclassified}
	correction, err := s.Classify(models.CategoryStorage, c)
	require.NoError(t, err)
	require.NotNil(t, correction)
	assert.Equal(t, "keyword:solid state", correction.Rule)
}

func TestClassifyDiagnosticField(t *testing.T) {
	s := newTestClassifier()

	c := &models.Component{
		Name:    "Generic 4TB Drive",
		SubType: models.SubTypeUnclassified,
		Specs:   models.JSONB{"rpm": float64(7200)},
	}
	correction, err := s.Classify(models.CategoryStorage, c)
	require.NoError(t, err)
	require.NotNil(t, correction)
	assert.Equal(t, models.SubTypeHDD, correction.NewSubType)
	assert.Equal(t, "field:rpm", correction.Rule)
}

func TestClassifyAbstainsBelowFloor(t *testing.T) {
	// With a floor above every rule weight, the classifier must abstain
	// rather than guess.
	s := NewClassifierService(nil, 0.99)

	c := &models.Component{Name: "Seagate BarraCuda HDD 4TB", SubType: models.SubTypeUnclassified}
	correction, err := s.Classify(models.CategoryStorage, c)
	assert.ErrorIs(t, err, catalog.ErrUnclassified)
	assert.Nil(t, correction)
}

func TestClassifyNoSignalsIsUnclassified(t *testing.T) {
	s := newTestClassifier()

	c := &models.Component{Name: "Mystery Box 3000", SubType: models.SubTypeUnclassified}
	correction, err := s.Classify(models.CategoryStorage, c)
	assert.ErrorIs(t, err, catalog.ErrUnclassified)
	assert.Nil(t, correction)
}

func TestClassifyAgreementYieldsNoCorrection(t *testing.T) {
	s := newTestClassifier()

	c := &models.Component{Name: "Samsung 990 Pro NVMe 2TB", SubType: models.SubTypeSSD}
	correction, err := s.Classify(models.CategoryStorage, c)
	require.NoError(t, err)
	assert.Nil(t, correction)
}

func TestClassifyCooler(t *testing.T) {
	s := newTestClassifier()

	air := &models.Component{Name: "Noctua NH-D15 Air Cooler", SubType: models.SubTypeUnclassified}
	correction, err := s.Classify(models.CategoryCooler, air)
	require.NoError(t, err)
	require.NotNil(t, correction)
	assert.Equal(t, models.SubTypeAirCooler, correction.NewSubType)

	liquid := &models.Component{Name: "Arctic Liquid Freezer III 360", SubType: models.SubTypeUnclassified}
	correction, err = s.Classify(models.CategoryCooler, liquid)
	require.NoError(t, err)
	require.NotNil(t, correction)
	assert.Equal(t, models.SubTypeLiquidCooler, correction.NewSubType)
}

func TestMisfiledCategory(t *testing.T) {
	s := newTestClassifier()

	psuAsCase := &models.Component{
		Category: models.CategoryCase,
		Name:     "EVGA 750 BQ",
		Specs:    models.JSONB{models.SpecWattage: float64(750)},
	}
	assert.Equal(t, models.CategoryPSU, s.MisfiledCategory(psuAsCase))

	actualCase := &models.Component{
		Category: models.CategoryCase,
		Name:     "Fractal Design North",
		Specs:    models.JSONB{models.SpecMaxGPULength: float64(355)},
	}
	assert.Equal(t, models.CategoryCase, s.MisfiledCategory(actualCase))
}

func TestMisfiledRecordProposesManualMove(t *testing.T) {
	s := newTestClassifier()

	psuAsCase := &models.Component{
		Category: models.CategoryCase,
		Name:     "EVGA 750 BQ",
		Specs:    models.JSONB{models.SpecWattage: float64(750)},
	}
	record := s.misfiledRecord(psuAsCase)
	require.NotNil(t, record)
	assert.Equal(t, models.CategoryCase, record.DeclaredCategory)
	assert.Equal(t, models.CategoryPSU, record.SuggestedCategory)
	assert.Equal(t, "field:"+models.SpecWattage, record.Rule)

	actualCase := &models.Component{
		Category: models.CategoryCase,
		Name:     "Fractal Design North",
		Specs:    models.JSONB{models.SpecMaxGPULength: float64(355)},
	}
	assert.Nil(t, s.misfiledRecord(actualCase))
}
