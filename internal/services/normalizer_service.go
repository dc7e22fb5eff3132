// internal/services/normalizer_service.go
package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/partforge/catalog-backend/internal/catalog"
	"github.com/partforge/catalog-backend/internal/models"
)

var (
	// capacityRegexp captures "2TB", "500 GB", "1.5tb"
	capacityRegexp = regexp.MustCompile(`(?i)^([\d.]+)\s*(TB|GB)$`)
	// suffixRegexp captures a bare number with a known unit suffix: "750W", "3600 MHz", "350mm"
	suffixRegexp = regexp.MustCompile(`(?i)^([\d.]+)\s*(MHz|W|mm)$`)
)

// fieldUnit describes how one raw spec field converts to its canonical key
// and typed value.
type fieldUnit struct {
	canonical        string
	capacity         bool
	requiredPositive bool
}

// specFields maps every raw field name the scrapers emit (plus the canonical
// names themselves, so normalization is idempotent) to conversion rules.
var specFields = map[string]fieldUnit{
	"capacity":              {canonical: models.SpecCapacityGB, capacity: true, requiredPositive: true},
	models.SpecCapacityGB:   {canonical: models.SpecCapacityGB, capacity: true, requiredPositive: true},
	"speed":                 {canonical: models.SpecSpeedMHz},
	models.SpecSpeedMHz:     {canonical: models.SpecSpeedMHz},
	"wattage":               {canonical: models.SpecWattage, requiredPositive: true},
	"tdp":                   {canonical: models.SpecTDP},
	"length":                {canonical: models.SpecLengthMM},
	models.SpecLengthMM:     {canonical: models.SpecLengthMM},
	"height":                {canonical: models.SpecHeightMM},
	models.SpecHeightMM:     {canonical: models.SpecHeightMM},
	"max_gpu_length":        {canonical: models.SpecMaxGPULength},
	models.SpecMaxGPULength: {canonical: models.SpecMaxGPULength},
	"max_cooler_height":     {canonical: models.SpecMaxCoolerHt},
	models.SpecMaxCoolerHt:  {canonical: models.SpecMaxCoolerHt},
}

// NormalizerService converts heterogeneous raw spec fields into canonical
// typed values. It is pure: callers persist the result.
type NormalizerService struct{}

func NewNormalizerService() *NormalizerService {
	return &NormalizerService{}
}

// Normalize returns a canonical spec block for the category plus one error
// per field that could not be converted. Failed fields are carried through
// under their raw key so the record can be held for review instead of
// losing data.
func (s *NormalizerService) Normalize(category models.Category, raw map[string]interface{}) (models.JSONB, []catalog.NormalizationError) {
	normalized := make(models.JSONB, len(raw))
	var fieldErrors []catalog.NormalizationError

	for key, value := range raw {
		unit, known := specFields[strings.ToLower(key)]
		if !known {
			// Free-form fields (socket, memory_type, form_factor) pass through
			// with whitespace cleanup only.
			if str, ok := value.(string); ok {
				normalized[strings.ToLower(key)] = NormalizeText(str)
			} else {
				normalized[strings.ToLower(key)] = value
			}
			continue
		}

		number, err := s.toNumber(value, unit.capacity)
		if err != nil {
			fieldErrors = append(fieldErrors, catalog.NormalizationError{
				Field:    key,
				RawValue: fmt.Sprintf("%v", value),
				Reason:   err.Error(),
			})
			normalized[strings.ToLower(key)] = value
			continue
		}

		if unit.requiredPositive && number <= 0 {
			fieldErrors = append(fieldErrors, catalog.NormalizationError{
				Field:    key,
				RawValue: fmt.Sprintf("%v", value),
				Reason:   "value must be positive",
			})
			normalized[strings.ToLower(key)] = value
			continue
		}

		normalized[unit.canonical] = number
	}

	return normalized, fieldErrors
}

// toNumber converts a raw field value to float64. Capacity strings convert
// TB to GB (TB x 1000); other unit suffixes are stripped. Bare numbers pass
// through unchanged.
func (s *NormalizerService) toNumber(value interface{}, capacity bool) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, fmt.Errorf("empty value")
		}

		if capacity {
			if match := capacityRegexp.FindStringSubmatch(trimmed); match != nil {
				n, err := strconv.ParseFloat(match[1], 64)
				if err != nil {
					return 0, fmt.Errorf("unparseable number %q", match[1])
				}
				if strings.EqualFold(match[2], "TB") {
					return n * 1000, nil
				}
				return n, nil
			}
		}

		if match := suffixRegexp.FindStringSubmatch(trimmed); match != nil {
			n, err := strconv.ParseFloat(match[1], 64)
			if err != nil {
				return 0, fmt.Errorf("unparseable number %q", match[1])
			}
			return n, nil
		}

		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return n, nil
		}

		return 0, fmt.Errorf("unrecognized format")
	}

	return 0, fmt.Errorf("unsupported type %T", value)
}

// NormalizeText strips leading/trailing whitespace and collapses internal
// whitespace, so titles scraped with stray spacing compare equal.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

// NormalizeKey lowercases a normalized title for use as a grouping key.
func NormalizeKey(s string) string {
	return strings.ToLower(NormalizeText(s))
}
