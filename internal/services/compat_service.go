// internal/services/compat_service.go
package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partforge/catalog-backend/internal/catalog"
	"github.com/partforge/catalog-backend/internal/models"
)

// RuleVerdict is one constraint's outcome for a build. Indeterminate means
// a required field was missing on one side; the UI warns instead of
// blocking, so it is reported apart from failures.
type RuleVerdict struct {
	Rule    string         `json:"rule"`
	Verdict models.Verdict `json:"verdict"`
	Reason  string         `json:"reason,omitempty"`
}

// VerdictSet is the structured result for one candidate build. The build is
// compatible iff no rule failed; warnings carry the indeterminate rules.
type VerdictSet struct {
	Compatible bool          `json:"compatible"`
	Passes     []RuleVerdict `json:"passes"`
	Failures   []RuleVerdict `json:"failures"`
	Warnings   []RuleVerdict `json:"warnings"`
}

// CompatService evaluates declarative compatibility constraints over a
// candidate build. It holds a read-only snapshot of the rule table loaded at
// startup and is safe for concurrent evaluation.
type CompatService struct {
	db *gorm.DB

	mtx   sync.RWMutex
	rules []models.CompatibilityConstraint
}

func NewCompatService(db *gorm.DB) *CompatService {
	return &CompatService{db: db}
}

// LoadConstraints reads the enabled rule table. Called once at startup;
// calling again refreshes the snapshot.
func (s *CompatService) LoadConstraints() error {
	var rules []models.CompatibilityConstraint
	if err := s.db.Where("enabled = ?", true).Order("name ASC").Find(&rules).Error; err != nil {
		return fmt.Errorf("failed to load constraints: %w", err)
	}

	s.mtx.Lock()
	s.rules = rules
	s.mtx.Unlock()
	return nil
}

// SetConstraints replaces the rule snapshot directly, without a database
// round trip.
func (s *CompatService) SetConstraints(rules []models.CompatibilityConstraint) {
	s.mtx.Lock()
	s.rules = rules
	s.mtx.Unlock()
}

// Evaluate resolves the build's component IDs and scores every rule whose
// two categories are both present. Partial builds are legal: rules touching
// an absent category are skipped, not failed.
func (s *CompatService) Evaluate(build map[models.Category]uuid.UUID) (*VerdictSet, error) {
	components := make(map[models.Category]*models.Component, len(build))
	for category, id := range build {
		if !category.Valid() {
			return nil, fmt.Errorf("unknown category %q", category)
		}
		var component models.Component
		if err := s.db.First(&component, "id = ? AND category = ?", id, category).Error; err != nil {
			return nil, fmt.Errorf("%w: %s %s", catalog.ErrComponentMissing, category, id)
		}
		components[category] = &component
	}

	return s.EvaluateComponents(components), nil
}

// EvaluateComponents scores loaded components against the rule snapshot.
// Stateless and side-effect-free.
func (s *CompatService) EvaluateComponents(components map[models.Category]*models.Component) *VerdictSet {
	s.mtx.RLock()
	rules := s.rules
	s.mtx.RUnlock()

	set := &VerdictSet{Compatible: true}

	for _, rule := range rules {
		subject, hasSubject := components[rule.SubjectCategory]
		target, hasTarget := components[rule.TargetCategory]
		if !hasSubject || !hasTarget {
			continue
		}

		verdict := evaluateRule(rule, subject, target)
		switch verdict.Verdict {
		case models.VerdictPass:
			set.Passes = append(set.Passes, verdict)
		case models.VerdictFail:
			set.Compatible = false
			set.Failures = append(set.Failures, verdict)
		case models.VerdictIndeterminate:
			set.Warnings = append(set.Warnings, verdict)
		}
	}

	return set
}

// evaluateRule scores a single constraint. Missing fields on either side
// degrade to Indeterminate; the evaluator is total over well-typed inputs.
func evaluateRule(rule models.CompatibilityConstraint, subject, target *models.Component) RuleVerdict {
	verdict := RuleVerdict{Rule: rule.Name}

	switch rule.Relation {
	case models.RelationEquals:
		subjectVal, okS := fieldString(subject, rule.SubjectField)
		targetVal, okT := fieldString(target, rule.TargetField)
		if !okS || !okT {
			return indeterminate(rule, okS, okT)
		}
		if strings.EqualFold(subjectVal, targetVal) {
			verdict.Verdict = models.VerdictPass
		} else {
			verdict.Verdict = models.VerdictFail
			verdict.Reason = fmt.Sprintf("%s (%s=%s, %s=%s)", rule.Message,
				rule.SubjectCategory, subjectVal, rule.TargetCategory, targetVal)
		}

	case models.RelationGte, models.RelationLte:
		subjectVal, okS := subject.SpecNumber(rule.SubjectField)
		targetVal, okT := target.SpecNumber(rule.TargetField)
		if !okS || !okT {
			return indeterminate(rule, okS, okT)
		}
		adjusted := targetVal + rule.Offset
		ok := false
		switch {
		case rule.Relation == models.RelationGte && rule.Strict:
			ok = subjectVal > adjusted
		case rule.Relation == models.RelationGte:
			ok = subjectVal >= adjusted
		case rule.Strict:
			ok = subjectVal < adjusted
		default:
			ok = subjectVal <= adjusted
		}
		if ok {
			verdict.Verdict = models.VerdictPass
		} else {
			verdict.Verdict = models.VerdictFail
			verdict.Reason = fmt.Sprintf("%s (%s=%.0f, %s=%.0f)", rule.Message,
				rule.SubjectCategory, subjectVal, rule.TargetCategory, targetVal)
		}

	case models.RelationIntersect:
		subjectList, okS := fieldList(subject, rule.SubjectField)
		targetVal, okT := fieldString(target, rule.TargetField)
		if !okS || !okT {
			return indeterminate(rule, okS, okT)
		}
		found := false
		for _, item := range subjectList {
			if strings.EqualFold(item, targetVal) {
				found = true
				break
			}
		}
		if found {
			verdict.Verdict = models.VerdictPass
		} else {
			verdict.Verdict = models.VerdictFail
			verdict.Reason = fmt.Sprintf("%s (%s=%s)", rule.Message, rule.TargetCategory, targetVal)
		}

	default:
		verdict.Verdict = models.VerdictIndeterminate
		verdict.Reason = fmt.Sprintf("unknown relation %q", rule.Relation)
	}

	return verdict
}

func indeterminate(rule models.CompatibilityConstraint, okSubject, okTarget bool) RuleVerdict {
	missing := rule.SubjectCategory
	field := rule.SubjectField
	if okSubject && !okTarget {
		missing = rule.TargetCategory
		field = rule.TargetField
	}
	return RuleVerdict{
		Rule:    rule.Name,
		Verdict: models.VerdictIndeterminate,
		Reason:  fmt.Sprintf("%s has no %s value", missing, field),
	}
}

// fieldString resolves a rule field against a component: the list-valued
// struct columns first, then the spec block. Numbers stringify so equals
// rules can compare numeric fields too.
func fieldString(c *models.Component, field string) (string, bool) {
	if s, ok := c.SpecString(field); ok && s != "" {
		return s, true
	}
	if n, ok := c.SpecNumber(field); ok {
		return fmt.Sprintf("%g", n), true
	}
	return "", false
}

func fieldList(c *models.Component, field string) ([]string, bool) {
	switch field {
	case "sockets":
		return c.Sockets, len(c.Sockets) > 0
	case "form_factors":
		return c.FormFactors, len(c.FormFactors) > 0
	}
	if s, ok := c.SpecString(field); ok && s != "" {
		return []string{s}, true
	}
	return nil, false
}
