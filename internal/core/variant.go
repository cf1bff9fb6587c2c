package core

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// VariantMatcher labels CI jobs with a test variant from their job name.
type VariantMatcher struct {
	rules []compiledVariant
}

type compiledVariant struct {
	match glob.Glob
	label string
}

// CompileVariants compiles rules in order. A rule needs both a pattern and a label.
func CompileVariants(rules []models.VariantRule) (*VariantMatcher, error) {
	m := &VariantMatcher{}
	for i, r := range rules {
		if r.Match == "" || r.Label == "" {
			return nil, fmt.Errorf("collect.variants[%d]: match and label are required", i)
		}
		g, err := glob.Compile(r.Match)
		if err != nil {
			return nil, fmt.Errorf("collect.variants[%d]: compiling %q: %w", i, r.Match, err)
		}
		m.rules = append(m.rules, compiledVariant{match: g, label: r.Label})
	}
	return m, nil
}

// CompileVariantsLenient compiles the valid rules and drops the others.
// Configuration validation reports invalid rules before collection starts.
func CompileVariantsLenient(rules []models.VariantRule) *VariantMatcher {
	m := &VariantMatcher{}
	for _, r := range rules {
		if one, err := CompileVariants([]models.VariantRule{r}); err == nil {
			m.rules = append(m.rules, one.rules...)
		}
	}
	return m
}

// Label returns the label of the first rule matching job, or "".
func (m *VariantMatcher) Label(job string) string {
	if m == nil {
		return ""
	}
	for _, r := range m.rules {
		if r.match.Match(job) {
			return r.label
		}
	}
	return ""
}
