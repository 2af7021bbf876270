package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zen-systems/crewgate/pkg/config"
)

// Hierarchy tiers. Tier 3 is the default: implementation work.
const (
	TierCoordination = 1
	TierDesign       = 2
	TierSpecialist   = 3
)

// tierMatcher scans tier vocabulary in fixed order: coordination first,
// design second, specialist as the fall-through. First match wins; there is
// no scoring here.
type tierMatcher struct {
	coordination []*regexp.Regexp
	design       []*regexp.Regexp
}

func newTierMatcher(cfg config.TierPatterns) (*tierMatcher, error) {
	m := &tierMatcher{}

	var err error
	if m.coordination, err = compileTierPatterns(cfg.Coordination); err != nil {
		return nil, fmt.Errorf("coordination: %w", err)
	}
	if m.design, err = compileTierPatterns(cfg.Design); err != nil {
		return nil, fmt.Errorf("design: %w", err)
	}
	return m, nil
}

// tierFor returns the tier for a task description.
func (m *tierMatcher) tierFor(description string) int {
	desc := strings.ToLower(description)

	for _, re := range m.coordination {
		if re.MatchString(desc) {
			return TierCoordination
		}
	}
	for _, re := range m.design {
		if re.MatchString(desc) {
			return TierDesign
		}
	}
	return TierSpecialist
}

func compileTierPatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)\b(?:` + p + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
