package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zen-systems/crewgate/pkg/config"
	"github.com/zen-systems/crewgate/pkg/task"
)

// Mode is the orchestration mode a task should run under.
type Mode string

const (
	// ModeSimple routes through the multi-step orchestrator.
	ModeSimple Mode = "simple"
	// ModeDirect routes through the single-shot, single-agent path.
	ModeDirect Mode = "direct"
)

// ModeSelector decides between orchestrated and direct execution. It is a
// pure decision table, independent of the domain classifier.
type ModeSelector struct {
	enabled          bool
	multiStep        []*regexp.Regexp
	research         []*regexp.Regexp
	review           []*regexp.Regexp
	minResearchWords int
}

// NewModeSelector compiles the mode rules from the routing config.
func NewModeSelector(cfg *config.RoutingConfig) (*ModeSelector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("routing config is required")
	}

	s := &ModeSelector{
		enabled:          cfg.Mode.Enabled == nil || *cfg.Mode.Enabled,
		minResearchWords: cfg.Mode.MinResearchWords,
	}

	var err error
	if s.multiStep, err = compileModePatterns(cfg.Mode.MultiStep); err != nil {
		return nil, fmt.Errorf("multi_step: %w", err)
	}
	if s.research, err = compileModePatterns(cfg.Mode.Research); err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}
	if s.review, err = compileModePatterns(cfg.Mode.Review); err != nil {
		return nil, fmt.Errorf("review: %w", err)
	}

	return s, nil
}

// Select returns the orchestration mode for a task. When mode selection is
// disabled, everything goes through the multi-step orchestrator.
func (s *ModeSelector) Select(t task.Task) Mode {
	if !s.enabled {
		return ModeSimple
	}

	desc := strings.ToLower(t.Description)

	for _, re := range s.multiStep {
		if re.MatchString(desc) {
			return ModeSimple
		}
	}

	// Complex research requests benefit from planning; short lookups do not.
	if len(strings.Fields(desc)) >= s.minResearchWords {
		for _, re := range s.research {
			if re.MatchString(desc) {
				return ModeSimple
			}
		}
	}

	for _, re := range s.review {
		if re.MatchString(desc) {
			return ModeSimple
		}
	}

	return ModeDirect
}

func compileModePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
