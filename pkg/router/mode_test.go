package router

import (
	"testing"

	"github.com/zen-systems/crewgate/pkg/config"
	"github.com/zen-systems/crewgate/pkg/task"
)

func testModeSelector(t *testing.T) *ModeSelector {
	t.Helper()
	s, err := NewModeSelector(config.DefaultRoutingConfig())
	if err != nil {
		t.Fatalf("NewModeSelector: %v", err)
	}
	return s
}

func TestModeSelect(t *testing.T) {
	s := testModeSelector(t)

	tests := []struct {
		name        string
		description string
		want        Mode
	}{
		{
			"multi-step chain",
			"Research the caching options, then implement the chosen one",
			ModeSimple,
		},
		{
			"implement and verify",
			"Implement the rate limiter and test it under load",
			ModeSimple,
		},
		{
			"explicit steps",
			"Break this migration into multiple phases",
			ModeSimple,
		},
		{
			"long research",
			"Investigate how other teams handle schema migrations across their services",
			ModeSimple,
		},
		{
			"code review",
			"Do a code review of the billing module",
			ModeSimple,
		},
		{
			"plain direct task",
			"Fix the typo in the error message",
			ModeDirect,
		},
		{
			"empty description",
			"",
			ModeDirect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Select(task.New(tt.description))
			if got != tt.want {
				t.Errorf("Select(%q) = %s, want %s", tt.description, got, tt.want)
			}
		})
	}
}

// Short research phrasings stay direct: a quick lookup does not need the
// orchestrator.
func TestModeSelectResearchWordThreshold(t *testing.T) {
	s := testModeSelector(t)

	short := s.Select(task.New("investigate the flaky test"))
	if short != ModeDirect {
		t.Fatalf("short research request: got %s, want %s", short, ModeDirect)
	}

	long := s.Select(task.New("investigate why the nightly build has been failing intermittently since last Tuesday"))
	if long != ModeSimple {
		t.Fatalf("long research request: got %s, want %s", long, ModeSimple)
	}
}

func TestModeSelectDisabled(t *testing.T) {
	cfg := config.DefaultRoutingConfig()
	disabled := false
	cfg.Mode.Enabled = &disabled

	s, err := NewModeSelector(cfg)
	if err != nil {
		t.Fatalf("NewModeSelector: %v", err)
	}

	if got := s.Select(task.New("Fix the typo in the error message")); got != ModeSimple {
		t.Fatalf("disabled selector: got %s, want %s", got, ModeSimple)
	}
}

func TestModeSelectInvalidPattern(t *testing.T) {
	cfg := config.DefaultRoutingConfig()
	cfg.Mode.Review = append(cfg.Mode.Review, "(unclosed")

	if _, err := NewModeSelector(cfg); err == nil {
		t.Fatal("expected error for invalid review pattern")
	}
}
