package config

import (
	"os"
	"testing"
)

func TestDefaultRoutingConfig(t *testing.T) {
	cfg := DefaultRoutingConfig()

	if len(cfg.Domains) == 0 {
		t.Fatalf("expected built-in domains")
	}
	if len(cfg.Priority) != len(cfg.Domains) {
		t.Fatalf("priority list has %d entries for %d domains", len(cfg.Priority), len(cfg.Domains))
	}
	if errs := ValidateRoutingConfig(cfg); len(errs) != 0 {
		t.Fatalf("default config must validate cleanly, got: %v", errs)
	}

	if cfg.Retry.MaxRetries != 2 || cfg.Retry.BaseBackoffMs != 200 || cfg.Retry.MaxBackoffMs != 2000 {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Mode.Enabled == nil || !*cfg.Mode.Enabled {
		t.Fatalf("expected mode selection enabled by default")
	}
	if cfg.Mode.MinResearchWords != 8 {
		t.Fatalf("expected min research words 8, got %d", cfg.Mode.MinResearchWords)
	}
}

func TestLoadRoutingConfig(t *testing.T) {
	content := `domains:
  - name: storage
    patterns: ["s3", "bucket"]
    weights:
      s3: 8
  - name: queue
    patterns: ["kafka", "rabbitmq"]

priority:
  - storage
  - queue

tiers:
  coordination: ["plan"]
  design: ["design"]

retry:
  max_retries: 5
`

	file, err := os.CreateTemp("", "routing-*.yaml")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer os.Remove(file.Name())

	if _, err := file.WriteString(content); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	file.Close()

	cfg, err := LoadRoutingConfig(file.Name())
	if err != nil {
		t.Fatalf("load routing config: %v", err)
	}

	if len(cfg.Domains) != 2 {
		t.Fatalf("expected 2 domains, got %d", len(cfg.Domains))
	}
	if cfg.Domains[0].Weights["s3"] != 8 {
		t.Fatalf("expected weight 8 for s3, got %v", cfg.Domains[0].Weights["s3"])
	}
	if cfg.Retry.MaxRetries != 5 {
		t.Fatalf("expected declared max_retries 5, got %d", cfg.Retry.MaxRetries)
	}
	// Unset fields still get defaults.
	if cfg.Retry.BaseBackoffMs != 200 {
		t.Fatalf("expected default base backoff, got %d", cfg.Retry.BaseBackoffMs)
	}
	if errs := ValidateRoutingConfig(cfg); len(errs) != 0 {
		t.Fatalf("expected clean validation, got: %v", errs)
	}
}

func TestValidateRoutingConfigCatchesMistakes(t *testing.T) {
	tests := []struct {
		name string
		cfg  *RoutingConfig
	}{
		{
			"bad pattern",
			&RoutingConfig{
				Domains:  []DomainSpec{{Name: "a", Patterns: []string{"(unclosed"}}},
				Priority: []string{"a"},
			},
		},
		{
			"weight for undeclared pattern",
			&RoutingConfig{
				Domains: []DomainSpec{{
					Name:     "a",
					Patterns: []string{"x"},
					Weights:  map[string]float64{"y": 2},
				}},
				Priority: []string{"a"},
			},
		},
		{
			"priority names unknown domain",
			&RoutingConfig{
				Domains:  []DomainSpec{{Name: "a", Patterns: []string{"x"}}},
				Priority: []string{"a", "ghost"},
			},
		},
		{
			"domain missing from priority",
			&RoutingConfig{
				Domains: []DomainSpec{
					{Name: "a", Patterns: []string{"x"}},
					{Name: "b", Patterns: []string{"y"}},
				},
				Priority: []string{"a"},
			},
		},
		{
			"duplicate domain",
			&RoutingConfig{
				Domains: []DomainSpec{
					{Name: "a", Patterns: []string{"x"}},
					{Name: "a", Patterns: []string{"y"}},
				},
				Priority: []string{"a"},
			},
		},
		{
			"bad tier pattern",
			&RoutingConfig{
				Domains:  []DomainSpec{{Name: "a", Patterns: []string{"x"}}},
				Priority: []string{"a"},
				Tiers:    TierPatterns{Coordination: []string{"(unclosed"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := ValidateRoutingConfig(tt.cfg); len(errs) == 0 {
				t.Errorf("expected validation errors")
			}
		})
	}
}

func TestValidateRoster(t *testing.T) {
	cfg := DefaultRoutingConfig()

	if errs := ValidateRoster(DefaultRoster(), cfg); len(errs) != 0 {
		t.Fatalf("default roster must validate cleanly, got: %v", errs)
	}

	bad := &AgentRoster{Agents: []AgentSpec{
		{Role: "dup", Tier: 1, Specialization: "general", Adapter: "anthropic"},
		{Role: "dup", Tier: 9, Specialization: "astrology", Adapter: "carrier-pigeon"},
	}}
	errs := ValidateRoster(bad, cfg)
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors (duplicate, tier, adapter, specialization), got %d: %v", len(errs), errs)
	}
}

func TestLoadRoster(t *testing.T) {
	content := `agents:
  - role: backend-dev
    tier: 3
    specialization: backend
    adapter: mock
    model: mock-1
    capabilities: ["api", "endpoint"]
`

	file, err := os.CreateTemp("", "agents-*.yaml")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer os.Remove(file.Name())

	if _, err := file.WriteString(content); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	file.Close()

	roster, err := LoadRoster(file.Name())
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	if len(roster.Agents) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(roster.Agents))
	}
	spec := roster.Agents[0]
	if spec.Role != "backend-dev" || spec.Tier != 3 || len(spec.Capabilities) != 2 {
		t.Fatalf("unexpected agent spec: %+v", spec)
	}
}
