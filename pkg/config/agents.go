package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// AgentRoster declares the pool of routable agents.
type AgentRoster struct {
	Agents []AgentSpec `yaml:"agents"`
}

// AgentSpec declares one agent: its hierarchy position, the domain it
// specializes in, the adapter/model backing it, and an optional capability
// trigger list. An empty capability list means the agent accepts any task.
type AgentSpec struct {
	Role           string   `yaml:"role"`
	Tier           int      `yaml:"tier"`
	Specialization string   `yaml:"specialization"`
	Adapter        string   `yaml:"adapter"`
	Model          string   `yaml:"model"`
	Capabilities   []string `yaml:"capabilities,omitempty"`
}

// LoadRoster reads an agent roster from a YAML file.
func LoadRoster(path string) (*AgentRoster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var roster AgentRoster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, err
	}
	return &roster, nil
}

// LoadRosterWithFallback loads the roster from the user config dir, falling
// back to the provided default path, then to the built-in roster.
func LoadRosterWithFallback(defaultPath string) (*AgentRoster, error) {
	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, ".crewgate", "agents.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return LoadRoster(userPath)
		}
	}

	if defaultPath != "" {
		if _, err := os.Stat(defaultPath); err == nil {
			return LoadRoster(defaultPath)
		}
	}

	return DefaultRoster(), nil
}

// DefaultRoster returns the built-in agent roster.
func DefaultRoster() *AgentRoster {
	return &AgentRoster{
		Agents: []AgentSpec{
			{Role: "coordinator", Tier: 1, Specialization: "general", Adapter: "anthropic", Model: "claude-opus-4-20250514"},
			{Role: "qa-lead", Tier: 1, Specialization: "testing", Adapter: "anthropic", Model: "claude-sonnet-4-20250514"},
			{Role: "backend-lead", Tier: 2, Specialization: "backend", Adapter: "anthropic", Model: "claude-opus-4-20250514"},
			{Role: "frontend-lead", Tier: 2, Specialization: "frontend", Adapter: "openai", Model: "gpt-5.2-thinking"},
			{Role: "platform-lead", Tier: 2, Specialization: "devops", Adapter: "anthropic", Model: "claude-opus-4-20250514"},
			{Role: "backend-dev", Tier: 3, Specialization: "backend", Adapter: "anthropic", Model: "claude-sonnet-4-20250514"},
			{Role: "frontend-dev", Tier: 3, Specialization: "frontend", Adapter: "openai", Model: "gpt-5.2-codex"},
			{Role: "db-specialist", Tier: 3, Specialization: "database", Adapter: "openai", Model: "gpt-5.2-codex"},
			{Role: "test-engineer", Tier: 3, Specialization: "testing", Adapter: "anthropic", Model: "claude-sonnet-4-20250514"},
			{Role: "researcher", Tier: 3, Specialization: "research", Adapter: "google", Model: "gemini-2.0-pro"},
			{Role: "sre", Tier: 3, Specialization: "devops", Adapter: "deepseek", Model: "deepseek-coder"},
			{Role: "generalist", Tier: 3, Specialization: "general", Adapter: "anthropic", Model: "claude-sonnet-4-20250514"},
		},
	}
}

// knownAdapters is the set of adapter names the CLI can construct.
var knownAdapters = map[string]struct{}{
	"anthropic": {},
	"openai":    {},
	"google":    {},
	"deepseek":  {},
	"mock":      {},
}

// ValidateRoster checks roster entries against the routing config.
// Returns a slice of validation errors (empty if all valid).
func ValidateRoster(roster *AgentRoster, cfg *RoutingConfig) []error {
	if roster == nil {
		return []error{fmt.Errorf("roster is required")}
	}

	var errs []error
	seen := make(map[string]struct{})
	domains := domainSet(cfg)

	for _, spec := range roster.Agents {
		if spec.Role == "" {
			errs = append(errs, fmt.Errorf("agent with empty role"))
			continue
		}
		if _, ok := seen[spec.Role]; ok {
			errs = append(errs, fmt.Errorf("agent %q: duplicate role", spec.Role))
		}
		seen[spec.Role] = struct{}{}

		if spec.Tier < 1 || spec.Tier > 3 {
			errs = append(errs, fmt.Errorf("agent %q: tier %d out of range [1,3]", spec.Role, spec.Tier))
		}
		if _, ok := knownAdapters[spec.Adapter]; !ok {
			errs = append(errs, fmt.Errorf("agent %q: unknown adapter %q", spec.Role, spec.Adapter))
		}
		if spec.Specialization != "general" && cfg != nil {
			if _, ok := domains[spec.Specialization]; !ok {
				errs = append(errs, fmt.Errorf("agent %q: specialization %q is not a declared domain", spec.Role, spec.Specialization))
			}
		}
	}

	return errs
}

// ValidateRoutingConfig checks the routing tables for misconfiguration:
// patterns that do not compile, weights keyed by undeclared patterns, and
// priority entries that do not name a declared domain. A priority list that
// omits a declared domain is reported here as well; at runtime the
// classifier degrades to a deterministic arbitrary choice instead of
// failing.
func ValidateRoutingConfig(cfg *RoutingConfig) []error {
	if cfg == nil {
		return []error{fmt.Errorf("routing config is required")}
	}

	var errs []error
	declared := make(map[string]struct{})

	for _, spec := range cfg.Domains {
		if spec.Name == "" {
			errs = append(errs, fmt.Errorf("domain with empty name"))
			continue
		}
		if _, ok := declared[spec.Name]; ok {
			errs = append(errs, fmt.Errorf("domain %q: declared twice", spec.Name))
		}
		declared[spec.Name] = struct{}{}

		patterns := make(map[string]struct{}, len(spec.Patterns))
		for _, p := range spec.Patterns {
			patterns[p] = struct{}{}
			if _, err := regexp.Compile(p); err != nil {
				errs = append(errs, fmt.Errorf("domain %q: pattern %q: %w", spec.Name, p, err))
			}
		}
		for p := range spec.Weights {
			if _, ok := patterns[p]; !ok {
				errs = append(errs, fmt.Errorf("domain %q: weight for undeclared pattern %q", spec.Name, p))
			}
		}
	}

	inPriority := make(map[string]struct{}, len(cfg.Priority))
	for _, name := range cfg.Priority {
		if _, ok := declared[name]; !ok {
			errs = append(errs, fmt.Errorf("priority entry %q is not a declared domain", name))
		}
		inPriority[name] = struct{}{}
	}

	var missing []string
	for name := range declared {
		if _, ok := inPriority[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	for _, name := range missing {
		errs = append(errs, fmt.Errorf("domain %q missing from priority list", name))
	}

	for _, p := range append(append([]string{}, cfg.Tiers.Coordination...), cfg.Tiers.Design...) {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("tier pattern %q: %w", p, err))
		}
	}
	for _, group := range [][]string{cfg.Mode.MultiStep, cfg.Mode.Research, cfg.Mode.Review} {
		for _, p := range group {
			if _, err := regexp.Compile(p); err != nil {
				errs = append(errs, fmt.Errorf("mode pattern %q: %w", p, err))
			}
		}
	}

	return errs
}

func domainSet(cfg *RoutingConfig) map[string]struct{} {
	set := make(map[string]struct{})
	if cfg == nil {
		return set
	}
	for _, spec := range cfg.Domains {
		set[spec.Name] = struct{}{}
	}
	return set
}
