package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// RoutingConfig holds the declarative routing tables: domain patterns and
// weights, the tie-break priority list, tier patterns, and mode selection
// rules. Adding a domain is a data change here, never a code change in the
// matching algorithm.
type RoutingConfig struct {
	Domains  []DomainSpec   `yaml:"domains"`
	Priority []string       `yaml:"priority"`
	Tiers    TierPatterns   `yaml:"tiers"`
	Mode     ModeConfig     `yaml:"mode,omitempty"`
	Retry    RetryConfig    `yaml:"retry,omitempty"`
	Fallback FallbackConfig `yaml:"fallback,omitempty"`
	Pricing  PricingConfig  `yaml:"pricing,omitempty"`
}

// DomainSpec declares one classification domain. Weights are keyed by the
// exact pattern string they were declared against; patterns without an entry
// score the default weight of 1.
type DomainSpec struct {
	Name     string             `yaml:"name"`
	Patterns []string           `yaml:"patterns"`
	Weights  map[string]float64 `yaml:"weights,omitempty"`
}

// TierPatterns holds the hierarchy vocabulary. Coordination patterns select
// tier 1, design patterns tier 2; anything else falls through to tier 3.
type TierPatterns struct {
	Coordination []string `yaml:"coordination"`
	Design       []string `yaml:"design"`
}

// ModeConfig configures the orchestration mode selector.
type ModeConfig struct {
	Enabled          *bool    `yaml:"enabled,omitempty"`
	MultiStep        []string `yaml:"multi_step,omitempty"`
	Research         []string `yaml:"research,omitempty"`
	Review           []string `yaml:"review,omitempty"`
	MinResearchWords int      `yaml:"min_research_words,omitempty"`
}

// RetryConfig defines retry and backoff behavior for agent execution.
type RetryConfig struct {
	MaxRetries    int `yaml:"max_retries,omitempty"`
	BaseBackoffMs int `yaml:"base_backoff_ms,omitempty"`
	MaxBackoffMs  int `yaml:"max_backoff_ms,omitempty"`
}

// FallbackConfig defines adapter/model fallbacks for agent execution.
type FallbackConfig struct {
	AllowFallback bool                     `yaml:"allow_fallback,omitempty"`
	FallbackChain map[string][]RouteTarget `yaml:"fallback_chain,omitempty"`
}

// RouteTarget specifies an adapter and model combination.
type RouteTarget struct {
	Adapter string `yaml:"adapter"`
	Model   string `yaml:"model"`
}

// PricingConfig maps adapter -> model -> pricing.
type PricingConfig map[string]map[string]ModelPricing

// ModelPricing defines per-1k token pricing.
type ModelPricing struct {
	PromptPer1K     float64 `yaml:"prompt_per_1k,omitempty"`
	CompletionPer1K float64 `yaml:"completion_per_1k,omitempty"`
}

// LoadRoutingConfig reads routing configuration from a YAML file.
func LoadRoutingConfig(path string) (*RoutingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg RoutingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyRoutingDefaults(&cfg)
	return &cfg, nil
}

// DefaultRoutingConfig returns the built-in routing tables.
func DefaultRoutingConfig() *RoutingConfig {
	cfg := &RoutingConfig{
		Domains: []DomainSpec{
			{
				Name: "frontend",
				Patterns: []string{
					"frontend", "react", "vue", "css", "html", "ui|ux",
					"component", "layout", "responsive", "composition",
				},
				Weights: map[string]float64{
					"frontend":    8,
					"react":       6,
					"vue":         6,
					"css":         5,
					"html":        4,
					"ui|ux":       3,
					"component":   3,
					"layout":      2,
					"responsive":  4,
					"composition": 4,
				},
			},
			{
				Name: "backend",
				Patterns: []string{
					"backend", "api", "rest|restful", "endpoint", "server",
					"grpc", "middleware", "microservice",
					"login|auth|authentication",
				},
				Weights: map[string]float64{
					"backend":                   8,
					"api":                       4,
					"rest|restful":              5,
					"endpoint":                  5,
					"server":                    4,
					"grpc":                      6,
					"middleware":                5,
					"microservice":              6,
					"login|auth|authentication": 4,
				},
			},
			{
				Name: "database",
				Patterns: []string{
					"database", "sql", "postgres|postgresql|mysql|sqlite",
					"schema", "migration", "query", "index", "transaction",
				},
				Weights: map[string]float64{
					"database":                         8,
					"sql":                              6,
					"postgres|postgresql|mysql|sqlite": 8,
					"schema":                           4,
					"migration":                        5,
					"query":                            3,
					"index":                            2,
					"transaction":                      4,
				},
			},
			{
				Name: "testing",
				Patterns: []string{
					"test|tests|testing", "unit test", "coverage",
					"regression", "assert|assertion", "validate", "verify",
					"check", "qa",
				},
				Weights: map[string]float64{
					"test|tests|testing": 4,
					"unit test":          8,
					"coverage":           6,
					"regression":         5,
					"assert|assertion":   5,
					"validate":           3,
					"verify":             3,
					"check":              2,
					"qa":                 4,
				},
			},
			{
				Name: "research",
				Patterns: []string{
					"research", "investigate", "survey", "literature",
					"explore", "compare", "find out", "analyze|analysis",
				},
				Weights: map[string]float64{
					"research":         6,
					"investigate":      5,
					"survey":           4,
					"literature":       6,
					"explore":          3,
					"compare":          3,
					"find out":         4,
					"analyze|analysis": 3,
				},
			},
			{
				Name: "devops",
				Patterns: []string{
					"devops", "docker", "kubernetes|k8s", "terraform", "helm",
					"deploy|deployment", "pipeline", "infrastructure",
					"rollout|release",
				},
				Weights: map[string]float64{
					"devops":            8,
					"docker":            8,
					"kubernetes|k8s":    10,
					"terraform":         10,
					"helm":              8,
					"deploy|deployment": 6,
					"pipeline":          4,
					"infrastructure":    6,
					"rollout|release":   3,
				},
			},
			{
				Name: "security",
				Patterns: []string{
					"security", "vulnerability|vulnerabilities",
					"xss|csrf|sqli", "injection", "penetration",
					"encrypt|encryption", "authorization", "audit",
				},
				Weights: map[string]float64{
					"security":                      8,
					"vulnerability|vulnerabilities": 10,
					"xss|csrf|sqli":                 10,
					"injection":                     6,
					"penetration":                   8,
					"encrypt|encryption":            6,
					"authorization":                 5,
					"audit":                         3,
				},
			},
			{
				Name: "performance",
				Patterns: []string{
					"performance", "optimize|optimization", "latency",
					"throughput", "profile|profiling", "benchmark",
					"cache|caching", "slow", "memory",
				},
				Weights: map[string]float64{
					"performance":           8,
					"optimize|optimization": 6,
					"latency":               6,
					"throughput":            6,
					"profile|profiling":     6,
					"benchmark":             6,
					"cache|caching":         4,
					"slow":                  3,
					"memory":                3,
				},
			},
			{
				Name: "documentation",
				Patterns: []string{
					"documentation", "readme", "changelog", "docstring",
					"document", "tutorial", "guide", "comment",
				},
				Weights: map[string]float64{
					"documentation": 8,
					"readme":        8,
					"changelog":     8,
					"docstring":     8,
					"document":      4,
					"tutorial":      5,
					"guide":         3,
					"comment":       2,
				},
			},
			{
				Name: "machine_learning",
				Patterns: []string{
					"machine learning", "neural network",
					"fine-tune|fine-tuning", "llm", "embedding", "dataset",
					"inference", "training", "model",
				},
				Weights: map[string]float64{
					"machine learning":      10,
					"neural network":        10,
					"fine-tune|fine-tuning": 10,
					"llm":                   8,
					"embedding":             8,
					"dataset":               6,
					"inference":             6,
					"training":              4,
					"model":                 2,
				},
			},
			{
				Name: "mathematics",
				Patterns: []string{
					"functor", "monad", "morphism", "category theory",
					"theorem", "lemma", "algebra", "proof", "composition",
					"equation",
				},
				Weights: map[string]float64{
					"functor":         10,
					"monad":           10,
					"morphism":        10,
					"category theory": 10,
					"theorem":         10,
					"lemma":           10,
					"algebra":         8,
					"proof":           6,
					"composition":     5,
					"equation":        5,
				},
			},
		},
		// Most specialized first. Reviewed whenever a domain is added.
		Priority: []string{
			"mathematics",
			"machine_learning",
			"security",
			"performance",
			"devops",
			"database",
			"frontend",
			"backend",
			"testing",
			"documentation",
			"research",
		},
		Tiers: TierPatterns{
			Coordination: []string{
				"coordinate|coordination",
				"plan|planning",
				"prioritize|triage",
				"review",
				"qa|quality assurance",
				"approve|sign-off|signoff",
				"assign|delegate",
				"retrospective",
			},
			Design: []string{
				"design",
				"architecture|architect",
				"system design",
				"api design",
				"data model",
				"tech stack",
				"strategy",
				"roadmap",
				"rfc",
			},
		},
		Mode: ModeConfig{
			MultiStep: []string{
				`(research|investigate|analyze)\b.*\b(then|after that)\b.*\b(implement|build|write|create|fix)`,
				`(implement|build|write|create)\b.*\band\b.*\b(test|verify|validate)`,
				`review\b.*\b(then|and)\b.*\b(fix|refactor|improve)`,
				`multiple (steps|phases|stages)`,
				`step[- ]by[- ]step`,
			},
			Research: []string{
				`\b(research|investigate|survey)\b`,
				`literature review`,
				`deep dive`,
			},
			Review: []string{
				`code review`,
				`review\b.*\b(pull request|pr)\b`,
				`solid (principles|check)`,
				`design review`,
			},
		},
	}

	applyRoutingDefaults(cfg)
	return cfg
}

func applyRoutingDefaults(cfg *RoutingConfig) {
	if cfg == nil {
		return
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 2
	}
	if cfg.Retry.BaseBackoffMs == 0 {
		cfg.Retry.BaseBackoffMs = 200
	}
	if cfg.Retry.MaxBackoffMs == 0 {
		cfg.Retry.MaxBackoffMs = 2000
	}
	if cfg.Retry.MaxBackoffMs < cfg.Retry.BaseBackoffMs {
		cfg.Retry.MaxBackoffMs = cfg.Retry.BaseBackoffMs
	}
	if cfg.Mode.Enabled == nil {
		enabled := true
		cfg.Mode.Enabled = &enabled
	}
	if cfg.Mode.MinResearchWords == 0 {
		cfg.Mode.MinResearchWords = 8
	}
}
