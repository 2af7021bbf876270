package router

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/zen-systems/crewgate/pkg/config"
	"github.com/zen-systems/crewgate/pkg/task"
)

// GeneralDomain is the catch-all label returned when no pattern matches.
const GeneralDomain = "general"

// DomainClassifier maps task descriptions to domains using weighted regex
// matching over the declared domain tables. All patterns are compiled once
// at construction; Classify is a pure function afterwards and safe for
// concurrent use.
type DomainClassifier struct {
	domains  []compiledDomain
	priority []string
	// rank by domain name for tie-break lookups
	rank map[string]int
}

type compiledDomain struct {
	name     string
	patterns []compiledPattern
}

type compiledPattern struct {
	source string
	re     *regexp.Regexp
	weight float64
}

// NewDomainClassifier compiles the domain tables from the routing config.
func NewDomainClassifier(cfg *config.RoutingConfig) (*DomainClassifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("routing config is required")
	}

	c := &DomainClassifier{
		priority: append([]string{}, cfg.Priority...),
		rank:     make(map[string]int, len(cfg.Priority)),
	}
	for i, name := range cfg.Priority {
		c.rank[name] = i
	}

	for _, spec := range cfg.Domains {
		cd := compiledDomain{name: spec.Name}
		for _, p := range spec.Patterns {
			re, err := regexp.Compile(`(?i)\b(?:` + p + `)\b`)
			if err != nil {
				return nil, fmt.Errorf("domain %s: pattern %q: %w", spec.Name, p, err)
			}
			// Weights are keyed by the exact pattern string; default 1.
			weight := 1.0
			if w, ok := spec.Weights[p]; ok {
				weight = w
			}
			cd.patterns = append(cd.patterns, compiledPattern{source: p, re: re, weight: weight})
		}
		c.domains = append(c.domains, cd)
	}

	return c, nil
}

// Classify returns the best-matching domain for a task, or "general" when
// nothing matches.
func (c *DomainClassifier) Classify(t task.Task) string {
	domain, _ := c.ClassifyWithScore(t)
	return domain
}

// ClassifyWithScore returns the winning domain and its weighted score.
func (c *DomainClassifier) ClassifyWithScore(t task.Task) (string, float64) {
	desc := strings.ToLower(t.Description)

	maxScore := 0.0
	scores := make([]float64, len(c.domains))
	for i, d := range c.domains {
		score := 0.0
		for _, p := range d.patterns {
			if p.re.MatchString(desc) {
				score += p.weight
			}
		}
		scores[i] = score
		if score > maxScore {
			maxScore = score
		}
	}

	if maxScore == 0 {
		return GeneralDomain, 0
	}

	var tied []string
	for i, d := range c.domains {
		if scores[i] == maxScore {
			tied = append(tied, d.name)
		}
	}
	if len(tied) == 1 {
		return tied[0], maxScore
	}

	// Ties are expected: generic verbs match several domains at once. The
	// priority list resolves them, most specialized domain first.
	tiedSet := make(map[string]struct{}, len(tied))
	for _, name := range tied {
		tiedSet[name] = struct{}{}
	}
	for _, name := range c.priority {
		if _, ok := tiedSet[name]; ok {
			return name, maxScore
		}
	}

	// Safety net: the priority list should enumerate every domain. Falling
	// through here is a configuration smell, not a crash.
	log.Printf("[classifier] warning: tie between %v not covered by priority list; using %s", tied, tied[0])
	return tied[0], maxScore
}

// ClassifyMulti returns up to topN domains ranked by raw match count, the
// looser exploratory variant used for multi-domain hints. Ties keep table
// order; the priority list does not apply here.
func (c *DomainClassifier) ClassifyMulti(t task.Task, topN int) []string {
	if topN <= 0 {
		return nil
	}
	desc := strings.ToLower(t.Description)

	type ranked struct {
		name  string
		count int
	}
	var hits []ranked
	for _, d := range c.domains {
		count := 0
		for _, p := range d.patterns {
			if p.re.MatchString(desc) {
				count++
			}
		}
		if count > 0 {
			hits = append(hits, ranked{name: d.name, count: count})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].count > hits[j].count
	})

	if len(hits) > topN {
		hits = hits[:topN]
	}
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.name
	}
	return names
}

// Statistics classifies every task and returns per-domain counts.
func (c *DomainClassifier) Statistics(tasks []task.Task) map[string]int {
	counts := make(map[string]int)
	for _, t := range tasks {
		counts[c.Classify(t)]++
	}
	return counts
}

// Domains returns the declared domain names in table order.
func (c *DomainClassifier) Domains() []string {
	names := make([]string, len(c.domains))
	for i, d := range c.domains {
		names[i] = d.name
	}
	return names
}
