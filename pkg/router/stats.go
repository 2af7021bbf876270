package router

import (
	"github.com/zen-systems/crewgate/pkg/agent"
	"github.com/zen-systems/crewgate/pkg/task"
)

// Stats aggregates routing outcomes over a batch of tasks. Observability
// only; nothing here feeds back into routing decisions.
type Stats struct {
	Total            int             `json:"total"`
	TierCounts       map[int]int     `json:"tier_counts"`
	TierPercents     map[int]float64 `json:"tier_percents"`
	DomainCounts     map[string]int  `json:"domain_counts"`
	AgentUtilization map[string]int  `json:"agent_utilization"`
}

// RoutingStats routes the batch and tabulates per-tier counts and
// percentages, per-domain counts, and per-agent utilization.
func (r *HierarchicalRouter) RoutingStats(tasks []task.Task, pool []agent.Agent) (*Stats, error) {
	assignments, err := r.RouteBatch(tasks, pool)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:            len(assignments),
		TierCounts:       make(map[int]int),
		TierPercents:     make(map[int]float64),
		DomainCounts:     r.classifier.Statistics(tasks),
		AgentUtilization: make(map[string]int),
	}

	for _, assignment := range assignments {
		tier := r.tiers.tierFor(assignment.Task.Description)
		stats.TierCounts[tier]++
		stats.AgentUtilization[assignment.Agent.Role()]++
	}

	if stats.Total > 0 {
		for tier, count := range stats.TierCounts {
			stats.TierPercents[tier] = float64(count) / float64(stats.Total) * 100
		}
	}

	return stats, nil
}
