package agent

import (
	"fmt"

	"github.com/zen-systems/crewgate/pkg/adapter"
	"github.com/zen-systems/crewgate/pkg/config"
)

// BuildPool constructs the agent pool from a roster, using whatever
// adapters are available. Roster entries whose adapter has no API key
// configured are skipped rather than failing the whole pool; a pool that
// ends up empty is an error.
func BuildPool(roster *config.AgentRoster, adapters map[string]adapter.Adapter) ([]Agent, error) {
	if roster == nil {
		return nil, fmt.Errorf("roster is required")
	}

	var pool []Agent
	for _, spec := range roster.Agents {
		a, ok := adapters[spec.Adapter]
		if !ok {
			continue
		}
		ag, err := NewLLMAgent(spec, a)
		if err != nil {
			return nil, err
		}
		pool = append(pool, ag)
	}

	if len(pool) == 0 {
		return nil, fmt.Errorf("no agents could be constructed: no roster adapter is configured")
	}
	return pool, nil
}
