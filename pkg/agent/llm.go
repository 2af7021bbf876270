package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zen-systems/crewgate/pkg/adapter"
	"github.com/zen-systems/crewgate/pkg/config"
	"github.com/zen-systems/crewgate/pkg/task"
)

// LLMAgent is an agent backed by an adapter+model pair. Its capability
// check is a trigger phrase list; an empty list accepts every task.
type LLMAgent struct {
	role           string
	tier           int
	specialization string
	adapter        adapter.Adapter
	model          string
	// Lowercased trigger phrases, longest first.
	triggers []string
}

// NewLLMAgent creates an agent from a roster spec and a constructed adapter.
func NewLLMAgent(spec config.AgentSpec, a adapter.Adapter) (*LLMAgent, error) {
	if spec.Role == "" {
		return nil, fmt.Errorf("agent role is required")
	}
	if spec.Tier < 1 || spec.Tier > 3 {
		return nil, fmt.Errorf("agent %s: tier %d out of range [1,3]", spec.Role, spec.Tier)
	}
	if a == nil {
		return nil, fmt.Errorf("agent %s: adapter is required", spec.Role)
	}

	specialization := spec.Specialization
	if specialization == "" {
		specialization = "general"
	}

	triggers := make([]string, 0, len(spec.Capabilities))
	for _, trig := range spec.Capabilities {
		triggers = append(triggers, strings.ToLower(trig))
	}
	sort.SliceStable(triggers, func(i, j int) bool {
		return len(triggers[i]) > len(triggers[j])
	})

	return &LLMAgent{
		role:           spec.Role,
		tier:           spec.Tier,
		specialization: specialization,
		adapter:        a,
		model:          spec.Model,
		triggers:       triggers,
	}, nil
}

// Role returns the agent's role identifier.
func (a *LLMAgent) Role() string { return a.role }

// Tier returns the agent's hierarchy tier.
func (a *LLMAgent) Tier() int { return a.tier }

// Specialization returns the agent's domain label.
func (a *LLMAgent) Specialization() string { return a.specialization }

// Model returns the model the agent executes with.
func (a *LLMAgent) Model() string { return a.model }

// AdapterName returns the name of the backing adapter.
func (a *LLMAgent) AdapterName() string { return a.adapter.Name() }

// CanHandle reports whether any capability trigger matches the task
// description. Agents declared without triggers accept everything.
func (a *LLMAgent) CanHandle(t task.Task) bool {
	if len(a.triggers) == 0 {
		return true
	}
	desc := strings.ToLower(t.Description)
	for _, trig := range a.triggers {
		if containsTrigger(desc, trig) {
			return true
		}
	}
	return false
}

// Execute sends the task to the backing model, framed by the agent's role.
func (a *LLMAgent) Execute(ctx context.Context, t task.Task) (*adapter.Response, error) {
	resp, err := a.adapter.Generate(ctx, a.model, a.Prompt(t))
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.role, err)
	}
	return resp, nil
}

// Prompt renders the role-framed prompt sent to the model for a task.
func (a *LLMAgent) Prompt(t task.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are the %s agent (tier %d", a.role, a.tier))
	if a.specialization != "general" {
		sb.WriteString(fmt.Sprintf(", specialized in %s", a.specialization))
	}
	sb.WriteString(").\n\nTask:\n")
	sb.WriteString(t.Description)
	sb.WriteString("\n")
	return sb.String()
}
