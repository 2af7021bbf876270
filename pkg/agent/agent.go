package agent

import (
	"context"

	"github.com/zen-systems/crewgate/pkg/adapter"
	"github.com/zen-systems/crewgate/pkg/task"
)

// Agent is the capability abstraction the router depends on. How an agent
// decides CanHandle is its own business; the router only reads these four
// properties.
type Agent interface {
	// Role returns the agent's display identifier, e.g. "backend-lead".
	Role() string

	// Tier returns the agent's hierarchy tier (1-3).
	Tier() int

	// Specialization returns the domain label the agent specializes in,
	// or "general".
	Specialization() string

	// CanHandle reports whether the agent accepts the task.
	CanHandle(t task.Task) bool
}

// Executor is an agent that can also run a task it was routed. The router
// never calls Execute; the dispatch runner does.
type Executor interface {
	Agent

	// Prompt renders the role-framed prompt for a task.
	Prompt(t task.Task) string

	// Execute runs the task and returns the adapter response.
	Execute(ctx context.Context, t task.Task) (*adapter.Response, error)

	// AdapterName and Model identify the backing adapter/model pair, used
	// for cost accounting and fallback resolution.
	AdapterName() string
	Model() string
}
