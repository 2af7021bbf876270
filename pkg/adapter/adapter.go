package adapter

import (
	"context"
)

// Adapter defines the interface for LLM provider adapters. Agents are
// backed by an adapter+model pair; the routing engine itself never calls
// an adapter.
type Adapter interface {
	// Generate sends a prompt to the model and returns the response.
	Generate(ctx context.Context, model string, prompt string) (*Response, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}
