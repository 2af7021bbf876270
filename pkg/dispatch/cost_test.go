package dispatch

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/zen-systems/crewgate/pkg/adapter"
	"github.com/zen-systems/crewgate/pkg/artifact"
	"github.com/zen-systems/crewgate/pkg/config"
)

type transientAdapter struct {
	failures int
	calls    int
}

func (a *transientAdapter) Generate(_ context.Context, model string, prompt string) (*adapter.Response, error) {
	a.calls++
	if a.calls <= a.failures {
		return nil, &adapter.AdapterError{Status: 429, Temporary: true, Err: fmt.Errorf("rate limit")}
	}
	art := artifact.New("ok", "transient", model, prompt)
	return &adapter.Response{Artifact: art, Usage: &adapter.Usage{PromptTokens: 10}}, nil
}

func (a *transientAdapter) Name() string { return "transient" }

func (a *transientAdapter) Models() []string { return []string{"mock-1"} }

type failingAdapter struct{}

func (a *failingAdapter) Generate(_ context.Context, model string, prompt string) (*adapter.Response, error) {
	return nil, fmt.Errorf("hard failure")
}

func (a *failingAdapter) Name() string { return "primary" }

func (a *failingAdapter) Models() []string { return []string{"mock-1"} }

type fallbackAdapter struct{}

func (a *fallbackAdapter) Generate(_ context.Context, model string, prompt string) (*adapter.Response, error) {
	art := artifact.New("ok", "secondary", model, prompt)
	return &adapter.Response{Artifact: art, Usage: &adapter.Usage{PromptTokens: 5}}, nil
}

func (a *fallbackAdapter) Name() string { return "secondary" }

func (a *fallbackAdapter) Models() []string { return []string{"mock-1"} }

func TestEstimateCostAndTotals(t *testing.T) {
	pricing := config.PricingConfig{
		"openai": {
			"gpt-1": {
				PromptPer1K:     0.15,
				CompletionPer1K: 0.60,
			},
		},
	}

	usage := adapter.Usage{PromptTokens: 1000, CompletionTokens: 500}
	cost, ok := estimateCost(pricing, "openai", "gpt-1", usage)
	if !ok {
		t.Fatalf("expected pricing match")
	}
	want := 0.15 + 0.30
	if math.Abs(cost.Amount-want) > 1e-6 {
		t.Fatalf("cost amount mismatch: got %.4f want %.4f", cost.Amount, want)
	}

	tracker := newCostTracker(&config.RoutingConfig{Pricing: pricing}, 0)
	tracker.recordReports([]adapter.CallReport{{
		Adapter: "openai",
		Model:   "gpt-1",
		Usage:   usage,
		Cost:    cost,
	}})
	tracker.recordReports([]adapter.CallReport{{
		Adapter: "openai",
		Model:   "gpt-1",
		Usage:   usage,
		Cost:    cost,
	}})

	report := tracker.report()
	if report.TotalUsage.PromptTokens != 2000 {
		t.Fatalf("expected prompt tokens to sum to 2000, got %d", report.TotalUsage.PromptTokens)
	}
	if math.Abs(report.TotalAmount-(want*2)) > 1e-6 {
		t.Fatalf("expected total cost %.4f, got %.4f", want*2, report.TotalAmount)
	}
}

func TestBudgetEnforcementStopsNextCall(t *testing.T) {
	pricing := config.PricingConfig{
		"transient": {
			"mock-1": {
				PromptPer1K: 1.0,
			},
		},
	}
	cfg := &config.RoutingConfig{Pricing: pricing}
	tracker := newCostTracker(cfg, 0.5)

	tracker.recordReports([]adapter.CallReport{{
		Adapter: "transient",
		Model:   "mock-1",
		Usage:   adapter.Usage{PromptTokens: 1000},
		Cost:    adapter.Cost{Currency: "USD", Amount: 1.0},
	}})

	if err := tracker.checkBudget("transient", "mock-1"); err == nil {
		t.Fatalf("expected budget error")
	}
	report := tracker.report()
	if report.Budget == nil || !report.Budget.Exceeded || report.Budget.Reason == "" {
		t.Fatalf("expected budget exceeded with reason, got %+v", report.Budget)
	}
}

func TestRetryWithTransientErrors(t *testing.T) {
	cfg := &config.RoutingConfig{
		Retry: config.RetryConfig{
			MaxRetries:    2,
			BaseBackoffMs: 1,
			MaxBackoffMs:  2,
		},
	}
	adapterImpl := &transientAdapter{failures: 2}
	resp, reports, err := callAdapterWithPolicy(
		context.Background(),
		map[string]adapter.Adapter{"transient": adapterImpl},
		"transient",
		"mock-1",
		"prompt",
		cfg,
		newCostTracker(cfg, 0),
	)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if resp == nil || resp.Artifact == nil {
		t.Fatalf("expected response artifact")
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 call report, got %d", len(reports))
	}
	if reports[0].Retries != 2 {
		t.Fatalf("expected 2 retries, got %d", reports[0].Retries)
	}
}

func TestFallbackAdapterUsedOnFailure(t *testing.T) {
	cfg := &config.RoutingConfig{
		Retry: config.RetryConfig{MaxRetries: 0},
		Fallback: config.FallbackConfig{
			AllowFallback: true,
			FallbackChain: map[string][]config.RouteTarget{
				"primary/mock-1": {{Adapter: "secondary", Model: "mock-1"}},
			},
		},
	}

	resp, reports, err := callAdapterWithPolicy(
		context.Background(),
		map[string]adapter.Adapter{
			"primary":   &failingAdapter{},
			"secondary": &fallbackAdapter{},
		},
		"primary",
		"mock-1",
		"prompt",
		cfg,
		newCostTracker(cfg, 0),
	)
	if err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	if resp == nil || resp.Artifact == nil || resp.Artifact.Adapter != "secondary" {
		t.Fatalf("expected secondary adapter response")
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 call reports, got %d", len(reports))
	}
	if !reports[1].FallbackUsed {
		t.Fatalf("expected fallback_used true for fallback call")
	}
}
