package router

import (
	"sync"
	"testing"

	"github.com/zen-systems/crewgate/pkg/config"
	"github.com/zen-systems/crewgate/pkg/task"
)

func testClassifier(t *testing.T) *DomainClassifier {
	t.Helper()
	c, err := NewDomainClassifier(config.DefaultRoutingConfig())
	if err != nil {
		t.Fatalf("NewDomainClassifier: %v", err)
	}
	return c
}

func TestClassifyDefaults(t *testing.T) {
	c := testClassifier(t)

	tests := []struct {
		name        string
		description string
		want        string
	}{
		{"frontend", "Build a responsive React component for the dashboard", "frontend"},
		{"backend", "Add a gRPC endpoint to the payments server", "backend"},
		{"database", "Write the migration for the new orders schema", "database"},
		{"devops", "Deploy the service to Kubernetes with Helm", "devops"},
		{"security", "Fix the XSS vulnerability in the comment form", "security"},
		{"documentation", "Update the README and changelog for the release", "documentation"},
		{"no match", "Make it nicer", GeneralDomain},
		{"empty", "", GeneralDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(task.New(tt.description))
			if got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.description, got, tt.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := testClassifier(t)
	tk := task.New("Optimize the slow database query and add a cache")

	first, firstScore := c.ClassifyWithScore(tk)
	for i := 0; i < 50; i++ {
		got, score := c.ClassifyWithScore(tk)
		if got != first || score != firstScore {
			t.Fatalf("run %d: got (%s, %v), want (%s, %v)", i, got, score, first, firstScore)
		}
	}
}

// One classifier instance is shared by every caller in a run; concurrent
// classification must agree with the sequential answer.
func TestClassifyConcurrentReuse(t *testing.T) {
	c := testClassifier(t)

	cases := []struct {
		description string
		want        string
	}{
		{"Add a gRPC endpoint to the payments server", "backend"},
		{"Write the migration for the new orders schema", "database"},
		{"Fix the XSS vulnerability in the comment form", "security"},
		{"Make it nicer", GeneralDomain},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tc := cases[j%len(cases)]
				if got := c.Classify(task.New(tc.description)); got != tc.want {
					t.Errorf("Classify(%q) = %q, want %q", tc.description, got, tc.want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

// Weighted patterns must beat a larger number of weak matches. "Validate
// functor composition" matches testing (validate) and frontend (composition),
// but the mathematics weights dominate.
func TestClassifyWeightedOverride(t *testing.T) {
	c := testClassifier(t)

	got, score := c.ClassifyWithScore(task.New("Validate functor composition"))
	if got != "mathematics" {
		t.Fatalf("expected mathematics, got %s (score %v)", got, score)
	}
	if score != 15 {
		t.Fatalf("expected score 15 (functor 10 + composition 5), got %v", score)
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := testClassifier(t)

	lower := c.Classify(task.New("fix the xss vulnerability"))
	upper := c.Classify(task.New("FIX THE XSS VULNERABILITY"))
	if lower != upper || lower != "security" {
		t.Fatalf("expected security for both cases, got %s and %s", lower, upper)
	}
}

func TestClassifyWordBoundaries(t *testing.T) {
	c := testClassifier(t)

	// "scapi" must not match the "api" pattern.
	got := c.Classify(task.New("inspect the scapi widget"))
	if got == "backend" {
		t.Fatalf("substring matched across a word boundary: got %s", got)
	}
}

func TestClassifyTieBreakUsesPriority(t *testing.T) {
	cfg := &config.RoutingConfig{
		Domains: []config.DomainSpec{
			{Name: "alpha", Patterns: []string{"widget"}},
			{Name: "beta", Patterns: []string{"widget"}},
		},
		Priority: []string{"beta", "alpha"},
	}
	c, err := NewDomainClassifier(cfg)
	if err != nil {
		t.Fatalf("NewDomainClassifier: %v", err)
	}

	got, score := c.ClassifyWithScore(task.New("polish the widget"))
	if got != "beta" {
		t.Fatalf("expected priority winner beta, got %s", got)
	}
	if score != 1 {
		t.Fatalf("expected default weight 1, got %v", score)
	}
}

func TestClassifyTieBreakGapFallsBackToTableOrder(t *testing.T) {
	cfg := &config.RoutingConfig{
		Domains: []config.DomainSpec{
			{Name: "alpha", Patterns: []string{"widget"}},
			{Name: "beta", Patterns: []string{"widget"}},
		},
		// Neither tied domain appears here.
		Priority: []string{"gamma"},
	}
	c, err := NewDomainClassifier(cfg)
	if err != nil {
		t.Fatalf("NewDomainClassifier: %v", err)
	}

	got := c.Classify(task.New("polish the widget"))
	if got != "alpha" {
		t.Fatalf("expected first declared domain alpha, got %s", got)
	}
}

func TestClassifyInvalidPattern(t *testing.T) {
	cfg := &config.RoutingConfig{
		Domains: []config.DomainSpec{
			{Name: "alpha", Patterns: []string{"(unclosed"}},
		},
	}
	if _, err := NewDomainClassifier(cfg); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestClassifyMulti(t *testing.T) {
	c := testClassifier(t)

	got := c.ClassifyMulti(task.New("Test the login API endpoint against the database schema"), 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 domains, got %v", got)
	}
	// backend matches api, endpoint, login; database matches database, schema;
	// testing matches test.
	if got[0] != "backend" {
		t.Fatalf("expected backend first, got %v", got)
	}

	if got := c.ClassifyMulti(task.New("nothing relevant here"), 3); len(got) != 0 {
		t.Fatalf("expected no domains, got %v", got)
	}

	if got := c.ClassifyMulti(task.New("fix the api"), 0); got != nil {
		t.Fatalf("expected nil for topN=0, got %v", got)
	}
}

func TestStatistics(t *testing.T) {
	c := testClassifier(t)

	tasks := []task.Task{
		task.New("Deploy the service to Kubernetes"),
		task.New("Deploy with Terraform"),
		task.New("Fix the XSS vulnerability"),
		task.New("Make it nicer"),
	}

	counts := c.Statistics(tasks)
	if counts["devops"] != 2 {
		t.Errorf("devops count = %d, want 2", counts["devops"])
	}
	if counts["security"] != 1 {
		t.Errorf("security count = %d, want 1", counts["security"])
	}
	if counts[GeneralDomain] != 1 {
		t.Errorf("general count = %d, want 1", counts[GeneralDomain])
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	if total != len(tasks) {
		t.Fatalf("counts sum to %d, want %d", total, len(tasks))
	}
}
