package router

import (
	"fmt"
	"log"
	"strings"

	"github.com/zen-systems/crewgate/pkg/agent"
	"github.com/zen-systems/crewgate/pkg/config"
	"github.com/zen-systems/crewgate/pkg/task"
)

// HierarchicalRouter routes tasks through the layered agent hierarchy:
// classify the domain, determine the tier, then select an agent from the
// supplied pool by successively relaxing the match criteria. Construction
// compiles every pattern; routing afterwards is pure and safe for
// concurrent use.
type HierarchicalRouter struct {
	classifier *DomainClassifier
	selector   *ModeSelector
	tiers      *tierMatcher
	collector  Collector
	debug      bool
}

// RouterOption configures a HierarchicalRouter.
type RouterOption func(*HierarchicalRouter)

// WithCollector injects a decision sink. Routing behavior is identical
// with or without one; absence only disables the emission.
func WithCollector(c Collector) RouterOption {
	return func(r *HierarchicalRouter) {
		r.collector = c
	}
}

// WithDebug enables debug logging.
func WithDebug(debug bool) RouterOption {
	return func(r *HierarchicalRouter) {
		r.debug = debug
	}
}

// NewHierarchicalRouter builds a router from the routing config.
func NewHierarchicalRouter(cfg *config.RoutingConfig, opts ...RouterOption) (*HierarchicalRouter, error) {
	classifier, err := NewDomainClassifier(cfg)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	selector, err := NewModeSelector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mode selector: %w", err)
	}
	tiers, err := newTierMatcher(cfg.Tiers)
	if err != nil {
		return nil, fmt.Errorf("tier patterns: %w", err)
	}

	r := &HierarchicalRouter{
		classifier: classifier,
		selector:   selector,
		tiers:      tiers,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Classifier returns the underlying domain classifier.
func (r *HierarchicalRouter) Classifier() *DomainClassifier {
	return r.classifier
}

// ModeSelector returns the underlying mode selector.
func (r *HierarchicalRouter) ModeSelector() *ModeSelector {
	return r.selector
}

// Route selects exactly one agent from the pool for the task, or fails
// with an UnroutableError naming the task and the available roles.
func (r *HierarchicalRouter) Route(t task.Task, pool []agent.Agent) (agent.Agent, error) {
	selected, _, err := r.RouteWithDecision(t, pool)
	return selected, err
}

// RouteWithDecision routes the task and returns the full decision record.
func (r *HierarchicalRouter) RouteWithDecision(t task.Task, pool []agent.Agent) (agent.Agent, *Decision, error) {
	if len(pool) == 0 {
		return nil, nil, &UnroutableError{TaskID: t.ID, Description: t.Description}
	}

	// Informational in this version: logged and recorded, but it does not
	// gate tier or agent choice.
	mode := r.selector.Select(t)
	if r.debug {
		log.Printf("[router] task %s mode=%s", t.ID, mode)
	}

	domain, score := r.classifier.ClassifyWithScore(t)
	tier := r.tiers.tierFor(t.Description)

	selected, relaxation := r.selectAgent(t, pool, tier, domain)
	if selected == nil {
		return nil, nil, &UnroutableError{
			TaskID:      t.ID,
			Description: t.Description,
			Roles:       poolRoles(pool),
		}
	}

	decision := &Decision{
		TaskID:      t.ID,
		Mode:        mode,
		Domain:      domain,
		DomainScore: score,
		Tier:        tier,
		AgentRole:   selected.Role(),
		Relaxation:  relaxation,
	}
	if relaxation != RelaxationExact {
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("relaxed to %s match: no tier-%d %s agent accepted the task", relaxation, tier, domain))
	}

	if r.collector != nil {
		if err := r.collector.Record(*decision); err != nil {
			log.Printf("[router] warning: decision collector failed: %v", err)
		}
	}

	return selected, decision, nil
}

// selectAgent applies the three relaxation steps in strict priority order.
// Pool order is stable: callers needing load balancing must pre-shuffle.
func (r *HierarchicalRouter) selectAgent(t task.Task, pool []agent.Agent, tier int, domain string) (agent.Agent, string) {
	// Exact: tier + specialization + capability.
	for _, a := range pool {
		if a.Tier() != tier {
			continue
		}
		if domain != GeneralDomain && a.Specialization() != domain {
			continue
		}
		if a.CanHandle(t) {
			return a, RelaxationExact
		}
	}

	log.Printf("[router] warning: no tier-%d %s agent for task %s; relaxing to tier-only match", tier, domain, t.ID)
	for _, a := range pool {
		if a.Tier() == tier && a.CanHandle(t) {
			return a, RelaxationTier
		}
	}

	log.Printf("[router] warning: no tier-%d agent for task %s; relaxing to global fallback", tier, t.ID)
	var candidates []agent.Agent
	for _, a := range pool {
		if a.CanHandle(t) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil, ""
	}
	// Execution agents are the safest generic fallback.
	for _, a := range candidates {
		if a.Tier() == TierSpecialist {
			return a, RelaxationGlobal
		}
	}
	return candidates[0], RelaxationGlobal
}

// Assignment pairs a task with the agent it was routed to.
type Assignment struct {
	Task  task.Task
	Agent agent.Agent
}

// RouteBatch routes every task against the same pool. Calls share no
// mutable state, so this is trivially parallelizable; it stays sequential
// here to keep decision log order deterministic.
func (r *HierarchicalRouter) RouteBatch(tasks []task.Task, pool []agent.Agent) ([]Assignment, error) {
	assignments := make([]Assignment, 0, len(tasks))
	for _, t := range tasks {
		a, err := r.Route(t, pool)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, Assignment{Task: t, Agent: a})
	}
	return assignments, nil
}

// UnroutableError reports that no agent in the pool can handle a task.
// Retrying with the same inputs is deterministic and will fail identically;
// callers need a larger pool or broader capability predicates.
type UnroutableError struct {
	TaskID      string
	Description string
	Roles       []string
}

func (e *UnroutableError) Error() string {
	if len(e.Roles) == 0 {
		return fmt.Sprintf("task %s (%q) is unroutable: agent pool is empty", e.TaskID, e.Description)
	}
	return fmt.Sprintf("task %s (%q) is unroutable: no capable agent among [%s]",
		e.TaskID, e.Description, strings.Join(e.Roles, ", "))
}

func poolRoles(pool []agent.Agent) []string {
	roles := make([]string, 0, len(pool))
	for _, a := range pool {
		roles = append(roles, a.Role())
	}
	return roles
}
