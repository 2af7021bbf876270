package router

// Relaxation labels for how an agent was selected.
const (
	RelaxationExact  = "exact"
	RelaxationTier   = "tier"
	RelaxationGlobal = "global"
)

// Decision captures one routing decision. This is the shape an injected
// collector receives; the router itself keeps no copy.
type Decision struct {
	TaskID      string   `json:"task_id"`
	Mode        Mode     `json:"mode"`
	Domain      string   `json:"domain"`
	DomainScore float64  `json:"domain_score"`
	Tier        int      `json:"tier"`
	AgentRole   string   `json:"agent_role"`
	Relaxation  string   `json:"relaxation"`
	Reasons     []string `json:"reasons,omitempty"`
}

// Collector is an injectable sink for routing decisions. Implementations
// must be safe for concurrent use; the router makes at most one Record call
// per routed task and never blocks routing on a failed write.
type Collector interface {
	Record(d Decision) error
}
