package dispatch

import (
	"github.com/zen-systems/crewgate/pkg/evidence"
	"github.com/zen-systems/crewgate/pkg/router"
)

// DecisionLog adapts an evidence writer to the router's Collector contract,
// for callers that route tasks without going through the runner.
type DecisionLog struct {
	Writer *evidence.Writer
}

// Record appends the decision to the run's decisions.jsonl.
func (l *DecisionLog) Record(d router.Decision) error {
	return l.Writer.WriteDecision(decisionRecord(&d))
}
