package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/zen-systems/crewgate/pkg/adapter"
	"github.com/zen-systems/crewgate/pkg/agent"
	"github.com/zen-systems/crewgate/pkg/artifact"
	"github.com/zen-systems/crewgate/pkg/config"
	"github.com/zen-systems/crewgate/pkg/evidence"
	"github.com/zen-systems/crewgate/pkg/gate"
	"github.com/zen-systems/crewgate/pkg/repair"
	"github.com/zen-systems/crewgate/pkg/router"
	"github.com/zen-systems/crewgate/pkg/task"
)

// Runner routes a taskset through the hierarchical router and executes each
// task on its selected agent, with gate checks and a repair loop.
type Runner struct {
	router   *router.HierarchicalRouter
	pool     []agent.Agent
	adapters map[string]adapter.Adapter
	gates    []gate.Gate
	cfg      *config.RoutingConfig
}

// NewRunner wires a runner from already-constructed parts.
func NewRunner(
	r *router.HierarchicalRouter,
	pool []agent.Agent,
	adapters map[string]adapter.Adapter,
	cfg *config.RoutingConfig,
	gates ...gate.Gate,
) (*Runner, error) {
	if r == nil {
		return nil, fmt.Errorf("router is required")
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("agent pool is empty")
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters configured")
	}
	return &Runner{
		router:   r,
		pool:     pool,
		adapters: adapters,
		gates:    gates,
		cfg:      cfg,
	}, nil
}

// RunOptions configures taskset execution.
type RunOptions struct {
	EvidenceDir  string
	TasksetPath  string
	MaxBudgetUSD float64
	Logger       func(format string, args ...any)
}

// RunResult captures taskset outputs.
type RunResult struct {
	RunID       string
	EvidenceDir string
	Tasks       map[string]*TaskResult
	Cost        *evidence.RunCostReport
}

// TaskResult captures execution results for one task.
type TaskResult struct {
	Task        task.Task
	Agent       agent.Agent
	Decision    *router.Decision
	Artifact    *artifact.Artifact
	GateResults []GateResult
	Duration    time.Duration
}

// GateResult captures a gate evaluation with metadata.
type GateResult struct {
	Name     string
	Result   *gate.GateResult
	Error    error
	Duration time.Duration
}

// Run executes the taskset. Routing is fail-closed: an unroutable task
// aborts the run before any execution happens for it.
func (r *Runner) Run(ctx context.Context, ts *Taskset, opts RunOptions) (*RunResult, error) {
	if ts == nil {
		return nil, fmt.Errorf("taskset is required")
	}
	if err := ts.Validate(); err != nil {
		return nil, err
	}

	writer, err := prepareEvidenceWriter(opts.EvidenceDir)
	if err != nil {
		return nil, err
	}

	runID := filepath.Base(writer.RunDir())
	runRecord := evidence.RunRecord{
		ID:           runID,
		Timestamp:    time.Now().UTC(),
		TasksetFile:  opts.TasksetPath,
		TaskCount:    len(ts.Tasks),
		AgentRoles:   poolRoles(r.pool),
		ToolVersions: map[string]string{"go": runtime.Version()},
	}
	if err := writer.WriteRun(runRecord); err != nil {
		return nil, err
	}

	tracker := newCostTracker(r.cfg, opts.MaxBudgetUSD)
	results := make(map[string]*TaskResult)

	for _, t := range ts.BuildTasks() {
		selected, decision, err := r.router.RouteWithDecision(t, r.pool)
		if err != nil {
			return nil, err
		}
		if err := writer.WriteDecision(decisionRecord(decision)); err != nil {
			return nil, err
		}

		exec, ok := selected.(agent.Executor)
		if !ok {
			return nil, fmt.Errorf("agent %s cannot execute tasks", selected.Role())
		}

		logf(opts, "[dispatch] task %s -> %s (tier %d, %s, %s)",
			t.ID, decision.AgentRole, decision.Tier, decision.Domain, decision.Relaxation)

		result, record, err := r.runTask(ctx, t, exec, decision, tracker, opts)
		if record != nil {
			if writeErr := writer.WriteTask(*record); writeErr != nil {
				return nil, writeErr
			}
		}
		if err != nil {
			if costErr := writer.WriteCostReport(tracker.report()); costErr != nil {
				logf(opts, "[dispatch] warning: cost report write failed: %v", costErr)
			}
			return nil, err
		}

		if err := writeGateLogs(writer, t.ID, result.GateResults); err != nil {
			return nil, err
		}
		results[t.ID] = result
	}

	costReport := tracker.report()
	if err := writer.WriteCostReport(costReport); err != nil {
		return nil, err
	}

	return &RunResult{
		RunID:       runID,
		EvidenceDir: writer.RunDir(),
		Tasks:       results,
		Cost:        costReport,
	}, nil
}

func (r *Runner) runTask(
	ctx context.Context,
	t task.Task,
	exec agent.Executor,
	decision *router.Decision,
	tracker *costTracker,
	opts RunOptions,
) (*TaskResult, *evidence.TaskRecord, error) {
	start := time.Now()
	record := &evidence.TaskRecord{
		TaskID:      t.ID,
		Description: t.Description,
		AgentRole:   exec.Role(),
		Adapter:     exec.AdapterName(),
		Model:       exec.Model(),
	}

	attempts := 1
	if r.cfg != nil && r.cfg.Retry.MaxRetries > 0 {
		attempts = r.cfg.Retry.MaxRetries + 1
	}

	prompt := exec.Prompt(t)

	var lastArtifact *artifact.Artifact
	var lastGateResults []GateResult
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		attemptStart := time.Now()

		resp, reports, err := callAdapterWithPolicy(ctx, r.adapters, exec.AdapterName(), exec.Model(), prompt, r.cfg, tracker)
		tracker.recordReports(reports)
		if err != nil {
			lastErr = fmt.Errorf("task %s: agent %s: %w", t.ID, exec.Role(), err)
			record.Error = lastErr.Error()
			record.DurationMillis = time.Since(start).Milliseconds()
			return nil, record, lastErr
		}
		lastArtifact = resp.Artifact

		gateResults, gateErr := r.evaluateGates(ctx, resp.Artifact)
		lastGateResults = gateResults

		succeeded := gateErr == nil
		record.Attempts = append(record.Attempts, evidence.AttemptRecord{
			Attempt:        attempt,
			PromptHash:     hashString(prompt),
			GateResults:    evidenceGateRecords(gateResults),
			Succeeded:      succeeded,
			DurationMillis: time.Since(attemptStart).Milliseconds(),
		})

		if succeeded {
			lastErr = nil
			break
		}

		if attempt == attempts {
			lastErr = gateErr
			break
		}

		logf(opts, "[dispatch] task %s attempt %d failed gates, repairing", t.ID, attempt)
		prompt = repair.GenerateRepairPrompt(resp.Artifact, consolidateGateFailures(gateResults))
	}

	if lastErr != nil {
		record.Error = lastErr.Error()
		record.GateResults = evidenceGateRecords(lastGateResults)
		record.DurationMillis = time.Since(start).Milliseconds()
		return nil, record, lastErr
	}

	record.Output = truncateForEvidence(lastArtifact.Content, 4096)
	if record.Output != lastArtifact.Content {
		record.OutputHash = hashString(lastArtifact.Content)
	}
	record.GateResults = evidenceGateRecords(lastGateResults)
	record.DurationMillis = time.Since(start).Milliseconds()

	return &TaskResult{
		Task:        t,
		Agent:       exec,
		Decision:    decision,
		Artifact:    lastArtifact,
		GateResults: lastGateResults,
		Duration:    time.Since(start),
	}, record, nil
}

func (r *Runner) evaluateGates(ctx context.Context, art *artifact.Artifact) ([]GateResult, error) {
	if len(r.gates) == 0 {
		return nil, nil
	}

	var results []GateResult
	for _, g := range r.gates {
		start := time.Now()
		res, err := g.Evaluate(ctx, art)
		results = append(results, GateResult{
			Name:     g.Name(),
			Result:   res,
			Error:    err,
			Duration: time.Since(start),
		})
		if err != nil {
			return results, fmt.Errorf("gate %s error: %w", g.Name(), err)
		}
		if res != nil && !res.Passed {
			return results, fmt.Errorf("gate %s failed", g.Name())
		}
	}

	return results, nil
}

func consolidateGateFailures(results []GateResult) *gate.GateResult {
	var violations []gate.Violation
	var hints []string
	for _, result := range results {
		if result.Result == nil || result.Result.Passed {
			continue
		}
		violations = append(violations, result.Result.Violations...)
		hints = append(hints, result.Result.RepairHints...)
	}

	if len(violations) == 0 {
		violations = append(violations, gate.Violation{
			Rule:     "gate_failed",
			Severity: "error",
			Message:  "gate failed without specific violations",
		})
	}

	return gate.NewFailingResult(100, violations, hints)
}

func decisionRecord(d *router.Decision) evidence.DecisionRecord {
	return evidence.DecisionRecord{
		Timestamp:   time.Now().UTC(),
		TaskID:      d.TaskID,
		Mode:        string(d.Mode),
		Domain:      d.Domain,
		DomainScore: d.DomainScore,
		Tier:        d.Tier,
		AgentRole:   d.AgentRole,
		Relaxation:  d.Relaxation,
		Reasons:     d.Reasons,
	}
}

func evidenceGateRecords(results []GateResult) []evidence.GateRecord {
	records := make([]evidence.GateRecord, 0, len(results))
	for _, result := range results {
		record := evidence.GateRecord{
			Name:           result.Name,
			DurationMillis: result.Duration.Milliseconds(),
		}
		if result.Error != nil {
			record.Error = result.Error.Error()
		}
		if result.Result != nil {
			record.Passed = result.Result.Passed
			record.Score = result.Result.Score
			record.Kind = result.Result.Kind
			record.Diagnostics = result.Result.Diagnostics
			for _, v := range result.Result.Violations {
				record.Violations = append(record.Violations, evidence.Violation{
					Rule:       v.Rule,
					Severity:   v.Severity,
					Message:    v.Message,
					Location:   v.Location,
					Suggestion: v.Suggestion,
				})
			}
			record.RepairHints = append(record.RepairHints, result.Result.RepairHints...)
		}
		records = append(records, record)
	}
	return records
}

func writeGateLogs(writer *evidence.Writer, taskID string, results []GateResult) error {
	for _, result := range results {
		if result.Result == nil || len(result.Result.Diagnostics) == 0 {
			continue
		}
		if err := writer.WriteGateLog(taskID, result.Name, string(result.Result.Diagnostics)); err != nil {
			return err
		}
	}
	return nil
}

func prepareEvidenceWriter(baseDir string) (*evidence.Writer, error) {
	if baseDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(cwd, ".crewgate", "runs")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	runID := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405Z"), randomSuffix())
	return evidence.NewWriter(baseDir, runID)
}

func poolRoles(pool []agent.Agent) []string {
	roles := make([]string, 0, len(pool))
	for _, a := range pool {
		roles = append(roles, a.Role())
	}
	return roles
}

func logf(opts RunOptions, format string, args ...any) {
	if opts.Logger == nil {
		return
	}
	opts.Logger(format, args...)
}

func hashString(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])
}

func truncateForEvidence(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	return value[:limit]
}

func randomSuffix() string {
	now := time.Now().UTC().UnixNano()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d", now)))
	return hex.EncodeToString(sum[:4])
}
