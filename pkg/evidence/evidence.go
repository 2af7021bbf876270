package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zen-systems/crewgate/pkg/adapter"
)

// RunRecord captures run-level metadata for a dispatch run.
type RunRecord struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	TasksetFile  string            `json:"taskset_file,omitempty"`
	TaskCount    int               `json:"task_count"`
	AgentRoles   []string          `json:"agent_roles,omitempty"`
	ToolVersions map[string]string `json:"tool_versions,omitempty"`
}

// DecisionRecord captures one routing decision as received from the router.
type DecisionRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	TaskID      string    `json:"task_id"`
	Mode        string    `json:"mode"`
	Domain      string    `json:"domain"`
	DomainScore float64   `json:"domain_score"`
	Tier        int       `json:"tier"`
	AgentRole   string    `json:"agent_role"`
	Relaxation  string    `json:"relaxation"`
	Reasons     []string  `json:"reasons,omitempty"`
}

// TaskRecord captures execution evidence for a single dispatched task.
type TaskRecord struct {
	TaskID         string          `json:"task_id"`
	Description    string          `json:"description,omitempty"`
	AgentRole      string          `json:"agent_role"`
	Adapter        string          `json:"adapter,omitempty"`
	Model          string          `json:"model,omitempty"`
	Output         string          `json:"output,omitempty"`
	OutputHash     string          `json:"output_hash,omitempty"`
	GateResults    []GateRecord    `json:"gate_results,omitempty"`
	Attempts       []AttemptRecord `json:"attempts,omitempty"`
	Error          string          `json:"error,omitempty"`
	DurationMillis int64           `json:"duration_ms"`
}

// GateRecord captures gate evaluation results.
type GateRecord struct {
	Name           string          `json:"name"`
	Kind           string          `json:"kind,omitempty"`
	Passed         bool            `json:"passed"`
	Score          int             `json:"score"`
	Violations     []Violation     `json:"violations,omitempty"`
	RepairHints    []string        `json:"repair_hints,omitempty"`
	Diagnostics    json.RawMessage `json:"diagnostics,omitempty"`
	Error          string          `json:"error,omitempty"`
	DurationMillis int64           `json:"duration_ms"`
}

// Violation mirrors gate violation details.
type Violation struct {
	Rule       string `json:"rule"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Location   string `json:"location,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// AttemptRecord captures each attempt to satisfy gates.
type AttemptRecord struct {
	Attempt        int          `json:"attempt"`
	PromptHash     string       `json:"prompt_hash,omitempty"`
	GateResults    []GateRecord `json:"gate_results,omitempty"`
	Succeeded      bool         `json:"succeeded"`
	DurationMillis int64        `json:"duration_ms"`
}

// RunCostReport aggregates token usage and estimated spend for a run.
type RunCostReport struct {
	Currency    string               `json:"currency"`
	TotalAmount float64              `json:"total_amount"`
	TotalUsage  adapter.Usage        `json:"total_usage"`
	Calls       []adapter.CallReport `json:"calls,omitempty"`
	Budget      *BudgetStatus        `json:"budget,omitempty"`
}

// BudgetStatus reports whether a run exceeded its cost budget.
type BudgetStatus struct {
	MaxAmount float64 `json:"max_amount"`
	Exceeded  bool    `json:"exceeded"`
	Reason    string  `json:"reason,omitempty"`
}

// Writer writes evidence bundles to disk. Decisions append to
// decisions.jsonl, one JSON object per line; WriteDecision is safe for
// concurrent use.
type Writer struct {
	baseDir string
	runDir  string

	mu sync.Mutex
}

// NewWriter creates a new evidence writer rooted at baseDir/runID.
func NewWriter(baseDir, runID string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0700); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(runDir, "tasks"), 0700); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(runDir, "gates"), 0700); err != nil {
		return nil, err
	}

	return &Writer{baseDir: baseDir, runDir: runDir}, nil
}

// RunDir returns the run directory path.
func (w *Writer) RunDir() string {
	return w.runDir
}

// WriteRun writes run metadata to run.json.
func (w *Writer) WriteRun(record RunRecord) error {
	return writeJSON(filepath.Join(w.runDir, "run.json"), record)
}

// WriteDecision appends a routing decision to decisions.jsonl.
func (w *Writer) WriteDecision(record DecisionRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(w.runDir, "decisions.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// WriteTask writes a task record to tasks/<task-id>.json.
func (w *Writer) WriteTask(record TaskRecord) error {
	path := filepath.Join(w.runDir, "tasks", fmt.Sprintf("%s.json", record.TaskID))
	return writeJSON(path, record)
}

// WriteCostReport writes the run cost report to cost.json.
func (w *Writer) WriteCostReport(report *RunCostReport) error {
	if report == nil {
		return nil
	}
	return writeJSON(filepath.Join(w.runDir, "cost.json"), report)
}

// WriteGateLog writes raw gate diagnostics to gates/<task>-<gate>.log.
func (w *Writer) WriteGateLog(taskID, gateName, content string) error {
	if taskID == "" || gateName == "" {
		return fmt.Errorf("task ID and gate name are required")
	}
	path := filepath.Join(w.runDir, "gates", fmt.Sprintf("%s-%s.log", taskID, gateName))
	return os.WriteFile(path, []byte(content), 0600)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
