package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zen-systems/crewgate/pkg/artifact"
)

// HollowCheckGate lints a routed agent's artifact with the external
// hollowcheck CLI before the dispatch runner accepts it. The artifact is
// staged into a throwaway directory, linted against an optional contract,
// and the JSON report is folded into a GateResult whose repair hints feed
// the retry prompt.
type HollowCheckGate struct {
	binaryPath   string
	contractPath string
}

// HollowCheckConfig holds configuration for the hollowcheck gate.
type HollowCheckConfig struct {
	BinaryPath   string `yaml:"binary_path"`
	ContractPath string `yaml:"contract_path"`
}

// checkReport mirrors the JSON report emitted by `hollowcheck lint`.
// Score is penalty points: 0 is a clean artifact.
type checkReport struct {
	Version      string           `json:"version"`
	Path         string           `json:"path"`
	Contract     string           `json:"contract"`
	Score        int              `json:"score"`
	Grade        string           `json:"grade"`
	Threshold    int              `json:"threshold"`
	Passed       bool             `json:"passed"`
	FilesScanned int              `json:"files_scanned"`
	Violations   []checkFinding   `json:"violations"`
	Breakdown    []checkRuleScore `json:"breakdown"`
}

type checkFinding struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

type checkRuleScore struct {
	Rule       string `json:"rule"`
	Points     int    `json:"points"`
	Violations int    `json:"violations"`
}

// NewHollowCheckGate creates a hollowcheck gate. An empty binaryPath
// resolves the binary through PATH.
func NewHollowCheckGate(binaryPath, contractPath string) *HollowCheckGate {
	if binaryPath == "" {
		binaryPath = "hollowcheck"
	}
	return &HollowCheckGate{binaryPath: binaryPath, contractPath: contractPath}
}

// NewHollowCheckGateFromConfig creates a gate from configuration.
func NewHollowCheckGateFromConfig(cfg HollowCheckConfig) *HollowCheckGate {
	return NewHollowCheckGate(cfg.BinaryPath, cfg.ContractPath)
}

// Name returns the gate identifier.
func (g *HollowCheckGate) Name() string {
	return "hollowcheck"
}

// Evaluate stages the artifact to disk and lints it.
func (g *HollowCheckGate) Evaluate(ctx context.Context, a *artifact.Artifact) (*GateResult, error) {
	dir, err := os.MkdirTemp("", "crewgate-hollowcheck-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := stageArtifact(dir, a); err != nil {
		return nil, fmt.Errorf("failed to stage artifact: %w", err)
	}

	report, err := g.run(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to run hollowcheck: %w", err)
	}

	result := foldReport(report)
	payload, _ := json.Marshal(report)
	result.Kind = "hollowcheck"
	result.Diagnostics = payload
	return result, nil
}

// stageArtifact writes the artifact into dir. Agents answering a task with
// more than one file separate them with "file:" marker lines; an artifact
// without markers is written as a single file, with the extension taken
// from the artifact metadata when the agent declared one.
func stageArtifact(dir string, a *artifact.Artifact) error {
	sections := splitFileSections(a.Content)
	if len(sections) == 0 {
		ext := ".go"
		if a.Metadata != nil {
			if e, ok := a.Metadata["extension"]; ok {
				ext = e
			}
		}
		return os.WriteFile(filepath.Join(dir, "artifact"+ext), []byte(a.Content), 0644)
	}

	for rel, body := range sections {
		full := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(body), 0644); err != nil {
			return err
		}
	}
	return nil
}

// splitFileSections cuts artifact content into per-file bodies at marker
// lines. Content before the first marker is agent prose, not code, and is
// dropped.
func splitFileSections(content string) map[string]string {
	sections := make(map[string]string)

	var name string
	var body strings.Builder
	flush := func() {
		if name != "" {
			sections[name] = strings.TrimSuffix(body.String(), "\n")
		}
		body.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if path := fileMarker(line); path != "" {
			flush()
			name = path
			continue
		}
		if name != "" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()

	return sections
}

// fileMarker matches a marker line in any comment syntax an agent is
// likely to emit: "// file: x.go", "# file: x.py", "/* file: x.css */",
// "<!-- file: x.html -->". The space after the comment leader is required
// so that code mentioning "file:" mid-token is not mistaken for a marker.
var fileMarkerRe = regexp.MustCompile(`^(?://|#|/\*|<!--) [Ff]ile:\s*(.+?)\s*(?:\*/|-->)?\s*$`)

func fileMarker(line string) string {
	m := fileMarkerRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return ""
	}
	return m[1]
}

// run executes the hollowcheck CLI against the staged directory.
func (g *HollowCheckGate) run(ctx context.Context, dir string) (*checkReport, error) {
	args := []string{"lint", dir, "--format", "json"}
	if g.contractPath != "" {
		args = append(args, "--contract", g.contractPath)
	}

	cmd := exec.CommandContext(ctx, g.binaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	// A report on stdout wins over the exit code: hollowcheck exits
	// nonzero on a failed lint with the report attached.
	if stdout.Len() > 0 {
		var report checkReport
		if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
			if runErr != nil {
				return nil, fmt.Errorf("hollowcheck failed: %v, stderr: %s", runErr, stderr.String())
			}
			return nil, fmt.Errorf("failed to parse hollowcheck output: %w", err)
		}
		return &report, nil
	}

	if runErr != nil {
		return nil, fmt.Errorf("hollowcheck failed: %v, stderr: %s", runErr, stderr.String())
	}
	return &checkReport{Passed: true}, nil
}

// foldReport converts a hollowcheck report into a GateResult. Findings on
// a passing report stay in the diagnostics payload only.
func foldReport(report *checkReport) *GateResult {
	if report.Passed {
		return NewPassingResult(report.Score)
	}

	violations := make([]Violation, 0, len(report.Violations))
	var hints []string
	for _, f := range report.Violations {
		violations = append(violations, Violation{
			Rule:     f.Rule,
			Severity: f.Severity,
			Message:  f.Message,
			Location: findingLocation(f),
		})
		if hint := repairHint(f); hint != "" {
			hints = append(hints, hint)
		}
	}

	return NewFailingResult(report.Score, violations, hints)
}

func findingLocation(f checkFinding) string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return f.File
}

// repairHint turns a finding into the instruction the repair prompt hands
// back to the agent on the next attempt.
func repairHint(f checkFinding) string {
	loc := findingLocation(f)
	rule := strings.ToLower(f.Rule)
	msg := strings.ToLower(f.Message)

	if rule == "forbidden_pattern" {
		switch {
		case strings.Contains(msg, "todo"):
			return fmt.Sprintf("Remove TODO comment at %s", loc)
		case strings.Contains(msg, "fixme"):
			return fmt.Sprintf("Address FIXME comment at %s", loc)
		case strings.Contains(msg, "panic") && strings.Contains(msg, "not implemented"):
			return fmt.Sprintf("Replace panic(\"not implemented\") with real implementation at %s", loc)
		case strings.Contains(msg, "panic"):
			return fmt.Sprintf("Replace panic with proper error handling at %s", loc)
		}
		return fmt.Sprintf("Remove forbidden pattern at %s: %s", loc, f.Message)
	}

	switch {
	case strings.Contains(rule, "stub"), strings.Contains(rule, "low_complexity"):
		return fmt.Sprintf("Implement stub function at %s", loc)
	case strings.Contains(rule, "placeholder"), strings.Contains(rule, "mock_data"):
		return fmt.Sprintf("Replace placeholder/mock data at %s", loc)
	case strings.Contains(rule, "missing_file"):
		return fmt.Sprintf("Create required file: %s", f.Message)
	case strings.Contains(rule, "missing_symbol"):
		return fmt.Sprintf("Implement required symbol: %s", f.Message)
	case strings.Contains(rule, "missing_test"):
		return fmt.Sprintf("Add required test: %s", f.Message)
	case strings.Contains(rule, "empty"):
		return fmt.Sprintf("Add implementation to empty block at %s", loc)
	case strings.Contains(rule, "error"):
		if strings.Contains(msg, "ignored") {
			return fmt.Sprintf("Handle error properly at %s", loc)
		}
		return fmt.Sprintf("Fix error at %s: %s", loc, f.Message)
	}

	return fmt.Sprintf("Fix %s violation at %s: %s", f.Rule, loc, f.Message)
}
