package evidence

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

func TestEvidenceWriter(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir, "run-123")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	run := RunRecord{
		ID:          "run-123",
		Timestamp:   time.Now().UTC(),
		TasksetFile: "taskset.yaml",
		TaskCount:   2,
		AgentRoles:  []string{"coordinator", "backend-dev"},
	}
	if err := writer.WriteRun(run); err != nil {
		t.Fatalf("write run: %v", err)
	}

	taskRecord := TaskRecord{
		TaskID:    "t-1",
		AgentRole: "backend-dev",
		Adapter:   "mock",
		Model:     "mock-1",
		Output:    "ok",
	}
	if err := writer.WriteTask(taskRecord); err != nil {
		t.Fatalf("write task: %v", err)
	}

	if err := writer.WriteGateLog("t-1", "hollowcheck", "{}"); err != nil {
		t.Fatalf("write gate log: %v", err)
	}

	if _, err := os.Stat(filepath.Join(writer.RunDir(), "run.json")); err != nil {
		t.Fatalf("missing run.json: %v", err)
	}
	if _, err := os.Stat(filepath.Join(writer.RunDir(), "tasks", "t-1.json")); err != nil {
		t.Fatalf("missing task file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(writer.RunDir(), "gates", "t-1-hollowcheck.log")); err != nil {
		t.Fatalf("missing gate log: %v", err)
	}

	if runtime.GOOS != "windows" {
		assertPerm(t, writer.RunDir(), 0700)
		assertPerm(t, filepath.Join(writer.RunDir(), "tasks"), 0700)
		assertPerm(t, filepath.Join(writer.RunDir(), "gates"), 0700)
		assertPerm(t, filepath.Join(writer.RunDir(), "run.json"), 0600)
		assertPerm(t, filepath.Join(writer.RunDir(), "tasks", "t-1.json"), 0600)
		assertPerm(t, filepath.Join(writer.RunDir(), "gates", "t-1-hollowcheck.log"), 0600)
	}
}

func TestWriteDecisionAppends(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir, "run1")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	records := []DecisionRecord{
		{TaskID: "t-1", Domain: "backend", Tier: 3, AgentRole: "backend-dev", Relaxation: "exact"},
		{TaskID: "t-2", Domain: "general", Tier: 1, AgentRole: "coordinator", Relaxation: "tier"},
	}
	for _, record := range records {
		if err := writer.WriteDecision(record); err != nil {
			t.Fatalf("write decision: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(writer.RunDir(), "decisions.jsonl"))
	if err != nil {
		t.Fatalf("open decisions.jsonl: %v", err)
	}
	defer f.Close()

	var read []DecisionRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var record DecisionRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		read = append(read, record)
	}

	if len(read) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(read))
	}
	if read[0].TaskID != "t-1" || read[1].TaskID != "t-2" {
		t.Fatalf("decision order mismatch: %+v", read)
	}
	if read[0].Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be filled in")
	}
}

func TestWriteDecisionConcurrent(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir, "run2")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record := DecisionRecord{TaskID: "t", Tier: 3}
			if err := writer.WriteDecision(record); err != nil {
				t.Errorf("write decision: %v", err)
			}
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(filepath.Join(writer.RunDir(), "decisions.jsonl"))
	if err != nil {
		t.Fatalf("read decisions.jsonl: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != n {
		t.Fatalf("expected %d lines, got %d", n, lines)
	}
}

func TestNewWriterValidation(t *testing.T) {
	if _, err := NewWriter("", "run"); err == nil {
		t.Fatalf("expected error for empty base dir")
	}
	if _, err := NewWriter(t.TempDir(), ""); err == nil {
		t.Fatalf("expected error for empty run ID")
	}
}

func assertPerm(t *testing.T, path string, expected os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if info.Mode().Perm() != expected {
		t.Fatalf("expected %s mode %o, got %o", path, expected, info.Mode().Perm())
	}
}
