package task

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"
)

// Task is an immutable unit of routable work. The routing engine never
// mutates a task; classification is a pure read over Description.
type Task struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// New creates a task with a generated id.
func New(description string) Task {
	return Task{
		ID:          generateID(),
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewWithID creates a task with a caller-supplied id, as used when tasks
// come from a taskset manifest.
func NewWithID(id, description string) Task {
	if id == "" {
		return New(description)
	}
	return Task{
		ID:          id,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// WithMetadata returns a copy of the task with an added metadata entry.
func (t Task) WithMetadata(key, value string) Task {
	meta := make(map[string]string, len(t.Metadata)+1)
	for k, v := range t.Metadata {
		meta[k] = v
	}
	meta[key] = value
	t.Metadata = meta
	return t
}

var idSeq atomic.Uint64

// generateID hashes the clock and a process-wide counter. The counter
// disambiguates tasks created within one clock tick.
func generateID() string {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b, uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(b[8:], idSeq.Add(1))
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:12]
}
