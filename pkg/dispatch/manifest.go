package dispatch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zen-systems/crewgate/pkg/task"
)

// Taskset is a batch of tasks submitted for routing and execution.
type Taskset struct {
	Name  string     `yaml:"name"`
	Tasks []TaskSpec `yaml:"tasks"`
}

// TaskSpec declares one task in a taskset file.
type TaskSpec struct {
	ID          string            `yaml:"id,omitempty"`
	Description string            `yaml:"description"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
}

// LoadTaskset reads a taskset definition from a YAML file.
func LoadTaskset(path string) (*Taskset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ts Taskset
	if err := yaml.Unmarshal(data, &ts); err != nil {
		return nil, err
	}

	return &ts, nil
}

// Validate checks the taskset for errors.
func (ts *Taskset) Validate() error {
	if ts.Name == "" {
		return fmt.Errorf("taskset name is required")
	}
	if len(ts.Tasks) == 0 {
		return fmt.Errorf("taskset must define at least one task")
	}

	seen := make(map[string]struct{})
	for i, spec := range ts.Tasks {
		if spec.Description == "" {
			return fmt.Errorf("task %d must have a description", i+1)
		}
		if spec.ID == "" {
			continue
		}
		if _, ok := seen[spec.ID]; ok {
			return fmt.Errorf("duplicate task id: %s", spec.ID)
		}
		seen[spec.ID] = struct{}{}
	}

	return nil
}

// BuildTasks materializes the taskset into tasks. Specs without an ID get
// a generated one.
func (ts *Taskset) BuildTasks() []task.Task {
	tasks := make([]task.Task, 0, len(ts.Tasks))
	for _, spec := range ts.Tasks {
		var t task.Task
		if spec.ID != "" {
			t = task.NewWithID(spec.ID, spec.Description)
		} else {
			t = task.New(spec.Description)
		}
		for key, value := range spec.Metadata {
			t = t.WithMetadata(key, value)
		}
		tasks = append(tasks, t)
	}
	return tasks
}
