package environment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FlamegraphFile is the file name the profile is written to.
const FlamegraphFile = "flamegraph.json"

// TaskProfile records one task run and the tasks it ran.
type TaskProfile struct {
	Name     string         `json:"name"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Children []*TaskProfile `json:"children,omitempty"`
}

// Duration returns how long the task ran.
func (p *TaskProfile) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

type flameNode struct {
	Name       string       `json:"name"`
	DurationMs float64      `json:"durationMs"`
	Children   []*flameNode `json:"children,omitempty"`
}

func toFlameNode(p *TaskProfile) *flameNode {
	n := &flameNode{
		Name:       p.Name,
		DurationMs: float64(p.Duration().Microseconds()) / 1000,
	}
	for _, c := range p.Children {
		n.Children = append(n.Children, toFlameNode(c))
	}
	return n
}

// WriteFlamegraph serializes the profile into dir and returns the file path.
func WriteFlamegraph(profile *TaskProfile, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create flamegraph directory: %w", err)
	}
	data, err := json.MarshalIndent(toFlameNode(profile), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal flamegraph: %w", err)
	}
	path := filepath.Join(dir, FlamegraphFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write flamegraph: %w", err)
	}
	return path, nil
}
