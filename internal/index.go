package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RunIndex summarizes one extraction run. It is written alongside the
// exported files so a later run (or a human) can see what was captured.
type RunIndex struct {
	StartedAt  time.Time        `yaml:"started_at"`
	FinishedAt time.Time        `yaml:"finished_at"`
	Chats      []ChatIndexEntry `yaml:"chats"`
}

// ChatIndexEntry records the outcome for a single chat.
type ChatIndexEntry struct {
	Title          string `yaml:"title"`
	Messages       int    `yaml:"messages"`
	NewMessages    int    `yaml:"new_messages"`
	ImagesResolved int    `yaml:"images_resolved"`
	ImagesFailed   int    `yaml:"images_failed"`
	Aborted        bool   `yaml:"aborted,omitempty"`
	Error          string `yaml:"error,omitempty"`
}

// IndexFilename is the run index file written into the output directory.
const IndexFilename = "chats.yaml"

// WriteRunIndex persists the index into dir.
func WriteRunIndex(dir string, idx *RunIndex) error {
	data, err := yaml.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to marshal run index: %w", err)
	}
	path := filepath.Join(dir, IndexFilename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run index %s: %w", path, err)
	}
	return nil
}

// LoadRunIndex reads a previously written index, if any.
func LoadRunIndex(dir string) (*RunIndex, error) {
	path := filepath.Join(dir, IndexFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run index %s: %w", path, err)
	}
	var idx RunIndex
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse run index %s: %w", path, err)
	}
	return &idx, nil
}
