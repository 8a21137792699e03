package export

import (
	"fmt"
	"io"

	"github.com/mwinter/teams-scrape/internal"
)

// Exporter writes a collected chat session in a specific output format.
type Exporter interface {
	// Export writes the session's messages to w.
	Export(session *internal.ChatSession, w io.Writer) error

	// Extension returns the file extension for this format, without a dot.
	Extension() string
}

// NewExporter returns the exporter for the named format.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "csv":
		return &CSVExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s (supported: json, csv, jsonl)", format)
	}
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{"json", "csv", "jsonl"}
}
