package export

import (
	"encoding/json"
	"io"

	"github.com/mwinter/teams-scrape/internal"
)

// JSONLExporter writes one JSON object per line, one per message. Suited
// to piping into downstream tooling.
type JSONLExporter struct{}

func (e *JSONLExporter) Export(session *internal.ChatSession, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, m := range session.Messages {
		line := jsonMessage{
			Author:      m.Author,
			Timestamp:   m.Timestamp,
			Body:        m.Body,
			Media:       m.MediaRefs,
			Attachments: m.Attachments,
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
