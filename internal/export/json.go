package export

import (
	"encoding/json"
	"io"

	"github.com/mwinter/teams-scrape/internal"
)

// JSONExporter writes the full session as an indented JSON document,
// including per-message media references and the image statistics.
type JSONExporter struct{}

type jsonDocument struct {
	Chat       string              `json:"chat"`
	Messages   []jsonMessage       `json:"messages"`
	ImageStats internal.ImageStats `json:"imageStats"`
	Aborted    bool                `json:"aborted,omitempty"`
}

type jsonMessage struct {
	Author      string                    `json:"author"`
	Timestamp   string                    `json:"timestamp"`
	Body        string                    `json:"body"`
	Media       []internal.MediaReference `json:"media,omitempty"`
	Attachments []internal.AttachmentInfo `json:"attachments,omitempty"`
}

func (e *JSONExporter) Export(session *internal.ChatSession, w io.Writer) error {
	doc := jsonDocument{
		Chat:       session.ChatID,
		Messages:   make([]jsonMessage, 0, len(session.Messages)),
		ImageStats: session.ImageStats,
		Aborted:    session.Aborted,
	}
	for _, m := range session.Messages {
		doc.Messages = append(doc.Messages, jsonMessage{
			Author:      m.Author,
			Timestamp:   m.Timestamp,
			Body:        m.Body,
			Media:       m.MediaRefs,
			Attachments: m.Attachments,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func (e *JSONExporter) Extension() string {
	return "json"
}
