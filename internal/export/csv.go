package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/mwinter/teams-scrape/internal"
)

// CSVExporter writes one row per message. Media and attachments are
// flattened to counts; the JSON export carries the full detail.
type CSVExporter struct{}

func (e *CSVExporter) Export(session *internal.ChatSession, w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"chat", "author", "timestamp", "body", "images", "attachments"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, m := range session.Messages {
		row := []string{
			session.ChatID,
			m.Author,
			m.Timestamp,
			m.Body,
			strconv.Itoa(len(m.MediaRefs)),
			strconv.Itoa(len(m.Attachments)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func (e *CSVExporter) Extension() string {
	return "csv"
}
