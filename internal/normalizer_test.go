package internal

import (
	"strings"
	"testing"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text unchanged",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "tags removed",
			input: "<span>hello</span> <b>world</b>",
			want:  "hello world",
		},
		{
			name:  "line breaks become newlines",
			input: "line one<br>line two<br/>line three",
			want:  "line one\nline two\nline three",
		},
		{
			name:  "anchor keeps text and target",
			input: `see <a href="https://example.com/doc">the doc</a> here`,
			want:  "see the doc (https://example.com/doc) here",
		},
		{
			name:  "anchor with url as text keeps url once",
			input: `<a href="https://example.com">https://example.com</a>`,
			want:  "https://example.com",
		},
		{
			name:  "entities unescaped",
			input: "a &amp; b &lt;c&gt;",
			want:  "a & b <c>",
		},
		{
			name:  "whitespace collapsed",
			input: "a    b\t\tc",
			want:  "a b c",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkup(tt.input); got != tt.want {
				t.Errorf("StripMarkup(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer()

	t.Run("missing author becomes Unknown", func(t *testing.T) {
		msg := n.Normalize(RawMessage{
			HasAuthor: false,
			Timestamp: "10:01",
			Body:      "system notice",
		})
		if msg.Author != AuthorUnknown {
			t.Errorf("Author = %q, want %q", msg.Author, AuthorUnknown)
		}
	})

	t.Run("present author preserved", func(t *testing.T) {
		msg := n.Normalize(RawMessage{
			Author:    "  Alice  ",
			HasAuthor: true,
			Timestamp: "10:01",
			Body:      "hi",
		})
		if msg.Author != "Alice" {
			t.Errorf("Author = %q, want %q", msg.Author, "Alice")
		}
	})

	t.Run("identity hash covers normalized fields", func(t *testing.T) {
		msg := n.Normalize(RawMessage{
			Author:    "Alice",
			HasAuthor: true,
			Timestamp: "10:01",
			Body:      "<b>hi</b>",
		})
		want := IdentityHash("Alice", "10:01", "hi")
		if msg.IdentityHash != want {
			t.Errorf("IdentityHash = %q, want %q", msg.IdentityHash, want)
		}
	})

	t.Run("image sources classified", func(t *testing.T) {
		msg := n.Normalize(RawMessage{
			Author:    "Alice",
			HasAuthor: true,
			Body:      "pics",
			ImageSrcs: []string{
				"https://cdn.example.com/a.png",
				"blob:https://teams.microsoft.com/abc-123",
				"data:image/png;base64,iVBOR",
				"chrome-extension://weird",
			},
		})
		if len(msg.MediaRefs) != 4 {
			t.Fatalf("MediaRefs = %d, want 4", len(msg.MediaRefs))
		}
		wantSchemes := []Scheme{SchemeHTTPS, SchemeBlob, SchemeBase64, SchemeUnknown}
		for i, want := range wantSchemes {
			if msg.MediaRefs[i].Scheme != want {
				t.Errorf("MediaRefs[%d].Scheme = %q, want %q", i, msg.MediaRefs[i].Scheme, want)
			}
		}
	})

	t.Run("attachments keep metadata only", func(t *testing.T) {
		msg := n.Normalize(RawMessage{
			Author:    "Alice",
			HasAuthor: true,
			Body:      "report attached",
			Attachments: []RawAttachment{
				{Name: "q3-report.pdf"},
				{Name: "", Href: "https://sharepoint.example.com/notes.txt"},
			},
		})
		if len(msg.Attachments) != 2 {
			t.Fatalf("Attachments = %d, want 2", len(msg.Attachments))
		}
		if msg.Attachments[0].Kind != "application/pdf" {
			t.Errorf("Kind = %q, want application/pdf", msg.Attachments[0].Kind)
		}
		if !strings.Contains(msg.Attachments[1].Name, "notes.txt") {
			t.Errorf("nameless attachment should fall back to href, got %q", msg.Attachments[1].Name)
		}
	})
}
