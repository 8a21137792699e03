package internal

import (
	"html"
	"regexp"
	"strings"
)

// AuthorUnknown marks a record whose author could not be read from the DOM.
// It is distinct from an author whose display name is legitimately empty.
const AuthorUnknown = "Unknown"

// Normalizer converts raw DOM records into canonical Messages.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

var (
	anchorRe = regexp.MustCompile(`(?is)<a\s+[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	breakRe  = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>`)
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
	spaceRe  = regexp.MustCompile(`[ \t]+`)
)

// Normalize converts a raw record into a Message and computes its identity
// hash. It never fails: missing optional fields degrade to explicit markers.
func (n *Normalizer) Normalize(raw RawMessage) Message {
	author := strings.TrimSpace(raw.Author)
	if !raw.HasAuthor {
		author = AuthorUnknown
	}

	timestamp := strings.TrimSpace(raw.Timestamp)
	body := StripMarkup(raw.Body)

	msg := Message{
		Author:       author,
		Timestamp:    timestamp,
		Body:         body,
		IdentityHash: IdentityHash(author, timestamp, body),
	}

	for _, src := range raw.ImageSrcs {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		msg.MediaRefs = append(msg.MediaRefs, MediaReference{
			Scheme:     ClassifyScheme(src),
			RawLocator: src,
		})
	}

	for _, att := range raw.Attachments {
		name := strings.TrimSpace(att.Name)
		if name == "" {
			name = att.Href
		}
		if name == "" {
			continue
		}
		msg.Attachments = append(msg.Attachments, AttachmentInfo{
			Name: name,
			Kind: guessAttachmentKind(name),
		})
	}

	return msg
}

// StripMarkup reduces rendered message HTML to plain text. Link targets are
// kept as plain URL substrings next to their anchor text; everything else
// presentational is dropped.
func StripMarkup(body string) string {
	if body == "" {
		return ""
	}

	body = anchorRe.ReplaceAllStringFunc(body, func(m string) string {
		parts := anchorRe.FindStringSubmatch(m)
		href, text := parts[1], stripTags(parts[2])
		text = strings.TrimSpace(text)
		if text == "" || text == href {
			return href
		}
		return text + " (" + href + ")"
	})
	body = breakRe.ReplaceAllString(body, "\n")
	body = stripTags(body)
	body = html.UnescapeString(body)

	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = spaceRe.ReplaceAllString(body, " ")
	body = blankRe.ReplaceAllString(body, "\n\n")

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func stripTags(s string) string {
	return tagRe.ReplaceAllString(s, "")
}
