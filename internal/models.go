package internal

import "strings"

// Scheme classifies how a media reference can be resolved.
type Scheme string

const (
	SchemeHTTP    Scheme = "http"
	SchemeHTTPS   Scheme = "https"
	SchemeBlob    Scheme = "blob"
	SchemeBase64  Scheme = "base64"
	SchemeUnknown Scheme = "unknown"
)

// RawMessage is one message-like node as read from the virtualized DOM.
// Fields may be missing: system messages carry no author, and a node can be
// detached between discovery and field read.
type RawMessage struct {
	Author      string          `json:"author"`
	HasAuthor   bool            `json:"hasAuthor"`
	Timestamp   string          `json:"timestamp"`
	Body        string          `json:"body"`
	ImageSrcs   []string        `json:"imageSrcs,omitempty"`
	Attachments []RawAttachment `json:"attachments,omitempty"`
}

// RawAttachment is attachment metadata as read from the DOM.
type RawAttachment struct {
	Name string `json:"name"`
	Href string `json:"href,omitempty"`
}

// Message is one normalized chat entry.
type Message struct {
	Author       string           `json:"author"`
	Timestamp    string           `json:"timestamp"`
	Body         string           `json:"body"`
	MediaRefs    []MediaReference `json:"media_refs,omitempty"`
	Attachments  []AttachmentInfo `json:"attachments,omitempty"`
	IdentityHash string           `json:"identity_hash"`
}

// MediaReference points at an embedded image. References are resolved
// independently per message; a shared image fetched twice is acceptable.
type MediaReference struct {
	Scheme     Scheme `json:"scheme"`
	RawLocator string `json:"raw_locator"`
	LocalPath  string `json:"local_path,omitempty"`
	Resolved   bool   `json:"resolved"`
}

// AttachmentInfo is attachment metadata only; byte content is never fetched.
type AttachmentInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// ClassifyScheme determines the resolution scheme for a media locator.
func ClassifyScheme(locator string) Scheme {
	switch {
	case strings.HasPrefix(locator, "https://"):
		return SchemeHTTPS
	case strings.HasPrefix(locator, "http://"):
		return SchemeHTTP
	case strings.HasPrefix(locator, "blob:"):
		return SchemeBlob
	case strings.HasPrefix(locator, "data:"):
		return SchemeBase64
	default:
		return SchemeUnknown
	}
}

// guessAttachmentKind makes a best-effort MIME/type guess from the name.
func guessAttachmentKind(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".doc"), strings.HasSuffix(lower, ".docx"):
		return "application/msword"
	case strings.HasSuffix(lower, ".xls"), strings.HasSuffix(lower, ".xlsx"):
		return "application/vnd.ms-excel"
	case strings.HasSuffix(lower, ".ppt"), strings.HasSuffix(lower, ".pptx"):
		return "application/vnd.ms-powerpoint"
	case strings.HasSuffix(lower, ".zip"):
		return "application/zip"
	case strings.HasSuffix(lower, ".txt"):
		return "text/plain"
	case strings.HasSuffix(lower, ".png"), strings.HasSuffix(lower, ".jpg"),
		strings.HasSuffix(lower, ".jpeg"), strings.HasSuffix(lower, ".gif"):
		return "image"
	default:
		return "attachment"
	}
}
