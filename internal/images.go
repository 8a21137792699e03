package internal

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// BlobFetcher extracts a blob: URL from inside the live browsing context,
// returning its content as a data: URL. Blob locators are only resolvable
// in-context; an independent fetch cannot see them.
type BlobFetcher interface {
	FetchBlobData(ctx context.Context, blobURL string) (string, error)
}

const (
	maxImageBytes      = 20 << 20
	defaultWorkerCount = 4
)

// Resolver turns media references into files on disk. A failed resolution is
// recorded in the session's image stats and never aborts message extraction.
// HTTP fetches run on a small bounded pool since they are context-free I/O;
// blob and base64 resolution stay on the calling goroutine because the blob
// path shares the serially-accessed browsing context.
type Resolver struct {
	client    *http.Client
	blobs     BlobFetcher
	imagesDir string
	workers   int
}

// NewResolver creates a Resolver writing into imagesDir. blobs may be nil,
// in which case blob-scheme references fail with a recorded reason.
func NewResolver(imagesDir string, blobs BlobFetcher) *Resolver {
	return &Resolver{
		client:    &http.Client{Timeout: 30 * time.Second},
		blobs:     blobs,
		imagesDir: imagesDir,
		workers:   defaultWorkerCount,
	}
}

// ResolveMessage resolves every media reference on the message, updating the
// references in place and counting outcomes in stats. The message itself is
// kept regardless of how many references fail.
func (r *Resolver) ResolveMessage(ctx context.Context, chatID string, msg *Message, stats *ImageStats) {
	if len(msg.MediaRefs) == 0 {
		return
	}

	type outcome struct {
		idx  int
		path string
		err  error
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []outcome
	)
	sem := make(chan struct{}, r.workers)

	record := func(idx int, path string, err error) {
		mu.Lock()
		outcomes = append(outcomes, outcome{idx: idx, path: path, err: err})
		mu.Unlock()
	}

	for i := range msg.MediaRefs {
		ref := msg.MediaRefs[i]
		switch ref.Scheme {
		case SchemeHTTP, SchemeHTTPS:
			wg.Add(1)
			go func(idx int, locator string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				p, err := r.resolveHTTP(ctx, chatID, locator)
				record(idx, p, err)
			}(i, ref.RawLocator)
		case SchemeBase64:
			p, err := r.resolveBase64(chatID, ref.RawLocator)
			record(i, p, err)
		case SchemeBlob:
			p, err := r.resolveBlob(ctx, chatID, ref.RawLocator)
			record(i, p, err)
		default:
			record(i, "", &ResolutionError{
				Locator: ref.RawLocator,
				Scheme:  ref.Scheme,
				Reason:  "unsupported-scheme",
			})
		}
	}
	wg.Wait()

	for _, o := range outcomes {
		ref := &msg.MediaRefs[o.idx]
		if o.err != nil {
			LogDebug("chat %s: %v", chatID, o.err)
			stats.count(ref.Scheme, false)
			continue
		}
		ref.LocalPath = o.path
		ref.Resolved = true
		stats.count(ref.Scheme, true)
	}
}

func (r *Resolver) resolveHTTP(ctx context.Context, chatID, locator string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return "", &ResolutionError{Locator: locator, Scheme: ClassifyScheme(locator), Reason: "bad-url", Err: err}
	}
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &ResolutionError{Locator: locator, Scheme: ClassifyScheme(locator), Reason: "fetch-failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ResolutionError{
			Locator: locator,
			Scheme:  ClassifyScheme(locator),
			Reason:  fmt.Sprintf("http-status-%d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", &ResolutionError{Locator: locator, Scheme: ClassifyScheme(locator), Reason: "read-failed", Err: err}
	}

	ext := extFromContentType(resp.Header.Get("Content-Type"))
	if ext == "" {
		ext = strings.TrimPrefix(path.Ext(req.URL.Path), ".")
	}
	return r.writeImage(chatID, data, ext)
}

func (r *Resolver) resolveBase64(chatID, dataURL string) (string, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok {
		return "", &ResolutionError{Locator: truncateLocator(dataURL), Scheme: SchemeBase64, Reason: "malformed-data-url"}
	}

	enc := base64.StdEncoding
	if !strings.Contains(header, ";base64") {
		return "", &ResolutionError{Locator: truncateLocator(dataURL), Scheme: SchemeBase64, Reason: "not-base64-encoded"}
	}
	data, err := enc.DecodeString(payload)
	if err != nil {
		return "", &ResolutionError{Locator: truncateLocator(dataURL), Scheme: SchemeBase64, Reason: "decode-failed", Err: err}
	}

	return r.writeImage(chatID, data, extFromContentType(header))
}

func (r *Resolver) resolveBlob(ctx context.Context, chatID, blobURL string) (string, error) {
	if r.blobs == nil {
		return "", &ResolutionError{Locator: blobURL, Scheme: SchemeBlob, Reason: "no-browsing-context"}
	}
	dataURL, err := r.blobs.FetchBlobData(ctx, blobURL)
	if err != nil {
		return "", &ResolutionError{Locator: blobURL, Scheme: SchemeBlob, Reason: "in-context-fetch-failed", Err: err}
	}
	if !strings.HasPrefix(dataURL, "data:") {
		return "", &ResolutionError{Locator: blobURL, Scheme: SchemeBlob, Reason: "conversion-failed"}
	}
	p, err := r.resolveBase64(chatID, dataURL)
	if err != nil {
		return "", &ResolutionError{Locator: blobURL, Scheme: SchemeBlob, Reason: "decode-failed", Err: err}
	}
	return p, nil
}

// writeImage stores the bytes under a content-derived name:
// {chat}_{hash}.{ext}. Resolving the same bytes twice yields the same
// filename, so re-runs never duplicate storage.
func (r *Resolver) writeImage(chatID string, data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", &ResolutionError{Scheme: SchemeUnknown, Reason: "empty-content"}
	}
	if ext == "" {
		ext = extFromContentType(http.DetectContentType(data))
	}
	if ext == "" {
		ext = "png"
	}

	sum := sha256.Sum256(data)
	name := fmt.Sprintf("%s_%s.%s", SanitizeFilename(chatID), hex.EncodeToString(sum[:8]), ext)

	if err := os.MkdirAll(r.imagesDir, 0755); err != nil {
		return "", &ResolutionError{Reason: "mkdir-failed", Err: err}
	}
	full := filepath.Join(r.imagesDir, name)
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", &ResolutionError{Reason: "write-failed", Err: err}
	}
	return full, nil
}

// ImageFilename reports the name writeImage would use for these bytes.
// Exposed so callers can predict idempotent names without writing.
func (r *Resolver) ImageFilename(chatID string, data []byte, ext string) string {
	if ext == "" {
		ext = extFromContentType(http.DetectContentType(data))
	}
	if ext == "" {
		ext = "png"
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(chatID), hex.EncodeToString(sum[:8]), ext)
}

func extFromContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return "jpg"
	case strings.Contains(ct, "png"):
		return "png"
	case strings.Contains(ct, "gif"):
		return "gif"
	case strings.Contains(ct, "webp"):
		return "webp"
	case strings.Contains(ct, "svg"):
		return "svg"
	default:
		return ""
	}
}

// truncateLocator keeps error messages readable when the locator is an
// inline data payload.
func truncateLocator(locator string) string {
	if len(locator) > 64 {
		return locator[:64] + "..."
	}
	return locator
}
