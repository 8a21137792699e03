package internal

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// 1x1 transparent PNG
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func messageWithImage(src string) Message {
	return Message{
		Author:    "Alice",
		Timestamp: "10:01",
		Body:      "look",
		MediaRefs: []MediaReference{
			{Scheme: ClassifyScheme(src), RawLocator: src},
		},
	}
}

func TestResolveHTTPImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(tinyPNG)
	}))
	defer srv.Close()

	dir := t.TempDir()
	r := NewResolver(dir, nil)

	msg := messageWithImage(srv.URL + "/img.png")
	var stats ImageStats
	r.ResolveMessage(context.Background(), "Test Chat", &msg, &stats)

	ref := msg.MediaRefs[0]
	if !ref.Resolved {
		t.Fatal("reference should be resolved")
	}
	data, err := os.ReadFile(ref.LocalPath)
	if err != nil {
		t.Fatalf("reading resolved image: %v", err)
	}
	if len(data) != len(tinyPNG) {
		t.Errorf("stored %d bytes, want %d", len(data), len(tinyPNG))
	}
	if stats.Resolved != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 1 resolved 0 failed", stats)
	}
}

func TestResolveHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	r := NewResolver(t.TempDir(), nil)
	msg := messageWithImage(srv.URL + "/img.png")
	var stats ImageStats
	r.ResolveMessage(context.Background(), "Test Chat", &msg, &stats)

	if msg.MediaRefs[0].Resolved {
		t.Error("forbidden fetch should not resolve")
	}
	if stats.Failed != 1 {
		t.Errorf("stats.Failed = %d, want 1", stats.Failed)
	}
	if msg.Body != "look" {
		t.Error("message must survive a failed resolution")
	}
}

func TestResolveBase64Image(t *testing.T) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG)

	r := NewResolver(t.TempDir(), nil)
	msg := messageWithImage(dataURL)
	var stats ImageStats
	r.ResolveMessage(context.Background(), "Test Chat", &msg, &stats)

	ref := msg.MediaRefs[0]
	if !ref.Resolved {
		t.Fatal("base64 reference should be resolved")
	}
	if !strings.HasSuffix(ref.LocalPath, ".png") {
		t.Errorf("LocalPath = %q, want .png extension", ref.LocalPath)
	}
	data, err := os.ReadFile(ref.LocalPath)
	if err != nil {
		t.Fatalf("reading resolved image: %v", err)
	}
	if len(data) != len(tinyPNG) {
		t.Errorf("stored %d bytes, want %d", len(data), len(tinyPNG))
	}
}

func TestResolveBase64Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no comma", "data:image/png;base64"},
		{"not base64 encoded", "data:image/png,rawbytes"},
		{"bad payload", "data:image/png;base64,!!!not-base64!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(t.TempDir(), nil)
			msg := messageWithImage(tt.src)
			var stats ImageStats
			r.ResolveMessage(context.Background(), "Test Chat", &msg, &stats)

			if msg.MediaRefs[0].Resolved {
				t.Error("malformed data URL should not resolve")
			}
			if stats.Failed != 1 {
				t.Errorf("stats.Failed = %d, want 1", stats.Failed)
			}
		})
	}
}

type fakeBlobFetcher struct {
	dataURL string
	err     error
}

func (f *fakeBlobFetcher) FetchBlobData(ctx context.Context, blobURL string) (string, error) {
	return f.dataURL, f.err
}

func TestResolveBlobImage(t *testing.T) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG)
	r := NewResolver(t.TempDir(), &fakeBlobFetcher{dataURL: dataURL})

	msg := messageWithImage("blob:https://teams.microsoft.com/abc-123")
	var stats ImageStats
	r.ResolveMessage(context.Background(), "Test Chat", &msg, &stats)

	if !msg.MediaRefs[0].Resolved {
		t.Fatal("blob reference should resolve through the in-context fetcher")
	}
	if stats.ByScheme[SchemeBlob] != 1 {
		t.Errorf("ByScheme[blob] = %d, want 1", stats.ByScheme[SchemeBlob])
	}
}

func TestResolveBlobWithoutFetcher(t *testing.T) {
	r := NewResolver(t.TempDir(), nil)
	msg := messageWithImage("blob:https://teams.microsoft.com/abc-123")
	var stats ImageStats
	r.ResolveMessage(context.Background(), "Test Chat", &msg, &stats)

	if msg.MediaRefs[0].Resolved {
		t.Error("blob reference cannot resolve without a browsing context")
	}
	if stats.Failed != 1 {
		t.Errorf("stats.Failed = %d, want 1", stats.Failed)
	}
}

func TestResolveUnknownScheme(t *testing.T) {
	r := NewResolver(t.TempDir(), nil)
	msg := messageWithImage("chrome-extension://whatever/img")
	var stats ImageStats
	r.ResolveMessage(context.Background(), "Test Chat", &msg, &stats)

	if msg.MediaRefs[0].Resolved {
		t.Error("unknown scheme should not resolve")
	}
	if stats.ByScheme[SchemeUnknown] != 1 {
		t.Errorf("ByScheme[unknown] = %d, want 1", stats.ByScheme[SchemeUnknown])
	}
	if msg.Author != "Alice" || msg.Body != "look" {
		t.Error("message must be intact after a failed resolution")
	}
}

func TestImageFilenameIdempotent(t *testing.T) {
	r := NewResolver(t.TempDir(), nil)

	a := r.ImageFilename("Test Chat", tinyPNG, "png")
	b := r.ImageFilename("Test Chat", tinyPNG, "png")
	if a != b {
		t.Errorf("same content produced different names: %q vs %q", a, b)
	}

	other := r.ImageFilename("Test Chat", append([]byte{0x00}, tinyPNG...), "png")
	if a == other {
		t.Error("different content should produce a different name")
	}
}

func TestResolutionErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ResolutionError{Locator: "x", Scheme: SchemeHTTPS, Reason: "fetch-failed", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("ResolutionError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "fetch-failed") {
		t.Errorf("Error() = %q, want the reason included", err.Error())
	}
}

func TestWriteImageDeduplicatesOnDisk(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, nil)

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG)
	for i := 0; i < 2; i++ {
		msg := messageWithImage(dataURL)
		var stats ImageStats
		r.ResolveMessage(context.Background(), "Test Chat", &msg, &stats)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var files []string
	for _, e := range entries {
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) != 1 {
		t.Errorf("resolving identical content twice left %d files, want 1", len(files))
	}
}
