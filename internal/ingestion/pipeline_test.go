package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/54b3r/finrag-go/internal/chunker"
	"github.com/54b3r/finrag-go/internal/extract"
	"github.com/54b3r/finrag-go/internal/logging"
	"github.com/54b3r/finrag-go/internal/tokenizer"
)

func newTestPipeline(t *testing.T, cfg *Config) *Pipeline {
	t.Helper()
	ch, err := chunker.New(chunker.Config{}, tokenizer.Heuristic{})
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewPipeline(extract.TextExtractor{}, ch, cfg, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestProcess(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	data := []byte("Revenue grew 5% to $10B in FY24.\fOperating margin improved to 25%.")

	var progress []string
	doc, err := p.Process(context.Background(), Source{Name: "fy24-results.txt", Data: data}, func(m string) {
		progress = append(progress, m)
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !doc.Searchable {
		t.Error("expected searchable document")
	}
	if len(doc.Chunks) != 2 {
		t.Fatalf("chunks = %d, want 2: %q", len(doc.Chunks), doc.Chunks)
	}
	if doc.Fingerprint != Fingerprint(data) || len(doc.Fingerprint) != 64 {
		t.Errorf("fingerprint = %q", doc.Fingerprint)
	}
	if doc.Metadata.Format != "text" || doc.Metadata.Period != "FY24" {
		t.Errorf("metadata = %+v", doc.Metadata)
	}
	if len(progress) != 2 || !strings.Contains(progress[1], "2 chunks") {
		t.Errorf("progress = %q", progress)
	}
}

func TestProcess_NoTextLayer(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	doc, err := p.Process(context.Background(), Source{Name: "scan.txt", Data: []byte("  \f \n")}, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if doc.Searchable || len(doc.Chunks) != 0 {
		t.Errorf("expected unsearchable document without chunks, got %+v", doc)
	}
}

func TestProcess_TooLarge(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &Config{MaxBytes: 4})
	if _, err := p.Process(context.Background(), Source{Name: "a.txt", Data: []byte("12345")}, nil); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	// SHA-256 of the empty input.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Fingerprint(nil); got != empty {
		t.Errorf("Fingerprint(nil) = %s", got)
	}
	if Fingerprint([]byte("a")) == Fingerprint([]byte("b")) {
		t.Error("distinct inputs must not share a fingerprint")
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(file, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(t, nil)
	src, err := p.Load(context.Background(), file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.Name != "report.txt" || string(src.Data) != "hello" {
		t.Errorf("Load = %+v", src)
	}

	if _, err := p.Load(context.Background(), filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_URL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "finrag/") {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte("remote report"))
	}))
	defer srv.Close()

	p := newTestPipeline(t, nil)
	src, err := p.Load(context.Background(), srv.URL+"/q1.txt")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(src.Data) != "remote report" {
		t.Errorf("Data = %q", src.Data)
	}
	if _, err := p.Load(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}

	small := newTestPipeline(t, &Config{MaxBytes: 3})
	if _, err := small.Load(context.Background(), srv.URL+"/q1.txt"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}
