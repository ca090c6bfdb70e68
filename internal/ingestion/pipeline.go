// Package ingestion turns an uploaded financial document into the chunks
// the passage index is built from: load, fingerprint, extract, chunk.
// It backs `finrag chunk`, the upload endpoint and the session manager.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/54b3r/finrag-go/internal/chunker"
	"github.com/54b3r/finrag-go/internal/extract"
)

// ErrTooLarge reports a document over Config.MaxBytes.
var ErrTooLarge = errors.New("ingestion: document too large")

// Source is a document to process.
type Source struct {
	// Name is the file name or URL the document came from.
	Name string
	// Data is the raw document.
	Data []byte
}

// Document is a processed source.
type Document struct {
	Fingerprint string
	Name        string
	Metadata    Metadata
	// Corpus is the extracted text, one entry per page or table block.
	Corpus []string
	// Chunks is empty when the document has no text layer.
	Chunks     []string
	Searchable bool
}

// Config holds the configuration for the pipeline.
type Config struct {
	// MaxBytes caps the document size. Defaults to 50 MiB if zero.
	MaxBytes int64

	// HTTPTimeout is the timeout for fetching URL sources.
	// Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// Pipeline orchestrates the load → extract → chunk flow.
type Pipeline struct {
	extractor  extract.Extractor
	chunker    *chunker.Chunker
	cfg        *Config
	log        *slog.Logger
	httpClient *http.Client
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(ex extract.Extractor, ch *chunker.Chunker, cfg *Config, log *slog.Logger) (*Pipeline, error) {
	if ex == nil {
		return nil, fmt.Errorf("ingestion: extractor must not be nil")
	}
	if ch == nil {
		return nil, fmt.Errorf("ingestion: chunker must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 50 << 20
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "finrag/1.0 (financial document analysis)"
	}
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		extractor: ex,
		chunker:   ch,
		cfg:       cfg,
		log:       log,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}, nil
}

// Process extracts and chunks src. A document without a text layer is not
// an error: it comes back with no chunks and Searchable false.
// Progress is reported via the optional progress callback.
func (p *Pipeline) Process(ctx context.Context, src Source, progress func(msg string)) (*Document, error) {
	if progress == nil {
		progress = func(string) {}
	}
	if int64(len(src.Data)) > p.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(src.Data), p.cfg.MaxBytes)
	}

	doc := &Document{
		Fingerprint: Fingerprint(src.Data),
		Name:        src.Name,
		Metadata:    InferMetadata(src.Name),
	}
	log := p.log.With(slog.String("document", src.Name), slog.String("fingerprint", short(doc.Fingerprint)))

	progress(fmt.Sprintf("extracting %s", src.Name))
	corpus, err := p.extractor.Extract(ctx, src.Data)
	if err != nil {
		return nil, fmt.Errorf("ingestion: extraction failed for %s: %w", src.Name, err)
	}
	doc.Corpus = corpus
	doc.Searchable = extract.Searchable(corpus)
	if !doc.Searchable {
		log.Warn("ingestion: document is not searchable", slog.Any("error", extract.ErrNoTextLayer))
		progress(fmt.Sprintf("%s has no text layer", src.Name))
		return doc, nil
	}

	doc.Chunks = p.chunker.Chunk(corpus)
	progress(fmt.Sprintf("chunked %s into %d chunks", src.Name, len(doc.Chunks)))
	log.Info("ingestion: document processed",
		slog.Int("entries", len(corpus)),
		slog.Int("chunks", len(doc.Chunks)),
		slog.String("doc_type", doc.Metadata.DocType),
		slog.String("period", doc.Metadata.Period),
	)
	return doc, nil
}

// Load reads a local file or fetches an http(s) URL.
func (p *Pipeline) Load(ctx context.Context, locator string) (Source, error) {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		data, err := p.fetch(ctx, locator)
		if err != nil {
			return Source{}, fmt.Errorf("ingestion: fetch failed for %s: %w", locator, err)
		}
		return Source{Name: locator, Data: data}, nil
	}

	f, err := os.Open(locator)
	if err != nil {
		return Source{}, fmt.Errorf("ingestion: %w", err)
	}
	defer f.Close()
	data, err := p.readLimited(f)
	if err != nil {
		return Source{}, fmt.Errorf("ingestion: reading %s: %w", locator, err)
	}
	return Source{Name: path.Base(locator), Data: data}, nil
}

// fetch retrieves the raw bytes of a URL.
func (p *Pipeline) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf, text/plain")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	return p.readLimited(resp.Body)
}

func (p *Pipeline) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.cfg.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > p.cfg.MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Fingerprint is the lowercase hex SHA-256 of a document's bytes. Identical
// uploads share a fingerprint and are processed once.
func Fingerprint(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
