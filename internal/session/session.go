// Package session keeps the documents a user has uploaded, keyed by content
// fingerprint, together with the passage index and metrics derived from
// each. It is the layer the HTTP API, the TUI and the CLI talk to, and it
// never hands raw provider errors to the user.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/54b3r/finrag-go/internal/answer"
	"github.com/54b3r/finrag-go/internal/embedder"
	"github.com/54b3r/finrag-go/internal/finmetrics"
	"github.com/54b3r/finrag-go/internal/ingestion"
	"github.com/54b3r/finrag-go/internal/rag"
	"github.com/54b3r/finrag-go/internal/store"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrDocumentNotFound is returned for an unknown or discarded fingerprint.
	ErrDocumentNotFound = errors.New("session: document not found")
	// ErrNoChunks reports a document that cannot be queried.
	ErrNoChunks = errors.New("session: document has no chunks")
	// ErrClosed is returned after Manager.Close.
	ErrClosed = errors.New("session: manager closed")
)

// Advisory messages shown in place of an answer.
const (
	MsgEmptyQuestion = "Please enter a question about the document."
	MsgNotSearchable = "This document has no searchable text, so questions about it cannot be answered."
	MsgUnavailable   = "Sorry, I could not answer that right now. Please try again in a moment."
	MsgDiscarded     = "This document is no longer loaded. Please upload it again."
)

// Reply is what a user sees after asking a question: a summary, or a
// message explaining why there is none.
type Reply struct {
	Summary string `json:"summary,omitempty"`
	Message string `json:"message,omitempty"`
}

// Processor turns an upload into chunks.
type Processor interface {
	Process(ctx context.Context, src ingestion.Source, progress func(string)) (*ingestion.Document, error)
}

// Composer answers a question from a document's passage index.
type Composer interface {
	Answer(ctx context.Context, index answer.PassageIndex, chunks []string, query string) (string, error)
}

// MetricsExtractor derives the metrics table of a document.
type MetricsExtractor interface {
	Extract(ctx context.Context, chunks []string) finmetrics.Result
}

// Config holds the collaborators shared by every document.
type Config struct {
	// Stores opens the vector store of a new document. Defaults to
	// in-memory stores.
	Stores rag.StoreFactory
	// Embedder embeds passages and questions. Required.
	Embedder embedder.Embedder
	// TopK is the number of passages retrieved per question. Zero means
	// rag.DefaultTopK.
	TopK int
	// History records answered questions. Optional.
	History store.HistoryStore
	Logger  *slog.Logger
}

// Manager owns the open documents.
type Manager struct {
	pipeline Processor
	composer Composer
	metrics  MetricsExtractor
	cfg      Config
	log      *slog.Logger

	opening singleflight.Group

	mu     sync.Mutex
	docs   map[string]*Document
	closed bool
}

// NewManager returns an empty Manager.
func NewManager(p Processor, c Composer, m MetricsExtractor, cfg Config) (*Manager, error) {
	if p == nil || c == nil || m == nil {
		return nil, errors.New("session: processor, composer and metrics extractor are required")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("session: embedder is required")
	}
	if cfg.Stores == nil {
		cfg.Stores = rag.MemoryStores()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		pipeline: p,
		composer: c,
		metrics:  m,
		cfg:      cfg,
		log:      cfg.Logger,
		docs:     make(map[string]*Document),
	}, nil
}

// Open returns the document with src's fingerprint, processing src only
// when it has not been seen before. Concurrent opens of the same bytes
// share one processing run and its result.
func (m *Manager) Open(ctx context.Context, src ingestion.Source, progress func(string)) (*Document, error) {
	fp := ingestion.Fingerprint(src.Data)
	leader := false
	v, err, _ := m.opening.Do(fp, func() (any, error) {
		leader = true
		return m.open(ctx, fp, src, progress)
	})
	if err != nil {
		return nil, err
	}
	if !leader && progress != nil {
		progress(fmt.Sprintf("%s already processed", src.Name))
	}
	return v.(*Document), nil
}

// open runs at most once at a time per fingerprint.
func (m *Manager) open(ctx context.Context, fp string, src ingestion.Source, progress func(string)) (*Document, error) {
	if d, err := m.Get(fp); err == nil {
		m.log.Debug("session: document already open", slog.String("fingerprint", fp))
		if progress != nil {
			progress(fmt.Sprintf("%s already processed", src.Name))
		}
		return d, nil
	} else if errors.Is(err, ErrClosed) {
		return nil, err
	}

	processed, err := m.pipeline.Process(ctx, src, progress)
	if err != nil {
		return nil, fmt.Errorf("session: failed to process %s: %w", src.Name, err)
	}

	d := &Document{info: processed, mgr: m, log: m.log.With(slog.String("fingerprint", short(fp)))}
	if len(processed.Chunks) > 0 {
		st, err := m.cfg.Stores(ctx, fp)
		if err != nil {
			return nil, fmt.Errorf("session: failed to open vector store: %w", err)
		}
		ix, err := rag.NewIndex(fp, st, m.cfg.Embedder, rag.IndexConfig{TopK: m.cfg.TopK, Logger: m.log})
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("session: failed to create index: %w", err)
		}
		d.index = ix
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		d.close()
		return nil, ErrClosed
	}
	m.docs[fp] = d
	m.mu.Unlock()

	m.log.Info("session: document opened",
		slog.String("name", src.Name),
		slog.String("fingerprint", fp),
		slog.Int("chunks", len(processed.Chunks)),
	)
	return d, nil
}

// Get returns an open document.
func (m *Manager) Get(fingerprint string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	d, ok := m.docs[fingerprint]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return d, nil
}

// List returns the open documents ordered by name.
func (m *Manager) List() []*Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].info.Name < out[j].info.Name })
	return out
}

// Discard closes a document and frees its index.
func (m *Manager) Discard(fingerprint string) error {
	m.mu.Lock()
	d, ok := m.docs[fingerprint]
	delete(m.docs, fingerprint)
	m.mu.Unlock()
	if !ok {
		return ErrDocumentNotFound
	}
	return d.close()
}

// History returns the most recent n answered questions about a document.
// It works for documents that are no longer open.
func (m *Manager) History(ctx context.Context, fingerprint string, n int) ([]store.Entry, error) {
	if m.cfg.History == nil {
		return []store.Entry{}, nil
	}
	return m.cfg.History.Recent(ctx, fingerprint, n)
}

// Close discards every document. Further calls return ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	docs := m.docs
	m.docs = nil
	m.mu.Unlock()

	var errs []error
	for _, d := range docs {
		if err := d.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Document is one uploaded document.
type Document struct {
	info  *ingestion.Document
	index *rag.Index
	mgr   *Manager
	log   *slog.Logger

	mu     sync.Mutex
	closed bool

	metricsMu sync.Mutex
	metrics   *finmetrics.Result
}

func (d *Document) Fingerprint() string          { return d.info.Fingerprint }
func (d *Document) Name() string                 { return d.info.Name }
func (d *Document) Metadata() ingestion.Metadata { return d.info.Metadata }
func (d *Document) Chunks() []string             { return d.info.Chunks }

// Queryable reports whether questions can be asked about the document.
func (d *Document) Queryable() bool { return len(d.info.Chunks) > 0 }

// Ask answers a question. Questions about the same document are answered
// one at a time. Failures are logged and reported through Reply.Message.
func (d *Document) Ask(ctx context.Context, question string) Reply {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{Message: MsgEmptyQuestion}
	}
	if !d.Queryable() {
		d.log.Info("session: question on unsearchable document", slog.Any("error", ErrNoChunks))
		return Reply{Message: MsgNotSearchable}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Reply{Message: MsgDiscarded}
	}

	summary, err := d.mgr.composer.Answer(ctx, d.index, d.info.Chunks, question)
	if err != nil {
		d.log.Error("session: failed to answer question",
			slog.String("question", question),
			slog.Any("error", err),
		)
		return Reply{Message: MsgUnavailable}
	}

	if h := d.mgr.cfg.History; h != nil {
		if err := h.Append(ctx, d.info.Fingerprint, question, summary); err != nil {
			d.log.Warn("session: failed to record history", slog.Any("error", err))
		}
	}
	return Reply{Summary: summary}
}

// Metrics returns the document's metrics table, extracting it on first
// use. Results asking the user to retry are not cached.
func (d *Document) Metrics(ctx context.Context) finmetrics.Result {
	d.metricsMu.Lock()
	defer d.metricsMu.Unlock()
	if d.metrics != nil {
		return *d.metrics
	}
	res := d.mgr.metrics.Extract(ctx, d.info.Chunks)
	switch res.Message {
	case finmetrics.MsgBadFormat, finmetrics.MsgUnexpected:
	default:
		d.metrics = &res
	}
	return res
}

func (d *Document) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.index == nil {
		return nil
	}
	if err := d.index.Close(); err != nil {
		return fmt.Errorf("session: failed to close index of %s: %w", short(d.info.Fingerprint), err)
	}
	return nil
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
