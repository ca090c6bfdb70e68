package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/54b3r/finrag-go/internal/embedder"
)

// DefaultTopK is the number of passages returned when a caller passes k <= 0.
const DefaultTopK = 3

// IndexConfig configures an [Index].
type IndexConfig struct {
	// TopK is the default result count. Zero means DefaultTopK.
	TopK int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Index is the passage index of one document, identified by its content
// fingerprint. Builds are serialised; queries may run concurrently with
// each other and wait for an in-progress build.
type Index struct {
	id    string
	store Store
	emb   embedder.Embedder
	topK  int
	log   *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewIndex returns an index over store that embeds with emb.
func NewIndex(id string, store Store, emb embedder.Embedder, cfg IndexConfig) (*Index, error) {
	if store == nil {
		return nil, errors.New("rag: store must not be nil")
	}
	if emb == nil {
		return nil, errors.New("rag: embedder must not be nil")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Index{
		id:    id,
		store: store,
		emb:   emb,
		topK:  cfg.TopK,
		log:   cfg.Logger.With(slog.String("index", id)),
	}, nil
}

// ID returns the document fingerprint the index belongs to.
func (ix *Index) ID() string { return ix.id }

// TopK returns the default result count.
func (ix *Index) TopK() int { return ix.topK }

// BuildOrGet makes sure the index holds the passages of chunks. When the
// store already has at least len(chunks) passages nothing is embedded.
// Otherwise every chunk is embedded in index mode before anything is
// stored, so a failed embedding leaves the index as it was.
func (ix *Index) BuildOrGet(ctx context.Context, chunks []string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return ErrClosed
	}

	have, err := ix.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("rag: failed to count passages: %w", err)
	}
	if have >= len(chunks) {
		ix.log.Debug("rag: index already built", slog.Int("passages", have))
		return nil
	}

	vecs, err := ix.emb.Embed(ctx, chunks, embedder.ModeIndex)
	if err != nil {
		return fmt.Errorf("rag: failed to embed %d chunks: %w", len(chunks), err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("rag: embedder returned %d vectors for %d chunks", len(vecs), len(chunks))
	}

	passages := make([]Passage, len(chunks))
	for i, text := range chunks {
		passages[i] = Passage{ID: strconv.Itoa(i), Text: text, Embedding: vecs[i]}
	}
	if err := ix.store.Insert(ctx, passages); err != nil {
		return fmt.Errorf("rag: failed to store %d passages: %w", len(passages), err)
	}

	ix.log.Info("rag: index built", slog.Int("passages", len(passages)))
	return nil
}

// Query embeds text in query mode and returns the k most similar passages,
// highest first, ties by ascending ID. k <= 0 selects the default.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = ix.topK
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil, ErrClosed
	}

	n, err := ix.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("rag: failed to count passages: %w", err)
	}
	if n == 0 {
		return []Result{}, nil
	}

	vecs, err := ix.emb.Embed(ctx, []string{text}, embedder.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("rag: failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("rag: embedder returned %d vectors for one query", len(vecs))
	}

	results, err := ix.store.Search(ctx, vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}
	return results, nil
}

// Retrieve implements [Retriever].
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	return ix.Query(ctx, query, k)
}

// Len returns the number of stored passages.
func (ix *Index) Len(ctx context.Context) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return 0, ErrClosed
	}
	return ix.store.Count(ctx)
}

// Close discards the index and its store. Further calls return ErrClosed.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return nil
	}
	ix.closed = true
	return ix.store.Close()
}
