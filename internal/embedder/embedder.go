// Package embedder turns text into fixed-dimensionality vectors through an
// external embedding service.
//
// The embedding mode is an explicit argument of every call: [ModeIndex] for
// passages being stored and [ModeQuery] for user questions. Providers map the
// mode onto their own task-type parameter. [Batcher] wraps a provider
// [Client] with fixed-size sequential batching, bounded retries of
// rate-limit and unavailable responses, and optional client-side throttling.
package embedder

import (
	"context"
	"errors"
)

// Mode selects how the provider optimises an embedding.
type Mode int

const (
	// ModeIndex embeds passages that will be stored and searched.
	ModeIndex Mode = iota
	// ModeQuery embeds a search query.
	ModeQuery
)

func (m Mode) String() string {
	switch m {
	case ModeIndex:
		return "index"
	case ModeQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Embedder converts texts to vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
}

// Client performs a single provider round trip. Callers keep len(texts)
// within the provider's batch limit; [Batcher] does this for them.
type Client interface {
	EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
	// Name identifies the provider in logs and metrics.
	Name() string
}

var (
	// ErrCountMismatch is returned when a provider answers with a different
	// number of vectors than texts sent.
	ErrCountMismatch = errors.New("embedder: vector count does not match input count")
	// ErrDimensionMismatch is returned when a vector has an unexpected length.
	ErrDimensionMismatch = errors.New("embedder: vector dimensionality mismatch")
)
