// Package rag holds the passage index of one document: passages with their
// embeddings, built once and queried by cosine similarity.
//
// An [Index] is an explicit object owned by whoever processed the document.
// It is built fully or not at all and is never partially updated. Vector
// storage is pluggable through [Store]: [MemoryStore] keeps vectors in
// process memory, [QdrantStore] keeps them in a per-document Qdrant
// collection dropped on Close.
package rag

import (
	"context"
	"errors"
)

// Passage is one embedded chunk.
type Passage struct {
	// ID is the chunk position as a decimal string ("0", "1", ...).
	ID string
	// Text is the chunk text.
	Text string
	// Embedding is the index-mode vector of Text.
	Embedding []float32
}

// Result is a passage with its similarity to a query.
type Result struct {
	Passage
	// Score is the cosine similarity in [-1, 1].
	Score float32
}

// Store persists passages for a single index. Implementations must make
// Insert all-or-nothing and must be safe for concurrent readers.
type Store interface {
	// Count returns the number of stored passages.
	Count(ctx context.Context) (int, error)
	// Insert stores passages, replacing any with the same ID.
	Insert(ctx context.Context, passages []Passage) error
	// Search returns up to k passages by descending cosine similarity, ties
	// by ascending ID.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	// Close releases the store and discards its contents.
	Close() error
}

// Retriever returns the passages most similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Result, error)
}

var (
	// ErrEmptyQuery is returned for blank query text.
	ErrEmptyQuery = errors.New("rag: query text is empty")
	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("rag: index is closed")
	// ErrDimensionMismatch is returned when vectors of different sizes meet.
	ErrDimensionMismatch = errors.New("rag: embedding dimensionality mismatch")
)
