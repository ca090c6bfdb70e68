// Package chunker splits an extracted document corpus into bounded,
// overlapping passages for embedding.
//
// Each corpus entry (a page or a table block) is wrapped in a [Document] and
// split independently: paragraphs first, then sentences, then words, then
// runes for a single over-long word. The pieces are merged greedily into
// chunks of at most ChunkSize tokens; each new chunk of the same document
// starts with up to ChunkOverlap tokens taken from the end of the previous
// one. The combined output is capped at MaxChunks.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/54b3r/finrag-go/internal/tokenizer"
)

const (
	// DefaultChunkSize is the maximum chunk length in tokens.
	DefaultChunkSize = 1024
	// DefaultChunkOverlap is the number of tokens repeated between chunks.
	DefaultChunkOverlap = 25
	// DefaultMaxChunks caps the number of chunks produced per corpus.
	DefaultMaxChunks = 30
)

// ErrInvalidConfig is returned by [New] for inconsistent limits.
var ErrInvalidConfig = errors.New("chunker: invalid config")

// Config bounds chunk size, overlap, and count.
type Config struct {
	// ChunkSize is the token budget per chunk. Zero means DefaultChunkSize.
	ChunkSize int
	// ChunkOverlap is the token overlap between consecutive chunks of the
	// same document. Negative disables overlap; zero means DefaultChunkOverlap.
	ChunkOverlap int
	// MaxChunks caps the output. Zero means DefaultMaxChunks.
	MaxChunks int
}

// Document is one addressable corpus unit.
type Document struct {
	// Index is the position of the entry in the corpus.
	Index int
	// Text is the whitespace-normalised entry text.
	Text string
}

// Chunker splits corpora into chunks. It holds no mutable state and is safe
// for concurrent use.
type Chunker struct {
	cfg Config
	tok tokenizer.Tokenizer
}

// New validates cfg, applies defaults, and returns a Chunker that measures
// size with tok.
func New(cfg Config, tok tokenizer.Tokenizer) (*Chunker, error) {
	if tok == nil {
		return nil, fmt.Errorf("%w: tokenizer must not be nil", ErrInvalidConfig)
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.MaxChunks == 0 {
		cfg.MaxChunks = DefaultMaxChunks
	}
	if cfg.ChunkSize < 0 || cfg.MaxChunks < 0 {
		return nil, fmt.Errorf("%w: chunk size and max chunks must be positive", ErrInvalidConfig)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			ErrInvalidConfig, cfg.ChunkOverlap, cfg.ChunkSize)
	}
	return &Chunker{cfg: cfg, tok: tok}, nil
}

// Config returns the effective configuration after defaults.
func (c *Chunker) Config() Config { return c.cfg }

// Tokenizer returns the tokenizer used for size measurement.
func (c *Chunker) Tokenizer() tokenizer.Tokenizer { return c.tok }

// Chunk splits corpus into at most MaxChunks non-empty chunks, in corpus
// order. Content past the cap is dropped.
func (c *Chunker) Chunk(corpus []string) []string {
	out := make([]string, 0, min(len(corpus), c.cfg.MaxChunks))
	for _, doc := range Documents(corpus) {
		if len(out) >= c.cfg.MaxChunks {
			break
		}
		out = c.chunkDocument(doc, out)
	}
	return out
}

// Documents wraps each non-blank corpus entry after whitespace normalisation.
func Documents(corpus []string) []Document {
	docs := make([]Document, 0, len(corpus))
	for i, raw := range corpus {
		text := NormalizeWhitespace(raw)
		if text == "" {
			continue
		}
		docs = append(docs, Document{Index: i, Text: text})
	}
	return docs
}

// chunkDocument appends doc's chunks to out, stopping at the cap.
func (c *Chunker) chunkDocument(doc Document, out []string) []string {
	pieces := c.split(doc.Text, 0)

	var current []string
	emit := func() bool {
		if len(current) == 0 {
			return true
		}
		if text := strings.TrimSpace(strings.Join(current, "")); text != "" {
			out = append(out, text)
		}
		return len(out) < c.cfg.MaxChunks
	}

	for _, p := range pieces {
		if c.fits(current, p) {
			current = append(current, p)
			continue
		}
		if !emit() {
			return out
		}
		current = c.overlapTail(current)
		for len(current) > 0 && !c.fits(current, p) {
			current = current[1:]
		}
		current = append(current, p)
	}
	emit()
	return out
}

// fits reports whether appending p to current stays within ChunkSize.
func (c *Chunker) fits(current []string, p string) bool {
	return c.count(strings.Join(append(current[:len(current):len(current)], p), "")) <= c.cfg.ChunkSize
}

// overlapTail returns the longest suffix of pieces within ChunkOverlap tokens.
func (c *Chunker) overlapTail(pieces []string) []string {
	if c.cfg.ChunkOverlap == 0 {
		return nil
	}
	start := len(pieces)
	for start > 0 && c.count(strings.Join(pieces[start-1:], "")) <= c.cfg.ChunkOverlap {
		start--
	}
	tail := make([]string, len(pieces)-start)
	copy(tail, pieces[start:])
	return tail
}

func (c *Chunker) count(s string) int {
	return c.tok.Count(strings.TrimSpace(s))
}

var (
	paragraphBoundary = regexp.MustCompile(`\n\n+`)
	sentenceBoundary  = regexp.MustCompile(`[.!?]['")\]]*\s+|\n`)
	wordBoundary      = regexp.MustCompile(`\s+`)
)

// splitLevels are applied in order until every piece fits ChunkSize.
var splitLevels = []*regexp.Regexp{paragraphBoundary, sentenceBoundary, wordBoundary}

// split breaks text into pieces that each fit ChunkSize. Pieces keep their
// trailing separators so that concatenating them restores text exactly.
func (c *Chunker) split(text string, level int) []string {
	if c.count(text) <= c.cfg.ChunkSize {
		return []string{text}
	}
	if level >= len(splitLevels) {
		return c.splitRunes(text)
	}

	parts := splitAfter(splitLevels[level], text)
	if len(parts) == 1 {
		return c.split(text, level+1)
	}
	var pieces []string
	for _, part := range parts {
		pieces = append(pieces, c.split(part, level+1)...)
	}
	return pieces
}

// splitRunes cuts an unbreakable string into the longest rune prefixes that
// fit ChunkSize. Every piece holds at least one rune.
func (c *Chunker) splitRunes(text string) []string {
	var pieces []string
	for text != "" {
		end := 0
		for end < len(text) {
			_, size := utf8.DecodeRuneInString(text[end:])
			if end > 0 && c.count(text[:end+size]) > c.cfg.ChunkSize {
				break
			}
			end += size
		}
		pieces = append(pieces, text[:end])
		text = text[end:]
	}
	return pieces
}

// splitAfter splits s after every match of re, keeping the separator on the
// left piece.
func splitAfter(re *regexp.Regexp, s string) []string {
	var parts []string
	last := 0
	for _, m := range re.FindAllStringIndex(s, -1) {
		if m[1] == last {
			continue
		}
		parts = append(parts, s[last:m[1]])
		last = m[1]
	}
	if last < len(s) {
		parts = append(parts, s[last:])
	}
	return parts
}
