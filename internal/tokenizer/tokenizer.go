// Package tokenizer measures text length in tokens for chunk sizing.
//
// The preferred tokenizer is tiktoken's cl100k_base encoding. Loading it may
// need network access the first time (set TIKTOKEN_CACHE_DIR to reuse a local
// copy); when it cannot be loaded, [Load] degrades to [Heuristic] and logs a
// warning instead of failing.
package tokenizer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// Tokenizer counts tokens in a string. Implementations must be deterministic
// and safe for concurrent use.
type Tokenizer interface {
	Count(text string) int
	Name() string
}

// Tiktoken counts BPE tokens with a tiktoken encoding.
type Tiktoken struct {
	enc  *tiktoken.Tiktoken
	name string
}

// NewTiktoken loads the named encoding.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: failed to load encoding %q: %w", encoding, err)
	}
	return &Tiktoken{enc: enc, name: encoding}, nil
}

// Count returns the number of BPE tokens in text. Special-token markers are
// treated as ordinary text.
func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.EncodeOrdinary(text))
}

func (t *Tiktoken) Name() string { return "tiktoken/" + t.name }

var (
	loadMu sync.Mutex
	loaded = map[string]Tokenizer{}
)

// Load returns the tiktoken tokenizer for encoding, or the [Heuristic]
// fallback when it cannot be loaded. Successful loads are cached per
// encoding for the life of the process.
func Load(log *slog.Logger, encoding string) Tokenizer {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	loadMu.Lock()
	defer loadMu.Unlock()
	if tok, ok := loaded[encoding]; ok {
		return tok
	}

	tok, err := NewTiktoken(encoding)
	if err != nil {
		log.Warn("tokenizer: preferred tokenizer unavailable, falling back to heuristic",
			slog.String("encoding", encoding),
			slog.Any("error", err),
		)
		return Heuristic{}
	}
	loaded[encoding] = tok
	return tok
}
