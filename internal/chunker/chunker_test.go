package chunker

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/54b3r/finrag-go/internal/tokenizer"
)

// wordTokenizer counts whitespace-separated words, which keeps expected
// chunk boundaries easy to compute by hand.
type wordTokenizer struct{}

func (wordTokenizer) Count(s string) int { return len(strings.Fields(s)) }
func (wordTokenizer) Name() string       { return "words" }

func newTestChunker(t *testing.T, cfg Config) *Chunker {
	t.Helper()
	c, err := New(cfg, wordTokenizer{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func sentences(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("Alpha beta gamma s%d.", i)
	}
	return strings.Join(parts, " ")
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := newTestChunker(t, Config{})
	want := Config{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap, MaxChunks: DefaultMaxChunks}
	if got := c.Config(); got != want {
		t.Errorf("Config() = %+v, want %+v", got, want)
	}
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		tok  tokenizer.Tokenizer
	}{
		{"nil tokenizer", Config{}, nil},
		{"overlap equals size", Config{ChunkSize: 10, ChunkOverlap: 10}, wordTokenizer{}},
		{"overlap above size", Config{ChunkSize: 10, ChunkOverlap: 20}, wordTokenizer{}},
		{"negative size", Config{ChunkSize: -1, ChunkOverlap: -1}, wordTokenizer{}},
		{"negative cap", Config{MaxChunks: -5}, wordTokenizer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg, tt.tok); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestChunk_SmallCorpusKeepsEntries(t *testing.T) {
	t.Parallel()

	c := newTestChunker(t, Config{})
	corpus := []string{"Revenue grew 5% to $10B in FY24.", "Operating margin improved to 25%."}

	got := c.Chunk(corpus)
	if !reflect.DeepEqual(got, corpus) {
		t.Errorf("Chunk() = %q, want %q", got, corpus)
	}
}

func TestChunk_SkipsBlankEntries(t *testing.T) {
	t.Parallel()

	c := newTestChunker(t, Config{})
	got := c.Chunk([]string{"", "   \n\t ", "Cash rose.", "\n\n"})
	if !reflect.DeepEqual(got, []string{"Cash rose."}) {
		t.Errorf("Chunk() = %q", got)
	}
	if got := c.Chunk(nil); len(got) != 0 {
		t.Errorf("expected no chunks for empty corpus, got %q", got)
	}
}

func TestChunk_RespectsSizeAndCap(t *testing.T) {
	t.Parallel()

	const size = 20
	c := newTestChunker(t, Config{ChunkSize: size, ChunkOverlap: 5, MaxChunks: 30})
	got := c.Chunk([]string{sentences(500), sentences(50)})

	if len(got) != 30 {
		t.Fatalf("expected the cap of 30 chunks, got %d", len(got))
	}
	for i, ch := range got {
		if ch == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if n := (wordTokenizer{}).Count(ch); n > size {
			t.Errorf("chunk %d has %d tokens, max %d", i, n, size)
		}
	}
}

func TestChunk_CapAcrossDocuments(t *testing.T) {
	t.Parallel()

	c := newTestChunker(t, Config{MaxChunks: 3})
	got := c.Chunk([]string{"page one.", "page two.", "page three.", "page four."})
	want := []string{"page one.", "page two.", "page three."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestChunk_OverlapCarriesTrailingSentence(t *testing.T) {
	t.Parallel()

	c := newTestChunker(t, Config{ChunkSize: 10, ChunkOverlap: 4, MaxChunks: 30})
	got := c.Chunk([]string{sentences(6)})

	want := []string{
		"Alpha beta gamma s0. Alpha beta gamma s1.",
		"Alpha beta gamma s1. Alpha beta gamma s2.",
		"Alpha beta gamma s2. Alpha beta gamma s3.",
		"Alpha beta gamma s3. Alpha beta gamma s4.",
		"Alpha beta gamma s4. Alpha beta gamma s5.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() =\n%q\nwant\n%q", got, want)
	}
}

func TestChunk_NoOverlapAcrossDocuments(t *testing.T) {
	t.Parallel()

	c := newTestChunker(t, Config{ChunkSize: 10, ChunkOverlap: 4})
	got := c.Chunk([]string{"Alpha beta gamma s0.", "Delta epsilon zeta s1."})
	want := []string{"Alpha beta gamma s0.", "Delta epsilon zeta s1."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestChunk_DisabledOverlap(t *testing.T) {
	t.Parallel()

	c := newTestChunker(t, Config{ChunkSize: 8, ChunkOverlap: -1})
	got := c.Chunk([]string{sentences(4)})
	want := []string{
		"Alpha beta gamma s0. Alpha beta gamma s1.",
		"Alpha beta gamma s2. Alpha beta gamma s3.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestChunk_ParagraphsPreferredOverSentences(t *testing.T) {
	t.Parallel()

	c := newTestChunker(t, Config{ChunkSize: 6, ChunkOverlap: -1})
	got := c.Chunk([]string{"One two three.\n\nFour five six.\n\nSeven eight nine."})
	want := []string{"One two three.\n\nFour five six.", "Seven eight nine."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestChunk_SplitsUnbreakableWord(t *testing.T) {
	t.Parallel()

	c, err := New(Config{ChunkSize: 10, ChunkOverlap: -1}, tokenizer.Heuristic{})
	if err != nil {
		t.Fatal(err)
	}
	word := strings.Repeat("x", 100)
	got := c.Chunk([]string{word})

	if len(got) < 2 {
		t.Fatalf("expected the word to be split, got %d chunks", len(got))
	}
	for i, ch := range got {
		if n := tokenizer.Estimate(ch); n > 10 {
			t.Errorf("chunk %d has %d tokens, max 10", i, n)
		}
	}
	if joined := strings.Join(got, ""); joined != word {
		t.Errorf("rune split lost text: got %d bytes, want %d", len(joined), len(word))
	}
}

func TestChunk_Deterministic(t *testing.T) {
	t.Parallel()

	c := newTestChunker(t, Config{ChunkSize: 12, ChunkOverlap: 3})
	corpus := []string{sentences(40), "Table row a b c\nrow d e f"}
	if a, b := c.Chunk(corpus), c.Chunk(corpus); !reflect.DeepEqual(a, b) {
		t.Error("repeated Chunk calls returned different output")
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapse spaces", "Revenue   grew\t\t5%.", "Revenue grew 5%."},
		{"crlf and blank lines", "  a  \r\n\r\n\r\n\r\nb ", "a\n\nb"},
		{"keeps single line breaks", "col1,col2\n 1 , 2 ", "col1,col2\n1 , 2"},
		{"blank", " \n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeWhitespace(tt.in); got != tt.want {
				t.Errorf("NormalizeWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDocuments_KeepsCorpusIndex(t *testing.T) {
	t.Parallel()

	docs := Documents([]string{"", "first", " ", "second"})
	want := []Document{{Index: 1, Text: "first"}, {Index: 3, Text: "second"}}
	if !reflect.DeepEqual(docs, want) {
		t.Errorf("Documents() = %+v, want %+v", docs, want)
	}
}
