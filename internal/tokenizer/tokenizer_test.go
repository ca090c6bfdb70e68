package tokenizer

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/54b3r/finrag-go/internal/logging"
)

func TestEstimate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"one char", "a", 1},
		{"three chars", "abc", 1},
		{"four chars", "abcd", 1},
		{"eight chars", "abcdefgh", 2},
		{"400 chars", strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Estimate(tt.in); got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestHeuristic_ImplementsTokenizer(t *testing.T) {
	t.Parallel()

	var tok Tokenizer = Heuristic{}
	if tok.Name() != "heuristic" {
		t.Errorf("Name() = %q", tok.Name())
	}
	if got := tok.Count("Revenue grew 5% to $10B in FY24."); got != 8 {
		t.Errorf("Count = %d, want 8", got)
	}
}

func TestLoad_FallsBackToHeuristic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tok := Load(logging.NewWithWriter(&buf, "warn", "json"), "no-such-encoding")
	if _, ok := tok.(Heuristic); !ok {
		t.Fatalf("Load() = %T, want Heuristic", tok)
	}

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected one JSON log record, got %q: %v", buf.String(), err)
	}
	if rec["level"] != "WARN" || rec["encoding"] != "no-such-encoding" {
		t.Errorf("log record = %v", rec)
	}

	// Failures are not cached; a second call warns again.
	buf.Reset()
	Load(logging.NewWithWriter(&buf, "warn", "json"), "no-such-encoding")
	if !strings.Contains(buf.String(), "falling back") {
		t.Errorf("second load did not warn: %q", buf.String())
	}
}
