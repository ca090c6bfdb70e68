package answer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/finrag-go/internal/embedder"
	"github.com/54b3r/finrag-go/internal/logging"
	"github.com/54b3r/finrag-go/internal/rag"
)

// fakeChat records prompts and options and returns a canned response.
type fakeChat struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	temps   []*float32
}

func (f *fakeChat) Generate(_ context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, in[len(in)-1].Content)
	f.temps = append(f.temps, model.GetCommonOptions(&model.Options{}, opts...).Temperature)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChat) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

// fakeIndex serves fixed passages.
type fakeIndex struct {
	buildErr error
	queryErr error
	results  []rag.Result
	built    int
	lastK    int
}

func (f *fakeIndex) BuildOrGet(context.Context, []string) error {
	f.built++
	return f.buildErr
}

func (f *fakeIndex) Query(_ context.Context, _ string, k int) ([]rag.Result, error) {
	f.lastK = k
	return f.results, f.queryErr
}

// keywordEmbedder maps revenue text to one axis and everything else to the
// other.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, texts []string, _ embedder.Mode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(strings.ToLower(t), "revenue") {
			out[i] = []float32{1, 0.1}
		} else {
			out[i] = []float32{0.1, 1}
		}
	}
	return out, nil
}

func TestAnswer_EndToEnd(t *testing.T) {
	t.Parallel()

	chunks := []string{"Revenue grew 5% to $10B in FY24.", "Operating margin improved to 25%."}
	ix, err := rag.NewIndex("doc", rag.NewMemoryStore(), keywordEmbedder{}, rag.IndexConfig{Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	chat := &fakeChat{reply: "Revenue rose by five percent to ten billion dollars.\nSUMMARY: Revenue grew 5%."}
	c, err := New(chat, Config{Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.Answer(context.Background(), ix, chunks, "What was revenue growth?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "Revenue grew 5%." {
		t.Errorf("Answer = %q, want %q", got, "Revenue grew 5%.")
	}
	if n, _ := ix.Len(context.Background()); n != 2 {
		t.Errorf("index holds %d passages, want 2", n)
	}

	if len(chat.prompts) != 1 {
		t.Fatalf("expected exactly one generation call, got %d", len(chat.prompts))
	}
	prompt := chat.prompts[0]
	first := strings.Index(prompt, "PASSAGE 1: Revenue grew")
	second := strings.Index(prompt, "PASSAGE 2: Operating margin")
	if first < 0 || second < first {
		t.Errorf("passages missing or out of order:\n%s", prompt)
	}
	if temp := chat.temps[0]; temp == nil || *temp != DefaultTemperature {
		t.Errorf("temperature = %v, want %v", temp, DefaultTemperature)
	}
}

func TestAnswer_FallbackSummary(t *testing.T) {
	t.Parallel()

	ix := &fakeIndex{results: []rag.Result{{Passage: rag.Passage{ID: "0", Text: "x"}}}}
	c, _ := New(&fakeChat{reply: "Revenue went up."}, Config{Logger: logging.Discard()})

	got, err := c.Answer(context.Background(), ix, []string{"x"}, "q")
	if err != nil {
		t.Fatal(err)
	}
	if got != FallbackSummary {
		t.Errorf("Answer = %q, want fallback", got)
	}
}

func TestAnswer_EmptyRetrievalStillPrompts(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: "SUMMARY: No relevant information."}
	c, _ := New(chat, Config{TopK: 5, Logger: logging.Discard()})
	ix := &fakeIndex{}

	got, err := c.Answer(context.Background(), ix, nil, "q")
	if err != nil {
		t.Fatal(err)
	}
	if got != "No relevant information." {
		t.Errorf("Answer = %q", got)
	}
	if ix.lastK != 5 {
		t.Errorf("k = %d, want 5", ix.lastK)
	}
	if strings.Contains(chat.prompts[0], "PASSAGE") {
		t.Error("prompt must not contain passages")
	}
}

func TestAnswer_IndexErrorsSkipGeneration(t *testing.T) {
	t.Parallel()

	boom := errors.New("embedding service unreachable")
	tests := []struct {
		name string
		ix   *fakeIndex
	}{
		{"build", &fakeIndex{buildErr: boom}},
		{"query", &fakeIndex{queryErr: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			chat := &fakeChat{reply: "SUMMARY: x"}
			c, _ := New(chat, Config{Logger: logging.Discard()})
			_, err := c.Answer(context.Background(), tt.ix, []string{"a"}, "q")
			if !errors.Is(err, boom) {
				t.Fatalf("expected wrapped error, got %v", err)
			}
			if len(chat.prompts) != 0 {
				t.Error("generation must not run after an index failure")
			}
		})
	}
}

func TestAnswer_GenerationError(t *testing.T) {
	t.Parallel()

	boom := errors.New("quota")
	c, _ := New(&fakeChat{err: boom}, Config{Logger: logging.Discard()})
	if _, err := c.Answer(context.Background(), &fakeIndex{}, nil, "q"); !errors.Is(err, boom) {
		t.Errorf("expected generation error, got %v", err)
	}
}

func TestAnswer_NoTemperature(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: "SUMMARY: ok"}
	c, _ := New(chat, Config{NoTemperature: true, Logger: logging.Discard()})
	if _, err := c.Answer(context.Background(), &fakeIndex{}, nil, "q"); err != nil {
		t.Fatal(err)
	}
	if chat.temps[0] != nil {
		t.Errorf("temperature should be unset, got %v", *chat.temps[0])
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	p := BuildPrompt("What was\nrevenue?", []string{"line one\nline two", "b"})
	for _, want := range []string{
		`labeled "SUMMARY:".`,
		"QUESTION: What was revenue?\n",
		"PASSAGE 1: line one line two\n",
		"PASSAGE 2: b\n",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestParseSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Answer.\nSUMMARY: Revenue grew 5%.", "Revenue grew 5%."},
		{"SUMMARY:   padded  \n", "padded"},
		{"SUMMARY: first SUMMARY: second", "first"},
		{"no marker here", FallbackSummary},
		{"", FallbackSummary},
	}
	for _, tt := range tests {
		if got := ParseSummary(tt.in); got != tt.want {
			t.Errorf("ParseSummary(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew_NilModel(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, Config{}); err == nil {
		t.Error("expected error for nil model")
	}
}
