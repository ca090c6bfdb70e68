// Package answer composes a grounded answer to a question from the
// passages retrieved out of a document's index.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/finrag-go/internal/rag"
)

const (
	// SummaryMarker introduces the short summary in the model's response.
	SummaryMarker = "SUMMARY:"
	// FallbackSummary is returned when the response carries no summary.
	FallbackSummary = "Summary not available."
	// DefaultTemperature keeps answers close to the passages.
	DefaultTemperature float32 = 0.2
)

const preamble = `You are a helpful and informative bot that answers questions using text from the reference passages included below.
Be sure to respond in a complete sentence, being comprehensive, including all relevant background information.
However, you are talking to a non-technical audience, so be sure to break down complicated concepts and
strike a friendly and conversational tone. If the passage is irrelevant to the answer, you may ignore it.
After your main answer, provide a summary of the response in 10 words or less, labeled "SUMMARY:".

`

// PassageIndex is the part of [rag.Index] the composer needs.
type PassageIndex interface {
	BuildOrGet(ctx context.Context, chunks []string) error
	Query(ctx context.Context, text string, k int) ([]rag.Result, error)
}

// Config configures a [Composer].
type Config struct {
	// TopK is the number of passages placed in the prompt. Zero lets the
	// index pick its default.
	TopK int
	// Temperature defaults to DefaultTemperature. Set NoTemperature for
	// models that reject the parameter.
	Temperature   float32
	NoTemperature bool
	Logger        *slog.Logger
}

// Composer turns a question and a document's chunks into a summary.
type Composer struct {
	chat model.BaseChatModel
	cfg  Config
	log  *slog.Logger
}

// New returns a Composer that generates with chat.
func New(chat model.BaseChatModel, cfg Config) (*Composer, error) {
	if chat == nil {
		return nil, errors.New("answer: chat model must not be nil")
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Composer{chat: chat, cfg: cfg, log: log}, nil
}

// Answer builds the index from chunks if needed, retrieves the passages
// closest to query and asks the model once. It returns only the summary.
// Index and retrieval failures are returned without calling the model.
func (c *Composer) Answer(ctx context.Context, index PassageIndex, chunks []string, query string) (string, error) {
	if index == nil {
		return "", errors.New("answer: index must not be nil")
	}
	if err := index.BuildOrGet(ctx, chunks); err != nil {
		return "", fmt.Errorf("answer: failed to build index: %w", err)
	}
	results, err := index.Query(ctx, query, c.cfg.TopK)
	if err != nil {
		return "", fmt.Errorf("answer: failed to retrieve passages: %w", err)
	}

	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.Text
	}
	prompt := BuildPrompt(query, passages)

	var opts []model.Option
	if !c.cfg.NoTemperature {
		opts = append(opts, model.WithTemperature(c.cfg.Temperature))
	}
	msg, err := c.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, opts...)
	if err != nil {
		return "", fmt.Errorf("answer: generation failed: %w", err)
	}
	full := ""
	if msg != nil {
		full = msg.Content
	}

	summary := ParseSummary(full)
	c.log.Debug("answer: generated",
		slog.String("query", query),
		slog.Int("passages", len(passages)),
		slog.String("answer", full),
		slog.String("summary", summary),
	)
	return summary, nil
}

// BuildPrompt renders the grounded prompt. Newlines in the query and the
// passages are replaced by spaces.
func BuildPrompt(query string, passages []string) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("QUESTION: ")
	b.WriteString(oneLine(query))
	b.WriteString("\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "PASSAGE %d: %s\n", i+1, oneLine(p))
	}
	return b.String()
}

// ParseSummary returns the trimmed text between the first SUMMARY: marker
// and the next one, or FallbackSummary when there is no marker.
func ParseSummary(response string) string {
	_, after, ok := strings.Cut(response, SummaryMarker)
	if !ok {
		return FallbackSummary
	}
	if before, _, more := strings.Cut(after, SummaryMarker); more {
		after = before
	}
	return strings.TrimSpace(after)
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
