// Package finmetrics asks the chat model for a table of key financial
// metrics found in a document.
package finmetrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Statement categories the model files metrics under.
const (
	IncomeStatement   = "Income Statement"
	BalanceSheet      = "Balance Sheet"
	CashFlowStatement = "Cash Flow Statement"
	Other             = "Other"
)

// Categories lists the statement categories in display order.
var Categories = []string{IncomeStatement, BalanceSheet, CashFlowStatement, Other}

// User-facing messages. They replace metrics when none can be shown.
const (
	MsgNoDocument = "You can now chat with the PDF to get your answers."
	MsgNoMetrics  = "No financial metrics found in the document. You can now chat with the PDF to get your answers."
	MsgBadFormat  = "The model's response was not in the expected format. Please try again."
	MsgUnexpected = "An unexpected error occurred. Please try again."
)

const prompt = `Extract key financial metrics from the provided text and structure them into a nested JSON object.

Identify up to 20 significant financial metrics. For each metric, find its most recent value and the change (delta) from the comparable period, if available.

Categorize metrics under 'Income Statement', 'Balance Sheet', 'Cash Flow Statement', or 'Other'.

Format the output as a single nested JSON object. The top-level keys should be the statement categories. Under each category, the key should be the metric name. The value for each metric should be an object with the following structure:
{"value": "extracted_value", "delta": "change_vs_last_period_or_year", "delta_color": "normal" or "inverse"}

If no metrics are found, return an empty JSON object: {"Income Statement": {}, "Balance Sheet": {}, "Cash Flow Statement": {}, "Other": {}}.

Return only the JSON object, without any extra text or markdown.`

// Metric is one extracted figure.
type Metric struct {
	Value      Text `json:"value"`
	Delta      Text `json:"delta,omitempty"`
	DeltaColor Text `json:"delta_color,omitempty"`
}

// Text is a string that also accepts JSON numbers, booleans and null, which
// models emit for bare figures.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v.(type) {
	case nil:
		*t = ""
	case float64, bool:
		*t = Text(strings.TrimSpace(string(b)))
	default:
		return fmt.Errorf("finmetrics: expected a scalar, got %s", b)
	}
	return nil
}

// Metrics maps a statement category to metric name to metric.
type Metrics map[string]map[string]Metric

// Empty reports whether no category holds a metric.
func (m Metrics) Empty() bool {
	for _, byName := range m {
		if len(byName) > 0 {
			return false
		}
	}
	return true
}

// Result carries either Metrics or a Message for the user.
type Result struct {
	Metrics Metrics `json:"metrics,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Extractor prompts a chat model for metrics.
type Extractor struct {
	chat model.BaseChatModel
	log  *slog.Logger
}

// New returns an Extractor. A nil logger means slog.Default().
func New(chat model.BaseChatModel, log *slog.Logger) (*Extractor, error) {
	if chat == nil {
		return nil, errors.New("finmetrics: chat model must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{chat: chat, log: log}, nil
}

// Extract sends all chunks to the model in one prompt. Failures are logged
// and reported through Result.Message, never returned.
func (e *Extractor) Extract(ctx context.Context, chunks []string) Result {
	if len(chunks) == 0 {
		return Result{Message: MsgNoDocument}
	}

	input := prompt + "\n\nDocument Text:\n" + strings.Join(chunks, "\n")
	msg, err := e.chat.Generate(ctx, []*schema.Message{schema.UserMessage(input)})
	if err != nil {
		e.log.Error("finmetrics: generation failed", slog.Any("error", err))
		return Result{Message: MsgUnexpected}
	}
	raw := ""
	if msg != nil {
		raw = msg.Content
	}

	metrics, err := Parse(raw)
	if err != nil {
		e.log.Error("finmetrics: failed to decode model response",
			slog.Any("error", err),
			slog.String("response", raw),
		)
		return Result{Message: MsgBadFormat}
	}
	if metrics.Empty() {
		return Result{Message: MsgNoMetrics}
	}
	return Result{Metrics: metrics}
}

// Parse strips markdown fences from a model response and decodes it.
func Parse(raw string) (Metrics, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var m Metrics
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		return nil, fmt.Errorf("finmetrics: invalid JSON: %w", err)
	}
	return m, nil
}
