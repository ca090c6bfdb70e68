package finmetrics

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/finrag-go/internal/logging"
)

type fakeChat struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (f *fakeChat) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	f.prompt = in[0].Content
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChat) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		chunks  []string
		reply   string
		err     error
		wantMsg string
	}{
		{name: "no chunks", wantMsg: MsgNoDocument},
		{
			name:    "empty categories",
			chunks:  []string{"text"},
			reply:   `{"Income Statement": {}, "Balance Sheet": {}, "Cash Flow Statement": {}, "Other": {}}`,
			wantMsg: MsgNoMetrics,
		},
		{name: "not json", chunks: []string{"text"}, reply: "Here are the metrics!", wantMsg: MsgBadFormat},
		{name: "provider failure", chunks: []string{"text"}, err: errors.New("503"), wantMsg: MsgUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			chat := &fakeChat{reply: tt.reply, err: tt.err}
			e, err := New(chat, logging.Discard())
			if err != nil {
				t.Fatal(err)
			}
			got := e.Extract(context.Background(), tt.chunks)
			if got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
			if got.Metrics != nil {
				t.Errorf("Metrics = %v, want nil", got.Metrics)
			}
			if len(tt.chunks) == 0 && chat.calls != 0 {
				t.Error("model must not be called without chunks")
			}
		})
	}
}

func TestExtract_FencedResponse(t *testing.T) {
	t.Parallel()

	reply := "```json\n" + `{
  "Balance Sheet": {"Cash and cash equivalents": {"value": "$9.9 billion", "delta": "", "delta_color": "normal"}},
  "Cash Flow Statement": {"Operating cash flow": {"value": "$35.7 billion", "delta": "+$6.9 billion", "delta_color": "normal"}},
  "Other": {"Shares repurchased": {"value": 18.2, "delta": null, "delta_color": "normal"}}
}` + "\n```"
	chat := &fakeChat{reply: reply}
	e, _ := New(chat, logging.Discard())

	got := e.Extract(context.Background(), []string{"Cash of $9.9 billion", "Operating cash flow of $35.7 billion"})
	if got.Message != "" {
		t.Fatalf("unexpected message %q", got.Message)
	}
	ocf := got.Metrics[CashFlowStatement]["Operating cash flow"]
	if ocf.Value != "$35.7 billion" || ocf.Delta != "+$6.9 billion" {
		t.Errorf("operating cash flow = %+v", ocf)
	}
	if v := got.Metrics[Other]["Shares repurchased"].Value; v != "18.2" {
		t.Errorf("numeric value = %q, want 18.2", v)
	}
	if !strings.Contains(chat.prompt, "Document Text:\nCash of $9.9 billion\nOperating cash flow") {
		t.Errorf("chunks not joined into prompt:\n%s", chat.prompt)
	}
	if !strings.Contains(chat.prompt, "up to 20 significant financial metrics") {
		t.Error("prompt missing instructions")
	}
}

func TestParse_RejectsNestedValue(t *testing.T) {
	t.Parallel()

	if _, err := Parse(`{"Other": {"x": {"value": {"nested": 1}}}}`); err == nil {
		t.Error("expected error for object value")
	}
}

func TestText_UnmarshalScalars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Text
	}{
		{`"$1.2 billion"`, "$1.2 billion"},
		{`18.2`, "18.2"},
		{`-3`, "-3"},
		{`true`, "true"},
		{`null`, ""},
	}
	for _, tt := range tests {
		got := Text("unset")
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Errorf("%s: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.in, got, tt.want)
		}
	}

	var arr Text
	if err := json.Unmarshal([]byte(`[1, 2]`), &arr); err == nil {
		t.Error("expected error for array value")
	}
}
