package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type countingChat struct {
	calls int
	err   error
}

func (c *countingChat) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return schema.AssistantMessage("pong", nil), nil
}

func (c *countingChat) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestLLMPinger_CachesSuccess(t *testing.T) {
	t.Parallel()
	chat := &countingChat{}
	p := NewLLMPinger(chat, "gemini", time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	for range 3 {
		if err := p.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	}
	if chat.calls != 1 {
		t.Errorf("calls within TTL: got %d, want 1", chat.calls)
	}

	now = now.Add(2 * time.Minute)
	if err := p.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if chat.calls != 2 {
		t.Errorf("calls after TTL: got %d, want 2", chat.calls)
	}
}

func TestLLMPinger_FailuresNotCached(t *testing.T) {
	t.Parallel()
	chat := &countingChat{err: errors.New("quota")}
	p := NewLLMPinger(chat, "gemini", 0)

	for range 2 {
		if err := p.Ping(context.Background()); err == nil {
			t.Fatal("expected error")
		}
	}
	if chat.calls != 2 {
		t.Errorf("calls: got %d, want 2", chat.calls)
	}
	if p.Name() != "gemini" {
		t.Errorf("name: got %q", p.Name())
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHistoryPinger(t *testing.T) {
	t.Parallel()
	ok := NewHistoryPinger(pingFunc(func(context.Context) error { return nil }))
	if err := ok.Ping(context.Background()); err != nil {
		t.Errorf("healthy: %v", err)
	}
	down := NewHistoryPinger(pingFunc(func(context.Context) error { return errors.New("locked") }))
	if err := down.Ping(context.Background()); err == nil {
		t.Error("expected error")
	}
}
