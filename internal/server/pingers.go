package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/qdrant/go-client/qdrant"
)

// defaultLLMPingTTL is how long a successful LLM probe is reused. Probes
// consume tokens, so readiness polling must not hit the provider each time.
const defaultLLMPingTTL = 5 * time.Minute

// LLMPinger probes the chat model with a minimal generate request and caches
// successful results for a TTL. Failures are never cached.
type LLMPinger struct {
	model model.BaseChatModel
	name  string
	ttl   time.Duration
	now   func() time.Time

	mu     sync.Mutex
	okedAt time.Time
}

// NewLLMPinger constructs an LLMPinger for m. A zero ttl selects five minutes.
func NewLLMPinger(m model.BaseChatModel, name string, ttl time.Duration) *LLMPinger {
	if ttl <= 0 {
		ttl = defaultLLMPingTTL
	}
	return &LLMPinger{model: m, name: name, ttl: ttl, now: time.Now}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping sends "ping" to the model unless a probe succeeded within the TTL.
func (p *LLMPinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.okedAt.IsZero() && p.now().Sub(p.okedAt) < p.ttl {
		return nil
	}

	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return errors.New("generate returned nil response")
	}
	p.okedAt = p.now()
	return nil
}

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
type QdrantPinger struct {
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// HistoryPinger probes the question history database.
type HistoryPinger struct {
	db interface {
		Ping(ctx context.Context) error
	}
}

// NewHistoryPinger wraps anything with a Ping(ctx) method, such as
// *store.SQLiteStore.
func NewHistoryPinger(db interface{ Ping(ctx context.Context) error }) *HistoryPinger {
	return &HistoryPinger{db: db}
}

// Name returns the dependency label used in readiness responses.
func (p *HistoryPinger) Name() string { return "history" }

// Ping checks the database connection.
func (p *HistoryPinger) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("history ping failed: %w", err)
	}
	return nil
}
