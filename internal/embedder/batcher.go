package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	// DefaultBatchSize is the number of texts sent per provider request.
	DefaultBatchSize = 16
	// DefaultMaxRetries bounds retries per batch.
	DefaultMaxRetries = 5
	// NoRetries as BatcherConfig.MaxRetries sends each batch once.
	NoRetries = -1

	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
	defaultMaxElapsed      = 2 * time.Minute
)

// BatcherConfig configures a [Batcher]. Zero values select defaults.
type BatcherConfig struct {
	// BatchSize is the number of texts per provider request.
	BatchSize int
	// MaxRetries bounds retries of a batch after retriable errors. Zero
	// selects DefaultMaxRetries; any negative value, such as NoRetries,
	// disables retrying.
	MaxRetries int
	// Dimensions, when positive, is enforced on every returned vector.
	Dimensions int
	// RPS caps provider requests per second. Zero disables throttling.
	RPS float64
	// NewBackOff builds the retry schedule for one batch. Defaults to
	// exponential backoff starting at 500ms.
	NewBackOff func() backoff.BackOff
	// Metrics receives request counters. Optional.
	Metrics *Metrics
	// Logger receives retry warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// Batcher implements [Embedder] over a provider [Client]. Batches are sent
// one after another; a failed batch fails the whole call and no partial
// result is returned.
type Batcher struct {
	client  Client
	cfg     BatcherConfig
	limiter *rate.Limiter
}

// NewBatcher wraps client.
func NewBatcher(client Client, cfg BatcherConfig) (*Batcher, error) {
	if client == nil {
		return nil, errors.New("embedder: client must not be nil")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.NewBackOff == nil {
		cfg.NewBackOff = defaultBackOff
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	b := &Batcher{client: client, cfg: cfg}
	if cfg.RPS > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return b, nil
}

func defaultBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(defaultInitialInterval),
		backoff.WithMaxInterval(defaultMaxInterval),
		backoff.WithMaxElapsedTime(defaultMaxElapsed),
	)
}

// Name returns the wrapped provider's name.
func (b *Batcher) Name() string { return b.client.Name() }

// Dimensions returns the enforced vector size, or zero when unchecked.
func (b *Batcher) Dimensions() int { return b.cfg.Dimensions }

// Embed embeds texts in batches of BatchSize and returns one vector per text
// in input order.
func (b *Batcher) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.cfg.BatchSize {
		end := min(start+b.cfg.BatchSize, len(texts))
		vecs, err := b.embedBatch(ctx, texts[start:end], mode)
		if err != nil {
			b.cfg.Metrics.failure(b.client.Name())
			return nil, fmt.Errorf("embedder: batch [%d:%d] of %d: %w", start, end, len(texts), err)
		}
		out = append(out, vecs...)
	}
	b.cfg.Metrics.embedded(b.client.Name(), mode, len(out))
	return out, nil
}

func (b *Batcher) embedBatch(ctx context.Context, batch []string, mode Mode) ([][]float32, error) {
	name := b.client.Name()

	op := func() ([][]float32, error) {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, backoff.Permanent(err)
			}
		}
		b.cfg.Metrics.request(name, mode)

		vecs, err := b.client.EmbedBatch(ctx, batch, mode)
		if err != nil {
			if IsRetriable(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		if err := b.check(batch, vecs); err != nil {
			return nil, backoff.Permanent(err)
		}
		return vecs, nil
	}

	notify := func(err error, wait time.Duration) {
		b.cfg.Metrics.retry(name)
		b.cfg.Logger.Warn("embedder: retrying batch",
			slog.String("provider", name),
			slog.String("mode", mode.String()),
			slog.Int("batch_size", len(batch)),
			slog.Duration("wait", wait),
			slog.Any("error", err),
		)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(b.cfg.NewBackOff(), uint64(b.cfg.MaxRetries)),
		ctx,
	)
	return backoff.RetryNotifyWithData(op, policy, notify)
}

// check enforces one vector per text and the configured dimensionality.
func (b *Batcher) check(batch []string, vecs [][]float32) error {
	if len(vecs) != len(batch) {
		return fmt.Errorf("%w: sent %d, got %d", ErrCountMismatch, len(batch), len(vecs))
	}
	if b.cfg.Dimensions <= 0 {
		return nil
	}
	for i, v := range vecs {
		if len(v) != b.cfg.Dimensions {
			return fmt.Errorf("%w: vector %d has %d values, want %d",
				ErrDimensionMismatch, i, len(v), b.cfg.Dimensions)
		}
	}
	return nil
}
