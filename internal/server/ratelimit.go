package server

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/54b3r/finrag-go/internal/logging"
)

// Per-client token bucket defaults for document routes. Each question costs
// an embedding call and a generation call, so the sustained rate stays low.
const (
	defaultRateLimit = 10
	defaultRateBurst = 20

	// clientIdleAfter is how long a client's bucket survives without traffic.
	clientIdleAfter = 5 * time.Minute
	sweepInterval   = time.Minute
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// docThrottle limits document API calls per client address. A rejected
// call is answered 429 with the number of seconds until a token frees up.
type docThrottle struct {
	limit rate.Limit
	burst int
	now   func() time.Time
	// rejected counts 429s by route pattern. Optional.
	rejected *prometheus.CounterVec

	mu      sync.Mutex
	clients map[string]*clientBucket
}

// newDocThrottle starts the idle-client sweeper. Call stop on shutdown.
func newDocThrottle(rps float64, burst int, rejected *prometheus.CounterVec) (t *docThrottle, stop func()) {
	t = &docThrottle{
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
		rejected: rejected,
		clients:  make(map[string]*clientBucket),
	}

	done := make(chan struct{})
	go func() {
		tick := time.NewTicker(sweepInterval)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				t.sweep()
			}
		}
	}()
	return t, func() { close(done) }
}

func (t *docThrottle) bucket(client string, now time.Time) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.clients[client]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.clients[client] = b
	}
	b.lastSeen = now
	return b.limiter
}

// sweep forgets clients idle for longer than clientIdleAfter.
func (t *docThrottle) sweep() {
	cutoff := t.now().Add(-clientIdleAfter)

	t.mu.Lock()
	defer t.mu.Unlock()
	for client, b := range t.clients {
		if b.lastSeen.Before(cutoff) {
			delete(t.clients, client)
		}
	}
}

// retryAfter takes a token for client and returns zero, or returns how
// long the client must wait and takes nothing.
func (t *docThrottle) retryAfter(client string) time.Duration {
	now := t.now()
	res := t.bucket(client, now).ReserveN(now, 1)
	if !res.OK() {
		return time.Duration(math.MaxInt64)
	}
	wait := res.DelayFrom(now)
	if wait > 0 {
		res.CancelAt(now)
	}
	return wait
}

func (t *docThrottle) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		wait := t.retryAfter(client)
		if wait <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		if t.rejected != nil {
			t.rejected.WithLabelValues(r.Pattern).Inc()
		}
		logging.FromContext(r.Context()).Warn("server: document API rate limit exceeded",
			slog.String("client", client),
			slog.String("route", r.Pattern),
			slog.Duration("retry_after", wait),
		)
		w.Header().Set("Retry-After", strconv.FormatInt(retrySeconds(wait), 10))
		writeError(w, http.StatusTooManyRequests, "too many requests, please retry later")
	})
}

// retrySeconds rounds wait up to whole seconds, at least one.
func retrySeconds(wait time.Duration) int64 {
	s := int64(math.Ceil(wait.Seconds()))
	return max(s, 1)
}

// clientIP is the connection's remote host. Forwarding headers are ignored.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
