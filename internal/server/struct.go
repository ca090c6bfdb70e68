package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/finrag-go/internal/finmetrics"
	"github.com/54b3r/finrag-go/internal/ingestion"
	"github.com/54b3r/finrag-go/internal/session"
	"github.com/54b3r/finrag-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// AskTimeout bounds a single question, including index build and
	// generation. Defaults to 2 minutes.
	AskTimeout time.Duration
	// MaxUploadBytes caps uploaded documents. Defaults to 50 MiB.
	MaxUploadBytes int64
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained document API calls per second allowed per
	// client address. Defaults to 10.
	RateLimit float64
	// RateBurst is the per-client burst. Defaults to 20.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Library is the document service behind the API. [NewLibrary] adapts a
// *session.Manager; tests inject a fake.
type Library interface {
	Upload(ctx context.Context, src ingestion.Source) (DocumentInfo, error)
	Documents() []DocumentInfo
	Ask(ctx context.Context, fingerprint, question string) (session.Reply, error)
	Metrics(ctx context.Context, fingerprint string) (finmetrics.Result, error)
	History(ctx context.Context, fingerprint string, n int) ([]store.Entry, error)
	Discard(fingerprint string) error
}

// Server is the HTTP server that exposes the document library.
type Server struct {
	// lib handles every document operation.
	lib Library
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors.
	metrics *serverMetrics
	// stopRL stops the document throttle's idle-client sweeper.
	stopRL func()
}

// DocumentInfo describes an uploaded document.
type DocumentInfo struct {
	Fingerprint string             `json:"fingerprint"`
	Name        string             `json:"name"`
	Chunks      int                `json:"chunks"`
	Searchable  bool               `json:"searchable"`
	Metadata    ingestion.Metadata `json:"metadata"`
}

// askRequest is the JSON body for POST /api/documents/{fp}/ask.
type askRequest struct {
	// Question is the user's natural language query.
	Question string `json:"question"`
}

// historyResponse is the JSON body of GET /api/documents/{fp}/history.
type historyResponse struct {
	Fingerprint string        `json:"fingerprint"`
	Entries     []store.Entry `json:"entries"`
}

// errorResponse is the JSON body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}
