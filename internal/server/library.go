package server

import (
	"context"

	"github.com/54b3r/finrag-go/internal/finmetrics"
	"github.com/54b3r/finrag-go/internal/ingestion"
	"github.com/54b3r/finrag-go/internal/session"
	"github.com/54b3r/finrag-go/internal/store"
)

// sessionLibrary adapts *session.Manager to Library.
type sessionLibrary struct {
	m *session.Manager
}

// NewLibrary returns the Library backed by m.
func NewLibrary(m *session.Manager) Library {
	return &sessionLibrary{m: m}
}

func info(d *session.Document) DocumentInfo {
	return DocumentInfo{
		Fingerprint: d.Fingerprint(),
		Name:        d.Name(),
		Chunks:      len(d.Chunks()),
		Searchable:  d.Queryable(),
		Metadata:    d.Metadata(),
	}
}

func (l *sessionLibrary) Upload(ctx context.Context, src ingestion.Source) (DocumentInfo, error) {
	d, err := l.m.Open(ctx, src, nil)
	if err != nil {
		return DocumentInfo{}, err
	}
	return info(d), nil
}

func (l *sessionLibrary) Documents() []DocumentInfo {
	docs := l.m.List()
	out := make([]DocumentInfo, len(docs))
	for i, d := range docs {
		out[i] = info(d)
	}
	return out
}

func (l *sessionLibrary) Ask(ctx context.Context, fingerprint, question string) (session.Reply, error) {
	d, err := l.m.Get(fingerprint)
	if err != nil {
		return session.Reply{}, err
	}
	return d.Ask(ctx, question), nil
}

func (l *sessionLibrary) Metrics(ctx context.Context, fingerprint string) (finmetrics.Result, error) {
	d, err := l.m.Get(fingerprint)
	if err != nil {
		return finmetrics.Result{}, err
	}
	return d.Metrics(ctx), nil
}

func (l *sessionLibrary) History(ctx context.Context, fingerprint string, n int) ([]store.Entry, error) {
	return l.m.History(ctx, fingerprint, n)
}

func (l *sessionLibrary) Discard(fingerprint string) error {
	return l.m.Discard(fingerprint)
}
