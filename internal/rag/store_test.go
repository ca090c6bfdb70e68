package rag

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestCosine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scale invariant", []float32{1, 1}, []float32{5, 5}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		if got := cosine(tt.a, tt.b); math.Abs(float64(got)-tt.want) > 1e-6 {
			t.Errorf("%s: cosine = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLessID(t *testing.T) {
	t.Parallel()

	if !lessID("2", "10") {
		t.Error("numeric IDs must compare numerically")
	}
	if lessID("10", "2") {
		t.Error("10 must not sort before 2")
	}
	if !lessID("a", "b") {
		t.Error("non-numeric IDs compare lexically")
	}
}

func TestMemoryStore_InsertIsAllOrNothing(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Insert(ctx, []Passage{
		{ID: "0", Text: "a", Embedding: []float32{1, 0}},
		{ID: "1", Text: "b", Embedding: []float32{1, 0, 0}},
	})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("expected nothing stored, got %d", n)
	}
}

func TestMemoryStore_InsertReplacesByID(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	p := []Passage{{ID: "0", Text: "a", Embedding: []float32{1, 0}}}
	if err := s.Insert(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(ctx, p); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("expected 1 passage, got %d", n)
	}
}

func TestMemoryStore_SearchValidation(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Insert(ctx, []Passage{{ID: "0", Embedding: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Search(ctx, []float32{1, 0, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if res, err := s.Search(ctx, []float32{1, 0}, 0); err != nil || len(res) != 0 {
		t.Errorf("k=0 should return nothing, got %v, %v", res, err)
	}
	_ = s.Close()
	if _, err := s.Count(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

// fakeQdrant is an in-memory stand-in for the Qdrant gRPC client. Query
// returns every point with a constant score, in reverse insertion order.
type fakeQdrant struct {
	exists  bool
	created *qdrant.CreateCollection
	dropped string
	points  []*qdrant.PointStruct
	upserts []*qdrant.UpsertPoints
	limit   uint64
}

func (f *fakeQdrant) CollectionExists(context.Context, string) (bool, error) { return f.exists, nil }

func (f *fakeQdrant) CreateCollection(_ context.Context, req *qdrant.CreateCollection) error {
	f.created, f.exists = req, true
	return nil
}

func (f *fakeQdrant) DeleteCollection(_ context.Context, name string) error {
	f.dropped, f.exists, f.points = name, false, nil
	return nil
}

func (f *fakeQdrant) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.upserts = append(f.upserts, req)
	f.points = append(f.points, req.Points...)
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeQdrant) Count(context.Context, *qdrant.CountPoints) (uint64, error) {
	return uint64(len(f.points)), nil
}

func (f *fakeQdrant) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.limit = req.GetLimit()
	out := make([]*qdrant.ScoredPoint, 0, len(f.points))
	for i := len(f.points) - 1; i >= 0; i-- {
		p := f.points[i]
		out = append(out, &qdrant.ScoredPoint{Id: p.Id, Payload: p.Payload, Score: 0.5})
	}
	return out, nil
}

func TestQdrantStore_Lifecycle(t *testing.T) {
	t.Parallel()

	api := &fakeQdrant{}
	ctx := context.Background()
	s, err := newQdrantStore(ctx, api, CollectionName("abc123"), 2)
	if err != nil {
		t.Fatalf("newQdrantStore: %v", err)
	}
	if api.created == nil || api.created.CollectionName != "finrag_abc123" {
		t.Fatalf("collection not created: %+v", api.created)
	}

	passages := []Passage{
		{ID: "0", Text: "revenue", Embedding: []float32{1, 0}},
		{ID: "1", Text: "margin", Embedding: []float32{0, 1}},
		{ID: "2", Text: "cash", Embedding: []float32{1, 1}},
	}
	if err := s.Insert(ctx, passages); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if len(api.upserts) != 1 || !api.upserts[0].GetWait() {
		t.Errorf("expected one waited upsert, got %d", len(api.upserts))
	}

	results, err := s.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if api.limit != 3 {
		t.Errorf("expected the whole collection to be fetched, limit = %d", api.limit)
	}
	if got := ids(results); !reflect.DeepEqual(got, []string{"0", "1"}) {
		t.Errorf("tied results must sort by ID, got %v", got)
	}
	if results[0].Text != "revenue" {
		t.Errorf("payload text not decoded: %+v", results[0])
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if api.dropped != "finrag_abc123" {
		t.Errorf("collection not dropped on Close")
	}
}

func TestQdrantStore_InsertValidation(t *testing.T) {
	t.Parallel()

	api := &fakeQdrant{exists: true}
	s, err := newQdrantStore(context.Background(), api, "c", 2)
	if err != nil {
		t.Fatal(err)
	}
	if api.created != nil {
		t.Error("existing collection must not be recreated")
	}
	if err := s.Insert(context.Background(), []Passage{{ID: "x", Embedding: []float32{1, 0}}}); err == nil {
		t.Error("expected error for non-numeric ID")
	}
	if err := s.Insert(context.Background(), []Passage{{ID: "0", Embedding: []float32{1}}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if len(api.upserts) != 0 {
		t.Error("invalid passages must not reach Qdrant")
	}
	if _, err := newQdrantStore(context.Background(), api, "c", 0); err == nil {
		t.Error("expected error for zero vector size")
	}
}

func TestCollectionName(t *testing.T) {
	t.Parallel()

	long := "0123456789abcdef0123456789abcdef0123456789abcdef"
	if got := CollectionName(long); got != "finrag_0123456789abcdef0123456789abcdef" {
		t.Errorf("CollectionName = %q", got)
	}
}
