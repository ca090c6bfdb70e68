package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host defaults to localhost.
	Host string
	// Port is the gRPC port, default 6334.
	Port   int
	APIKey string
	UseTLS bool
}

// NewQdrantClient opens a gRPC client. One client is shared by every
// document's store and closed by the caller at shutdown.
func NewQdrantClient(cfg QdrantConfig) (*qdrant.Client, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}
	return client, nil
}

// qdrantAPI is the subset of *qdrant.Client used by QdrantStore.
type qdrantAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

const payloadText = "text"

// QdrantStore keeps one document's passages in its own collection. The
// collection is dropped on Close.
type QdrantStore struct {
	client     qdrantAPI
	collection string
	dims       uint64

	mu   sync.Mutex
	size int
}

// NewQdrantStore creates the collection if it does not exist.
func NewQdrantStore(ctx context.Context, client *qdrant.Client, collection string, dims int) (*QdrantStore, error) {
	if client == nil {
		return nil, errors.New("qdrant: client must not be nil")
	}
	return newQdrantStore(ctx, client, collection, dims)
}

func newQdrantStore(ctx context.Context, client qdrantAPI, collection string, dims int) (*QdrantStore, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("qdrant: invalid vector size %d", dims)
	}
	s := &QdrantStore{client: client, collection: collection, dims: uint64(dims), size: -1}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// CollectionName derives the collection of a document fingerprint.
func CollectionName(fingerprint string) string {
	if len(fingerprint) > 32 {
		fingerprint = fingerprint[:32]
	}
	return "finrag_" + fingerprint
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dims,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	s.mu.Lock()
	s.size = int(n)
	s.mu.Unlock()
	return int(n), nil
}

// Insert upserts every passage in a single waited request.
func (s *QdrantStore) Insert(ctx context.Context, passages []Passage) error {
	points := make([]*qdrant.PointStruct, 0, len(passages))
	for _, p := range passages {
		id, err := strconv.ParseUint(p.ID, 10, 64)
		if err != nil {
			return fmt.Errorf("qdrant: passage ID %q is not numeric: %w", p.ID, err)
		}
		if uint64(len(p.Embedding)) != s.dims {
			return fmt.Errorf("%w: passage %s has %d values, collection has %d",
				ErrDimensionMismatch, p.ID, len(p.Embedding), s.dims)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(id),
			Vectors: qdrant.NewVectors(p.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{payloadText: p.Text}),
		})
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	}); err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	s.mu.Lock()
	s.size = -1
	s.mu.Unlock()
	return nil
}

// Search fetches every stored point and ranks locally, so that ties are
// broken by passage ID rather than by server order.
func (s *QdrantStore) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}
	s.mu.Lock()
	size := s.size
	s.mu.Unlock()
	if size < 0 {
		n, err := s.Count(ctx)
		if err != nil {
			return nil, err
		}
		size = n
	}
	limit := uint64(max(k, size))

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	results := make([]Result, 0, len(points))
	for _, p := range points {
		r := Result{Score: p.GetScore()}
		r.ID = strconv.FormatUint(p.GetId().GetNum(), 10)
		if v, ok := p.GetPayload()[payloadText]; ok {
			r.Text = v.GetStringValue()
		}
		results = append(results, r)
	}
	return rank(results, k), nil
}

// Close drops the collection.
func (s *QdrantStore) Close() error {
	if err := s.client.DeleteCollection(context.Background(), s.collection); err != nil {
		return fmt.Errorf("qdrant: failed to drop collection %q: %w", s.collection, err)
	}
	return nil
}
