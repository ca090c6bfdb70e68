package rag

import (
	"context"

	"github.com/qdrant/go-client/qdrant"
)

// StoreFactory opens the store of the document with the given fingerprint.
type StoreFactory func(ctx context.Context, fingerprint string) (Store, error)

// MemoryStores returns a factory of fresh [MemoryStore] values.
func MemoryStores() StoreFactory {
	return func(context.Context, string) (Store, error) {
		return NewMemoryStore(), nil
	}
}

// QdrantStores returns a factory of per-document [QdrantStore] values on a
// shared client.
func QdrantStores(client *qdrant.Client, dims int) StoreFactory {
	return func(ctx context.Context, fingerprint string) (Store, error) {
		return NewQdrantStore(ctx, client, CollectionName(fingerprint), dims)
	}
}
