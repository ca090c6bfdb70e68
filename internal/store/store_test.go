package store

import (
	"context"
	"fmt"
	"testing"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Store_AppendAndRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "fp-a", "What was revenue growth?", "Revenue grew 5%."); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := s.Recent(ctx, "fp-a", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Fingerprint != "fp-a" || e.Question != "What was revenue growth?" || e.Summary != "Revenue grew 5%." {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func Test_Store_RecentLimitRespected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for i := range 6 {
		if err := s.Append(ctx, "fp-b", fmt.Sprintf("q%d", i), "s"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := s.Recent(ctx, "fp-b", 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("want 4 entries, got %d", len(entries))
	}
	// The newest four, oldest-first.
	if entries[0].Question != "q2" || entries[3].Question != "q5" {
		t.Errorf("want q2..q5, got %s..%s", entries[0].Question, entries[3].Question)
	}
}

func Test_Store_DocumentIsolation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "fp-x", "from x", "sx"); err != nil {
		t.Fatalf("append x: %v", err)
	}
	if err := s.Append(ctx, "fp-y", "from y", "sy"); err != nil {
		t.Fatalf("append y: %v", err)
	}

	x, err := s.Recent(ctx, "fp-x", 10)
	if err != nil {
		t.Fatalf("recent x: %v", err)
	}
	y, err := s.Recent(ctx, "fp-y", 10)
	if err != nil {
		t.Fatalf("recent y: %v", err)
	}
	if len(x) != 1 || x[0].Question != "from x" {
		t.Errorf("document x isolation failed: got %v", x)
	}
	if len(y) != 1 || y[0].Question != "from y" {
		t.Errorf("document y isolation failed: got %v", y)
	}
}

func Test_Store_EmptyDocumentReturnsEmpty(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	entries, err := s.Recent(context.Background(), "fp-empty", 10)
	if err != nil {
		t.Fatalf("recent empty: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("want empty non-nil slice, got %v", entries)
	}
}

func Test_Store_OldestFirstOrdering(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	questions := []string{"first", "second", "third"}
	for _, q := range questions {
		if err := s.Append(ctx, "fp-order", q, "s"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := s.Recent(ctx, "fp-order", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	for i, want := range questions {
		if entries[i].Question != want {
			t.Errorf("entry[%d]: want %q, got %q", i, want, entries[i].Question)
		}
	}
}

func Test_Store_Ping(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}
