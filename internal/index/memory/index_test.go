package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestQuery_RanksByCosineSimilarity(t *testing.T) {
	idx := New()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "kb", "near", []float32{1, 0, 0}, nil); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert(ctx, "kb", "far", []float32{0, 1, 0}, nil); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert(ctx, "kb", "mid", []float32{1, 1, 0}, nil); err != nil {
		t.Fatal(err)
	}

	matches, err := idx.Query(ctx, "kb", []float32{1, 0, 0}, 3, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	if matches[0].ID != "near" || matches[1].ID != "mid" || matches[2].ID != "far" {
		t.Errorf("wrong order: %s, %s, %s", matches[0].ID, matches[1].ID, matches[2].ID)
	}
}

func TestQuery_EmptyNamespace(t *testing.T) {
	idx := New()
	matches, err := idx.Query(context.Background(), "empty", []float32{1, 0}, 5, nil)
	if err != nil {
		t.Fatalf("empty namespace must not error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches, want 0", len(matches))
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	idx := New()
	ctx := context.Background()

	for n := 0; n < 3; n++ {
		if err := idx.Upsert(ctx, "kb", "doc", []float32{1, 0}, nil); err != nil {
			t.Fatal(err)
		}
	}
	if idx.Count("kb") != 1 {
		t.Errorf("count = %d, want 1 after repeated upserts of same id", idx.Count("kb"))
	}

	if err := idx.Upsert(ctx, "kb", "doc", []float32{0, 1}, nil); err != nil {
		t.Fatal(err)
	}
	matches, err := idx.Query(ctx, "kb", []float32{0, 1}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if matches[0].Score < 0.99 {
		t.Errorf("upsert did not replace vector, score = %f", matches[0].Score)
	}
}

func TestQuery_FilterAppliedBeforeTruncation(t *testing.T) {
	idx := New()
	ctx := context.Background()

	// High scorers without the wanted tag, one lower scorer with it.
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("other-%d", i)
		if err := idx.Upsert(ctx, "kb", id, []float32{1, 0}, map[string]string{"category": "other"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.Upsert(ctx, "kb", "wanted", []float32{1, 1}, map[string]string{"category": "conditions"}); err != nil {
		t.Fatal(err)
	}

	matches, err := idx.Query(ctx, "kb", []float32{1, 0}, 2, map[string]string{"category": "conditions"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != "wanted" {
		t.Errorf("filter must run before top-k: %+v", matches)
	}
}

func TestQuery_TieBreakIsInsertionOrder(t *testing.T) {
	idx := New()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := idx.Upsert(ctx, "kb", id, []float32{1, 0}, nil); err != nil {
			t.Fatal(err)
		}
	}
	for n := 0; n < 5; n++ {
		matches, err := idx.Query(ctx, "kb", []float32{1, 0}, 3, nil)
		if err != nil {
			t.Fatal(err)
		}
		if matches[0].ID != "c" || matches[1].ID != "a" || matches[2].ID != "b" {
			t.Fatalf("equal scores must keep insertion order: %+v", matches)
		}
	}
}

func TestDelete_AbsentIDIgnored(t *testing.T) {
	idx := New()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "kb", "doc", []float32{1, 0}, nil); err != nil {
		t.Fatal(err)
	}
	if err := idx.Delete(ctx, "kb", []string{"doc", "ghost"}); err != nil {
		t.Fatalf("delete with absent id must not error: %v", err)
	}
	if idx.Count("kb") != 0 {
		t.Errorf("count = %d, want 0", idx.Count("kb"))
	}
}

func TestNamespaceIsolation_Concurrent(t *testing.T) {
	idx := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			ns := fmt.Sprintf("ns-%d", w%2)
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("w%d-doc-%d", w, i)
				if err := idx.Upsert(ctx, ns, id, []float32{float32(i), 1}, nil); err != nil {
					t.Error(err)
					return
				}
				if _, err := idx.Query(ctx, ns, []float32{1, 1}, 5, nil); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := idx.Count("ns-0") + idx.Count("ns-1"); got != 400 {
		t.Errorf("total entries = %d, want 400", got)
	}
	matches, err := idx.Query(ctx, "ns-0", []float32{1, 1}, 500, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range matches {
		if m.ID[:2] != "w0" && m.ID[:2] != "w2" && m.ID[:2] != "w4" && m.ID[:2] != "w6" {
			t.Errorf("entry %q leaked across namespaces", m.ID)
		}
	}
}
