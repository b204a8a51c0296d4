package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/lumen-skin/lumenkb/internal/domain"
)

func TestNew_Defaults(t *testing.T) {
	q, err := New("what helps with wrinkles", "", 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Namespace() != DefaultNamespace {
		t.Errorf("namespace = %q, want %q", q.Namespace(), DefaultNamespace)
	}
	if q.TopK() != DefaultTopK {
		t.Errorf("topK = %d, want %d", q.TopK(), DefaultTopK)
	}
}

func TestNew_EmptyTextRejected(t *testing.T) {
	_, err := New("", "knowledge-base", 5, nil)
	if err == nil {
		t.Fatal("expected error for empty query text")
	}
	if !errors.Is(err, domain.ErrMalformedQuery) {
		t.Errorf("expected ErrMalformedQuery, got %v", err)
	}
}

func TestNew_NegativeTopKRejected(t *testing.T) {
	_, err := New("acne", "", -1, nil)
	if !errors.Is(err, domain.ErrMalformedQuery) {
		t.Errorf("expected ErrMalformedQuery for negative top_k, got %v", err)
	}
}

func TestNew_TopKClamped(t *testing.T) {
	q, err := New("acne", "", MaxTopK+100, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.TopK() != MaxTopK {
		t.Errorf("topK = %d, want clamped to %d", q.TopK(), MaxTopK)
	}
}

func TestNew_TooLongRejected(t *testing.T) {
	_, err := New(strings.Repeat("a", MaxQueryLength+1), "", 5, nil)
	if !errors.Is(err, domain.ErrMalformedQuery) {
		t.Errorf("expected ErrMalformedQuery for oversized text, got %v", err)
	}
}

func TestNew_FilterPreserved(t *testing.T) {
	f := map[string]string{"condition": "acne"}
	q, err := New("treatment", "user-patterns", 3, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Filter()["condition"] != "acne" {
		t.Errorf("filter not preserved: %v", q.Filter())
	}
	if q.Namespace() != "user-patterns" {
		t.Errorf("namespace = %q, want user-patterns", q.Namespace())
	}
}
