package document

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/lumen-skin/lumenkb/internal/domain/condition"
)

func mustDoc(t *testing.T, id, title string, keywords, conds []string) Document {
	t.Helper()
	d, err := New(id, title, "", "body text", keywords, conds, "conditions", "Test Source", "", 0.5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "t", "", "", nil, nil, "", "", "", 0); err == nil {
		t.Error("expected error for missing id")
	}
	if _, err := New("1", "", "", "", nil, nil, "", "", "", 0); err == nil {
		t.Error("expected error for missing title")
	}
}

func TestNew_RelevanceClamped(t *testing.T) {
	d, err := New("1", "t", "", "", nil, nil, "", "", "", 1.5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.BaseRelevance() != 1 {
		t.Errorf("base relevance = %f, want clamped to 1", d.BaseRelevance())
	}
}

func TestSummary_TruncatesBody(t *testing.T) {
	long := strings.Repeat("x", SummaryDisplayLimit+50)
	d, err := New("1", "t", "", long, nil, nil, "", "", "", 0.5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := d.Summary()
	if len(s) != SummaryDisplayLimit+3 {
		t.Errorf("summary length = %d, want %d", len(s), SummaryDisplayLimit+3)
	}
	if !strings.HasSuffix(s, "...") {
		t.Error("truncated summary should end with ellipsis")
	}
}

func TestSummary_TruncatesOnRuneBoundary(t *testing.T) {
	// Two-byte runes guarantee the byte limit lands mid-rune.
	long := strings.Repeat("é", SummaryDisplayLimit)
	d, err := New("1", "t", "", long, nil, nil, "", "", "", 0.5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := d.Summary()
	if !utf8.ValidString(s) {
		t.Error("truncated summary contains a split rune")
	}
	if !strings.HasSuffix(s, "...") {
		t.Error("truncated summary should end with ellipsis")
	}
	if len(s) > SummaryDisplayLimit+3 {
		t.Errorf("summary length = %d, exceeds limit", len(s))
	}
}

func TestMatchesCondition_TargetConditions(t *testing.T) {
	d := mustDoc(t, "1", "Acne Guide", []string{"breakout"}, []string{"acne"})
	if !d.MatchesCondition(condition.Normalize("Hormonal Acne")) {
		t.Error("expected drifted label to match target condition")
	}
	if d.MatchesCondition(condition.Normalize("rosacea")) {
		t.Error("unrelated condition should not match")
	}
}

func TestMatchesCondition_Keywords(t *testing.T) {
	d := mustDoc(t, "2", "Retinoids", []string{"wrinkles", "aging"}, nil)
	if !d.MatchesCondition(condition.Normalize("wrinkles")) {
		t.Error("expected keyword match")
	}
}

func TestEmbeddingText_JoinsTitleAndBody(t *testing.T) {
	d := mustDoc(t, "1", "Title", nil, nil)
	if d.EmbeddingText() != "Title. body text" {
		t.Errorf("embedding text = %q", d.EmbeddingText())
	}
}
