package condition

import "testing"

func TestNormalize_SpellingsConverge(t *testing.T) {
	cases := []string{"Dark-Circles", "dark circles", "dark_circles", "  Dark Circles  "}
	for _, raw := range cases {
		if got := Normalize(raw); got != "dark_circles" {
			t.Errorf("Normalize(%q) = %q, want dark_circles", raw, got)
		}
	}
}

func TestNormalize_CollapsesSeparators(t *testing.T) {
	if got := Normalize("dry - skin"); got != "dry_skin" {
		t.Errorf("Normalize collapsed = %q, want dry_skin", got)
	}
	if got := Normalize(""); !got.IsZero() {
		t.Errorf("Normalize(\"\") = %q, want empty", got)
	}
}

func TestMatches_Bidirectional(t *testing.T) {
	l := Normalize("hormonal acne")
	if !l.Matches("acne") {
		t.Error("expected label containing keyword to match")
	}
	acne := Normalize("acne")
	if !acne.Matches("hormonal_acne") {
		t.Error("expected keyword containing label to match")
	}
	if acne.Matches("sunscreen") {
		t.Error("unrelated keyword should not match")
	}
	if (Label("")).Matches("acne") {
		t.Error("zero label should never match")
	}
}

func TestCanonical_SynonymTable(t *testing.T) {
	cases := map[string]Label{
		"Hormonal Acne":     "acne",
		"breakouts":         "acne",
		"Fine-Lines":        "wrinkles",
		"hyperpigmentation": "pigmentation",
		"eye bags":          "dark_circles",
		"dryness":           "dry_skin",
		"unknown_thing":     "unknown_thing",
	}
	for raw, want := range cases {
		if got := Canonical(raw); got != want {
			t.Errorf("Canonical(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestKnown(t *testing.T) {
	if !Known("eye bags") {
		t.Error("expected synonym to be known")
	}
	if Known("quantum flux") {
		t.Error("unexpected label reported as known")
	}
}

func TestVocabulary_ContainsCanonicalAndSynonyms(t *testing.T) {
	vocab := Vocabulary()
	want := map[string]bool{"acne": false, "hormonal_acne": false, "wrinkles": false}
	for _, v := range vocab {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for term, seen := range want {
		if !seen {
			t.Errorf("vocabulary missing %q", term)
		}
	}
}
