// Package condition normalizes skin-condition labels so that classifier
// output and curated content tags compare against a single vocabulary.
package condition

import "strings"

// Label is a canonical skin-condition identifier: lowercase, with spaces
// and hyphens collapsed to underscores ("dark_circles", "hormonal_acne").
type Label string

// Normalize converts any raw spelling of a condition into its canonical
// form. "Dark-Circles", "dark circles" and "dark_circles" all map to the
// same Label.
func Normalize(raw string) Label {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return Label(strings.Trim(s, "_"))
}

// String returns the canonical label text.
func (l Label) String() string { return string(l) }

// IsZero reports whether the label is empty.
func (l Label) IsZero() bool { return l == "" }

// Matches reports whether the label and a document tag or keyword refer to
// the same concern. The containment check runs in both directions so that
// classifier vocabulary drift ("hormonal_acne" vs tag "acne") still matches.
func (l Label) Matches(tagOrKeyword string) bool {
	if l.IsZero() {
		return false
	}
	other := string(Normalize(tagOrKeyword))
	if other == "" {
		return false
	}
	return strings.Contains(string(l), other) || strings.Contains(other, string(l))
}

// synonyms maps canonical labels to alternate spellings the classifier or
// its callers are known to emit. Kept as data so the vocabulary can grow
// without touching match logic.
var synonyms = map[Label][]string{
	"acne":           {"hormonal_acne", "breakouts", "pimples"},
	"dry_skin":       {"dryness", "dehydrated_skin", "xerosis"},
	"dark_circles":   {"dark_circle", "eye_bags", "under_eye_circles"},
	"wrinkles":       {"fine_lines", "aging", "anti_aging"},
	"pigmentation":   {"hyperpigmentation", "dark_spots", "melasma"},
	"rosacea":        {"redness", "facial_redness"},
	"oily_skin":      {"oiliness", "excess_oil"},
	"sensitive_skin": {"sensitivity"},
}

// Canonical resolves a raw label through the synonym table. Unknown labels
// normalize but stay as-is, so new classifier classes degrade gracefully.
func Canonical(raw string) Label {
	l := Normalize(raw)
	if l.IsZero() {
		return l
	}
	for canon, alts := range synonyms {
		if l == canon {
			return canon
		}
		for _, alt := range alts {
			if l == Label(alt) {
				return canon
			}
		}
	}
	return l
}

// Known reports whether the label resolves to an entry in the synonym table.
func Known(raw string) bool {
	l := Normalize(raw)
	if _, ok := synonyms[l]; ok {
		return true
	}
	for _, alts := range synonyms {
		for _, alt := range alts {
			if l == Label(alt) {
				return true
			}
		}
	}
	return false
}

// Vocabulary returns every spelling the synonym table recognizes, canonical
// labels included. Used by the chat gate to spot named concerns in free text.
func Vocabulary() []string {
	out := make([]string, 0, len(synonyms)*3)
	for canon, alts := range synonyms {
		out = append(out, string(canon))
		out = append(out, alts...)
	}
	return out
}
