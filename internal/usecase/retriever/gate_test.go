package retriever

import "testing"

func TestShouldRetrieve(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"hi", false},
		{"Hello!", false},
		{"thanks", false},
		{"Thank you!", false},
		{"ok", false},
		{"yes", false},
		{"whatever", false},
		{"sunscreen", false}, // single word, not a known condition

		{"acne", true}, // single word, known condition
		{"What helps with wrinkles?", true},
		{"my skin has been really dry lately", true},
		{"what does my analysis say", true},
		{"can you recommend a moisturizer", true},
		{"how do I layer retinol", true},
		{"is niacinamide good for dark circles", true},
		{"tell me about my previous scan", true},
		{"dark circles under my eyes", true},

		{"who are you?", true},
		{"What can you do?", true},
		{"are you a real person?", true},
		{"are you a bot", true},
	}

	for _, tc := range cases {
		if got := ShouldRetrieve(tc.message); got != tc.want {
			t.Errorf("ShouldRetrieve(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestShouldRetrieve_EmptyMessage(t *testing.T) {
	if ShouldRetrieve("") {
		t.Error("empty message must bypass retrieval")
	}
	if ShouldRetrieve("   ") {
		t.Error("whitespace message must bypass retrieval")
	}
}
