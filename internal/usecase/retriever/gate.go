package retriever

import (
	"strings"

	"github.com/lumen-skin/lumenkb/internal/domain/condition"
	"github.com/lumen-skin/lumenkb/internal/metrics"
)

// Phrase tables for the retrieval gate. The gate is a binary decision made
// once per chat message: either knowledge retrieval runs for it or it
// doesn't. Pure small talk never pays the retrieval cost.

// historyPhrases signal a first-person reference to the user's own data.
var historyPhrases = []string{
	"my skin",
	"my analysis",
	"my scan",
	"my results",
	"my routine",
	"my progress",
	"previous",
	"last time",
	"last scan",
}

// advicePhrases signal a request for personalized guidance.
var advicePhrases = []string{
	"what should i",
	"what can i",
	"how do i",
	"how should i",
	"recommend",
	"suggest",
	"help me",
	"help with",
	"best for",
	"works for",
}

// identityPhrases ask about the coach itself. They carry no condition term
// and no first-person history reference, so without their own class they
// would fall through as small talk.
var identityPhrases = []string{
	"who are you",
	"what are you",
	"what can you do",
	"what do you do",
	"are you real",
	"are you a real",
	"are you a bot",
	"are you human",
	"are you an ai",
}

// questionWords mark an information-seeking message.
var questionWords = []string{
	"what", "why", "how", "when", "which", "where", "should", "can", "does", "is", "are",
}

// smallTalk is answered without retrieval.
var smallTalk = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yo": {},
	"thanks": {}, "thank you": {}, "thx": {}, "ty": {},
	"ok": {}, "okay": {}, "cool": {}, "great": {}, "nice": {},
	"yes": {}, "no": {}, "yep": {}, "nope": {}, "sure": {},
	"bye": {}, "goodbye": {}, "good morning": {}, "good night": {},
}

// ShouldRetrieve decides whether a chat message warrants knowledge
// retrieval. Greetings, confirmations, and other small talk bypass the
// knowledge base entirely.
func ShouldRetrieve(message string) bool {
	decision := shouldRetrieve(message)
	label := "bypass"
	if decision {
		label = "retrieve"
	}
	metrics.RAGGateDecisionsTotal.WithLabelValues(label).Inc()
	return decision
}

func shouldRetrieve(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	m = strings.TrimRight(m, ".!?")
	if m == "" {
		return false
	}
	if _, ok := smallTalk[m]; ok {
		return false
	}
	// Single-word messages that aren't a known condition carry no signal.
	if !strings.ContainsRune(m, ' ') && !condition.Known(m) {
		return false
	}

	for _, p := range historyPhrases {
		if strings.Contains(m, p) {
			return true
		}
	}
	for _, p := range advicePhrases {
		if strings.Contains(m, p) {
			return true
		}
	}
	for _, p := range identityPhrases {
		if strings.Contains(m, p) {
			return true
		}
	}

	// A condition term plus question phrasing is a knowledge question.
	if mentionsCondition(m) {
		for _, w := range questionWords {
			if strings.HasPrefix(m, w+" ") || strings.Contains(m, " "+w+" ") {
				return true
			}
		}
		// Condition mentioned in a multi-word message: still worth retrieving.
		return true
	}

	return false
}

func mentionsCondition(m string) bool {
	for _, term := range condition.Vocabulary() {
		// Vocabulary terms are canonical ("dark_circles"); chat text
		// spells them with spaces.
		spoken := strings.ReplaceAll(term, "_", " ")
		if strings.Contains(m, term) || strings.Contains(m, spoken) {
			return true
		}
	}
	return false
}
