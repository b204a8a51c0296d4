package retriever

import (
	"strings"

	"github.com/lumen-skin/lumenkb/internal/domain/condition"
)

// ConditionQuery builds retrieval query text for a detected condition, the
// same phrasing the knowledge base was tuned against.
func ConditionQuery(label condition.Label) string {
	if label.IsZero() {
		return ""
	}
	spoken := strings.ReplaceAll(string(condition.Canonical(string(label))), "_", " ")
	return "Evidence-based guidance for " + spoken
}
