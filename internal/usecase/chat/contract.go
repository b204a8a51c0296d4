package chat

import (
	"context"

	"github.com/lumen-skin/lumenkb/internal/domain/condition"
	"github.com/lumen-skin/lumenkb/internal/domain/document"
	"github.com/lumen-skin/lumenkb/internal/domain/query"
	"github.com/lumen-skin/lumenkb/internal/domain/result"
	"github.com/lumen-skin/lumenkb/internal/repository/analyses"
	"github.com/lumen-skin/lumenkb/internal/repository/chathistory"
)

// Model generates the assistant answer. Narrow consumer interface (ISP).
type Model interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Retriever answers knowledge queries for chat context.
type Retriever interface {
	Retrieve(ctx context.Context, q query.Query) ([]result.Result, error)
}

// History persists and reads conversation turns.
type History interface {
	Append(ctx context.Context, msg chathistory.Message) error
	History(ctx context.Context, userID, sessionID string, limit int) ([]chathistory.Message, error)
}

// Analyses reads the user's recent skin analyses.
type Analyses interface {
	Recent(ctx context.Context, userID string, limit int) ([]analyses.Record, error)
}

// Recommender surfaces articles for detected conditions.
type Recommender interface {
	Personalized(conditions []condition.Label, limit int) []document.Document
}
