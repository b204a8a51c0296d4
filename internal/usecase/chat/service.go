// Package chat implements the Learning Hub coach: context-aware answers
// grounded in the user's analyses and the knowledge base.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-skin/lumenkb/internal/domain"
	"github.com/lumen-skin/lumenkb/internal/domain/condition"
	"github.com/lumen-skin/lumenkb/internal/domain/query"
	"github.com/lumen-skin/lumenkb/internal/domain/result"
	"github.com/lumen-skin/lumenkb/internal/repository/analyses"
	"github.com/lumen-skin/lumenkb/internal/repository/chathistory"
	"github.com/lumen-skin/lumenkb/internal/usecase/retriever"
)

const (
	systemPrompt = "You are Lumen's AI Skin Coach. Respond conversationally, cite relevant " +
		"knowledge sources inline using (Source: ...), and reference recent analyses or " +
		"recommended products when helpful. Keep answers under 3 short paragraphs."

	recentAnalysesLimit = 3
	snippetLimit        = 3
	snippetExcerptLimit = 180
	relatedArticleLimit = 3
	productRefLimit     = 3
	historyPageLimit    = 50
)

// Request is one user chat turn.
type Request struct {
	UserID    string
	SessionID string
	Message   string
}

// AnalysisSummary is the per-analysis context echoed back to the client.
type AnalysisSummary struct {
	Condition  string    `json:"condition"`
	Confidence float64   `json:"confidence"`
	CapturedAt time.Time `json:"captured_at"`
}

// ArticleRef points the client at related reading.
type ArticleRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url,omitempty"`
}

// ProductRef is a product suggestion carried over from the user's analyses.
type ProductRef struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// Response is the assistant's answer plus the context that shaped it.
type Response struct {
	Answer          string            `json:"response"`
	SessionID       string            `json:"session_id"`
	Sources         []result.Result   `json:"-"`
	RelatedArticles []ArticleRef      `json:"related_articles"`
	Products        []ProductRef      `json:"products"`
	AnalysisSummary []AnalysisSummary `json:"analysis_summary"`
	KnowledgeUsed   int               `json:"knowledge_used"`
	Fallback        bool              `json:"fallback"`
	Timestamp       time.Time         `json:"timestamp"`
}

// Service orchestrates one chat turn.
type Service struct {
	model     Model
	retriever Retriever
	history   History
	analyses  Analyses
	recommend Recommender
	logger    *zap.Logger
}

func NewService(
	model Model,
	ret Retriever,
	history History,
	analyses Analyses,
	recommend Recommender,
	logger *zap.Logger,
) *Service {
	return &Service{
		model:     model,
		retriever: ret,
		history:   history,
		analyses:  analyses,
		recommend: recommend,
		logger:    logger,
	}
}

// Chat answers one user message. The retrieval gate is evaluated exactly
// once per message; small talk is answered without touching the knowledge
// base. History writes are best-effort: a failed write never loses the
// answer.
func (s *Service) Chat(ctx context.Context, req Request) (Response, error) {
	message := strings.TrimSpace(req.Message)
	if req.UserID == "" || message == "" {
		return Response{}, fmt.Errorf("%w: user_id and message are required", domain.ErrMalformedQuery)
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	summaries, latest, products := s.recentAnalyses(ctx, req.UserID)

	var snippets []result.Result
	if retriever.ShouldRetrieve(message) {
		snippets = s.knowledgeSnippets(ctx, message, latest)
	}

	articles := s.relatedArticles(latest)

	now := time.Now().UTC()
	s.appendHistory(ctx, chathistory.Message{
		SessionID: sessionID,
		UserID:    req.UserID,
		Role:      "user",
		Content:   message,
		CreatedAt: now,
	})

	answer, usedFallback := s.answer(ctx, message, latest, summaries, snippets, articles, products)

	s.appendHistory(ctx, chathistory.Message{
		SessionID:   sessionID,
		UserID:      req.UserID,
		Role:        "assistant",
		Content:     answer,
		ArticleRefs: articleIDs(articles),
		Fallback:    usedFallback,
		CreatedAt:   now.Add(time.Millisecond),
	})

	return Response{
		Answer:          answer,
		SessionID:       sessionID,
		Sources:         snippets,
		RelatedArticles: articles,
		Products:        products,
		AnalysisSummary: summaries,
		KnowledgeUsed:   len(snippets),
		Fallback:        usedFallback,
		Timestamp:       now,
	}, nil
}

// HistoryFor returns the conversation transcript, oldest first.
func (s *Service) HistoryFor(ctx context.Context, userID, sessionID string) ([]chathistory.Message, error) {
	if userID == "" || sessionID == "" {
		return nil, fmt.Errorf("%w: user_id and session_id are required", domain.ErrMalformedQuery)
	}
	msgs, err := s.history.History(ctx, userID, sessionID, historyPageLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}

func (s *Service) recentAnalyses(ctx context.Context, userID string) ([]AnalysisSummary, condition.Label, []ProductRef) {
	records, err := s.analyses.Recent(ctx, userID, recentAnalysesLimit)
	if err != nil {
		s.logger.Warn("Unable to load analyses for chat context",
			zap.String("user_id", userID), zap.Error(err))
		return nil, "", nil
	}

	summaries := make([]AnalysisSummary, 0, len(records))
	var latest condition.Label
	for _, rec := range records {
		cond, score := rec.Dominant()
		if cond == "" {
			continue
		}
		if latest.IsZero() {
			latest = condition.Canonical(cond)
		}
		summaries = append(summaries, AnalysisSummary{
			Condition:  cond,
			Confidence: score / 100,
			CapturedAt: rec.CreatedAt,
		})
	}
	return summaries, latest, suggestedProducts(records)
}

// suggestedProducts takes the product list of the newest analysis that
// carries one. Records are newest first; a single analysis's suggestions
// stay together rather than being pooled across scans.
func suggestedProducts(records []analyses.Record) []ProductRef {
	for _, rec := range records {
		if len(rec.Products) == 0 {
			continue
		}
		prods := rec.Products
		if len(prods) > productRefLimit {
			prods = prods[:productRefLimit]
		}
		refs := make([]ProductRef, 0, len(prods))
		for _, p := range prods {
			if p.Name == "" {
				continue
			}
			refs = append(refs, ProductRef{
				Name:        p.Name,
				Category:    p.Category,
				Description: p.Description,
			})
		}
		if len(refs) > 0 {
			return refs
		}
	}
	return nil
}

func (s *Service) knowledgeSnippets(ctx context.Context, message string, latest condition.Label) []result.Result {
	text := message
	if !latest.IsZero() {
		text = retriever.ConditionQuery(latest) + ": " + message
	}
	q, err := query.New(text, query.DefaultNamespace, snippetLimit, nil)
	if err != nil {
		return nil
	}
	snippets, err := s.retriever.Retrieve(ctx, q)
	if err != nil {
		s.logger.Warn("Knowledge retrieval failed for chat", zap.Error(err))
		return nil
	}
	return snippets
}

func (s *Service) relatedArticles(latest condition.Label) []ArticleRef {
	if s.recommend == nil || latest.IsZero() {
		return nil
	}
	docs := s.recommend.Personalized([]condition.Label{latest}, relatedArticleLimit)
	refs := make([]ArticleRef, 0, len(docs))
	for i := range docs {
		refs = append(refs, ArticleRef{
			ID:     docs[i].ID(),
			Title:  docs[i].Title(),
			Source: docs[i].Source(),
			URL:    docs[i].URL(),
		})
	}
	return refs
}

func (s *Service) answer(
	ctx context.Context,
	message string,
	latest condition.Label,
	summaries []AnalysisSummary,
	snippets []result.Result,
	articles []ArticleRef,
	products []ProductRef,
) (string, bool) {
	prompt := buildPrompt(message, summaries, snippets, articles, products)

	answer, err := s.model.Complete(ctx, systemPrompt, prompt)
	if err == nil && strings.TrimSpace(answer) != "" {
		return answer, false
	}
	if err != nil {
		s.logger.Warn("Chat model unavailable, serving canned answer", zap.Error(err))
	}

	if len(summaries) == 0 {
		return noAnalysisFallback, true
	}
	return smartFallback(message, latest), true
}

func buildPrompt(message string, summaries []AnalysisSummary, snippets []result.Result, articles []ArticleRef, products []ProductRef) string {
	var blocks []string

	if len(summaries) > 0 {
		lines := make([]string, 0, len(summaries))
		for _, s := range summaries {
			lines = append(lines, fmt.Sprintf("- %s (confidence %d%%)", s.Condition, int(s.Confidence*100)))
		}
		blocks = append(blocks, "Recent analyses:\n"+strings.Join(lines, "\n"))
	}

	if len(products) > 0 {
		lines := make([]string, 0, len(products))
		for _, p := range products {
			line := "- " + p.Name
			if p.Category != "" {
				line += " (" + p.Category + ")"
			}
			if p.Description != "" {
				line += ": " + p.Description
			}
			lines = append(lines, line)
		}
		blocks = append(blocks, "Suggested products:\n"+strings.Join(lines, "\n"))
	}

	if len(snippets) > 0 {
		lines := make([]string, 0, len(snippets))
		for i := range snippets {
			summary := truncate(snippets[i].Summary(), snippetExcerptLimit)
			lines = append(lines, fmt.Sprintf("- %s: %s", snippets[i].Title(), summary))
		}
		blocks = append(blocks, "Knowledge base excerpts:\n"+strings.Join(lines, "\n"))
	}

	if len(articles) > 0 {
		n := len(articles)
		if n > 2 {
			n = 2
		}
		lines := make([]string, 0, n)
		for _, a := range articles[:n] {
			lines = append(lines, fmt.Sprintf("- %s (%s)", a.Title, a.Source))
		}
		blocks = append(blocks, "Related reading:\n"+strings.Join(lines, "\n"))
	}

	contextText := "No historical analyses were found."
	if len(blocks) > 0 {
		contextText = strings.Join(blocks, "\n\n")
	}
	return contextText + "\n\nUser question: " + message + "\n\nDeliver a concise, encouraging response."
}

func (s *Service) appendHistory(ctx context.Context, msg chathistory.Message) {
	if err := s.history.Append(ctx, msg); err != nil {
		s.logger.Warn("Failed to persist chat message",
			zap.String("session_id", msg.SessionID), zap.Error(err))
	}
}

// truncate caps s at n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func articleIDs(refs []ArticleRef) []string {
	if len(refs) == 0 {
		return nil
	}
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}
