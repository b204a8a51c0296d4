// Package chi exposes the retrieval and Learning Hub services over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lumen-skin/lumenkb/internal/domain"
	"github.com/lumen-skin/lumenkb/internal/domain/document"
	"github.com/lumen-skin/lumenkb/internal/domain/query"
	"github.com/lumen-skin/lumenkb/internal/domain/result"
	"github.com/lumen-skin/lumenkb/internal/repository/chathistory"
	"github.com/lumen-skin/lumenkb/internal/usecase/chat"
	healthuc "github.com/lumen-skin/lumenkb/internal/usecase/health"
	"github.com/lumen-skin/lumenkb/internal/usecase/merge"
	"github.com/lumen-skin/lumenkb/internal/usecase/recommend"
	"github.com/lumen-skin/lumenkb/internal/usecase/routine"
)

// Error codes returned to clients.
const (
	codeBadRequest    = "bad_request"
	codeNotFound      = "not_found"
	codeUpstreamError = "upstream_error"
	codeInternalError = "internal_error"
)

// errorResponse is the uniform error payload.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Retriever answers knowledge queries.
type Retriever interface {
	Retrieve(ctx context.Context, q query.Query) ([]result.Result, error)
}

// Chatter runs Learning Hub conversations.
type Chatter interface {
	Chat(ctx context.Context, req chat.Request) (chat.Response, error)
	HistoryFor(ctx context.Context, userID, sessionID string) ([]chathistory.Message, error)
}

// Recommender serves the discovery surfaces.
type Recommender interface {
	ForUser(ctx context.Context, userID string) (recommend.Recommendations, error)
	Browse(category, queryText string, limit int) []document.Document
	Suggest(prefix string, limit int) []string
}

// RoutineBuilder generates skincare plans.
type RoutineBuilder interface {
	Generate(req routine.Request) (routine.Plan, error)
}

// Ingester writes documents into the vector index.
type Ingester interface {
	IndexDocument(ctx context.Context, namespace, id string) error
	Remove(ctx context.Context, namespace string, ids []string) error
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Corpus supplies the curated fallback articles for quota fill.
type Corpus interface {
	Fallback() []document.Document
}

// Server wires HTTP routes to the use case services.
type Server struct {
	retriever     Retriever
	chat          Chatter
	recommend     Recommender
	routines      RoutineBuilder
	ingest        Ingester
	health        HealthChecker
	corpus        Corpus
	namespace     string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. namespace is the index partition
// document writes default to.
func NewServer(
	retriever Retriever,
	chatSvc Chatter,
	recommendSvc Recommender,
	routines RoutineBuilder,
	ingest Ingester,
	health HealthChecker,
	corpus Corpus,
	namespace string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retriever: retriever,
		chat:      chatSvc,
		recommend: recommendSvc,
		routines:  routines,
		ingest:    ingest,
		health:    health,
		corpus:    corpus,
		namespace: namespace,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrMalformedQuery, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrChatModelUnavailable, http.StatusBadGateway, codeUpstreamError),
	}
	return s
}

// Routes registers all handlers on the router.
func (s *Server) Routes(r chirouter.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chirouter.Router) {
		r.Post("/search", s.Search)

		r.Route("/learning-hub", func(r chirouter.Router) {
			r.Post("/chat", s.Chat)
			r.Get("/chat-history", s.ChatHistory)
			r.Get("/recommendations", s.Recommendations)
			r.Get("/articles", s.Articles)
			r.Get("/suggestions", s.Suggestions)
			r.Post("/routines/generate", s.GenerateRoutine)
		})

		r.Put("/documents/{id}", s.UpsertDocument)
		r.Delete("/documents/{id}", s.DeleteDocument)
	})
}

// --- Search ---

type searchRequest struct {
	Query     string            `json:"query"`
	Namespace string            `json:"namespace"`
	TopK      int               `json:"top_k"`
	Filter    map[string]string `json:"filter"`
}

type searchItem struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Strategy string            `json:"strategy"`
	Title    string            `json:"title"`
	Summary  string            `json:"summary"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type searchResponse struct {
	Items []searchItem `json:"items"`
	Total int          `json:"total"`
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	q, err := query.New(req.Query, req.Namespace, req.TopK, req.Filter)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	results, err := s.retriever.Retrieve(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	merged := merge.Merge([][]result.Result{results}, q.TopK(), s.fallbackResults())

	items := make([]searchItem, len(merged))
	for i := range merged {
		items[i] = searchItem{
			ID:       merged[i].ID(),
			Score:    merged[i].Score(),
			Strategy: string(merged[i].Origin()),
			Title:    merged[i].Title(),
			Summary:  merged[i].Summary(),
			Source:   merged[i].Source(),
			Metadata: merged[i].Metadata(),
		}
	}
	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: len(items)})
}

// fallbackResults converts the curated articles into quota-fill entries.
func (s *Server) fallbackResults() []result.Result {
	if s.corpus == nil {
		return nil
	}
	docs := s.corpus.Fallback()
	out := make([]result.Result, 0, len(docs))
	for i := range docs {
		out = append(out, result.New(
			docs[i].ID(), 0, result.StrategyKeyword,
			docs[i].Title(), docs[i].Summary(), docs[i].Source(),
			map[string]string{"category": docs[i].Category(), "url": docs[i].URL()},
		))
	}
	return out
}

// --- Learning Hub ---

type chatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Chat handles POST /api/v1/learning-hub/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := s.chat.Chat(r.Context(), chat.Request{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChatHistory handles GET /api/v1/learning-hub/chat-history.
func (s *Server) ChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	sessionID := r.URL.Query().Get("session_id")

	msgs, err := s.chat.HistoryFor(r.Context(), userID, sessionID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"count":    len(msgs),
	})
}

type articleItem struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Summary        string  `json:"summary"`
	Category       string  `json:"category"`
	Source         string  `json:"source"`
	URL            string  `json:"url,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Recommendations handles GET /api/v1/learning-hub/recommendations.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "user_id is required")
		return
	}

	recs, err := s.recommend.ForUser(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	articles := recs.Articles
	fallbackUsed := false
	if len(articles) == 0 && s.corpus != nil {
		articles = s.corpus.Fallback()
		fallbackUsed = true
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"recommendations":     articlesToItems(articles),
		"based_on_conditions": recs.BasedOnConditions,
		"total_analyses":      recs.TotalAnalyses,
		"condition_matches":   recs.ConditionMatches,
		"fallback":            fallbackUsed,
	})
}

// Articles handles GET /api/v1/learning-hub/articles.
func (s *Server) Articles(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	queryText := r.URL.Query().Get("query")
	limit := queryInt(r, "limit", 0)

	docs := s.recommend.Browse(category, queryText, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"articles": articlesToItems(docs),
		"total":    len(docs),
	})
}

// Suggestions handles GET /api/v1/learning-hub/suggestions.
func (s *Server) Suggestions(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 0)

	suggestions := s.recommend.Suggest(prefix, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": suggestions,
	})
}

type routineRequest struct {
	UserID  string             `json:"user_id"`
	Metrics map[string]float64 `json:"metrics"`
	Budget  string             `json:"budget"`
}

// GenerateRoutine handles POST /api/v1/learning-hub/routines/generate.
func (s *Server) GenerateRoutine(w http.ResponseWriter, r *http.Request) {
	var req routineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	plan, err := s.routines.Generate(routine.Request{
		UserID:  req.UserID,
		Metrics: req.Metrics,
		Budget:  req.Budget,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// --- Documents ---

type upsertDocumentRequest struct {
	Namespace string `json:"namespace"`
}

// UpsertDocument handles PUT /api/v1/documents/{id}: (re-)indexes a corpus
// article into the vector index.
func (s *Server) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")

	var req upsertDocumentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}
	namespace := req.Namespace
	if namespace == "" {
		namespace = s.namespace
	}

	if err := s.ingest.IndexDocument(r.Context(), namespace, id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "namespace": namespace})
}

// DeleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")
	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		namespace = s.namespace
	}

	if err := s.ingest.Remove(r.Context(), namespace, []string{id}); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Operational ---

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":      report.Status,
		"checks":      report.Checks,
		"corpus_size": report.CorpusSize,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Helpers ---

func articlesToItems(docs []document.Document) []articleItem {
	items := make([]articleItem, len(docs))
	for i := range docs {
		items[i] = articleItem{
			ID:             docs[i].ID(),
			Title:          docs[i].Title(),
			Summary:        docs[i].Summary(),
			Category:       docs[i].Category(),
			Source:         docs[i].Source(),
			URL:            docs[i].URL(),
			RelevanceScore: docs[i].BaseRelevance(),
		}
	}
	return items
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrMalformedQuery,
		domain.ErrNotFound,
		domain.ErrEmbeddingProviderError,
		domain.ErrChatModelUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
