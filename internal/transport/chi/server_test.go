package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lumen-skin/lumenkb/internal/domain"
	"github.com/lumen-skin/lumenkb/internal/domain/document"
	"github.com/lumen-skin/lumenkb/internal/domain/query"
	"github.com/lumen-skin/lumenkb/internal/domain/result"
	"github.com/lumen-skin/lumenkb/internal/repository/chathistory"
	"github.com/lumen-skin/lumenkb/internal/usecase/chat"
	healthuc "github.com/lumen-skin/lumenkb/internal/usecase/health"
	"github.com/lumen-skin/lumenkb/internal/usecase/recommend"
	"github.com/lumen-skin/lumenkb/internal/usecase/routine"
)

// --- Mocks ---

type mockRetriever struct {
	results []result.Result
	err     error
}

func (m *mockRetriever) Retrieve(_ context.Context, _ query.Query) ([]result.Result, error) {
	return m.results, m.err
}

type mockChatter struct {
	resp     chat.Response
	err      error
	messages []chathistory.Message
}

func (m *mockChatter) Chat(_ context.Context, req chat.Request) (chat.Response, error) {
	if req.UserID == "" || strings.TrimSpace(req.Message) == "" {
		return chat.Response{}, fmt.Errorf("%w: user_id and message are required", domain.ErrMalformedQuery)
	}
	return m.resp, m.err
}

func (m *mockChatter) HistoryFor(_ context.Context, userID, sessionID string) ([]chathistory.Message, error) {
	if userID == "" || sessionID == "" {
		return nil, fmt.Errorf("%w: user_id and session_id are required", domain.ErrMalformedQuery)
	}
	return m.messages, nil
}

type mockRecommender struct {
	recs        recommend.Recommendations
	browsed     []document.Document
	suggestions []string
}

func (m *mockRecommender) ForUser(_ context.Context, _ string) (recommend.Recommendations, error) {
	return m.recs, nil
}

func (m *mockRecommender) Browse(_, _ string, _ int) []document.Document { return m.browsed }

func (m *mockRecommender) Suggest(_ string, _ int) []string { return m.suggestions }

type mockRoutines struct{}

func (m *mockRoutines) Generate(req routine.Request) (routine.Plan, error) {
	if req.UserID == "" || len(req.Metrics) == 0 {
		return routine.Plan{}, fmt.Errorf("%w: user_id and metrics required", domain.ErrMalformedQuery)
	}
	return routine.Plan{ExpectedTimeline: "4-6 weeks"}, nil
}

type mockIngester struct {
	indexed []string
	removed []string
	err     error
}

func (m *mockIngester) IndexDocument(_ context.Context, _, id string) error {
	if m.err != nil {
		return m.err
	}
	m.indexed = append(m.indexed, id)
	return nil
}

func (m *mockIngester) Remove(_ context.Context, _ string, ids []string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, ids...)
	return nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type mockCorpus struct {
	fallback []document.Document
}

func (m *mockCorpus) Fallback() []document.Document { return m.fallback }

func mustDoc(t *testing.T, id, title string) document.Document {
	t.Helper()
	doc, err := document.New(id, title, "summary", "body", nil, nil, "General", "Test", "", 0.8)
	if err != nil {
		t.Fatalf("build document: %v", err)
	}
	return doc
}

type serverMocks struct {
	retriever *mockRetriever
	chatter   *mockChatter
	recomm    *mockRecommender
	ingester  *mockIngester
	health    *mockHealth
	corpus    *mockCorpus
}

func newTestServer(t *testing.T) (*chirouter.Mux, *serverMocks) {
	t.Helper()
	m := &serverMocks{
		retriever: &mockRetriever{},
		chatter:   &mockChatter{},
		recomm:    &mockRecommender{},
		ingester:  &mockIngester{},
		health:    &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
		corpus:    &mockCorpus{},
	}
	srv := NewServer(
		m.retriever, m.chatter, m.recomm, &mockRoutines{}, m.ingester,
		m.health, m.corpus, "knowledge-base", zap.NewNop(),
	)
	r := chirouter.NewRouter()
	srv.Routes(r)
	return r, m
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestSearch_ReturnsResults(t *testing.T) {
	r, m := newTestServer(t)
	m.retriever.results = []result.Result{
		result.New("1", 0.91, result.StrategyVector, "Acne", "about acne", "AAD", nil),
	}

	rr := doJSON(t, r, "POST", "/api/v1/search", `{"query":"acne help","top_k":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Items[0].ID != "1" || resp.Items[0].Strategy != "vector" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSearch_FallbackFillsQuota(t *testing.T) {
	r, m := newTestServer(t)
	m.retriever.results = []result.Result{
		result.New("1", 0.91, result.StrategyVector, "Acne", "", "AAD", nil),
	}
	m.corpus.fallback = []document.Document{
		mustDoc(t, "kb-101", "Skincare Fundamentals"),
		mustDoc(t, "kb-203", "Reading Labels"),
	}

	rr := doJSON(t, r, "POST", "/api/v1/search", `{"query":"acne help","top_k":3}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 {
		t.Fatalf("total = %d, want 3 (fallback fill)", resp.Total)
	}
	if resp.Items[1].ID != "kb-101" || resp.Items[2].ID != "kb-203" {
		t.Errorf("fallback order broken: %+v", resp.Items)
	}
}

func TestSearch_EmptyQuery_400(t *testing.T) {
	r, _ := newTestServer(t)

	rr := doJSON(t, r, "POST", "/api/v1/search", `{"query":""}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSearch_InvalidBody_400(t *testing.T) {
	r, _ := newTestServer(t)

	rr := doJSON(t, r, "POST", "/api/v1/search", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSearch_UpstreamError_502(t *testing.T) {
	r, m := newTestServer(t)
	m.retriever.err = fmt.Errorf("embed: %w", domain.ErrEmbeddingProviderError)

	rr := doJSON(t, r, "POST", "/api/v1/search", `{"query":"acne"}`)
	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rr.Code)
	}

	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatal(err)
	}
	if errResp.Code != codeUpstreamError {
		t.Errorf("code = %q, want %q", errResp.Code, codeUpstreamError)
	}
}

func TestChat(t *testing.T) {
	r, m := newTestServer(t)
	m.chatter.resp = chat.Response{Answer: "Use salicylic acid.", SessionID: "s1"}

	rr := doJSON(t, r, "POST", "/api/v1/learning-hub/chat",
		`{"user_id":"u1","message":"what helps with acne?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["response"] != "Use salicylic acid." || resp["session_id"] != "s1" {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestChat_MissingUser_400(t *testing.T) {
	r, _ := newTestServer(t)

	rr := doJSON(t, r, "POST", "/api/v1/learning-hub/chat", `{"message":"hi"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestChatHistory(t *testing.T) {
	r, m := newTestServer(t)
	m.chatter.messages = []chathistory.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}

	rr := doJSON(t, r, "GET", "/api/v1/learning-hub/chat-history?user_id=u1&session_id=s1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}

func TestChatHistory_MissingSession_400(t *testing.T) {
	r, _ := newTestServer(t)

	rr := doJSON(t, r, "GET", "/api/v1/learning-hub/chat-history?user_id=u1", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestRecommendations(t *testing.T) {
	r, m := newTestServer(t)
	m.recomm.recs = recommend.Recommendations{
		Articles:          []document.Document{mustDoc(t, "1", "Acne Basics")},
		BasedOnConditions: []string{"acne"},
		TotalAnalyses:     2,
		ConditionMatches:  map[string]int{"acne": 3},
	}

	rr := doJSON(t, r, "GET", "/api/v1/learning-hub/recommendations?user_id=u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp struct {
		Recommendations []articleItem `json:"recommendations"`
		Fallback        bool          `json:"fallback"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Recommendations) != 1 || resp.Recommendations[0].ID != "1" {
		t.Errorf("unexpected recommendations: %+v", resp.Recommendations)
	}
	if resp.Fallback {
		t.Error("fallback must be false when matches exist")
	}
}

func TestRecommendations_EmptyFallsBack(t *testing.T) {
	r, m := newTestServer(t)
	m.corpus.fallback = []document.Document{mustDoc(t, "kb-101", "Skincare Fundamentals")}

	rr := doJSON(t, r, "GET", "/api/v1/learning-hub/recommendations?user_id=u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp struct {
		Recommendations []articleItem `json:"recommendations"`
		Fallback        bool          `json:"fallback"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Fallback || len(resp.Recommendations) != 1 {
		t.Errorf("expected curated fallback, got %+v", resp)
	}
}

func TestRecommendations_MissingUser_400(t *testing.T) {
	r, _ := newTestServer(t)

	rr := doJSON(t, r, "GET", "/api/v1/learning-hub/recommendations", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestArticles(t *testing.T) {
	r, m := newTestServer(t)
	m.recomm.browsed = []document.Document{mustDoc(t, "2", "Retinoids")}

	rr := doJSON(t, r, "GET", "/api/v1/learning-hub/articles?category=Ingredients", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp struct {
		Articles []articleItem `json:"articles"`
		Total    int           `json:"total"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Articles[0].Title != "Retinoids" {
		t.Errorf("unexpected articles: %+v", resp)
	}
}

func TestSuggestions(t *testing.T) {
	r, m := newTestServer(t)
	m.recomm.suggestions = []string{"retinol", "retinoid"}

	rr := doJSON(t, r, "GET", "/api/v1/learning-hub/suggestions?q=reti", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Suggestions) != 2 || resp.Suggestions[0] != "retinol" {
		t.Errorf("unexpected suggestions: %v", resp.Suggestions)
	}
}

func TestGenerateRoutine(t *testing.T) {
	r, _ := newTestServer(t)

	rr := doJSON(t, r, "POST", "/api/v1/learning-hub/routines/generate",
		`{"user_id":"u1","metrics":{"acne_level":75}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var plan routine.Plan
	if err := json.NewDecoder(rr.Body).Decode(&plan); err != nil {
		t.Fatal(err)
	}
	if plan.ExpectedTimeline != "4-6 weeks" {
		t.Errorf("timeline = %q", plan.ExpectedTimeline)
	}
}

func TestGenerateRoutine_NoMetrics_400(t *testing.T) {
	r, _ := newTestServer(t)

	rr := doJSON(t, r, "POST", "/api/v1/learning-hub/routines/generate", `{"user_id":"u1"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestUpsertDocument(t *testing.T) {
	r, m := newTestServer(t)

	rr := doJSON(t, r, "PUT", "/api/v1/documents/1", `{"namespace":"custom"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	if len(m.ingester.indexed) != 1 || m.ingester.indexed[0] != "1" {
		t.Errorf("indexed = %v", m.ingester.indexed)
	}
}

func TestUpsertDocument_UnknownID_404(t *testing.T) {
	r, m := newTestServer(t)
	m.ingester.err = fmt.Errorf("%w: article %q", domain.ErrNotFound, "nope")

	rr := doJSON(t, r, "PUT", "/api/v1/documents/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestDeleteDocument_204(t *testing.T) {
	r, m := newTestServer(t)

	rr := doJSON(t, r, "DELETE", "/api/v1/documents/1", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	if len(m.ingester.removed) != 1 || m.ingester.removed[0] != "1" {
		t.Errorf("removed = %v", m.ingester.removed)
	}
}

func TestHealthCheck(t *testing.T) {
	r, m := newTestServer(t)
	m.health.report = healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}

	rr := doJSON(t, r, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestHealthCheck_Degraded_503(t *testing.T) {
	r, m := newTestServer(t)
	m.health.report = healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckError},
	}

	rr := doJSON(t, r, "GET", "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}
