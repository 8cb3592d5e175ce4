package api

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decision-engine/internal/config"
	"decision-engine/internal/quick"
	"decision-engine/internal/scoring"
)

const clearDecision = "Should I take this urgent, life-changing job offer or stay?"

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	settings := config.Config{
		Server: config.ServerConfig{DBPath: filepath.Join(t.TempDir(), "decisions.db")},
		AI:     config.AIConfig{Provider: config.ProviderNone},
		Engine: config.EngineConfig{BatchParallelism: 2, DefaultMode: "local"},
	}
	server, err := NewServer(Config{Settings: settings, SilentDB: true, Random: rand.New(rand.NewPCG(1, 2))})
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })
	router, err := server.Router()
	require.NoError(t, err)
	return server, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndConfig(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "heuristic", cfg["provider"])
	assert.Equal(t, false, cfg["remote_enabled"])
	assert.InDelta(t, scoring.ActionableThreshold, cfg["actionable_threshold"], 1e-9)
	assert.NotEmpty(t, cfg["domains"])
}

func TestContextEndpoint(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/context", ContextRequest{Text: "buy a car"})
	require.Equal(t, http.StatusOK, rec.Code)
	stage := decode[map[string]interface{}](t, rec)
	verdict := stage["verdict"].(map[string]interface{})
	assert.Equal(t, false, verdict["valid"])
	assert.Equal(t, string(scoring.ReasonNeedsClarification), verdict["reason"])

	rec = doJSON(t, router, http.MethodPost, "/api/context", ContextRequest{Text: "buy a car", Importance: "low", Timeframe: "long"})
	require.Equal(t, http.StatusOK, rec.Code)
	stage = decode[map[string]interface{}](t, rec)
	assert.Equal(t, true, stage["overridden"])
	assert.Equal(t, true, stage["verdict"].(map[string]interface{})["valid"])

	rec = doJSON(t, router, http.MethodPost, "/api/context", ContextRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptionsEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	rec := doJSON(t, router, http.MethodPost, "/api/options", OptionsRequest{Text: "Should I learn guitar or piano?"})
	require.Equal(t, http.StatusOK, rec.Code)
	set := decode[struct {
		Options []scoring.Option `json:"options"`
		Source  string           `json:"source"`
	}](t, rec)
	require.Len(t, set.Options, 2)
	assert.Equal(t, "Learn guitar", set.Options[0].Name)
	assert.Equal(t, "heuristic", set.Source)
}

func TestScoreEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	options := []scoring.Option{
		{Name: "Guitar", Pros: []string{"portable"}, Cons: []string{"sore fingers", "tuning"}},
		{Name: "Piano", Pros: []string{"theory", "range"}, Cons: []string{"expensive"}},
	}
	rec := doJSON(t, router, http.MethodPost, "/api/score", ScoreRequest{Options: options})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ScoreResponse](t, rec)
	assert.Equal(t, 1, resp.RecommendedIndex)
	assert.Equal(t, "Piano", resp.Recommended)

	rec = doJSON(t, router, http.MethodPost, "/api/score", ScoreRequest{Options: options[:1]})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExplainEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	options := []scoring.Option{
		{Name: "Guitar", Pros: []string{"portable"}, Cons: []string{"sore fingers", "tuning"}},
		{Name: "Piano", Pros: []string{"theory", "range"}, Cons: []string{"expensive"}},
	}
	rec := doJSON(t, router, http.MethodPost, "/api/explain", ExplainRequest{Text: "Guitar or piano?", Options: options})
	require.Equal(t, http.StatusOK, rec.Code)
	explanation := decode[map[string]interface{}](t, rec)
	assert.Contains(t, explanation["text"], "Recommendation: Piano")
}

func TestAnalyzePersistsAndLists(t *testing.T) {
	_, router := newTestServer(t)
	selected := 1

	rec := doJSON(t, router, http.MethodPost, "/api/analyze", AnalyzeRequest{Text: clearDecision, SelectedIndex: &selected})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[AnalyzeResponse](t, rec)
	assert.NotEmpty(t, resp.ID)
	assert.True(t, resp.Valid)
	assert.Equal(t, "high", resp.Importance)
	assert.Equal(t, 0, resp.RecommendedIndex)
	require.NotNil(t, resp.AgreesWithChoice)
	assert.False(t, *resp.AgreesWithChoice)
	assert.Contains(t, resp.Explanation, "Recommendation:")

	rec = doJSON(t, router, http.MethodPost, "/api/analyze", AnalyzeRequest{Text: "buy a car"})
	require.Equal(t, http.StatusOK, rec.Code)
	gated := decode[AnalyzeResponse](t, rec)
	assert.False(t, gated.Valid)
	assert.Equal(t, string(scoring.ReasonNeedsClarification), gated.Reason)
	assert.Equal(t, -1, gated.RecommendedIndex)
	assert.NotEmpty(t, gated.Extraction.SuggestedQuestions)

	rec = doJSON(t, router, http.MethodGet, "/api/analyses?valid=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[AnalysesResponse](t, rec)
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Items, 1)
	assert.Equal(t, resp.ID, list.Items[0].ID)

	rec = doJSON(t, router, http.MethodGet, "/api/analyses/"+resp.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clearDecision, decode[AnalysisDTO](t, rec).Text)

	rec = doJSON(t, router, http.MethodDelete, "/api/analyses/"+resp.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/analyses/"+resp.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/analyze", AnalyzeRequest{
		Text:    "Should I learn guitar or piano?",
		Options: []scoring.Option{{Name: "Guitar", Pros: []string{"x"}}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	bad := -1
	rec = doJSON(t, router, http.MethodPost, "/api/analyze", AnalyzeRequest{Text: clearDecision, SelectedIndex: &bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	beyond := 99
	rec = doJSON(t, router, http.MethodPost, "/api/analyze", AnalyzeRequest{Text: clearDecision, SelectedIndex: &beyond})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "selected_index out of range")
	rec = doJSON(t, router, http.MethodGet, "/api/analyses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode[AnalysesResponse](t, rec).Total)

	rec = doJSON(t, router, http.MethodPost, "/api/analyze", AnalyzeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAnalyzeBatchEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	rec := doJSON(t, router, http.MethodPost, "/api/analyze/batch", BatchAnalyzeRequest{Items: []AnalyzeRequest{
		{Text: clearDecision},
		{Text: ""},
		{Text: "Should I learn guitar or piano?"},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[BatchAnalyzeResponse](t, rec)
	require.Len(t, resp.Items, 3)
	require.NotNil(t, resp.Items[0].Result)
	assert.True(t, resp.Items[0].Result.Valid)
	assert.Nil(t, resp.Items[1].Result)
	assert.Contains(t, resp.Items[1].Error, "text is required")
	require.NotNil(t, resp.Items[2].Result)

	rec = doJSON(t, router, http.MethodPost, "/api/analyze/batch", BatchAnalyzeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuickEndpoints(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/quick/coin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, []string{quick.Heads, quick.Tails}, decode[map[string]string](t, rec)["result"])

	rec = doJSON(t, router, http.MethodPost, "/api/quick/yesno", QuickRequest{Question: "Pizza tonight?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, quick.Answers, decode[map[string]string](t, rec)["answer"])

	rec = doJSON(t, router, http.MethodPost, "/api/quick/yesno", QuickRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/quick/number", QuickRequest{Min: 3, Max: 7})
	require.Equal(t, http.StatusOK, rec.Code)
	n := decode[map[string]int](t, rec)["result"]
	assert.GreaterOrEqual(t, n, 3)
	assert.LessOrEqual(t, n, 7)

	rec = doJSON(t, router, http.MethodPost, "/api/quick/number", QuickRequest{Min: 5, Max: 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/quick/number", QuickRequest{Min: -1, Max: math.MaxInt})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, decode[map[string]int](t, rec)["result"], -1)

	rec = doJSON(t, router, http.MethodPost, "/api/quick/pick", QuickRequest{Options: []string{"tea", " ", "coffee"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, []string{"tea", "coffee"}, decode[map[string]interface{}](t, rec)["result"])

	rec = doJSON(t, router, http.MethodPost, "/api/quick/pick", QuickRequest{Options: []string{"tea"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeStreamBroadcasts(t *testing.T) {
	server, router := newTestServer(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/analyze/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return server.notifier.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := doJSON(t, router, http.MethodPost, "/api/analyze", AnalyzeRequest{Text: clearDecision})
	require.Equal(t, http.StatusOK, rec.Code)
	id := decode[AnalyzeResponse](t, rec).ID

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event AnalysisEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, EventAnalysis, event.Type)
	assert.Equal(t, id, event.ID)
	require.NotNil(t, event.Analysis)
	assert.True(t, event.Analysis.Valid)
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	doJSON(t, router, http.MethodPost, "/api/analyze", AnalyzeRequest{Text: clearDecision})

	rec := doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `decide_analyses_total{mode="local",outcome="recommended"} 1`)
	assert.Contains(t, body, `decide_http_requests_total{route="/api/analyze",status="200"} 1`)
}
