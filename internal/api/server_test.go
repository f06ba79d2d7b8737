package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/tender-scout/internal/ai"
	"github.com/david/tender-scout/internal/cache"
	"github.com/david/tender-scout/internal/models"
	"github.com/david/tender-scout/internal/predict"
)

type stubSource struct {
	payload json.RawMessage
	calls   int
}

func (s *stubSource) FetchDaily(ctx context.Context) (json.RawMessage, error) {
	s.calls++
	return s.payload, nil
}

type stubPredictor struct {
	release chan struct{}
}

func (p *stubPredictor) Predict(ctx context.Context, req ai.PredictionRequest) (*ai.Prediction, error) {
	select {
	case <-p.release:
		return &ai.Prediction{WinProbability: 0.7, Recommendation: "Go for it."}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func fixtures() []models.Opportunity {
	return []models.Opportunity{
		{ExternalID: "A", Title: "Compra de laptops", Status: models.StatusActive, MainCategory: "Bienes", BudgetAmount: 100},
		{ExternalID: "B", Title: "Servicio de limpieza", Status: models.StatusComplete, MainCategory: "Servicios", BudgetAmount: 500},
		{ExternalID: "C", Title: "Obra vial", Status: models.StatusActive, MainCategory: "Obras", BudgetAmount: 1000},
	}
}

func newTestServer(t *testing.T) (*Server, *stubSource, *stubPredictor) {
	t.Helper()
	src := &stubSource{payload: json.RawMessage(`{"has_recommendations":true}`)}
	pred := &stubPredictor{release: make(chan struct{})}
	cfg := predict.DefaultConfig()
	cfg.TickInterval = time.Millisecond
	s := NewServer(Options{
		Opportunities: fixtures(),
		Daily:         cache.NewDaily(cache.NewMemoryStore(), src),
		Predictions:   predict.NewRegistry(pred, cfg),
	})
	return s, src, pred
}

func do(s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func ids(opps []models.Opportunity) []string {
	out := make([]string, len(opps))
	for i, o := range opps {
		out[i] = o.ExternalID
	}
	return out
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestListOpportunities(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		name       string
		query      string
		wantAll    []string
		wantOpen   []string
		wantClosed []string
		wantActive bool
	}{
		{name: "no filters", query: "", wantAll: []string{"A", "B", "C"}, wantOpen: []string{"A", "C"}, wantClosed: []string{"B"}},
		{name: "min budget", query: "?min_budget=200", wantAll: []string{"B", "C"}, wantOpen: []string{"C"}, wantClosed: []string{"B"}, wantActive: true},
		{name: "query", query: "?q=LAPTOP", wantAll: []string{"A"}, wantOpen: []string{"A"}, wantClosed: []string{}, wantActive: true},
		{name: "category", query: "?category=Servicios", wantAll: []string{"B"}, wantOpen: []string{}, wantClosed: []string{"B"}, wantActive: true},
		{name: "hide closed", query: "?show_closed=false", wantAll: []string{"A", "C"}, wantOpen: []string{"A", "C"}, wantClosed: []string{}},
		{name: "both hidden resets", query: "?show_open=false&show_closed=false", wantAll: []string{"A", "B", "C"}, wantOpen: []string{"A", "C"}, wantClosed: []string{"B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodGet, "/api/v1/opportunities"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp listResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantAll, ids(resp.Opportunities))
			assert.Equal(t, tt.wantOpen, ids(resp.Open))
			assert.Equal(t, tt.wantClosed, ids(resp.Closed))
			assert.Equal(t, 3, resp.Total)
			assert.Equal(t, tt.wantActive, resp.HasActiveFilters)
			assert.True(t, resp.Criteria.ShowOpen || resp.Criteria.ShowClosed)
		})
	}
}

func TestListOpportunitiesRejectsBadParams(t *testing.T) {
	s, _, _ := newTestServer(t)
	for _, q := range []string{"?min_budget=abc", "?max_budget=-1", "?show_open=maybe", "?category=Consultoria"} {
		rec := do(s, http.MethodGet, "/api/v1/opportunities"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetOpportunity(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(s, http.MethodGet, "/api/v1/opportunities/B", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var opp models.Opportunity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opp))
	assert.Equal(t, "Servicio de limpieza", opp.Title)

	rec = do(s, http.MethodGet, "/api/v1/opportunities/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDailyRecommendationsAreCached(t *testing.T) {
	s, src, _ := newTestServer(t)

	for i := 0; i < 2; i++ {
		rec := do(s, http.MethodGet, "/api/v1/recommendations/daily", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp cache.Recommendation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Available)
		assert.JSONEq(t, `{"has_recommendations":true}`, string(resp.Payload))
		assert.Equal(t, i == 1, resp.FromCache)
	}
	assert.Equal(t, 1, src.calls)
}

func TestNormalizeAmount(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(s, http.MethodPost, "/api/v1/amounts/normalize", `{"text":"1.234,5x"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp normalizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1234.5, resp.Value)
	assert.Equal(t, "1.234,5", resp.Display)
	assert.Equal(t, "1.234,50", resp.Formatted)
	assert.Equal(t, "$1.234,50", resp.Currency)
}

func TestPredictionLifecycle(t *testing.T) {
	s, _, pred := newTestServer(t)

	rec := do(s, http.MethodPost, "/api/v1/prediction/open", `{"opportunity_id":"C"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	surface := rec.Header().Get(SurfaceHeader)
	require.NotEmpty(t, surface, "a surface id should be minted")
	hdr := map[string]string{SurfaceHeader: surface}

	var snap predict.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, predict.StateIdle, snap.State)
	assert.Equal(t, 950.0, snap.BidAmount)

	rec = do(s, http.MethodPost, "/api/v1/prediction/start", `{"bid_amount_text":"900","contract_start":"2025-01-01","contract_end":"2025-03-02"}`, hdr)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, predict.StateRequesting, snap.State)
	assert.Equal(t, 900.0, snap.BidAmount)
	assert.Equal(t, 60, snap.ContractDays)

	close(pred.release)
	require.Eventually(t, func() bool {
		rec := do(s, http.MethodGet, "/api/v1/prediction", "", hdr)
		var got predict.Snapshot
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		return got.State == predict.StateCompleted
	}, time.Second, 5*time.Millisecond)

	rec = do(s, http.MethodGet, "/api/v1/prediction", "", hdr)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.NotNil(t, snap.Result)
	assert.Equal(t, 0.7, snap.Result.Probability)
	assert.True(t, snap.CostIncurred)

	rec = do(s, http.MethodDelete, "/api/v1/prediction", "", hdr)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.Predictions.Len())
}

func TestPredictionCancel(t *testing.T) {
	s, _, _ := newTestServer(t)
	hdr := map[string]string{SurfaceHeader: "tab-1"}

	rec := do(s, http.MethodPost, "/api/v1/prediction/cancel", "", hdr)
	assert.Equal(t, http.StatusConflict, rec.Code)

	do(s, http.MethodPost, "/api/v1/prediction/open", `{"opportunity_id":"A"}`, hdr)
	rec = do(s, http.MethodPost, "/api/v1/prediction/start", `{}`, hdr)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(s, http.MethodPost, "/api/v1/prediction/cancel", "", hdr)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap predict.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, predict.StateCancelled, snap.State)
	assert.False(t, snap.CostIncurred)
	assert.NotEmpty(t, snap.Notice)
	assert.Equal(t, "tab-1", rec.Header().Get(SurfaceHeader))
}

func TestPredictionValidation(t *testing.T) {
	s, _, _ := newTestServer(t)
	hdr := map[string]string{SurfaceHeader: "tab-2"}

	rec := do(s, http.MethodPost, "/api/v1/prediction/start", `{}`, hdr)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	do(s, http.MethodPost, "/api/v1/prediction/open", `{"opportunity_id":"A"}`, hdr)
	rec = do(s, http.MethodPost, "/api/v1/prediction/start", `{"bid_amount_text":"abc"}`, hdr)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"bid_amount"`)

	rec = do(s, http.MethodPost, "/api/v1/prediction/start", `{"contract_start":"soon"}`, hdr)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, http.MethodPost, "/api/v1/prediction/open", `{"opportunity_id":"nope"}`, hdr)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPredictionReadsDoNotCreateSessions(t *testing.T) {
	s, _, _ := newTestServer(t)

	for i := 0; i < 50; i++ {
		rec := do(s, http.MethodGet, "/api/v1/prediction", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var snap predict.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		assert.Equal(t, predict.StateIdle, snap.State)

		rec = do(s, http.MethodPost, "/api/v1/prediction/cancel", "", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = do(s, http.MethodPost, "/api/v1/prediction/start", `{}`, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	}
	assert.Equal(t, 0, s.Predictions.Len())

	do(s, http.MethodPost, "/api/v1/prediction/open", `{"opportunity_id":"A"}`, map[string]string{SurfaceHeader: "tab-3"})
	assert.Equal(t, 1, s.Predictions.Len())
}
