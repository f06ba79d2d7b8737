package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/tender-scout/internal/cache"
	"github.com/david/tender-scout/internal/filter"
	"github.com/david/tender-scout/internal/models"
	"github.com/david/tender-scout/internal/predict"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestFormatCommand(t *testing.T) {
	out, err := run(t, "format", "1.234,5x")
	require.NoError(t, err)
	assert.Contains(t, out, "value:     1234.50")
	assert.Contains(t, out, "display:   1.234,5")
	assert.Contains(t, out, "formatted: $1.234,50")
}

func TestListCommand(t *testing.T) {
	dir := t.TempDir()
	tenders := filepath.Join(dir, "tenders.json")
	body := `[
		{"external_id":"A","title":"Compra de laptops","status":"active","main_category":"Bienes","budget_amount":100},
		{"external_id":"B","title":"Servicio de limpieza","status":"complete","main_category":"Servicios","budget_amount":500},
		{"external_id":"C","title":"Obra vial","status":"active","main_category":"Obras","budget_amount":1000}
	]`
	require.NoError(t, os.WriteFile(tenders, []byte(body), 0o600))
	t.Setenv("TENDER_OPPORTUNITIES_PATH", tenders)

	out, err := run(t, "list", "--min", "200")
	require.NoError(t, err)
	assert.NotContains(t, out, "Compra de laptops")
	assert.Contains(t, out, "Servicio de limpieza")
	assert.Contains(t, out, "$1.000,00")
	assert.Contains(t, strings.ToLower(out), "2 shown")
	assert.Contains(t, strings.ToLower(out), "1 open / 1 closed")

	_, err = run(t, "list", "--category", "Consultoria")
	assert.Error(t, err)
}

func TestRenderOpportunitiesFooter(t *testing.T) {
	engine := filter.NewEngine([]models.Opportunity{
		{ExternalID: "A", Status: models.StatusActive, BudgetAmount: 10},
		{ExternalID: "B", Status: "unsuccessful", BudgetAmount: 10},
	})
	var out bytes.Buffer
	renderOpportunities(&out, engine)
	assert.Contains(t, strings.ToLower(out.String()), "2 shown")
	assert.Contains(t, strings.ToLower(out.String()), "1 open / 0 closed")
}

func TestRenderRecommendation(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, renderRecommendation(&out, cache.Recommendation{}))
	assert.Contains(t, out.String(), "No recommendations")

	out.Reset()
	require.NoError(t, renderRecommendation(&out, cache.Recommendation{
		Available:  true,
		FromCache:  true,
		Payload:    []byte(`{"top":["A"]}`),
		ValidUntil: time.Now().Add(time.Hour),
	}))
	assert.Contains(t, out.String(), "cached")
	assert.Contains(t, out.String(), `"top": [`)
}

func TestRenderPrediction(t *testing.T) {
	var out bytes.Buffer
	opp := models.Opportunity{Title: "Compra de laptops"}
	err := renderPrediction(&out, predict.Snapshot{
		State:        predict.StateCompleted,
		Opportunity:  &opp,
		BidAmount:    47500,
		ContractDays: 365,
		Result:       &predict.Result{Probability: 0.625, Recommendation: "Bid slightly lower."},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "$47.500,00")
	assert.Contains(t, out.String(), "62.5%")

	err = renderPrediction(&out, predict.Snapshot{State: predict.StateFailed, Error: "Server error (HTTP 502)."})
	assert.ErrorContains(t, err, "HTTP 502")
}
