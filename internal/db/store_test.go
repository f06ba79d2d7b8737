package db

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/david/tender-scout/internal/models"
)

func TestUpsertSQL_MatchesColumns(t *testing.T) {
	stmt := upsertSQL()

	if !strings.Contains(stmt, "$16") || strings.Contains(stmt, "$17") {
		t.Fatalf("expected 16 placeholders: %s", stmt)
	}
	if strings.Contains(stmt, "external_id = EXCLUDED.external_id") {
		t.Fatalf("conflict key must not be updated: %s", stmt)
	}
	if !strings.Contains(stmt, "ON CONFLICT (external_id)") {
		t.Fatalf("missing conflict target: %s", stmt)
	}

	args := opportunityArgs(models.Opportunity{ExternalID: "a"})
	if len(args) != len(opportunityCols) {
		t.Fatalf("expected %d args, got %d", len(opportunityCols), len(args))
	}
}

func TestOpportunityArgs_NullsOptionalFields(t *testing.T) {
	args := opportunityArgs(models.Opportunity{ExternalID: "a"})
	if args[1].(*string) != nil || args[7].(*string) != nil {
		t.Fatal("empty ocid and buyer_ruc should be stored as NULL")
	}
	if args[10].(*time.Time) != nil || args[11].(*time.Time) != nil {
		t.Fatal("missing dates should be stored as NULL")
	}
}

func TestMigrationFiles_Ordered(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) < 2 || files[0] != "001_opportunities.sql" || files[1] != "002_kv_store.sql" {
		t.Fatalf("unexpected migrations %v", files)
	}
}

// TestStore_RoundTrip runs against a live database when TENDER_TEST_DATABASE_URL is set.
func TestStore_RoundTrip(t *testing.T) {
	url := os.Getenv("TENDER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TENDER_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if err := ApplyMigrations(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := NewStore(pool)
	start := models.NewDate(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	in := models.Opportunity{
		ExternalID: "test-roundtrip", Title: "Compra de laptops", Status: models.StatusActive,
		MainCategory: "Bienes", BudgetAmount: 1234.5, BudgetCurrency: "USD", TenderStartDate: start,
	}
	if _, err := store.UpsertOpportunities(ctx, []models.Opportunity{in}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	defer pool.Exec(ctx, "DELETE FROM opportunities WHERE external_id = $1", in.ExternalID)

	all, err := store.LoadOpportunities(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var found *models.Opportunity
	for i := range all {
		if all[i].ExternalID == in.ExternalID {
			found = &all[i]
		}
	}
	if found == nil {
		t.Fatal("upserted tender not returned")
	}
	if found.BudgetAmount != 1234.5 || found.TenderStartDate == nil || found.TenderStartDate.String() != "2025-01-10" {
		t.Fatalf("unexpected round trip %+v", found)
	}

	kv := NewKVStore(pool)
	if err := kv.Set(ctx, "test-key", "v1"); err != nil {
		t.Fatalf("kv set: %v", err)
	}
	defer pool.Exec(ctx, "DELETE FROM kv_store WHERE key = 'test-key'")
	if v, ok, err := kv.Get(ctx, "test-key"); err != nil || !ok || v != "v1" {
		t.Fatalf("kv get: %q %v %v", v, ok, err)
	}
	if _, ok, err := kv.Get(ctx, "missing-key"); err != nil || ok {
		t.Fatalf("expected miss, got %v %v", ok, err)
	}
}
