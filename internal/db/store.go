package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/david/tender-scout/internal/models"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// opportunityCols is shared by the select and upsert statements; keep the scan
// and argument order in sync with it.
var opportunityCols = []string{
	"external_id", "ocid", "title", "description", "status", "main_category",
	"buyer_name", "buyer_ruc", "budget_amount", "budget_currency",
	"tender_start_date", "tender_end_date", "tender_duration_days",
	"number_of_tenderers", "procedure_type", "has_enquiries",
}

func selectSQL() string {
	return fmt.Sprintf("SELECT %s FROM opportunities ORDER BY tender_start_date DESC NULLS LAST, external_id",
		strings.Join(opportunityCols, ", "))
}

func upsertSQL() string {
	placeholders := make([]string, len(opportunityCols))
	updates := make([]string, 0, len(opportunityCols))
	for i, col := range opportunityCols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "external_id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	updates = append(updates, "updated_at = NOW()")
	return fmt.Sprintf("INSERT INTO opportunities (%s) VALUES (%s) ON CONFLICT (external_id) DO UPDATE SET %s",
		strings.Join(opportunityCols, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))
}

func scanOpportunity(scan func(dest ...any) error) (models.Opportunity, error) {
	var o models.Opportunity
	var ocid, buyerRUC *string
	var start, end *time.Time

	err := scan(
		&o.ExternalID, &ocid, &o.Title, &o.Description, &o.Status, &o.MainCategory,
		&o.BuyerName, &buyerRUC, &o.BudgetAmount, &o.BudgetCurrency,
		&start, &end, &o.TenderDurationDays,
		&o.NumberOfTenderers, &o.ProcedureType, &o.HasEnquiries,
	)
	if err != nil {
		return o, err
	}

	if ocid != nil {
		o.OCID = *ocid
	}
	if buyerRUC != nil {
		o.BuyerRUC = *buyerRUC
	}
	if start != nil {
		o.TenderStartDate = models.NewDate(*start)
	}
	if end != nil {
		o.TenderEndDate = models.NewDate(*end)
	}
	return o, nil
}

func opportunityArgs(o models.Opportunity) []any {
	return []any{
		o.ExternalID, nullString(o.OCID), o.Title, o.Description, o.Status, o.MainCategory,
		o.BuyerName, nullString(o.BuyerRUC), o.BudgetAmount, o.BudgetCurrency,
		dateArg(o.TenderStartDate), dateArg(o.TenderEndDate), o.TenderDurationDays,
		o.NumberOfTenderers, o.ProcedureType, o.HasEnquiries,
	}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func dateArg(d *models.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// LoadOpportunities reads the whole tender collection.
func (s *Store) LoadOpportunities(ctx context.Context) ([]models.Opportunity, error) {
	rows, err := s.pool.Query(ctx, selectSQL())
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	var out []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertOpportunities writes opps in one batch and returns how many rows were written.
func (s *Store) UpsertOpportunities(ctx context.Context, opps []models.Opportunity) (int, error) {
	if len(opps) == 0 {
		return 0, nil
	}

	stmt := upsertSQL()
	batch := &pgx.Batch{}
	for _, o := range opps {
		batch.Queue(stmt, opportunityArgs(o)...)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for _, o := range opps {
		if _, err := results.Exec(); err != nil {
			return written, fmt.Errorf("upsert %s: %w", o.ExternalID, err)
		}
		written++
	}
	return written, nil
}

// CountByStatus reports how many tenders carry each status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, "SELECT status, COUNT(*) FROM opportunities GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count opportunities: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
