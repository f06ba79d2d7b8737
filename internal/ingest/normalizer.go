package ingest

import (
	"html"
	"log"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/david/tender-scout/internal/models"
)

const defaultCurrency = "USD"

// statusAliases maps the portal's localized labels onto the two statuses the
// filter engine understands.
var statusAliases = map[string]string{
	"abierta": models.StatusActive,
	"cerrada": models.StatusComplete,
}

var stripTags = bluemonday.StrictPolicy()

// Report summarizes one normalization pass.
type Report struct {
	Loaded     int
	Duplicates int
	Invalid    int
}

// Normalize cleans every record and drops the ones the filter engine cannot
// hold: records without an identifier or with an unusable budget, and repeated
// identifiers (the first occurrence wins).
func Normalize(raw []models.Opportunity) ([]models.Opportunity, Report) {
	var report Report
	seen := make(map[string]struct{}, len(raw))
	out := make([]models.Opportunity, 0, len(raw))

	for i := range raw {
		opp := raw[i]
		NormalizeOpportunity(&opp)

		if opp.ExternalID == "" {
			log.Printf("[ingest] record %d skipped: missing external_id", i)
			report.Invalid++
			continue
		}
		if opp.BudgetAmount < 0 || math.IsNaN(opp.BudgetAmount) || math.IsInf(opp.BudgetAmount, 0) {
			log.Printf("[ingest] %s skipped: invalid budget %v", opp.ExternalID, opp.BudgetAmount)
			report.Invalid++
			continue
		}
		if _, dup := seen[opp.ExternalID]; dup {
			report.Duplicates++
			continue
		}
		seen[opp.ExternalID] = struct{}{}
		out = append(out, opp)
	}

	report.Loaded = len(out)
	log.Printf("[ingest] loaded %d tenders (%d duplicates, %d invalid)", report.Loaded, report.Duplicates, report.Invalid)
	return out, report
}

// NormalizeOpportunity cleans and standardizes a record in place.
func NormalizeOpportunity(opp *models.Opportunity) {
	opp.ExternalID = strings.TrimSpace(opp.ExternalID)
	opp.OCID = strings.TrimSpace(opp.OCID)
	opp.Title = cleanText(opp.Title)
	opp.Description = plainText(opp.Description)
	opp.BuyerName = cleanText(opp.BuyerName)
	opp.BuyerRUC = strings.TrimSpace(opp.BuyerRUC)
	opp.ProcedureType = cleanText(opp.ProcedureType)
	opp.MainCategory = cleanText(opp.MainCategory)

	status := strings.TrimSpace(opp.Status)
	if status == "" {
		status = models.StatusActive
	}
	if alias, ok := statusAliases[strings.ToLower(status)]; ok {
		status = alias
	}
	opp.Status = status

	opp.BudgetCurrency = strings.ToUpper(strings.TrimSpace(opp.BudgetCurrency))
	if opp.BudgetCurrency == "" {
		opp.BudgetCurrency = defaultCurrency
	}

	if opp.NumberOfTenderers < 0 {
		opp.NumberOfTenderers = 0
	}
	if opp.TenderDurationDays <= 0 && opp.TenderStartDate != nil && opp.TenderEndDate != nil {
		days := int(math.Ceil(opp.TenderEndDate.Sub(opp.TenderStartDate.Time).Hours() / 24))
		if days > 0 {
			opp.TenderDurationDays = days
		}
	}
}

// plainText strips any markup from portal descriptions and collapses whitespace.
func plainText(s string) string {
	return cleanText(html.UnescapeString(stripTags.Sanitize(sanitizeUTF8(s))))
}
