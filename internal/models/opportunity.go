package models

// Status values the core understands. Anything else reported by the
// procurement source is carried through untouched.
const (
	StatusActive   = "active"
	StatusComplete = "complete"
)

// Categories is the fixed main-category enumeration used by the procurement portal.
var Categories = []string{"Bienes", "Servicios", "Obras"}

// Opportunity is a tender as loaded from the opportunity source. It is read-only
// once the collection has been loaded.
type Opportunity struct {
	ExternalID         string  `json:"external_id" yaml:"external_id"`
	OCID               string  `json:"ocid,omitempty" yaml:"ocid,omitempty"`
	Title              string  `json:"title" yaml:"title"`
	Description        string  `json:"description" yaml:"description"`
	Status             string  `json:"status" yaml:"status"`
	MainCategory       string  `json:"main_category" yaml:"main_category"`
	BuyerName          string  `json:"buyer_name" yaml:"buyer_name"`
	BuyerRUC           string  `json:"buyer_ruc,omitempty" yaml:"buyer_ruc,omitempty"`
	BudgetAmount       float64 `json:"budget_amount" yaml:"budget_amount"`
	BudgetCurrency     string  `json:"budget_currency" yaml:"budget_currency"`
	TenderStartDate    *Date   `json:"tender_start_date,omitempty" yaml:"tender_start_date,omitempty"`
	TenderEndDate      *Date   `json:"tender_end_date,omitempty" yaml:"tender_end_date,omitempty"`
	TenderDurationDays int     `json:"tender_duration_days" yaml:"tender_duration_days"`
	NumberOfTenderers  int     `json:"number_of_tenderers" yaml:"number_of_tenderers"`
	ProcedureType      string  `json:"procedure_type" yaml:"procedure_type"`
	HasEnquiries       bool    `json:"has_enquiries" yaml:"has_enquiries"`
}

// IsOpen reports whether the tender still accepts bids.
func (o Opportunity) IsOpen() bool {
	return o.Status == StatusActive
}

// IsClosed reports whether the tender process has finished. Unknown statuses are
// neither open nor closed.
func (o Opportunity) IsClosed() bool {
	return o.Status == StatusComplete
}

// ValidCategory reports whether c belongs to the category enumeration.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}
