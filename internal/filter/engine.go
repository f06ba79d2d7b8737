package filter

import (
	"strings"

	"github.com/david/tender-scout/internal/models"
)

// Criteria is the user-driven filter state. MinBudget and MaxBudget are inclusive
// and nil when unset.
type Criteria struct {
	Query      string   `json:"q"`
	Category   string   `json:"category"`
	MinBudget  *float64 `json:"min_budget"`
	MaxBudget  *float64 `json:"max_budget"`
	ShowOpen   bool     `json:"show_open"`
	ShowClosed bool     `json:"show_closed"`
}

// DefaultCriteria matches everything.
func DefaultCriteria() Criteria {
	return Criteria{ShowOpen: true, ShowClosed: true}
}

// Patch is a partial update of Criteria. Nil fields are left untouched; the Clear*
// flags null out a bound.
type Patch struct {
	Query      *string
	Category   *string
	MinBudget  *float64
	MaxBudget  *float64
	ClearMin   bool
	ClearMax   bool
	ShowOpen   *bool
	ShowClosed *bool
}

// Toggle names one of the two status visibility switches.
type Toggle string

const (
	ToggleOpen   Toggle = "open"
	ToggleClosed Toggle = "closed"
)

// Engine derives views over a tender collection loaded once per session. The
// collection is shared read-only; the criteria belong to a single caller, so an
// Engine must not be mutated concurrently.
type Engine struct {
	all      []models.Opportunity
	criteria Criteria
}

func NewEngine(opps []models.Opportunity) *Engine {
	return &Engine{all: opps, criteria: DefaultCriteria()}
}

// Criteria returns a copy of the current criteria.
func (e *Engine) Criteria() Criteria {
	c := e.criteria
	c.MinBudget = copyFloat(c.MinBudget)
	c.MaxBudget = copyFloat(c.MaxBudget)
	return c
}

// SetCriteria merges p into the criteria.
func (e *Engine) SetCriteria(p Patch) {
	if p.Query != nil {
		e.criteria.Query = *p.Query
	}
	if p.Category != nil {
		e.criteria.Category = *p.Category
	}
	if p.ClearMin {
		e.criteria.MinBudget = nil
	} else if p.MinBudget != nil {
		e.criteria.MinBudget = copyFloat(p.MinBudget)
	}
	if p.ClearMax {
		e.criteria.MaxBudget = nil
	} else if p.MaxBudget != nil {
		e.criteria.MaxBudget = copyFloat(p.MaxBudget)
	}
	if p.ShowOpen != nil {
		e.criteria.ShowOpen = *p.ShowOpen
	}
	if p.ShowClosed != nil {
		e.criteria.ShowClosed = *p.ShowClosed
	}
	e.enforceToggles()
}

// ToggleStatus flips one visibility switch.
func (e *Engine) ToggleStatus(which Toggle) {
	switch which {
	case ToggleOpen:
		e.criteria.ShowOpen = !e.criteria.ShowOpen
	case ToggleClosed:
		e.criteria.ShowClosed = !e.criteria.ShowClosed
	}
	e.enforceToggles()
}

// Reset restores the default criteria.
func (e *Engine) Reset() {
	e.criteria = DefaultCriteria()
}

// HasActiveFilters reports whether query, category or a budget bound is set.
// The status toggles do not count.
func (e *Engine) HasActiveFilters() bool {
	c := e.criteria
	return c.Query != "" || c.Category != "" || c.MinBudget != nil || c.MaxBudget != nil
}

// Filtered returns the opportunities matching every criterion, in source order.
func (e *Engine) Filtered() []models.Opportunity {
	q := strings.ToLower(strings.TrimSpace(e.criteria.Query))
	result := make([]models.Opportunity, 0, len(e.all))
	for _, o := range e.all {
		if e.matches(o, q) {
			result = append(result, o)
		}
	}
	return result
}

// OpenSubset returns the filtered opportunities with status active.
func (e *Engine) OpenSubset() []models.Opportunity {
	return subset(e.Filtered(), models.Opportunity.IsOpen)
}

// ClosedSubset returns the filtered opportunities with status complete.
func (e *Engine) ClosedSubset() []models.Opportunity {
	return subset(e.Filtered(), models.Opportunity.IsClosed)
}

// Lookup finds an opportunity by external id in the full collection.
func (e *Engine) Lookup(id string) (models.Opportunity, bool) {
	for _, o := range e.all {
		if o.ExternalID == id {
			return o, true
		}
	}
	return models.Opportunity{}, false
}

func (e *Engine) matches(o models.Opportunity, q string) bool {
	c := e.criteria
	if q != "" && !containsFold(o.Title, q) && !containsFold(o.BuyerName, q) && !containsFold(o.ExternalID, q) {
		return false
	}
	if c.Category != "" && o.MainCategory != c.Category {
		return false
	}
	if c.MinBudget != nil && o.BudgetAmount < *c.MinBudget {
		return false
	}
	if c.MaxBudget != nil && o.BudgetAmount > *c.MaxBudget {
		return false
	}
	if !c.ShowOpen && o.IsOpen() {
		return false
	}
	if !c.ShowClosed && o.IsClosed() {
		return false
	}
	return true
}

// enforceToggles keeps at least one status visible: hiding both brings both back.
func (e *Engine) enforceToggles() {
	if !e.criteria.ShowOpen && !e.criteria.ShowClosed {
		e.criteria.ShowOpen = true
		e.criteria.ShowClosed = true
	}
}

func subset(opps []models.Opportunity, keep func(models.Opportunity) bool) []models.Opportunity {
	result := make([]models.Opportunity, 0, len(opps))
	for _, o := range opps {
		if keep(o) {
			result = append(result, o)
		}
	}
	return result
}

func containsFold(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
