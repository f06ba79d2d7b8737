package predict

import (
	"math"
	"time"

	"github.com/david/tender-scout/internal/models"
)

type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateFailed     State = "failed"
)

// Terminal reports whether s ends a session.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

const (
	// SuggestedBidRatio seeds the bid just under the published budget.
	SuggestedBidRatio = 0.95
	// DefaultContractDays is used when the contract window is missing or inverted.
	DefaultContractDays = 365

	progressCeiling = 90.0
)

const (
	msgStarting    = "Starting analysis..."
	msgHistorical  = "Gathering historical data..."
	msgScoring     = "Running the scoring model..."
	msgNarrative   = "Composing the narrative recommendation..."
	msgDone        = "Analysis complete!"
	noticeCanceled = "Prediction cancelled. No credits were consumed."
)

// progressMessage maps a percentage to the stage shown to the user. Values at or
// above the ceiling keep the previous message.
func progressMessage(progress float64, previous string) string {
	switch {
	case progress < 30:
		return msgHistorical
	case progress < 60:
		return msgScoring
	case progress < progressCeiling:
		return msgNarrative
	}
	return previous
}

// Result is the terminal outcome of a successful prediction.
type Result struct {
	Probability    float64 `json:"probability"`
	Recommendation string  `json:"recommendation"`
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	State         State               `json:"state"`
	Opportunity   *models.Opportunity `json:"opportunity,omitempty"`
	BidAmount     float64             `json:"bid_amount"`
	BidText       string              `json:"bid_text"`
	ContractStart *models.Date        `json:"contract_start,omitempty"`
	ContractEnd   *models.Date        `json:"contract_end,omitempty"`
	ContractDays  int                 `json:"contract_days,omitempty"`
	Progress      float64             `json:"progress"`
	Message       string              `json:"message"`
	Result        *Result             `json:"result,omitempty"`
	Error         string              `json:"error,omitempty"`
	Notice        string              `json:"notice,omitempty"`
	CostIncurred  bool                `json:"cost_incurred"`
}

func (s Snapshot) clone() Snapshot {
	c := s
	if s.Opportunity != nil {
		o := *s.Opportunity
		c.Opportunity = &o
	}
	if s.ContractStart != nil {
		c.ContractStart = models.NewDate(s.ContractStart.Time)
	}
	if s.ContractEnd != nil {
		c.ContractEnd = models.NewDate(s.ContractEnd.Time)
	}
	if s.Result != nil {
		r := *s.Result
		c.Result = &r
	}
	return c
}

// ContractDays returns the whole days between start and end, rounded up. Missing,
// inverted or empty windows fall back to DefaultContractDays.
func ContractDays(start, end time.Time) int {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return DefaultContractDays
	}
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days == 0 {
		return DefaultContractDays
	}
	return days
}
