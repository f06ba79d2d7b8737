package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/david/tender-scout/internal/models"
)

// TenderData is the tender snapshot the scoring model consumes.
type TenderData struct {
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	MainCategory        string  `json:"main_category"`
	BudgetAmount        float64 `json:"budget_amount"`
	BuyerName           string  `json:"buyer_name"`
	EligibilityCriteria string  `json:"eligibility_criteria"`
	NumberOfTenderers   int     `json:"number_of_tenderers"`
	TenderDurationDays  int     `json:"tender_duration_days"`
}

// NewTenderData builds the snapshot sent along with a bid.
func NewTenderData(o models.Opportunity) TenderData {
	eligibility := "Requisitos estándar"
	if o.HasEnquiries {
		eligibility = "Cumplir requisitos técnicos y legales"
	}
	return TenderData{
		Title:               o.Title,
		Description:         o.Description,
		MainCategory:        o.MainCategory,
		BudgetAmount:        o.BudgetAmount,
		BuyerName:           o.BuyerName,
		EligibilityCriteria: eligibility,
		NumberOfTenderers:   o.NumberOfTenderers,
		TenderDurationDays:  o.TenderDurationDays,
	}
}

type PredictionRequest struct {
	TenderData           TenderData `json:"tender_data"`
	BidAmount            float64    `json:"bid_amount"`
	ContractDurationDays int        `json:"contract_duration_days"`
}

type Prediction struct {
	WinProbability float64 `json:"predicted_win_probability"`
	Recommendation string  `json:"recommendation"`
}

// Predict asks the backend for the win probability of a bid and its narrative
// recommendation.
func (c *Client) Predict(ctx context.Context, req PredictionRequest) (*Prediction, error) {
	var p Prediction
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/participations/predict", req, &p); err != nil {
		return nil, err
	}
	if p.WinProbability < 0 || p.WinProbability > 1 {
		return nil, fmt.Errorf("win probability out of range: %v", p.WinProbability)
	}
	return &p, nil
}
