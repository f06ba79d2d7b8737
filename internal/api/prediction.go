package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/david/tender-scout/internal/models"
	"github.com/david/tender-scout/internal/predict"
)

type openRequest struct {
	OpportunityID string `json:"opportunity_id"`
}

type startRequest struct {
	BidAmountText *string  `json:"bid_amount_text"`
	BidAmount     *float64 `json:"bid_amount"`
	ContractStart *string  `json:"contract_start"`
	ContractEnd   *string  `json:"contract_end"`
}

func (r startRequest) options() (predict.StartOptions, error) {
	opts := predict.StartOptions{BidText: r.BidAmountText, BidAmount: r.BidAmount}
	parse := func(raw *string) (*time.Time, error) {
		if raw == nil || *raw == "" {
			return nil, nil
		}
		d, err := models.ParseDate(*raw)
		if err != nil {
			return nil, err
		}
		return &d.Time, nil
	}
	var err error
	if opts.ContractStart, err = parse(r.ContractStart); err != nil {
		return opts, err
	}
	if opts.ContractEnd, err = parse(r.ContractEnd); err != nil {
		return opts, err
	}
	return opts, nil
}

func (s *Server) handleOpenPrediction(c echo.Context) error {
	var req openRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	opp, ok := s.byID[req.OpportunityID]
	if !ok {
		return errorJSON(c, http.StatusNotFound, "Not found")
	}

	wf := s.Predictions.Get(surfaceID(c))
	wf.Open(opp)
	return c.JSON(http.StatusOK, wf.Snapshot())
}

func (s *Server) handleStartPrediction(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	opts, err := req.options()
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	wf, ok := s.Predictions.Lookup(surfaceID(c))
	if !ok {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"error":   (&predict.ValidationError{Field: "opportunity", Message: predict.ErrNoOpportunity.Error()}).Error(),
			"field":   "opportunity",
			"session": predict.Snapshot{State: predict.StateIdle},
		})
	}
	if err := wf.Start(c.Request().Context(), opts); err != nil {
		var verr *predict.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{
				"error":   verr.Error(),
				"field":   verr.Field,
				"session": wf.Snapshot(),
			})
		}
		c.Logger().Errorf("Failed to start prediction: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal Server Error")
	}
	return c.JSON(http.StatusAccepted, wf.Snapshot())
}

// Only open creates a session; other calls on an unknown surface see an idle one.
func (s *Server) handleGetPrediction(c echo.Context) error {
	wf, ok := s.Predictions.Lookup(surfaceID(c))
	if !ok {
		return c.JSON(http.StatusOK, predict.Snapshot{State: predict.StateIdle})
	}
	return c.JSON(http.StatusOK, wf.Snapshot())
}

func (s *Server) handleCancelPrediction(c echo.Context) error {
	wf, ok := s.Predictions.Lookup(surfaceID(c))
	if !ok {
		return c.JSON(http.StatusConflict, map[string]any{
			"error":   "No prediction is running",
			"session": predict.Snapshot{State: predict.StateIdle},
		})
	}
	if !wf.Cancel() {
		return c.JSON(http.StatusConflict, map[string]any{
			"error":   "No prediction is running",
			"session": wf.Snapshot(),
		})
	}
	return c.JSON(http.StatusOK, wf.Snapshot())
}

func (s *Server) handleReleasePrediction(c echo.Context) error {
	s.Predictions.Release(surfaceID(c))
	return c.NoContent(http.StatusNoContent)
}
