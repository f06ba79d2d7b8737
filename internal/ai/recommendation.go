package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

var ErrRecommendationUnavailable = errors.New("recommendation source reported failure")

type dailyResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// FetchDaily retrieves today's recommendation payload. The payload is opaque to
// this service and is passed through as-is.
func (c *Client) FetchDaily(ctx context.Context) (json.RawMessage, error) {
	var resp dailyResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/recommendations/daily", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, ErrRecommendationUnavailable
	}
	return resp.Data, nil
}
