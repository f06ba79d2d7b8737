package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/david/tender-scout/internal/ai"
)

var (
	ErrNoOpportunity   = errors.New("no tender selected")
	ErrRequestInFlight = errors.New("a prediction is already running")
	ErrEmptyResponse   = errors.New("prediction service returned no result")
)

// ValidationError is a local input problem. It never changes the session state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Classify turns a prediction failure into the message shown to the user.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ai.ErrUnreachable) {
		return "Cannot reach the backend. Check that the prediction service is running."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The prediction service did not answer in time."
	}

	var httpErr *ai.HTTPError
	if errors.As(err, &httpErr) {
		if len(httpErr.Detail) > 0 {
			return "Server error: " + detailText(httpErr.Detail)
		}
		return fmt.Sprintf("Server error (HTTP %d).", httpErr.StatusCode)
	}

	return err.Error()
}

// detailText unwraps string details and leaves structured ones as JSON.
func detailText(detail json.RawMessage) string {
	var s string
	if err := json.Unmarshal(detail, &s); err == nil {
		return s
	}
	return string(detail)
}
