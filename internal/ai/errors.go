package ai

import "errors"

// Analysis failures the API layer maps onto HTTP statuses. Provider errors
// that do not match one of these are wrapped in ErrProviderUnavailable.
var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrAnalysisTimeout     = errors.New("ai analysis timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
)
