package carrier

import (
	"errors"
	"fmt"
)

var ErrNoUSPSRates = errors.New("no USPS rates available")

// APIError is a non-2xx answer from the carrier API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("carrier api error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("carrier api error (%d %s): %s", e.StatusCode, e.Code, e.Message)
}

// PurchaseError is the single failure type of the label purchase path.
type PurchaseError struct {
	Err error
}

func (e *PurchaseError) Error() string {
	return "failed to create shipment: " + e.Err.Error()
}

func (e *PurchaseError) Unwrap() error { return e.Err }

// errorCode extracts the carrier error code for logging, if any.
func errorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
