package moneybird

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("moneybird API error (%d): %s", e.StatusCode, e.Message)
}

// IsAuthenticationError reports whether the token or administration was
// rejected.
func (e *APIError) IsAuthenticationError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *APIError) IsRateLimitError() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

type errorBody struct {
	Error any `json:"error"`
}

func newAPIError(r *resp, requestID string) *APIError {
	msg := http.StatusText(r.Code)
	var eb errorBody
	if err := json.Unmarshal(r.Body, &eb); err == nil {
		switch v := eb.Error.(type) {
		case string:
			if v != "" {
				msg = v
			}
		case map[string]any:
			if b, err := json.Marshal(v); err == nil {
				msg = string(b)
			}
		}
	}
	return &APIError{StatusCode: r.Code, Message: msg, RequestID: requestID}
}
