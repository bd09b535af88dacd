package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnavailable wraps transport failures and calls refused by the open breaker.
var ErrUnavailable = errors.New("backend unavailable")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

// IsClientError reports a 4xx answer, i.e. the backend rejected the request itself.
func IsClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

const maxErrorBody = 4 << 10

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{Status: resp.StatusCode, Detail: errorDetail(resp.StatusCode, body)}
}

// errorDetail extracts {"detail": ...}. The detail is a string for handled errors and a
// list of objects for request validation failures.
func errorDetail(status int, body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var s string
		if json.Unmarshal(envelope.Detail, &s) == nil {
			return s
		}
		var compact bytes.Buffer
		if json.Compact(&compact, envelope.Detail) == nil {
			return compact.String()
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	return http.StatusText(status)
}
