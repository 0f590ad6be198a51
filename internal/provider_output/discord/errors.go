package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// APIError is a non-2xx response from the Discord API.
type APIError struct {
	StatusCode int
	Code       int    // Discord JSON error code, e.g. 10008 Unknown Message
	Message    string
	retryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("discord API error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("discord API error %d: %s", e.StatusCode, e.Message)
}

// RetryAfter is the wait requested by a 429 response.
func (e *APIError) RetryAfter() time.Duration { return e.retryAfter }

// IsNotFound reports whether err is a Discord 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func newAPIError(resp *http.Response, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body struct {
		Code       int     `json:"code"`
		Message    string  `json:"message"`
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Code = body.Code
		if body.Message != "" {
			apiErr.Message = body.Message
		}
		if body.RetryAfter > 0 {
			apiErr.retryAfter = time.Duration(body.RetryAfter * float64(time.Second))
		}
	} else if len(raw) > 0 {
		apiErr.Message = string(raw)
	}

	if apiErr.retryAfter == 0 {
		if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
			apiErr.retryAfter = time.Duration(secs * float64(time.Second))
		}
	}
	return apiErr
}
