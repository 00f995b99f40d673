package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrNotFound matches any 404 from the API
	ErrNotFound = errors.New("client: not found")

	ErrUnauthorized = errors.New("client: unauthorized")
	ErrForbidden    = errors.New("client: forbidden")

	// ErrRejected matches a 400, the server refused the input
	ErrRejected = errors.New("client: request rejected")
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

// APIError is a non-2xx answer from the API
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api error %d: %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Is lets callers compare against the status sentinels with errors.Is
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrRejected:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

func newAPIError(resp *resty.Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		e.Message = body.Error
		e.Details = body.Details
	} else {
		e.Message = http.StatusText(resp.StatusCode())
	}
	return e
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
