package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when a bounded retry policy gives up.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled while a
	// request is in flight or the executor is waiting to retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrNoCredentials is returned when the credential provider yields no token.
	ErrNoCredentials = errors.New("no bearer token available")
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 4096

// APIError is a non-success response from the vendor API.
type APIError struct {
	Endpoint    string
	StatusCode  int
	Disposition Disposition
	Message     string
	Body        []byte
	Err         error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s error (status %d): %s: %v",
			e.Endpoint, e.Disposition, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s error (status %d): %s",
		e.Endpoint, e.Disposition, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a Fatal classification.
func IsFatal(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Disposition == Fatal
}

// IsRetryExhausted reports whether err is the result of a bounded retry policy giving up.
func IsRetryExhausted(err error) bool {
	return errors.Is(err, ErrRetryExhausted)
}

// newAPIError builds an APIError from an outcome, extracting the vendor's
// problem title/detail when the body carries one.
func newAPIError(endpoint string, out Outcome) *APIError {
	body := out.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	apiErr := &APIError{
		Endpoint:    endpoint,
		StatusCode:  out.StatusCode,
		Disposition: out.Disposition,
		Message:     problemMessage(body),
		Body:        body,
		Err:         out.Err,
	}
	if apiErr.Message == "" {
		if out.Err != nil {
			apiErr.Message = "transport error"
		} else {
			apiErr.Message = string(body)
		}
	}
	return apiErr
}

// problemMessage extracts a human-readable message from a vendor error body.
func problemMessage(body []byte) string {
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if len(body) == 0 || json.Unmarshal(body, &problem) != nil {
		return ""
	}

	switch {
	case problem.Detail != "":
		return problem.Detail
	case problem.Title != "":
		return problem.Title
	case len(problem.Errors) > 0:
		return problem.Errors[0].Message
	default:
		return ""
	}
}
