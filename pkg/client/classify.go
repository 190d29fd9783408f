package client

import "net/http"

// Disposition is the classification of one HTTP outcome.
type Disposition int

const (
	// Success is any 2xx response.
	Success Disposition = iota

	// RateLimited is a 429 response; always retried after the window resets.
	RateLimited

	// Transient covers 5xx, transport errors and any other non-2xx not
	// classified as Fatal; retried per RetryPolicy.
	Transient

	// Fatal marks a malformed or unauthorized request; never retried.
	Fatal
)

// String returns the label used in logs and metrics.
func (d Disposition) String() string {
	switch d {
	case Success:
		return "success"
	case RateLimited:
		return "rate_limited"
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Retryable reports whether the executor may re-issue the request.
func (d Disposition) Retryable() bool {
	return d == RateLimited || d == Transient
}

// Classifier maps HTTP status codes to dispositions.
// The zero value treats only 400 as fatal, which suits collection and
// streaming consumers that should ride out auth hiccups.
type Classifier struct {
	// FatalOnAuthErrors also treats 401, 402, 403 and 404 as Fatal.
	// Batch and lookup callers set this.
	FatalOnAuthErrors bool

	// FailFastOn503 treats 503 as Fatal instead of Transient. Batch jobs that
	// must terminate deterministically set this; live consumers leave it off
	// and keep retrying.
	FailFastOn503 bool
}

// LookupClassifier is the classifier for batch and lookup endpoints.
func LookupClassifier() Classifier {
	return Classifier{FatalOnAuthErrors: true}
}

// Classify returns the disposition for status.
func (c Classifier) Classify(status int) Disposition {
	switch {
	case status >= 200 && status < 300:
		return Success
	case status == http.StatusTooManyRequests:
		return RateLimited
	case status == http.StatusBadRequest:
		return Fatal
	case c.FatalOnAuthErrors && isAuthStatus(status):
		return Fatal
	case status == http.StatusServiceUnavailable && c.FailFastOn503:
		return Fatal
	default:
		return Transient
	}
}

func isAuthStatus(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}
