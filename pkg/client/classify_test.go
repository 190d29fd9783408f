package client

import "testing"

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name       string
		classifier Classifier
		status     int
		expected   Disposition
	}{
		{name: "200 ok", status: 200, expected: Success},
		{name: "201 created", status: 201, expected: Success},
		{name: "204 no content", status: 204, expected: Success},
		{name: "429 rate limited", status: 429, expected: RateLimited},
		{name: "400 bad request", status: 400, expected: Fatal},
		{name: "401 in collection context", status: 401, expected: Transient},
		{name: "403 in collection context", status: 403, expected: Transient},
		{name: "404 in collection context", status: 404, expected: Transient},
		{name: "500 internal error", status: 500, expected: Transient},
		{name: "502 bad gateway", status: 502, expected: Transient},
		{name: "503 unavailable", status: 503, expected: Transient},
		{name: "504 gateway timeout", status: 504, expected: Transient},
		{name: "302 redirect not followed", status: 302, expected: Transient},
		{name: "409 conflict", status: 409, expected: Transient},

		{name: "lookup 400", classifier: LookupClassifier(), status: 400, expected: Fatal},
		{name: "lookup 401", classifier: LookupClassifier(), status: 401, expected: Fatal},
		{name: "lookup 402", classifier: LookupClassifier(), status: 402, expected: Fatal},
		{name: "lookup 403", classifier: LookupClassifier(), status: 403, expected: Fatal},
		{name: "lookup 404", classifier: LookupClassifier(), status: 404, expected: Fatal},
		{name: "lookup 429", classifier: LookupClassifier(), status: 429, expected: RateLimited},
		{name: "lookup 503", classifier: LookupClassifier(), status: 503, expected: Transient},

		{name: "fail fast 503", classifier: Classifier{FailFastOn503: true}, status: 503, expected: Fatal},
		{name: "fail fast leaves 500 transient", classifier: Classifier{FailFastOn503: true}, status: 500, expected: Transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.classifier.Classify(tt.status); got != tt.expected {
				t.Errorf("Classify(%d) = %s, want %s", tt.status, got, tt.expected)
			}
		})
	}
}

func TestDisposition_Retryable(t *testing.T) {
	tests := []struct {
		disposition Disposition
		expected    bool
	}{
		{Success, false},
		{RateLimited, true},
		{Transient, true},
		{Fatal, false},
	}

	for _, tt := range tests {
		t.Run(tt.disposition.String(), func(t *testing.T) {
			if got := tt.disposition.Retryable(); got != tt.expected {
				t.Errorf("Retryable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDisposition_String(t *testing.T) {
	if got := Disposition(42).String(); got != "unknown" {
		t.Errorf("String() = %q, want %q", got, "unknown")
	}
}
