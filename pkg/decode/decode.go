// Package decode maps raw vendor JSON into typed records without letting
// schema drift abort a page or a stream.
//
// A decode that succeeds only partly returns the partially filled value
// together with a *DriftError. Engines log such values and forward them.
// Any other error means the item could not be read at all and is skipped.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned when a payload is not a JSON object.
var ErrNotObject = errors.New("payload is not a JSON object")

// DriftError reports a field whose JSON type did not match the Go model.
// The value returned alongside it is usable; only Field was left unset.
type DriftError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *DriftError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema drift: %v", e.Err)
	}
	return fmt.Sprintf("schema drift at %q: %v", e.Field, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DriftError) Unwrap() error {
	return e.Err
}

// IsDrift reports whether err only signals a partially decoded value.
func IsDrift(err error) bool {
	var drift *DriftError
	return errors.As(err, &drift)
}

// Object decodes a JSON object into T. Unknown fields are ignored and missing
// fields keep their zero value. A field of the wrong type yields the rest of
// the value plus a *DriftError.
func Object[T any](raw json.RawMessage) (T, error) {
	var v T
	if !isObject(raw) {
		return v, ErrNotObject
	}

	err := json.Unmarshal(raw, &v)
	if err == nil {
		return v, nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return v, &DriftError{Field: typeErr.Field, Err: err}
	}
	return v, fmt.Errorf("decode object: %w", err)
}

// Raw accepts any JSON object unchanged. It is the decoder for callers that
// keep payloads as raw JSON.
func Raw(raw json.RawMessage) (json.RawMessage, error) {
	if !isObject(raw) {
		return nil, ErrNotObject
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("decode object: invalid JSON")
	}
	return append(json.RawMessage(nil), raw...), nil
}

// Field returns the raw value of a top-level member of a JSON object.
// It reports false when raw is not an object or the member is absent or null.
func Field(raw json.RawMessage, name string) (json.RawMessage, bool) {
	var members map[string]json.RawMessage
	if json.Unmarshal(raw, &members) != nil {
		return nil, false
	}
	v, ok := members[name]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

// Require checks that every named top-level member is present and non-null.
// A missing member is reported as a *DriftError.
func Require(raw json.RawMessage, names ...string) error {
	for _, name := range names {
		if _, ok := Field(raw, name); !ok {
			return &DriftError{Field: name, Err: errors.New("missing required member")}
		}
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
