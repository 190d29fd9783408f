package pagination

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/twitterapi-client/pkg/decode"
)

// Cursor parameter names used by the vendor.
const (
	ParamNextToken       = "next_token"
	ParamPaginationToken = "pagination_token"
)

// Meta is the pagination metadata of a page.
type Meta struct {
	NextToken     string `json:"next_token,omitempty"`
	PreviousToken string `json:"previous_token,omitempty"`
	ResultCount   int    `json:"result_count,omitempty"`
	NewestID      string `json:"newest_id,omitempty"`
	OldestID      string `json:"oldest_id,omitempty"`
	TotalCount    int    `json:"total_tweet_count,omitempty"`
}

// PartialError is an entry of a page's "errors" array. The vendor reports
// items it could not return this way next to a successful page.
type PartialError struct {
	Title        string `json:"title"`
	Detail       string `json:"detail"`
	Type         string `json:"type"`
	Value        string `json:"value,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
}

// Page is one decoded response envelope. Items are kept raw until the
// caller's decoder runs.
type Page struct {
	Items    []json.RawMessage
	Includes json.RawMessage
	Meta     Meta
	Errors   []PartialError
}

type envelope struct {
	Data     json.RawMessage `json:"data"`
	Includes json.RawMessage `json:"includes"`
	Meta     Meta            `json:"meta"`
	Errors   []PartialError  `json:"errors"`
}

// ParsePage decodes a page envelope. "data" may be an array, a single object
// or absent. Drift in the envelope is returned with the usable page.
func ParsePage(body []byte) (*Page, error) {
	env, err := decode.Object[envelope](body)
	if err != nil && !decode.IsDrift(err) {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	driftErr := err

	page := &Page{
		Includes: env.Includes,
		Meta:     env.Meta,
		Errors:   env.Errors,
	}

	data := bytes.TrimSpace(env.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
	case data[0] == '[':
		if err := json.Unmarshal(data, &page.Items); err != nil {
			return nil, fmt.Errorf("decode page data: %w", err)
		}
	case data[0] == '{':
		page.Items = []json.RawMessage{env.Data}
	default:
		return nil, fmt.Errorf("decode page data: unexpected %q", data[:1])
	}

	return page, driftErr
}

// DecodeFunc maps one raw item to a record. The page gives access to
// includes for hydration. Returning a *decode.DriftError forwards the value
// with a warning; any other error skips the item.
type DecodeFunc[T any] func(item json.RawMessage, page *Page) (T, error)

// DecodeObject decodes each item into T with decode.Object.
func DecodeObject[T any](item json.RawMessage, _ *Page) (T, error) {
	return decode.Object[T](item)
}

// DecodeRaw yields each item as raw JSON.
func DecodeRaw(item json.RawMessage, _ *Page) (json.RawMessage, error) {
	return decode.Raw(item)
}
