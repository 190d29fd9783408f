package checkpoint

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Kinds of checkpoint.
const (
	KindCursor = "cursor"
	KindStream = "stream"
)

// ignoredParams never take part in a key; they change between pages or
// reconnects of the same logical sequence.
var ignoredParams = map[string]bool{
	"next_token":       true,
	"pagination_token": true,
	"backfill_minutes": true,
}

// Key identifies the logical sequence a checkpoint belongs to.
type Key struct {
	// Kind is KindCursor or KindStream.
	Kind string

	// Endpoint is the endpoint label (e.g. "search_recent").
	Endpoint string

	// Params are the request parameters that define the sequence.
	Params url.Values
}

// String generates a deterministic key string.
// Format: twitterapi:checkpoint:kind:endpoint:param1=val1:param2=val2
// Names and values are query-escaped so ':' and ',' inside them cannot
// collide with the separators.
//
// Example:
//
//	twitterapi:checkpoint:cursor:search_recent:max_results=100:query=golang
func (k Key) String() string {
	parts := []string{"twitterapi", "checkpoint"}

	if k.Kind != "" {
		parts = append(parts, k.Kind)
	}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			if !ignoredParams[name] {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		for _, name := range names {
			values := make([]string, len(k.Params[name]))
			for i, v := range k.Params[name] {
				values[i] = url.QueryEscape(v)
			}
			parts = append(parts, fmt.Sprintf("%s=%s", url.QueryEscape(name), strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}
