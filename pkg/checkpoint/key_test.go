package checkpoint

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name     string
		key      Key
		expected string
	}{
		{
			name:     "endpoint only",
			key:      Key{Kind: KindStream, Endpoint: "filtered_stream"},
			expected: "twitterapi:checkpoint:stream:filtered_stream",
		},
		{
			name: "params sorted",
			key: Key{
				Kind:     KindCursor,
				Endpoint: "search_recent",
				Params:   url.Values{"query": {"golang"}, "max_results": {"100"}},
			},
			expected: "twitterapi:checkpoint:cursor:search_recent:max_results=100:query=golang",
		},
		{
			name: "cursor params ignored",
			key: Key{
				Kind:     KindCursor,
				Endpoint: "followers",
				Params:   url.Values{"pagination_token": {"B"}, "next_token": {"C"}, "max_results": {"1000"}},
			},
			expected: "twitterapi:checkpoint:cursor:followers:max_results=1000",
		},
		{
			name: "backfill ignored",
			key: Key{
				Kind:     KindStream,
				Endpoint: "compliance_stream",
				Params:   url.Values{"partition": {"2"}, "backfill_minutes": {"3"}},
			},
			expected: "twitterapi:checkpoint:stream:compliance_stream:partition=2",
		},
		{
			name: "multi-value joined",
			key: Key{
				Kind:     KindCursor,
				Endpoint: "/users/",
				Params:   url.Values{"ids": {"1", "2"}},
			},
			expected: "twitterapi:checkpoint:cursor:users:ids=1,2",
		},
		{
			name: "separators in values escaped",
			key: Key{
				Kind:     KindCursor,
				Endpoint: "search_recent",
				Params:   url.Values{"query": {"from:a lang:en"}},
			},
			expected: "twitterapi:checkpoint:cursor:search_recent:query=from%3Aa+lang%3Aen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKey_Deterministic(t *testing.T) {
	key := Key{
		Kind:     KindCursor,
		Endpoint: "search_all",
		Params:   url.Values{"a": {"1"}, "b": {"2"}, "c": {"3"}, "d": {"4"}},
	}

	first := key.String()
	for i := 0; i < 20; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", got, first)
		}
	}
}

func TestKey_SeparatorsDoNotCollide(t *testing.T) {
	a := Key{Kind: KindCursor, Endpoint: "search_recent", Params: url.Values{"query": {"x:y=z"}}}
	b := Key{Kind: KindCursor, Endpoint: "search_recent", Params: url.Values{"query": {"x"}, "y": {"z"}}}
	c := Key{Kind: KindCursor, Endpoint: "users", Params: url.Values{"ids": {"1,2"}}}
	d := Key{Kind: KindCursor, Endpoint: "users", Params: url.Values{"ids": {"1", "2"}}}

	if a.String() == b.String() {
		t.Errorf("distinct params share key %q", a.String())
	}
	if c.String() == d.String() {
		t.Errorf("distinct params share key %q", c.String())
	}
}
