package twitter

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/client"
	"github.com/Sternrassler/twitterapi-client/pkg/decode"
	"github.com/Sternrassler/twitterapi-client/pkg/pagination"
)

// Sort orders accepted by the search endpoints.
const (
	SortRecency   = "recency"
	SortRelevancy = "relevancy"
)

// Granularities accepted by the counts endpoints.
const (
	GranularityMinute = "minute"
	GranularityHour   = "hour"
	GranularityDay    = "day"
)

// SearchOptions are the parameters of the search endpoints.
type SearchOptions struct {
	// Query is the search query (REQUIRED).
	Query string

	StartTime time.Time
	EndTime   time.Time
	SinceID   string
	UntilID   string

	// SortOrder is SortRecency or SortRelevancy; empty uses the server default.
	SortOrder string

	// MaxResults per page. 0 means 100.
	MaxResults int
}

func (o SearchOptions) validate() error {
	if o.Query == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidArgument)
	}
	if o.SortOrder != "" && o.SortOrder != SortRecency && o.SortOrder != SortRelevancy {
		return fmt.Errorf("%w: sort_order must be %q or %q (got %q)", ErrInvalidArgument, SortRecency, SortRelevancy, o.SortOrder)
	}
	if o.MaxResults < 0 {
		return fmt.Errorf("%w: max_results must be >= 0 (got %d)", ErrInvalidArgument, o.MaxResults)
	}
	if !o.StartTime.IsZero() && !o.EndTime.IsZero() && !o.EndTime.After(o.StartTime) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidArgument)
	}
	return nil
}

func (o SearchOptions) params(q url.Values) {
	q.Set("query", o.Query)
	setTime(q, "start_time", o.StartTime)
	setTime(q, "end_time", o.EndTime)
	set(q, "since_id", o.SinceID)
	set(q, "until_id", o.UntilID)
}

// RecentSearch iterates tweets of the last seven days matching the query.
func (a *API) RecentSearch(opts SearchOptions) (*pagination.Iterator[TweetResponse], error) {
	return a.search("tweets/search/recent", "search_recent", opts)
}

// FullSearch iterates the full archive. It requires academic or pro access.
func (a *API) FullSearch(opts SearchOptions) (*pagination.Iterator[TweetResponse], error) {
	return a.search("tweets/search/all", "search_all", opts)
}

func (a *API) search(path, endpoint string, opts SearchOptions) (*pagination.Iterator[TweetResponse], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	opts.params(q)
	set(q, "sort_order", opts.SortOrder)
	q.Set("max_results", strconv.Itoa(orDefault(opts.MaxResults, 100)))
	a.opts.Fields.tweetParams(q)

	req := client.Request{Path: path, Query: q, Endpoint: endpoint}
	return paginate(a, req, pagination.ParamNextToken, decodeTweet, a.collection()), nil
}

// CountOptions are the parameters of the counts endpoints.
type CountOptions struct {
	// Query is the search query (REQUIRED).
	Query string

	StartTime time.Time
	EndTime   time.Time
	SinceID   string
	UntilID   string

	// Granularity is minute, hour or day; empty uses the server default (hour).
	Granularity string
}

// RecentCounts iterates tweet count buckets of the last seven days.
func (a *API) RecentCounts(opts CountOptions) (*pagination.Iterator[CountBucket], error) {
	return a.counts("tweets/counts/recent", "counts_recent", opts)
}

// AllCounts iterates tweet count buckets over the full archive.
func (a *API) AllCounts(opts CountOptions) (*pagination.Iterator[CountBucket], error) {
	return a.counts("tweets/counts/all", "counts_all", opts)
}

func (a *API) counts(path, endpoint string, opts CountOptions) (*pagination.Iterator[CountBucket], error) {
	search := SearchOptions{
		Query:     opts.Query,
		StartTime: opts.StartTime,
		EndTime:   opts.EndTime,
		SinceID:   opts.SinceID,
		UntilID:   opts.UntilID,
	}
	if err := search.validate(); err != nil {
		return nil, err
	}
	switch opts.Granularity {
	case "", GranularityMinute, GranularityHour, GranularityDay:
	default:
		return nil, fmt.Errorf("%w: granularity must be minute, hour or day (got %q)", ErrInvalidArgument, opts.Granularity)
	}

	q := url.Values{}
	search.params(q)
	set(q, "granularity", opts.Granularity)

	req := client.Request{Path: path, Query: q, Endpoint: endpoint}
	return paginate(a, req, pagination.ParamNextToken, pagination.DecodeObject[CountBucket], a.collection()), nil
}

// Rules iterates the filtered stream's active rules, optionally only ids.
func (a *API) Rules(ids ...string) *pagination.Iterator[Rule] {
	q := url.Values{"max_results": {"1000"}}
	setList(q, "ids", ids)

	req := client.Request{Path: "tweets/search/stream/rules", Query: q, Endpoint: "stream_rules"}
	return paginate(a, req, pagination.ParamPaginationToken, decodeRule, a.lookup())
}

func decodeRule(item json.RawMessage, _ *pagination.Page) (Rule, error) {
	r, err := decode.Object[Rule](item)
	if err == nil {
		err = decode.Require(item, "id", "value")
	}
	return r, err
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
