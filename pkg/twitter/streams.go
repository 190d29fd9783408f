package twitter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/client"
	"github.com/Sternrassler/twitterapi-client/pkg/decode"
	"github.com/Sternrassler/twitterapi-client/pkg/stream"
)

// StreamOptions are the connect parameters shared by the streams.
type StreamOptions struct {
	// BackfillMinutes requested on the first connect, 0 for none. Reconnects
	// compute their own backfill from the disconnection gap.
	BackfillMinutes int

	StartTime time.Time
	EndTime   time.Time

	// DisableBackfill never requests backfill, for access tiers without it.
	DisableBackfill bool

	// StallTimeout overrides stream.DefaultStallTimeout.
	StallTimeout time.Duration
}

func (o StreamOptions) params(q url.Values) {
	if o.BackfillMinutes > 0 && !o.DisableBackfill {
		q.Set(stream.ParamBackfillMinutes, strconv.Itoa(stream.ClampBackfill(o.BackfillMinutes)))
	}
	setTime(q, "start_time", o.StartTime)
	setTime(q, "end_time", o.EndTime)
}

// FilteredStream returns a reader over the tweets matching the active rules.
func (a *API) FilteredStream(opts StreamOptions) *stream.Reader[TweetResponse] {
	q := url.Values{}
	opts.params(q)
	a.opts.Fields.tweetParams(q)

	return stream.NewReader(a.client, stream.Config[TweetResponse]{
		Request:         client.Request{Path: "tweets/search/stream", Query: q, Endpoint: "filtered_stream"},
		Decode:          DecodeStreamTweet,
		Policy:          a.opts.StreamPolicy,
		StallTimeout:    opts.StallTimeout,
		DisableBackfill: opts.DisableBackfill,
		Checkpoint:      a.opts.Checkpoint,
	})
}

// ComplianceStream returns a reader over one partition (1..4) of the tweet or
// user compliance stream. All four partitions are needed to see every event.
func (a *API) ComplianceStream(kind ComplianceJobType, partition int, opts StreamOptions) (*stream.Reader[ComplianceEvent], error) {
	if err := kind.validate(); err != nil {
		return nil, err
	}
	if partition < 1 || partition > 4 {
		return nil, fmt.Errorf("%w: partition must be 1..4 (got %d)", ErrInvalidArgument, partition)
	}

	q := url.Values{"partition": {strconv.Itoa(partition)}}
	opts.params(q)

	endpoint := "tweet_compliance_stream"
	if kind == ComplianceUsers {
		endpoint = "user_compliance_stream"
	}

	return stream.NewReader(a.client, stream.Config[ComplianceEvent]{
		Request:         client.Request{Path: string(kind) + "/compliance/stream", Query: q, Endpoint: endpoint},
		Decode:          DecodeComplianceEvent,
		Policy:          a.opts.StreamPolicy,
		StallTimeout:    opts.StallTimeout,
		DisableBackfill: opts.DisableBackfill,
		Checkpoint:      a.opts.Checkpoint,
	}), nil
}

// streamError is an in-band error object sent instead of an event.
type streamError struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func inBandError(line []byte) error {
	var se streamError
	if json.Unmarshal(line, &se) != nil || len(se.Errors) == 0 {
		return nil
	}
	e := se.Errors[0]
	return fmt.Errorf("stream error event: %s: %s", e.Title, e.Detail)
}

// DecodeStreamTweet decodes one filtered stream line. A line without "data"
// is skipped; when it carries "errors" it is an in-band error.
func DecodeStreamTweet(line []byte) (TweetResponse, error) {
	data, ok := decode.Field(line, "data")
	if !ok {
		if err := inBandError(line); err != nil {
			return TweetResponse{}, err
		}
		if _, err := decode.Raw(line); err != nil {
			return TweetResponse{}, err
		}
		return TweetResponse{}, errors.New("stream line without data")
	}

	resp := TweetResponse{Tweet: append(json.RawMessage(nil), data...)}
	if inc, ok := decode.Field(line, "includes"); ok {
		resp.Includes = append(json.RawMessage(nil), inc...)
	}

	var rules struct {
		MatchingRules []MatchingRule `json:"matching_rules"`
	}
	if err := json.Unmarshal(line, &rules); err != nil {
		return resp, &decode.DriftError{Field: "matching_rules", Err: err}
	}
	resp.MatchingRules = rules.MatchingRules

	return resp, decode.Require(resp.Tweet, "id")
}

// DecodeComplianceEvent decodes one compliance stream line of the form
//
//	{"data":{"<action>":{"tweet"|"user":{"id":"..."},"event_at":"..."}}}
func DecodeComplianceEvent(line []byte) (ComplianceEvent, error) {
	data, ok := decode.Field(line, "data")
	if !ok {
		if err := inBandError(line); err != nil {
			return ComplianceEvent{}, err
		}
		return ComplianceEvent{}, errors.New("compliance event without data")
	}

	var actions map[string]json.RawMessage
	if err := json.Unmarshal(data, &actions); err != nil || len(actions) != 1 {
		return ComplianceEvent{}, fmt.Errorf("compliance event: expected exactly one action")
	}

	var ev ComplianceEvent
	for action, body := range actions {
		ev.Action = action
		ev.Event = append(json.RawMessage(nil), body...)
	}

	var body struct {
		Tweet *struct {
			ID string `json:"id"`
		} `json:"tweet"`
		User *struct {
			ID string `json:"id"`
		} `json:"user"`
		EventAt string `json:"event_at"`
	}
	if err := json.Unmarshal(ev.Event, &body); err != nil {
		return ev, &decode.DriftError{Field: ev.Action, Err: err}
	}

	switch {
	case body.Tweet != nil:
		ev.ID = body.Tweet.ID
	case body.User != nil:
		ev.ID = body.User.ID
	}

	at, err := time.Parse(time.RFC3339, body.EventAt)
	if err != nil {
		return ev, &decode.DriftError{Field: "event_at", Err: err}
	}
	ev.EventAt = at

	if ev.ID == "" {
		return ev, &decode.DriftError{Field: ev.Action, Err: errors.New("event carries no tweet or user id")}
	}
	return ev, nil
}
