// Package twitter maps the vendor's v2 endpoints onto the pagination and
// stream engines. Each endpoint only builds its request and picks a decoder;
// rate limiting, retries, cursors and reconnects live in the engines.
package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sternrassler/twitterapi-client/pkg/checkpoint"
	"github.com/Sternrassler/twitterapi-client/pkg/client"
	"github.com/Sternrassler/twitterapi-client/pkg/decode"
	"github.com/Sternrassler/twitterapi-client/pkg/pagination"
)

// ErrInvalidArgument is wrapped by every argument validation error.
var ErrInvalidArgument = errors.New("invalid argument")

// Options configures an API.
type Options struct {
	// Fields selects the returned fields. The zero value means DefaultFields.
	Fields Fields

	// Policy is the retry policy for collection endpoints.
	// The zero value means client.BatchRetryPolicy.
	Policy client.RetryPolicy

	// StreamPolicy is the connect retry policy for streams.
	// The zero value means client.LiveRetryPolicy.
	StreamPolicy client.RetryPolicy

	// FailFastOn503 ends collections on 503 instead of retrying.
	FailFastOn503 bool

	// Checkpoint, when set, lets collections and streams resume after a restart.
	Checkpoint checkpoint.Store
}

// API is the endpoint surface. It is safe for concurrent use; every call
// builds its own engine.
type API struct {
	client *client.Client
	opts   Options
}

// NewAPI creates the endpoint surface on c.
func NewAPI(c *client.Client, opts Options) *API {
	if opts.Fields == (Fields{}) {
		opts.Fields = DefaultFields()
	}
	if opts.Policy == (client.RetryPolicy{}) {
		opts.Policy = client.BatchRetryPolicy()
	}
	if opts.StreamPolicy == (client.RetryPolicy{}) {
		opts.StreamPolicy = client.LiveRetryPolicy()
	}
	return &API{client: c, opts: opts}
}

// Client returns the underlying client.
func (a *API) Client() *client.Client {
	return a.client
}

// collection classifies responses of paginated collection endpoints.
func (a *API) collection() client.Classifier {
	return client.Classifier{FailFastOn503: a.opts.FailFastOn503}
}

// lookup classifies responses of single-page lookups and of collections
// keyed by one user, where a missing or protected user never recovers.
func (a *API) lookup() client.Classifier {
	c := client.LookupClassifier()
	c.FailFastOn503 = a.opts.FailFastOn503
	return c
}

func paginate[T any](a *API, req client.Request, param string, dec pagination.DecodeFunc[T], classifier client.Classifier) *pagination.Iterator[T] {
	return pagination.New(a.client, pagination.Config[T]{
		Request:     req,
		CursorParam: param,
		Decode:      dec,
		Classifier:  classifier,
		Policy:      a.opts.Policy,
		Checkpoint:  a.opts.Checkpoint,
	})
}

// fetchAll runs a lookup to completion. Lookups are usually one page.
func fetchAll[T any](ctx context.Context, a *API, req client.Request, dec pagination.DecodeFunc[T]) ([]T, error) {
	it := pagination.New(a.client, pagination.Config[T]{
		Request:    req,
		Decode:     dec,
		Classifier: a.lookup(),
		Policy:     a.opts.Policy,
	})
	return it.Collect(ctx, 0)
}

// fetchOne runs a lookup whose data is a single object.
func fetchOne[T any](ctx context.Context, a *API, req client.Request, dec pagination.DecodeFunc[T]) (T, error) {
	var zero T
	items, err := fetchAll(ctx, a, req, dec)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, fmt.Errorf("%s: response carried no data", req.Label())
	}
	return items[0], nil
}

// decodeTweet pairs a tweet with its page's includes.
func decodeTweet(item json.RawMessage, page *pagination.Page) (TweetResponse, error) {
	raw, err := decode.Raw(item)
	if err != nil {
		return TweetResponse{}, err
	}
	resp := TweetResponse{Tweet: raw, Includes: page.Includes}
	return resp, decode.Require(raw, "id")
}

// decodeUser decodes a user and keeps the full payload.
func decodeUser(item json.RawMessage, _ *pagination.Page) (User, error) {
	u, err := decode.Object[User](item)
	if err != nil && !decode.IsDrift(err) {
		return u, err
	}
	u.Raw = append(json.RawMessage(nil), item...)
	if err == nil && u.ID == "" {
		err = decode.Require(item, "id")
	}
	return u, err
}
