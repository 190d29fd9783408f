package twitter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/twitterapi-client/pkg/client"
	"github.com/Sternrassler/twitterapi-client/pkg/pagination"
)

// Trends returns the trending topics of a location by WOEID. maxTrends is
// 1..50; 0 means 20.
func (a *API) Trends(ctx context.Context, woeid int, maxTrends int) ([]Trend, error) {
	maxTrends = orDefault(maxTrends, 20)
	if maxTrends < 1 || maxTrends > 50 {
		return nil, fmt.Errorf("%w: max_trends must be 1..50 (got %d)", ErrInvalidArgument, maxTrends)
	}

	req := client.Request{
		Path:     "trends/by/woeid/" + strconv.Itoa(woeid),
		Query:    url.Values{"max_trends": {strconv.Itoa(maxTrends)}},
		Endpoint: "trends",
	}
	return fetchAll(ctx, a, req, pagination.DecodeObject[Trend])
}

// Usage returns the project's tweet consumption.
func (a *API) Usage(ctx context.Context) (*Usage, error) {
	u, err := fetchOne(ctx, a, client.Request{Path: "usage/tweets", Endpoint: "usage"}, pagination.DecodeObject[Usage])
	if err != nil {
		return nil, err
	}
	return &u, nil
}
