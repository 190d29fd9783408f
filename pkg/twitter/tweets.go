package twitter

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/client"
	"github.com/Sternrassler/twitterapi-client/pkg/pagination"
)

// TweetsByIDs looks up to 100 tweets by id. Tweets the vendor cannot return
// are reported in the page's errors and logged.
func (a *API) TweetsByIDs(ctx context.Context, ids []string) ([]TweetResponse, error) {
	if err := checkIDs(ids); err != nil {
		return nil, err
	}

	q := url.Values{}
	setList(q, "ids", ids)
	a.opts.Fields.tweetParams(q)

	return fetchAll(ctx, a, client.Request{Path: "tweets", Query: q, Endpoint: "tweets_lookup"}, decodeTweet)
}

// Retweeters iterates the users who retweeted a tweet.
func (a *API) Retweeters(tweetID string) (*pagination.Iterator[User], error) {
	if tweetID == "" {
		return nil, fmt.Errorf("%w: tweet id is required", ErrInvalidArgument)
	}

	q := url.Values{"max_results": {"100"}}
	a.opts.Fields.userParams(q, true)

	req := client.Request{Path: "tweets/" + url.PathEscape(tweetID) + "/retweeted_by", Query: q, Endpoint: "retweeted_by"}
	return paginate(a, req, pagination.ParamPaginationToken, decodeUser, a.collection()), nil
}

// QuoteOptions are the parameters of the quote tweets endpoint.
type QuoteOptions struct {
	StartTime time.Time
	EndTime   time.Time
	SinceID   string
	UntilID   string
}

// QuoteTweets iterates the tweets quoting a tweet.
func (a *API) QuoteTweets(tweetID string, opts QuoteOptions) (*pagination.Iterator[TweetResponse], error) {
	if tweetID == "" {
		return nil, fmt.Errorf("%w: tweet id is required", ErrInvalidArgument)
	}

	q := url.Values{"max_results": {"100"}}
	setTime(q, "start_time", opts.StartTime)
	setTime(q, "end_time", opts.EndTime)
	set(q, "since_id", opts.SinceID)
	set(q, "until_id", opts.UntilID)
	a.opts.Fields.tweetParams(q)

	req := client.Request{Path: "tweets/" + url.PathEscape(tweetID) + "/quote_tweets", Query: q, Endpoint: "quote_tweets"}
	return paginate(a, req, pagination.ParamPaginationToken, decodeTweet, a.collection()), nil
}
