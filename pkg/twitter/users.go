package twitter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/client"
	"github.com/Sternrassler/twitterapi-client/pkg/pagination"
)

// maxLookupIDs is the vendor's limit of ids per lookup request.
const maxLookupIDs = 100

// Followers iterates the followers of a user. maxResults per page is 1..1000;
// 0 means 1000.
func (a *API) Followers(userID string, maxResults int) (*pagination.Iterator[User], error) {
	return a.follows(userID, "followers", maxResults)
}

// Following iterates the accounts a user follows.
func (a *API) Following(userID string, maxResults int) (*pagination.Iterator[User], error) {
	return a.follows(userID, "following", maxResults)
}

func (a *API) follows(userID, relation string, maxResults int) (*pagination.Iterator[User], error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	maxResults = orDefault(maxResults, 1000)
	if maxResults < 1 || maxResults > 1000 {
		return nil, fmt.Errorf("%w: max_results must be 1..1000 (got %d)", ErrInvalidArgument, maxResults)
	}

	q := url.Values{"max_results": {strconv.Itoa(maxResults)}}
	a.opts.Fields.userParams(q, false)

	req := client.Request{
		Path:     "users/" + url.PathEscape(userID) + "/" + relation,
		Query:    q,
		Endpoint: relation,
	}
	return paginate(a, req, pagination.ParamPaginationToken, decodeUser, a.lookup()), nil
}

// UsersByIDs looks up to 100 users by id.
func (a *API) UsersByIDs(ctx context.Context, ids []string) ([]User, error) {
	if err := checkIDs(ids); err != nil {
		return nil, err
	}

	q := url.Values{}
	setList(q, "ids", ids)
	a.opts.Fields.userParams(q, false)

	return fetchAll(ctx, a, client.Request{Path: "users", Query: q, Endpoint: "users_lookup"}, decodeUser)
}

// UsersByUsernames looks up to 100 users by username.
func (a *API) UsersByUsernames(ctx context.Context, usernames []string) ([]User, error) {
	if err := checkIDs(usernames); err != nil {
		return nil, err
	}

	q := url.Values{}
	setList(q, "usernames", usernames)
	a.opts.Fields.userParams(q, false)

	return fetchAll(ctx, a, client.Request{Path: "users/by", Query: q, Endpoint: "users_by_username"}, decodeUser)
}

// TimelineOptions are the parameters of the user timeline.
type TimelineOptions struct {
	StartTime time.Time
	EndTime   time.Time
	SinceID   string
	UntilID   string

	// Exclude holds "retweets" and/or "replies".
	Exclude []string
}

// Timeline iterates the tweets posted by a user, newest first.
func (a *API) Timeline(userID string, opts TimelineOptions) (*pagination.Iterator[TweetResponse], error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	for _, e := range opts.Exclude {
		if e != "retweets" && e != "replies" {
			return nil, fmt.Errorf("%w: exclude accepts retweets and replies (got %q)", ErrInvalidArgument, e)
		}
	}

	q := url.Values{"max_results": {"100"}}
	setTime(q, "start_time", opts.StartTime)
	setTime(q, "end_time", opts.EndTime)
	set(q, "since_id", opts.SinceID)
	set(q, "until_id", opts.UntilID)
	setList(q, "exclude", opts.Exclude)
	a.opts.Fields.tweetParams(q)

	req := client.Request{Path: "users/" + url.PathEscape(userID) + "/tweets", Query: q, Endpoint: "user_tweets"}
	return paginate(a, req, pagination.ParamPaginationToken, decodeTweet, a.collection()), nil
}

func checkIDs(ids []string) error {
	switch {
	case len(ids) == 0:
		return fmt.Errorf("%w: at least one id is required", ErrInvalidArgument)
	case len(ids) > maxLookupIDs:
		return fmt.Errorf("%w: at most %d ids per lookup (got %d)", ErrInvalidArgument, maxLookupIDs, len(ids))
	}
	return nil
}
