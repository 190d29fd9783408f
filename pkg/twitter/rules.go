package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/twitterapi-client/pkg/client"
)

// AddOrDeleteRules changes the filtered stream's rule set. With dryRun the
// vendor validates the change without applying it.
func (a *API) AddOrDeleteRules(ctx context.Context, req RulesRequest, dryRun bool) (*RulesResponse, error) {
	switch {
	case len(req.Add) > 0 && req.Delete != nil:
		return nil, fmt.Errorf("%w: add and delete cannot be combined", ErrInvalidArgument)
	case len(req.Add) == 0 && (req.Delete == nil || len(req.Delete.IDs)+len(req.Delete.Values) == 0):
		return nil, fmt.Errorf("%w: nothing to add or delete", ErrInvalidArgument)
	}

	exec := a.client.NewExecutor("stream_rules", a.lookup(), a.opts.Policy)
	out, err := exec.Do(ctx, client.Request{
		Method:   http.MethodPost,
		Path:     "tweets/search/stream/rules",
		Query:    url.Values{"dry_run": {strconv.FormatBool(dryRun)}},
		JSONBody: req,
	})
	if err != nil {
		return nil, fmt.Errorf("add or delete rules: %w", err)
	}

	var resp RulesResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode rules response: %w", err)
	}
	return &resp, nil
}
