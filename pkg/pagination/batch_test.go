package pagination

import (
	"context"
	"net/http"
	"testing"

	"github.com/Sternrassler/twitterapi-client/internal/testutil"
	"github.com/Sternrassler/twitterapi-client/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAll(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponses("/2/users/1/followers",
		testutil.NewPageResponse(page("B", "a1", "a2")),
		testutil.NewPageResponse(page("", "a3")),
	)
	mock.SetResponses("/2/users/2/followers", testutil.NewPageResponse(page("", "b1")))

	c := newTestClient(t, mock)
	job := func(name, path string) Job[tweet] {
		return Job[tweet]{
			Name: name,
			Iterator: New(c, Config[tweet]{
				Request:     client.Request{Path: path, Endpoint: "followers"},
				CursorParam: ParamPaginationToken,
				Decode:      DecodeObject[tweet],
				Policy:      fastPolicy(),
			}),
		}
	}

	results, err := FetchAll(context.Background(), []Job[tweet]{
		job("1", "users/1/followers"),
		job("2", "users/2/followers"),
	}, DefaultBatchConfig())

	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, ids(results["1"]))
	assert.Equal(t, []string{"b1"}, ids(results["2"]))
}

func TestFetchAll_PartialFailure(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponses("/2/users/1/followers", testutil.NewPageResponse(page("", "a1")))
	mock.SetResponses("/2/users/2/followers", testutil.NewErrorResponse(http.StatusBadRequest, "bad id"))

	c := newTestClient(t, mock)
	jobs := []Job[tweet]{
		{Name: "1", Iterator: New(c, Config[tweet]{Request: client.Request{Path: "users/1/followers"}, Decode: DecodeObject[tweet], Policy: fastPolicy()})},
		{Name: "2", Iterator: New(c, Config[tweet]{Request: client.Request{Path: "users/2/followers"}, Decode: DecodeObject[tweet], Policy: fastPolicy()})},
	}

	results, err := FetchAll(context.Background(), jobs, BatchConfig{MaxConcurrency: 1})

	require.Error(t, err)
	assert.True(t, client.IsFatal(err))
	assert.Equal(t, []string{"a1"}, ids(results["1"]), "successful jobs keep their items")
	assert.Empty(t, results["2"])
}
