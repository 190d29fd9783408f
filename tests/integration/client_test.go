//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/twitterapi-client/internal/testutil"
	"github.com/Sternrassler/twitterapi-client/pkg/checkpoint"
	"github.com/Sternrassler/twitterapi-client/pkg/client"
	"github.com/Sternrassler/twitterapi-client/pkg/stream"
	"github.com/Sternrassler/twitterapi-client/pkg/twitter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Redis container unavailable: %v", err)
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisClient := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})

	t.Cleanup(func() {
		redisClient.Close()
		_ = container.Terminate(ctx)
	})

	return redisClient
}

func newAPI(t *testing.T, mock *testutil.MockAPI, store checkpoint.Store) *twitter.API {
	t.Helper()

	logger := zerolog.Nop()
	c, err := client.New(client.Config{
		BaseURL:     mock.BaseURL(),
		Credentials: client.StaticToken("integration-token"),
		Logger:      &logger,
	})
	require.NoError(t, err)

	return twitter.NewAPI(c, twitter.Options{
		Checkpoint: store,
		Policy: client.RetryPolicy{
			MaxTransientRetries: 0,
			MaxRateLimitRetries: client.Unlimited,
			Backoff:             10 * time.Millisecond,
			Multiplier:          1,
		},
	})
}

// A search that dies mid-way resumes from the cursor persisted in Redis.
func TestSearch_ResumesFromRedisCheckpoint(t *testing.T) {
	store := checkpoint.NewRedisStore(setupRedis(t), time.Minute)
	ctx := context.Background()

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponses("/2/tweets/search/recent",
		testutil.NewPageResponse(`{"data":[{"id":"3"},{"id":"2"}],"meta":{"next_token":"PAGE2"}}`),
		testutil.NewErrorResponse(http.StatusBadRequest, "simulated crash"),
	)

	opts := twitter.SearchOptions{Query: "golang"}

	first, err := newAPI(t, mock, store).RecentSearch(opts)
	require.NoError(t, err)
	items, err := first.Collect(ctx, 0)
	require.Error(t, err)
	assert.Len(t, items, 2)

	mock.SetResponses("/2/tweets/search/recent",
		testutil.NewPageResponse(`{"data":[{"id":"1"}],"meta":{}}`),
	)

	second, err := newAPI(t, mock, store).RecentSearch(opts)
	require.NoError(t, err)
	items, err = second.Collect(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].ID())

	reqs := mock.Requests("/2/tweets/search/recent")
	require.Len(t, reqs, 3)
	assert.Equal(t, "PAGE2", reqs[2].Query.Get("next_token"), "resumed request carries the stored cursor")
}

// A restarted stream requests backfill covering the gap since the last event
// recorded in Redis.
func TestFilteredStream_BackfillsAfterRestart(t *testing.T) {
	store := checkpoint.NewRedisStore(setupRedis(t), time.Minute)

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetStream("/2/tweets/search/stream",
		testutil.StreamConnection{Lines: []string{`{"data":{"id":"1"}}`}, Hold: true},
		testutil.StreamConnection{Lines: []string{`{"data":{"id":"2"}}`}, Hold: true},
	)

	run := func() string {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var got string
		err := newAPI(t, mock, store).FilteredStream(twitter.StreamOptions{}).Run(ctx, func(tw twitter.TweetResponse) error {
			got = tw.ID()
			cancel()
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		return got
	}

	assert.Equal(t, "1", run())
	assert.Equal(t, "2", run())

	reqs := mock.Requests("/2/tweets/search/stream")
	require.Len(t, reqs, 2)
	assert.False(t, reqs[0].Query.Has(stream.ParamBackfillMinutes), "fresh start requests no backfill")
	assert.Equal(t, "1", reqs[1].Query.Get(stream.ParamBackfillMinutes), "restart backfills the short gap")
}
