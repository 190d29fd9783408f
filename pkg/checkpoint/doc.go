// Package checkpoint persists resume points for the pagination and stream
// engines so a restarted process can continue where it stopped.
//
// Two values are tracked per key:
//
//   - Cursor: the pagination token of the next page to fetch
//   - LastEventAt: timestamp of the last event read from a stream
//
// Fetched data itself is never stored.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	store := checkpoint.NewRedisStore(redisClient, 24*time.Hour)
//
//	key := checkpoint.Key{
//		Kind:     checkpoint.KindCursor,
//		Endpoint: "search_recent",
//		Params:   url.Values{"query": []string{"golang"}},
//	}
//
//	entry, err := store.Get(ctx, key)
//	if errors.Is(err, checkpoint.ErrNotFound) {
//		// start from the first page
//	}
//
// MemoryStore offers the same contract without Redis for tests and
// single-process runs.
//
// # Metrics
//
//   - twitterapi_checkpoint_operations_total{backend, operation, result}
package checkpoint
