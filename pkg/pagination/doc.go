// Package pagination turns cursor-paginated collection endpoints into one
// lazy, finite sequence of decoded records.
//
// Every page response is an envelope of the form
//
//	{"data": [...], "includes": {...}, "meta": {"next_token": "..."}, "errors": [...]}
//
// The iterator requests the first page, decodes its items, then follows
// meta.next_token (echoed back as next_token or pagination_token) until a
// page carries no token. Rate limits and transient failures are retried by
// the underlying executor with the cursor unchanged; a fatal response ends
// the sequence with an error.
//
// Example usage:
//
//	it := pagination.New(c, pagination.Config[Tweet]{
//		Request: client.Request{Path: "tweets/search/recent", Query: q},
//		Decode:  pagination.DecodeObject[Tweet],
//	})
//	for it.Next(ctx) {
//		handle(it.Item())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
//
// The iterator:
//   - Preserves server order within and across pages
//   - Skips items that fail to decode, logging each one
//   - Forwards partially decoded items flagged as schema drift
//   - Optionally stores the next cursor in a checkpoint.Store for resumption
//
// FetchAll drains several independent iterators concurrently.
package pagination
