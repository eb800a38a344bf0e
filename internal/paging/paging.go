// Package paging drives cursor- or page-based listing endpoints to completion,
// accumulating every page into one in-memory slice. It never retries a failed
// fetch; retry policy belongs to callers that need it.
package paging

import "context"

// FetchFunc fetches one page. token is the cursor from the previous page
// (empty for the first page). A returned next of "" signals the final page.
// Page-numbered APIs adapt by encoding the page counter as the token and
// returning "" once a short page comes back.
type FetchFunc[T any] func(ctx context.Context, token string) (items []T, next string, err error)

// Collect drains fetch until the source signals no further pages. A fetch
// error aborts the whole collection and is returned as-is.
//
// limit <= 0 means unbounded. With a positive limit, collection stops as soon
// as the accumulated count reaches or exceeds it; items beyond the limit from
// the final page are kept, not trimmed, so callers needing an exact count must
// truncate after collection.
func Collect[T any](ctx context.Context, fetch FetchFunc[T], limit int) ([]T, error) {
	var out []T
	token := ""
	for {
		items, next, err := fetch(ctx, token)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if next == "" {
			return out, nil
		}
		if limit > 0 && len(out) >= limit {
			return out, nil
		}
		token = next
	}
}
