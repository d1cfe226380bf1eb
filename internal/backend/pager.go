package backend

import (
	"context"

	"github.com/pkg/errors"
)

const defaultMaxPages = 200

// PageFunc fetches one page. total is the backend's stated row count or -1 when
// the response does not carry one.
type PageFunc[T any] func(ctx context.Context, page, limit int) (items []T, total int, err error)

type FetchOptions[T any] struct {
	Limit    int
	MaxPages int
	Key      func(T) string
	Stop     func(page []T) bool
}

// FetchAll walks a paginated endpoint until the stated total is reached, a page comes
// back short or empty, or Stop returns true. The backend may cap the page size below
// Limit, so a first page shorter than Limit sets the page size used for the short-page
// check. Without a stated total this costs one extra request that comes back empty.
// Records are deduplicated by Key when set; a later page adding nothing new ends the walk.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T], opts FetchOptions[T]) ([]T, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	var out []T
	seen := map[string]struct{}{}
	pageSize := limit
	fetched := 0
	for page := 1; page <= maxPages; page++ {
		items, total, err := fetch(ctx, page, limit)
		if err != nil {
			return out, errors.Wrapf(err, "fetch page %d", page)
		}
		if len(items) == 0 {
			break
		}
		if page == 1 && len(items) < limit {
			pageSize = len(items)
		}
		fetched += len(items)
		added := 0
		for _, item := range items {
			if opts.Key != nil {
				key := opts.Key(item)
				if key != "" {
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}
				}
			}
			out = append(out, item)
			added++
		}
		if opts.Stop != nil && opts.Stop(items) {
			break
		}
		if total >= 0 && fetched >= total {
			break
		}
		if page > 1 && added == 0 {
			break
		}
		if len(items) < pageSize {
			break
		}
	}
	return out, nil
}
