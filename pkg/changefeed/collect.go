package changefeed

import (
	"context"
	"fmt"
)

// Result is the outcome of a complete read of the feed.
type Result struct {
	Entries         []Entry
	LargestChangeID int64
	Pages           int
}

// StartFor returns the first change to request given a stored cursor. A
// missing or zero cursor reads the whole feed.
func StartFor(cursor int64, found bool) int64 {
	if !found || cursor <= 0 {
		return 0
	}
	return cursor + 1
}

// Collect reads every page of the feed from start, following page tokens
// until the last page. Any failure aborts the read and returns no result, so
// the caller never advances its cursor past a partial read.
func Collect(ctx context.Context, feed Feed, start, pageSize int64) (*Result, error) {
	res := &Result{}
	token := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := feed.ListChanges(ctx, Request{
			StartChangeID: start,
			PageToken:     token,
			PageSize:      pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", res.Pages+1, err)
		}
		res.Pages++

		res.Entries = append(res.Entries, page.Items...)
		if page.LargestChangeID > res.LargestChangeID {
			res.LargestChangeID = page.LargestChangeID
		}

		if page.NextPageToken == "" {
			return res, nil
		}
		token = page.NextPageToken
	}
}
