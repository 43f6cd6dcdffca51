package realtor

import (
	"context"
	"log/slog"
)

// FetchPartition pulls every result page for one postal code and returns the
// accumulated entries. Pagination is an explicit iterative loop: page depth is
// bounded by the reported total, never by stack depth. On a transient or
// malformed-response failure the entries accumulated so far are returned
// alongside the error so the caller can keep partial results.
func (c *Client) FetchPartition(ctx context.Context, postalCode string) ([]RawEntry, error) {
	pageSize := c.cfg.PageSize
	var acc []RawEntry

	for offset := 0; ; offset += pageSize {
		page, err := c.search(ctx, postalCode, offset)
		if err != nil {
			return acc, err
		}
		acc = append(acc, page.Results...)

		c.log.Debug("fetched page",
			slog.String("postal_code", postalCode),
			slog.Int("offset", offset),
			slog.Int("page_results", len(page.Results)),
			slog.Int("total", page.Total),
		)

		if offset+pageSize >= page.Total {
			return acc, nil
		}
		// A short page below the reported total means the upstream count is
		// lying; stop rather than spin on empty offsets.
		if len(page.Results) == 0 {
			c.log.Warn("empty page before reported total, stopping",
				slog.String("postal_code", postalCode),
				slog.Int("offset", offset),
				slog.Int("total", page.Total),
			)
			return acc, nil
		}
	}
}
