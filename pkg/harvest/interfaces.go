package harvest

import (
	"context"
	"net/url"

	"psharvest/pkg/records"
)

// Fetcher retrieves one page of search results.
type Fetcher interface {
	FetchPage(ctx context.Context, u *url.URL) ([]records.RawRecord, error)
}
