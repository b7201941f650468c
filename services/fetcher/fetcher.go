package fetcher

import "context"

// Fetcher is the page-fetcher capability consumed by the extraction engine.
//
// Fetch navigates to url, waits for waitFor to render, and returns the page's
// rendered markup. RunFreeform extracts product data from url with a natural
// language instruction and returns the backend's JSON response verbatim.
// Both are bounded by the caller's context deadline.
type Fetcher interface {
	Fetch(ctx context.Context, url, waitFor string) (string, error)
	RunFreeform(ctx context.Context, url, instruction string) (string, error)
}
