// SPDX-License-Identifier: EPL-2.0

package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Fetcher copies the resource at url into w.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) error
}

// HTTPFetcher downloads with an http.Client. A nil Client means
// http.DefaultClient.
type HTTPFetcher struct {
	Client *http.Client
}

func (h HTTPFetcher) Fetch(ctx context.Context, url string, w io.Writer) error {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: %s", ErrFetch, url, resp.Status)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}

	return nil
}
