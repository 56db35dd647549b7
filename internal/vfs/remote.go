package vfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// httpGet fetches url and returns the body of a 200 response.
// Any other status is reported as ErrNotFound.
func httpGet(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewError(OpFetch, url, fmt.Errorf("%w: %v", ErrInvalidPath, err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, NewError(OpFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, NewError(OpFetch, url, fmt.Errorf("%w: HTTP %d", ErrNotFound, resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(OpFetch, url, err)
	}
	return data, nil
}
