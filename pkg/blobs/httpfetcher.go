package blobs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"k8s.io/klog/v2"
)

// HTTPFetcher reads blobs from http:// and https:// URLs.
type HTTPFetcher struct {
	// Client is used for requests; nil means http.DefaultClient.
	Client *http.Client
}

var _ BlobReader = (*HTTPFetcher)(nil)

func (f *HTTPFetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	log := klog.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, "GET", src, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	startedAt := time.Now()

	httpClient := f.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		if resp.StatusCode == 404 {
			return nil, fmt.Errorf("blob %q not found: %w", src, os.ErrNotExist)
		}
		return nil, fmt.Errorf("unexpected status downloading %q: %v", src, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("downloading from %q: %w", src, err)
	}

	log.Info("downloaded blob", "url", src, "bytes", len(data), "duration", time.Since(startedAt))

	return data, nil
}
