package blobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"k8s.io/klog/v2"
)

// GCSBlobstore reads and writes gs://bucket/object URLs.
type GCSBlobstore struct{}

var _ BlobReader = (*GCSBlobstore)(nil)
var _ BlobWriter = (*GCSBlobstore)(nil)

func splitGCSURL(url string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(url, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a GCS URL: %q", url)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("malformed GCS URL %q, want gs://bucket/object", url)
	}
	return bucket, object, nil
}

func (s *GCSBlobstore) Fetch(ctx context.Context, src string) ([]byte, error) {
	log := klog.FromContext(ctx)

	bucket, object, err := splitGCSURL(src)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS storage client: %w", err)
	}
	defer client.Close()

	startedAt := time.Now()
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("blob %q not found: %w", src, os.ErrNotExist)
		}
		return nil, fmt.Errorf("opening object from GCS %q: %w", src, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("downloading from GCS %q: %w", src, err)
	}

	log.Info("downloaded blob from GCS", "url", src, "bytes", len(data), "duration", time.Since(startedAt))

	return data, nil
}

func (s *GCSBlobstore) Store(ctx context.Context, dst string, data []byte) error {
	log := klog.FromContext(ctx)

	bucket, object, err := splitGCSURL(dst)
	if err != nil {
		return err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating GCS storage client: %w", err)
	}
	defer client.Close()

	startedAt := time.Now()
	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("uploading to GCS %q: %w", dst, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing GCS writer for %q: %w", dst, err)
	}

	log.Info("uploaded blob to GCS", "url", dst, "bytes", len(data), "duration", time.Since(startedAt))

	return nil
}
