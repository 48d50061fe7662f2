// Package blobs fetches and stores small definition blobs (network and
// platform descriptions, search reports) by URL, from the local filesystem,
// HTTP servers, or GCS buckets.
package blobs

import (
	"context"
	"fmt"
	"strings"
)

type BlobReader interface {
	// Fetch returns the contents of the blob at src. If no such blob exists,
	// Fetch returns an error for which errors.Is(err, os.ErrNotExist) is true.
	Fetch(ctx context.Context, src string) ([]byte, error)
}

type BlobWriter interface {
	// Store writes data to dst, replacing any existing blob.
	Store(ctx context.Context, dst string, data []byte) error
}

// ReaderFor picks the blob reader for the URL scheme: gs:// for GCS,
// http:// or https:// for HTTP, anything else is a local path.
func ReaderFor(url string) BlobReader {
	switch {
	case strings.HasPrefix(url, "gs://"):
		return &GCSBlobstore{}
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return &HTTPFetcher{}
	default:
		return &FileStore{}
	}
}

// WriterFor picks the blob writer for the URL scheme. HTTP URLs are not
// writable.
func WriterFor(url string) (BlobWriter, error) {
	switch {
	case strings.HasPrefix(url, "gs://"):
		return &GCSBlobstore{}, nil
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return nil, fmt.Errorf("cannot store to http URL %q", url)
	default:
		return &FileStore{}, nil
	}
}
