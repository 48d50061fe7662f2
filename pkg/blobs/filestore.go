package blobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
)

// FileStore reads and writes blobs on the local filesystem. Stores are
// atomic: data lands in a temp file which is renamed over the destination.
type FileStore struct{}

var _ BlobReader = (*FileStore)(nil)
var _ BlobWriter = (*FileStore)(nil)

func (s *FileStore) Fetch(ctx context.Context, src string) ([]byte, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", src, err)
	}
	return data, nil
}

func (s *FileStore) Store(ctx context.Context, dst string, data []byte) error {
	log := klog.FromContext(ctx)

	dir := filepath.Dir(dst)
	tempFile, err := os.CreateTemp(dir, "blob")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	shouldDeleteTempFile := true
	defer func() {
		if shouldDeleteTempFile {
			if err := os.Remove(tempFile.Name()); err != nil {
				log.Error(err, "removing temp file", "path", tempFile.Name())
			}
		}
	}()

	shouldCloseTempFile := true
	defer func() {
		if shouldCloseTempFile {
			if err := tempFile.Close(); err != nil {
				log.Error(err, "closing temp file", "path", tempFile.Name())
			}
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	shouldCloseTempFile = false

	if err := os.Rename(tempFile.Name(), dst); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	shouldDeleteTempFile = false

	return nil
}
