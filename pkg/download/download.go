// Package download persists a run's output outside the process.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sink accepts a payload and a filename and persists it.
type Sink interface {
	Download(ctx context.Context, data []byte, filename string) error
}

// FileStats holds metadata about a saved file without reading its contents.
type FileStats struct {
	SizeBytes int64
	ModTime   time.Time
}

// DirSink writes downloads into a directory.
type DirSink struct {
	dir string
}

// NewDirSink returns a sink writing into dir, creating it if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

// Path returns where filename is written.
func (s *DirSink) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// Download writes data to the directory under filename, replacing any previous file.
// The write goes through a temporary file so a reader never sees a partial document.
func (s *DirSink) Download(ctx context.Context, data []byte, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if filename == "" || strings.ContainsAny(filename, `/\`) || filename == "." || filename == ".." {
		return fmt.Errorf("invalid download filename %q", filename)
	}

	tmp, err := os.CreateTemp(s.dir, "."+filename+".*")
	if err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("error saving file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error saving file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error saving file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(filename)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error saving file: %w", err)
	}
	return nil
}

// Stats returns metadata about a previously downloaded file.
func (s *DirSink) Stats(filename string) (*FileStats, error) {
	info, err := os.Stat(s.Path(filename))
	if err != nil {
		return nil, fmt.Errorf("error getting file stats: %w", err)
	}
	return &FileStats{
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}
