package sink

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vnmchuo/sauce-usage/internal/usage"
)

// Sink receives a finished report.
type Sink interface {
	Write(ctx context.Context, rep *usage.Report) error
	String() string
}

// Open picks a sink for dest: "-" is stdout, "s3://bucket/key" is S3 and
// anything else is a local file path.
func Open(dest string, stdout io.Writer) (Sink, error) {
	switch {
	case dest == "":
		return nil, fmt.Errorf("csv destination is empty")
	case dest == "-":
		return &WriterSink{W: stdout, Name: "stdout"}, nil
	case strings.HasPrefix(dest, "s3://"):
		bucket, key, err := ParseS3URL(dest)
		if err != nil {
			return nil, err
		}
		return NewS3Sink(bucket, key)
	default:
		return &FileSink{Path: dest}, nil
	}
}

// DefaultFileName is used when saving is requested without a destination.
func DefaultFileName(root string, now time.Time) string {
	return fmt.Sprintf("%s-usage-%s.csv", root, now.Format("2006-01-02"))
}

type WriterSink struct {
	W    io.Writer
	Name string
}

func (s *WriterSink) Write(_ context.Context, rep *usage.Report) error {
	return WriteCSV(s.W, rep)
}

func (s *WriterSink) String() string {
	return s.Name
}

type FileSink struct {
	Path string
}

func (s *FileSink) Write(_ context.Context, rep *usage.Report) (err error) {
	if dir := filepath.Dir(s.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create csv directory: %w", err)
		}
	}

	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close csv file: %w", closeErr)
		}
	}()

	return WriteCSV(f, rep)
}

func (s *FileSink) String() string {
	return s.Path
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 url %q: %w", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 url %q: want s3://bucket/key", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("invalid s3 url %q: missing object key", raw)
	}
	return u.Host, key, nil
}
