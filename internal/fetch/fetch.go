package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	kerrors "github.com/glitchlinux/deaddrop/internal/errors"
)

// Image describes a fetched encrypted-volume image. Its contents are opaque
// ciphertext until unlocked.
type Image struct {
	SourceURL string
	LocalPath string
	SizeBytes int64
}

// ProgressFunc receives download progress as a percentage in [0,100].
// Reported values are monotonically non-decreasing. It is never called
// when the total size is unknown; progress is omitted, not fabricated.
type ProgressFunc func(percent float64)

// Fetcher streams a remote encrypted image to local disk.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher with a sane transport timeout. There is no
// automatic retry and no resumability: a failed fetch aborts the session
// and the operator restarts.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: 5 * time.Minute}}
}

// Fetch downloads url to destPath, reporting progress when the server
// provides a Content-Length. The caller must treat a partial file left
// behind by a failed fetch as absent.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string, progress ProgressFunc) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", kerrors.ErrNetwork, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", kerrors.ErrNetwork, resp.Status)
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", kerrors.ErrWrite, destPath, err)
	}
	defer out.Close()

	var reader io.Reader = resp.Body
	if resp.ContentLength > 0 && progress != nil {
		reader = &progressReader{
			inner:    resp.Body,
			total:    resp.ContentLength,
			progress: progress,
		}
	}

	written, err := io.Copy(out, reader)
	if err != nil {
		// Either the transport broke mid-stream or the local write failed.
		// Both leave a partial file the caller must not use.
		if isWriteError(err) {
			return nil, fmt.Errorf("%w: writing %s: %v", kerrors.ErrWrite, destPath, err)
		}
		return nil, fmt.Errorf("%w: streaming body: %v", kerrors.ErrNetwork, err)
	}

	if resp.ContentLength > 0 && written != resp.ContentLength {
		return nil, fmt.Errorf("%w: got %d of %d bytes", kerrors.ErrPartialImage, written, resp.ContentLength)
	}

	if err := out.Sync(); err != nil {
		return nil, fmt.Errorf("%w: syncing %s: %v", kerrors.ErrWrite, destPath, err)
	}

	return &Image{SourceURL: url, LocalPath: destPath, SizeBytes: written}, nil
}

func isWriteError(err error) bool {
	var pathErr *os.PathError
	return errors.As(err, &pathErr)
}

// progressReader reports cumulative progress as its inner reader is drained.
type progressReader struct {
	inner    io.Reader
	total    int64
	read     int64
	last     float64
	progress ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	if n > 0 {
		r.read += int64(n)
		percent := float64(r.read) / float64(r.total) * 100
		if percent > 100 {
			percent = 100
		}
		// Clamp to monotonic in case of a lying Content-Length.
		if percent >= r.last {
			r.last = percent
			r.progress(percent)
		}
	}
	return n, err
}
