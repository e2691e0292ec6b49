package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	kerrors "github.com/glitchlinux/deaddrop/internal/errors"
)

func TestFetchReportsMonotonicProgress(t *testing.T) {
	payload := strings.Repeat("ciphertext ", 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declare the total size so the client sees a Content-Length and
		// the fetcher reports progress.
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "image.img")
	var reported []float64
	img, err := NewFetcher().Fetch(context.Background(), srv.URL, dest, func(percent float64) {
		reported = append(reported, percent)
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if img.SizeBytes != int64(len(payload)) {
		t.Errorf("SizeBytes = %d, want %d", img.SizeBytes, len(payload))
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Reading fetched image: %v", err)
	}
	if string(data) != payload {
		t.Error("Fetched image differs from the served payload")
	}

	if len(reported) == 0 {
		t.Fatal("Expected progress callbacks when Content-Length is known")
	}
	for i := 1; i < len(reported); i++ {
		if reported[i] < reported[i-1] {
			t.Fatalf("Progress went backwards: %v then %v", reported[i-1], reported[i])
		}
	}
	if last := reported[len(reported)-1]; last != 100 {
		t.Errorf("Final progress = %v, want 100", last)
	}
}

func TestFetchOmitsProgressWithoutContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Chunked response: no Content-Length on the wire.
		flusher := w.(http.Flusher)
		w.Write([]byte("part one "))
		flusher.Flush()
		w.Write([]byte("part two"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "image.img")
	called := false
	img, err := NewFetcher().Fetch(context.Background(), srv.URL, dest, func(percent float64) {
		called = true
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if called {
		t.Error("Progress must not be reported when the total size is unknown")
	}
	if img.SizeBytes != int64(len("part one part two")) {
		t.Errorf("SizeBytes = %d", img.SizeBytes)
	}
}

func TestFetchRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewFetcher().Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "image.img"), nil)
	if !errors.Is(err, kerrors.ErrNetwork) {
		t.Fatalf("Expected ErrNetwork for 404, got %v", err)
	}
}

func TestFetchDetectsTruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4096")
		w.Write([]byte("only this much"))
		// Hijack and drop the connection so the client sees a short body.
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer srv.Close()

	_, err := NewFetcher().Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "image.img"), nil)
	if err == nil {
		t.Fatal("Expected an error for a truncated body")
	}
	if !errors.Is(err, kerrors.ErrNetwork) && !errors.Is(err, kerrors.ErrPartialImage) {
		t.Errorf("Expected a network or partial-image error, got %v", err)
	}
}

func TestFetchFailsOnUnwritableDestination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "no-such-dir", "image.img")
	_, err := NewFetcher().Fetch(context.Background(), srv.URL, dest, nil)
	if !errors.Is(err, kerrors.ErrWrite) {
		t.Fatalf("Expected ErrWrite, got %v", err)
	}
}
