// Package dataset downloads the airport reference dataset.
package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Fetcher downloads the airport dataset to a local path when it is missing
type Fetcher struct {
	client       *http.Client
	url          string
	path         string
	maxRetries   int
	retryBackoff time.Duration
	maxBackoff   time.Duration
}

func NewFetcher(url, path string) *Fetcher {
	return &Fetcher{
		client:       &http.Client{Timeout: 5 * time.Minute},
		url:          url,
		path:         path,
		maxRetries:   3,
		retryBackoff: 1 * time.Second,
		maxBackoff:   30 * time.Second,
	}
}

// NewFetcherWithConfig creates a Fetcher with custom client and retry settings.
// A negative maxRetries retries until ctx is cancelled.
func NewFetcherWithConfig(client *http.Client, url, path string, maxRetries int, retryBackoff time.Duration) *Fetcher {
	f := NewFetcher(url, path)
	f.client = client
	f.maxRetries = maxRetries
	f.retryBackoff = retryBackoff
	return f
}

// Ensure downloads the dataset unless the file already exists.
// It reports whether a download took place.
func (f *Fetcher) Ensure(ctx context.Context) (bool, error) {
	if _, err := os.Stat(f.path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat dataset: %w", err)
	}

	if f.url == "" {
		return false, fmt.Errorf("dataset %s does not exist and no download URL is configured", f.path)
	}

	if err := f.Download(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Download fetches the dataset, retrying with exponential backoff
func (f *Fetcher) Download(ctx context.Context) error {
	retryCount := 0
	backoff := f.retryBackoff

	for {
		err := f.download(ctx)
		if err == nil {
			slog.Info("Downloaded airport dataset", "url", f.url, "path", f.path)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		retryCount++
		if f.maxRetries >= 0 && retryCount > f.maxRetries {
			return fmt.Errorf("failed to download dataset after %d attempts: %w", retryCount, err)
		}
		slog.Warn("Failed to download airport dataset", "url", f.url, "retry", retryCount, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		// Exponential backoff: 1s, 2s, 4s, 8s, max 30s
		backoff = backoff * 2
		if backoff > f.maxBackoff {
			backoff = f.maxBackoff
		}
	}
}

func (f *Fetcher) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status fetching %s: %s", f.url, resp.Status)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dataset-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close dataset: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to move dataset into place: %w", err)
	}
	return nil
}
