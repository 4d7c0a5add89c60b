package mount

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// maxMarkupBytes bounds a fetched document.
const maxMarkupBytes = 16 << 20

// Fetcher retrieves markup text for a source.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, source string) (string, error)

// Fetch calls f(ctx, source).
func (f FetcherFunc) Fetch(ctx context.Context, source string) (string, error) {
	return f(ctx, source)
}

// FileFetcher reads markup from the local filesystem. A file:// URL is
// accepted as well as a plain path.
type FileFetcher struct{}

// Fetch reads the file. Cancellation is checked before the read only.
func (FileFetcher) Fetch(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := strings.TrimPrefix(source, "file://")
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxMarkupBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxMarkupBytes {
		return "", fmt.Errorf("%s: larger than %d bytes", path, maxMarkupBytes)
	}
	return string(data), nil
}

// HTTPFetcher retrieves markup over HTTP(S).
type HTTPFetcher struct {
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Fetch performs a GET bound to ctx.
func (h HTTPFetcher) Fetch(ctx context.Context, source string) (string, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: source, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMarkupBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxMarkupBytes {
		return "", fmt.Errorf("GET %s: larger than %d bytes", source, maxMarkupBytes)
	}
	return string(data), nil
}

// SourceFetcher routes http(s) URLs to HTTP and everything else to File.
type SourceFetcher struct {
	File Fetcher
	HTTP Fetcher
}

// NewSourceFetcher returns a SourceFetcher with the default file and HTTP
// fetchers.
func NewSourceFetcher() SourceFetcher {
	return SourceFetcher{File: FileFetcher{}, HTTP: HTTPFetcher{}}
}

// Fetch dispatches on the source's scheme.
func (s SourceFetcher) Fetch(ctx context.Context, source string) (string, error) {
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return s.HTTP.Fetch(ctx, source)
	}
	return s.File.Fetch(ctx, source)
}

// FetchError wraps an I/O failure with its source.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError returns true if err is a FetchError.
// Uses errors.As to handle wrapped errors.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
