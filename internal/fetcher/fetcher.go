// Package fetcher downloads the vendor feed file over HTTP.
package fetcher

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Fetcher builds http requests and fetches the feed file.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher returns a new Fetcher.
func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
	}
}

// FetchFeed returns a ReadCloser with the feed fetched from url or an
// error. Transport failures, non-200 statuses and empty bodies all fail;
// the caller is responsible for closing the returned ReadCloser.
func (f *Fetcher) FetchFeed(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("can't build http request: %w", err)
	}

	req.Header.Add("Accept", "application/xml")
	req.Header.Add("Accept-Encoding", "gzip")
	req.Header.Add("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't get http response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, ErrStatusNotOK
	}

	body := io.ReadCloser(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" || resp.Header.Get("Content-Type") == "application/zip" {
		if body, err = decompressResponse(resp.Body); err != nil {
			_ = resp.Body.Close()
			return nil, err
		}
	}

	return requireNonEmpty(body)
}

// requireNonEmpty peeks one byte so a 200 response with no payload fails
// here instead of as a confusing decoder EOF.
func requireNonEmpty(body io.ReadCloser) (io.ReadCloser, error) {
	buffered := bufio.NewReader(body)
	if _, err := buffered.Peek(1); err != nil {
		_ = body.Close()
		if err == io.EOF {
			return nil, ErrEmptyBody
		}
		return nil, fmt.Errorf("can't read response body: %w", err)
	}

	return &bufferedReadCloser{reader: buffered, closer: body}, nil
}

func decompressResponse(response io.ReadCloser) (io.ReadCloser, error) {
	decompressed, err := gzip.NewReader(response)
	if err != nil {
		return nil, fmt.Errorf("can't decompress response: %w", err)
	}

	return &bufferedReadCloser{reader: decompressed, closer: response}, nil
}

// bufferedReadCloser reads from a wrapping Reader but closes the original
// response body.
type bufferedReadCloser struct {
	reader io.Reader
	closer io.Closer
}

func (r bufferedReadCloser) Read(p []byte) (n int, err error) {
	return r.reader.Read(p)
}

func (r bufferedReadCloser) Close() error {
	return r.closer.Close()
}
