// Package source fetches the canonical configuration resource over HTTP.
package source

import (
	"context"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single fetch. The resolver applies no timeout of
// its own; the source's default governs.
const DefaultTimeout = 20 * time.Second

// HTTP retrieves a fixed URL and returns the raw body. Redirects are
// followed; any final status outside the 2xx range is an error. The base
// collector is configured once and cloned per call so response callbacks
// never accumulate.
type HTTP struct {
	url  string
	base *colly.Collector
}

// HTTPOptions tunes NewHTTP. The zero value is usable.
type HTTPOptions struct {
	// Timeout overrides DefaultTimeout when > 0.
	Timeout time.Duration
}

// NewHTTP returns a source for the given http(s) URL.
func NewHTTP(rawURL string, opts HTTPOptions) (*HTTP, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, errors.Errorf("config url must start with http:// or https://, got %q", rawURL)
	}
	timeout := DefaultTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
	)
	c.SetRequestTimeout(timeout)
	return &HTTP{url: rawURL, base: c}, nil
}

// URL returns the canonical resource URL.
func (s *HTTP) URL() string { return s.url }

// Fetch performs one retrieval of the configured URL.
func (s *HTTP) Fetch(ctx context.Context) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := s.base.Clone()
	c.Context = ctx

	var body []byte
	var status int
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", NextUserAgent())
		r.Headers.Set("Accept", "application/json")
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(s.url); err != nil {
		if status != 0 {
			return nil, errors.Wrapf(err, "fetch %s: status %d", s.url, status)
		}
		return nil, errors.Wrapf(err, "fetch %s", s.url)
	}
	if len(body) == 0 {
		return nil, errors.Errorf("fetch %s: empty response body", s.url)
	}
	return body, nil
}
