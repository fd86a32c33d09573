package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tweetpress/pkg/errors"
	"tweetpress/pkg/logger"
)

// Resolver follows redirects to a short link's final destination. On any
// transport failure the original URL comes back; resolution never fails
// hard.
type Resolver interface {
	Resolve(ctx context.Context, url string) string
}

// Fetcher downloads an asset. A 404 is reported as ErrAssetNotFound so
// callers can tell a vanished asset from a transient failure; both downgrade
// to the same plain-link fallback.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Titler extracts the HTML title of a page, used for continue-reading link
// text. Empty string on any failure.
type Titler interface {
	PageTitle(ctx context.Context, url string) string
}

// Client is the pooled HTTP transport shared by probes and downloads. A
// politeness rate limiter gates all outbound calls; each call carries its
// own timeout.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient builds a client with the given per-call timeout and outbound
// rate (calls per second; zero or negative disables throttling).
func NewClient(timeout time.Duration, ratePerSec float64) *Client {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		limiter: rate.NewLimiter(limit, 1),
		timeout: timeout,
		logger:  logger.Get(),
	}
}

// Resolve probes the final URL behind a short link. HEAD first; some
// servers mishandle HEAD, so a failed or 4xx/5xx response falls back to
// GET. Any transport failure returns the original URL untouched.
func (c *Client) Resolve(ctx context.Context, url string) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return url
	}

	final, err := c.probe(ctx, http.MethodHead, url)
	if err == nil {
		return final
	}
	c.logger.Debug("HEAD probe failed, retrying with GET",
		zap.String("url", url), zap.Error(err))

	final, err = c.probe(ctx, http.MethodGet, url)
	if err != nil {
		c.logger.Debug("redirect probe failed",
			zap.String("url", url), zap.Error(err))
		return url
	}
	return final
}

func (c *Client) probe(ctx context.Context, method, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	// Request.URL reflects the final location after redirects
	return resp.Request.URL.String(), nil
}

// Fetch downloads the asset at url
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewFetchFailed(url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewFetchFailed(url, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.NewFetchFailed(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NewAssetNotFound(url)
	}
	if resp.StatusCode >= 400 {
		return nil, errors.NewFetchFailed(url, fmt.Errorf("status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewFetchFailed(url, err)
	}
	return data, nil
}

// PageTitle fetches the page at url and extracts its <title> text. Any
// failure yields the empty string; callers fall back to showing the URL.
func (c *Client) PageTitle(ctx context.Context, url string) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Accept", "text/html")
	resp, err := c.http.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return ""
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 256<<10))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
