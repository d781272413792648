package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://esi.evetech.net/latest"

const userAgent = "eve-importer/1.0 (github.com)"

// TypeStore is a persistent L2 cache for item type info.
type TypeStore interface {
	GetType(typeID int32) (TypeInfo, bool)
	SetType(info TypeInfo)
}

// Client is a rate-limited ESI HTTP client.
type Client struct {
	http       *http.Client
	baseURL    string
	sem        chan struct{}
	typeCache  sync.Map // int32 -> TypeInfo (L1 in-memory)
	typeStore  TypeStore
	orderCache *OrderCache
}

// NewClient creates an ESI client with rate limiting and the given type-info
// cache store. Uses 50 concurrent connections (ESI allows up to 150
// error-free requests/sec).
func NewClient(store TypeStore) *Client {
	return &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		sem:        make(chan struct{}, 50),
		typeStore:  store,
		orderCache: NewOrderCache(),
	}
}

// HealthCheck pings ESI to verify connectivity.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := newESIRequest(ctx, c.baseURL+"/status/?datasource=tranquility")
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == 200
}

// GetJSON fetches a URL and decodes JSON into dst.
func (c *Client) GetJSON(ctx context.Context, url string, dst interface{}) error {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	req, err := newESIRequest(ctx, url)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: ESI %d: %s", ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// fetchOrderPages fetches every page of a paginated order endpoint.
// Page 1 doubles as the page-count probe (X-Pages header); a non-200 probe
// fails the whole fetch. Remaining pages are fetched concurrently and any
// page error aborts the fetch. Returns the probe's ETag and Expires for the
// order cache.
func (c *Client) fetchOrderPages(ctx context.Context, url string) ([]MarketOrder, string, time.Time, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, "", time.Time{}, ctx.Err()
	}

	req, err := newESIRequest(ctx, url+"&page=1")
	if err != nil {
		<-c.sem
		return nil, "", time.Time{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		<-c.sem
		return nil, "", time.Time{}, fmt.Errorf("%w: probe: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		<-c.sem
		return nil, "", time.Time{}, fmt.Errorf("%w: probe returned ESI %d: %s",
			ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}

	totalPages := 1
	if p := resp.Header.Get("X-Pages"); p != "" {
		totalPages, _ = strconv.Atoi(p)
	}
	etag := resp.Header.Get("ETag")
	expires := parseExpires(resp)

	var page1 []MarketOrder
	decodeErr := json.NewDecoder(resp.Body).Decode(&page1)
	resp.Body.Close()
	<-c.sem
	if decodeErr != nil {
		return nil, "", time.Time{}, fmt.Errorf("%w: probe decode: %v", ErrUpstreamUnavailable, decodeErr)
	}

	if totalPages <= 1 {
		return page1, etag, expires, nil
	}

	pages := make([][]MarketOrder, totalPages+1)
	pages[1] = page1

	g, gctx := errgroup.WithContext(ctx)
	for p := 2; p <= totalPages; p++ {
		p := p
		g.Go(func() error {
			var data []MarketOrder
			pageURL := fmt.Sprintf("%s&page=%d", url, p)
			if err := c.GetJSON(gctx, pageURL, &data); err != nil {
				return fmt.Errorf("page %d: %w", p, err)
			}
			pages[p] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", time.Time{}, err
	}

	all := make([]MarketOrder, 0, len(page1)*totalPages)
	for p := 1; p <= totalPages; p++ {
		all = append(all, pages[p]...)
	}
	return all, etag, expires, nil
}

// newESIRequest creates a standard ESI GET request with common headers.
func newESIRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// parseExpires reads the Expires header from an ESI response.
// Falls back to 5-minute TTL if header is missing or unparseable.
func parseExpires(resp *http.Response) time.Time {
	if exp := resp.Header.Get("Expires"); exp != "" {
		if t, err := time.Parse(time.RFC1123, exp); err == nil {
			return t
		}
	}
	// ESI market orders typically refresh every 5 minutes.
	return time.Now().Add(5 * time.Minute)
}
