package esi

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type venueKind int

const (
	venueRegion venueKind = iota
	venueStation
)

// venueKey identifies a cached order book: one region or one station.
type venueKey struct {
	kind venueKind
	id   int64
}

func (k venueKey) String() string {
	if k.kind == venueStation {
		return fmt.Sprintf("station:%d", k.id)
	}
	return fmt.Sprintf("region:%d", k.id)
}

// orderCacheEntry holds a cached order book with HTTP caching metadata.
type orderCacheEntry struct {
	orders  []MarketOrder
	etag    string    // ETag from page 1
	expires time.Time // parsed Expires header
}

// OrderCache is a thread-safe in-memory cache for venue order books.
// It honors ETag/Expires headers from ESI to avoid re-downloading unchanged
// data, and coalesces duplicate in-flight fetches with singleflight.
type OrderCache struct {
	mu      sync.RWMutex
	entries map[venueKey]*orderCacheEntry
	group   singleflight.Group
}

// NewOrderCache creates an empty order cache.
func NewOrderCache() *OrderCache {
	return &OrderCache{entries: make(map[venueKey]*orderCacheEntry)}
}

// Get returns the cached order book if present and not expired.
// Returns (orders, etag, hit).
func (oc *OrderCache) Get(key venueKey) ([]MarketOrder, string, bool) {
	oc.mu.RLock()
	defer oc.mu.RUnlock()

	e, ok := oc.entries[key]
	if !ok {
		return nil, "", false
	}
	if time.Now().After(e.expires) {
		// Expired: return the etag for a conditional request, signal miss.
		return nil, e.etag, false
	}
	return e.orders, e.etag, true
}

// Put stores an order book with the given etag and expiry.
func (oc *OrderCache) Put(key venueKey, orders []MarketOrder, etag string, expires time.Time) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.entries[key] = &orderCacheEntry{orders: orders, etag: etag, expires: expires}
}

// Touch refreshes the expiry of an existing entry (on 304 Not Modified).
func (oc *OrderCache) Touch(key venueKey, expires time.Time) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	if e, ok := oc.entries[key]; ok {
		e.expires = expires
	}
}

// fetchOrdersCached fetches a venue order book with caching:
//  1. cached and not expired → instant return
//  2. expired with ETag → conditional request (If-None-Match); 304 refreshes
//     the expiry without a body transfer
//  3. miss → full paginated fetch, populate cache
//
// Concurrent requests for the same venue are coalesced.
func (c *Client) fetchOrdersCached(ctx context.Context, key venueKey, url string) ([]MarketOrder, error) {
	result, err, _ := c.orderCache.group.Do(key.String(), func() (interface{}, error) {
		return c.fetchOrdersWithCache(ctx, key, url)
	})
	if err != nil {
		return nil, err
	}
	return result.([]MarketOrder), nil
}

func (c *Client) fetchOrdersWithCache(ctx context.Context, key venueKey, url string) ([]MarketOrder, error) {
	orders, etag, hit := c.orderCache.Get(key)
	if hit {
		log.Printf("[ESI] order cache HIT %s (%d orders)", key, len(orders))
		return orders, nil
	}

	if etag != "" {
		notModified, newExpires, err := c.conditionalCheck(ctx, url+"&page=1", etag)
		if err == nil && notModified {
			c.orderCache.Touch(key, newExpires)
			if cached, _, ok := c.orderCache.Get(key); ok {
				log.Printf("[ESI] order cache 304 %s (ETag match)", key)
				return cached, nil
			}
		}
		// ETag miss or error: fall through to full fetch.
	}

	all, respEtag, respExpires, err := c.fetchOrderPages(ctx, url)
	if err != nil {
		return nil, err
	}
	c.orderCache.Put(key, all, respEtag, respExpires)
	log.Printf("[ESI] order cache MISS %s (%d orders, expires=%s)",
		key, len(all), respExpires.Format("15:04:05"))
	return all, nil
}

// conditionalCheck sends a GET with If-None-Match on page 1 only.
// Returns (notModified, newExpires, error).
func (c *Client) conditionalCheck(ctx context.Context, pageURL, etag string) (bool, time.Time, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return false, time.Time{}, ctx.Err()
	}
	defer func() { <-c.sem }()

	req, err := newESIRequest(ctx, pageURL)
	if err != nil {
		return false, time.Time{}, err
	}
	req.Header.Set("If-None-Match", etag)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, time.Time{}, err
	}
	resp.Body.Close()

	expires := parseExpires(resp)
	return resp.StatusCode == 304, expires, nil
}
