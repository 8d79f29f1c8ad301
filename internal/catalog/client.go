// Package catalog looks up products in the back-office catalog service.
//
// The same free-text search endpoint serves manual operator searches and
// scanned-code lookups; a scanned barcode is just a query string.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Product is a catalog record as returned by the search endpoint.
type Product struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	SellingPrice float64 `json:"sellingPrice"`
	Stock        int     `json:"stock"`
	SKU          string  `json:"sku"`
}

// Searcher is the lookup collaborator used by the scan consumer.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Product, error)
}

const (
	searchPath     = "/api/products/search"
	defaultTimeout = 10 * time.Second
	cacheSize      = 128
	cacheTTL       = 30 * time.Second
)

type cacheEntry struct {
	products []Product
	at       time.Time
}

// Client queries the catalog search endpoint over HTTP.
//
// Recent lookups are cached briefly so a code scanned several times in a row
// (outside the scan dedup window) does not re-hit the backend. The TTL is
// short because stock counts go stale.
type Client struct {
	mu      sync.Mutex
	baseURL string
	http    *http.Client
	cache   *lru.Cache[string, cacheEntry]
}

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string) *Client {
	cache, _ := lru.New[string, cacheEntry](cacheSize)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		cache:   cache,
	}
}

// SetBaseURL points the client at a new catalog base URL and drops cached
// lookups, which may belong to the old backend.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.mu.Unlock()
	c.cache.Purge()
}

// Search runs a free-text product query.
func (c *Client) Search(ctx context.Context, query string) ([]Product, error) {
	if entry, ok := c.cache.Get(query); ok && time.Since(entry.at) < cacheTTL {
		slog.Debug("catalog search: cache hit", "query", query, "results", len(entry.products))
		return entry.products, nil
	}

	c.mu.Lock()
	base := c.baseURL
	c.mu.Unlock()
	u := base + searchPath + "?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog search: unexpected status %d", resp.StatusCode)
	}

	var products []Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("catalog search: decode response: %w", err)
	}

	c.cache.Add(query, cacheEntry{products: products, at: time.Now()})

	slog.Debug("catalog search", "query", query, "results", len(products))
	return products, nil
}
