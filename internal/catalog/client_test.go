package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newSearchServer(t *testing.T, hits *atomic.Int64, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products/search" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestClient_Search(t *testing.T) {
	var hits atomic.Int64
	srv := newSearchServer(t, &hits,
		`[{"id":7,"name":"Milk 1L","sellingPrice":4500,"stock":12,"sku":"7701234567890"}]`)
	defer srv.Close()

	c := NewClient(srv.URL)
	products, err := c.Search(context.Background(), "7701234567890")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	p := products[0]
	if p.ID != 7 || p.Name != "Milk 1L" || p.SellingPrice != 4500 || p.Stock != 12 || p.SKU != "7701234567890" {
		t.Errorf("unexpected product: %+v", p)
	}
}

func TestClient_SearchCachesRecentQueries(t *testing.T) {
	var hits atomic.Int64
	srv := newSearchServer(t, &hits, `[]`)
	defer srv.Close()

	c := NewClient(srv.URL)
	for i := 0; i < 3; i++ {
		if _, err := c.Search(context.Background(), "same-code"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 backend hit with cache, got %d", hits.Load())
	}

	if _, err := c.Search(context.Background(), "other-code"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected distinct query to hit backend, got %d hits", hits.Load())
	}
}

func TestClient_SetBaseURLSwitchesBackendAndDropsCache(t *testing.T) {
	var oldHits, newHits atomic.Int64
	oldSrv := newSearchServer(t, &oldHits, `[{"id":1,"name":"Old","sellingPrice":100,"stock":1,"sku":"s"}]`)
	defer oldSrv.Close()
	newSrv := newSearchServer(t, &newHits, `[{"id":2,"name":"New","sellingPrice":200,"stock":2,"sku":"s"}]`)
	defer newSrv.Close()

	c := NewClient(oldSrv.URL)
	if _, err := c.Search(context.Background(), "s"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.SetBaseURL(newSrv.URL)

	// The same query must reach the new backend, not the cached old answer.
	products, err := c.Search(context.Background(), "s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 || products[0].Name != "New" {
		t.Errorf("expected result from new backend, got %+v", products)
	}
	if oldHits.Load() != 1 || newHits.Load() != 1 {
		t.Errorf("hits: old=%d new=%d, want 1 and 1", oldHits.Load(), newHits.Load())
	}
}

func TestClient_SearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Search(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestClient_SearchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed before use

	c := NewClient(srv.URL)
	if _, err := c.Search(context.Background(), "x"); err == nil {
		t.Fatal("expected transport error")
	}
}
