package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSearch_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/indexes/products/query" {
			t.Fatalf("path = %s, want /indexes/products/query", r.URL.Path)
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "birthday" {
			t.Fatalf("query = %q, want birthday", req.Query)
		}
		if req.HitsPerPage != 16 {
			t.Fatalf("hitsPerPage = %d, want 16", req.HitsPerPage)
		}
		if len(req.RestrictSearchableAttributes) != 3 {
			t.Fatalf("restrictSearchableAttributes = %v", req.RestrictSearchableAttributes)
		}

		resp := Result{
			Hits: []Hit{
				{ObjectID: "prod-1", Name: "Birthday Card", SKU: "LBP-BIR-0001", Status: "active"},
			},
			NBHits: 1,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "products")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := client.Search(ctx, "birthday", 16)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if res.NBHits != 1 || len(res.Hits) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Hits[0].ObjectID != "prod-1" {
		t.Fatalf("hit = %+v", res.Hits[0])
	}
}

func TestSearch_EmptyQuerySkipsRequest(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "products")

	res, err := client.Search(context.Background(), "   ", 16)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(res.Hits) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if called {
		t.Fatalf("empty query must not hit the index")
	}
}

func TestSearch_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "products")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := client.Search(ctx, "birthday", 16); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}

func TestSearch_NotConfigured(t *testing.T) {
	var client *Client

	if _, err := client.Search(context.Background(), "birthday", 16); err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}
