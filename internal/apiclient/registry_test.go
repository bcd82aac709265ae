package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fintrack/internal/core"
)

func newRegistryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/accounts/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.PathValue("id") != "1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"name":"Checking","currency":"eur","owner":"anna"}`))
	})
	mux.HandleFunc("GET /api/categories/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "11":
			_, _ = w.Write([]byte(`{"id":11,"parent_id":10,"name":"Rent"}`))
		case "12":
			_, _ = w.Write([]byte(`not json`))
		case "13":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRegistryClient(t *testing.T) {
	srv := newRegistryServer(t)
	c, err := NewRegistryClient(nil, srv.URL+"/api/", "secret", time.Second)
	if err != nil {
		t.Fatalf("NewRegistryClient() error = %v", err)
	}
	ctx := context.Background()

	a, err := c.Account(ctx, 1)
	if err != nil {
		t.Fatalf("Account() error = %v", err)
	}
	if a.Currency != "EUR" || a.Name != "Checking" || a.Owner != "anna" {
		t.Errorf("unexpected account: %+v", a)
	}

	if _, err := c.Account(ctx, 2); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Account(2) error = %v, want ErrNotFound", err)
	}

	cat, err := c.Category(ctx, 11)
	if err != nil {
		t.Fatalf("Category() error = %v", err)
	}
	if cat.ParentID != 10 {
		t.Errorf("parent = %d, want 10", cat.ParentID)
	}

	if _, err := c.Category(ctx, 12); !errors.Is(err, errBodyUnmarshal) {
		t.Errorf("Category(12) error = %v, want unmarshal error", err)
	}
	if _, err := c.Category(ctx, 13); !errors.Is(err, errUnexpectedStatusCode) {
		t.Errorf("Category(13) error = %v, want unexpected status", err)
	}
}

func TestRegistryClientWithoutToken(t *testing.T) {
	srv := newRegistryServer(t)
	c, err := NewRegistryClient(nil, srv.URL+"/api", "", time.Second)
	if err != nil {
		t.Fatalf("NewRegistryClient() error = %v", err)
	}
	_, err = c.Account(context.Background(), 1)
	if !errors.Is(err, errUnexpectedStatusCode) || errors.Is(err, core.ErrNotFound) {
		t.Errorf("Account() without token error = %v, want unexpected status", err)
	}
}

func TestNewRegistryClientRejectsBadURL(t *testing.T) {
	for _, base := range []string{"", "not a url", "/relative"} {
		if _, err := NewRegistryClient(nil, base, "", time.Second); !errors.Is(err, errBasePathFormatting) {
			t.Errorf("NewRegistryClient(%q) error = %v", base, err)
		}
	}
}
