package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/transport"
)

func gistPage(start, count int) []map[string]interface{} {
	page := make([]map[string]interface{}, count)
	for i := 0; i < count; i++ {
		page[i] = map[string]interface{}{
			"id":          fmt.Sprintf("gist-%04d", start+i),
			"description": fmt.Sprintf("gist %d", start+i),
			"public":      true,
			"created_at":  "2024-01-01T00:00:00Z",
			"updated_at":  "2024-01-02T00:00:00Z",
			"files": map[string]interface{}{
				"main.go": map[string]interface{}{"filename": "main.go", "size": 10, "language": "Go"},
			},
		}
	}
	return page
}

func newTestClient(t *testing.T, srvURL, token string, pageSize int, interval time.Duration) *Client {
	t.Helper()
	return New(
		config.SourceConfig{Provider: "github", Username: "octocat", Token: token, BaseURL: srvURL},
		config.SyncConfig{PageSize: pageSize},
		transport.NewClient(5*time.Second, nil),
		transport.NewThrottle(interval),
		nil,
	)
}

func TestListPaginationTerminates(t *testing.T) {
	sizes := []int{100, 100, 37}
	requests := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		page := 0
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
		if page < 1 || page > len(sizes) {
			_ = json.NewEncoder(w).Encode([]interface{}{})
			return
		}
		_ = json.NewEncoder(w).Encode(gistPage((page-1)*100, sizes[page-1]))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "tok", 100, 10*time.Millisecond)

	start := time.Now()
	items, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(items) != 237 {
		t.Errorf("items = %d, want 237", len(items))
	}
	if requests != 3 {
		t.Errorf("requests = %d, want exactly 3", requests)
	}
	// Two inter-page delays at 10ms each.
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("elapsed = %v, inter-page delay not honored", elapsed)
	}
}

func TestListEmptyFirstPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]interface{}{})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "tok", 100, 0)
	items, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0", len(items))
	}
}

func TestListErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "tok", 100, 0)
	if _, err := c.List(context.Background()); err == nil {
		t.Fatal("expected listing error")
	}
}

func TestListURLDependsOnToken(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = json.NewEncoder(w).Encode([]interface{}{})
	}))
	defer srv.Close()

	// Authenticated: own-gists endpoint, secret gists included.
	c := newTestClient(t, srv.URL, "tok", 100, 0)
	_, _ = c.List(context.Background())

	// Anonymous: public listing for the configured user.
	c = newTestClient(t, srv.URL, "", 100, 0)
	_, _ = c.List(context.Background())

	if len(paths) != 2 || paths[0] != "/gists" || paths[1] != "/users/octocat/gists" {
		t.Errorf("paths = %v", paths)
	}
}

func TestDetailLoadsFileContents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gists/abc" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":          "abc",
			"description": "demo",
			"public":      true,
			"created_at":  "2024-01-01T00:00:00Z",
			"updated_at":  "2024-01-02T00:00:00Z",
			"files": map[string]interface{}{
				"b.go": map[string]interface{}{"filename": "b.go", "size": 3, "content": "b"},
				"a.go": map[string]interface{}{"filename": "a.go", "size": 3, "content": "a"},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "tok", 100, 0)
	item, err := c.Detail(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}

	if !item.FilesLoaded {
		t.Error("FilesLoaded not set")
	}
	if len(item.Files) != 2 || item.Files[0].Name != "a.go" || item.Files[1].Name != "b.go" {
		t.Errorf("files = %+v, want sorted by name", item.Files)
	}
	if item.Files[0].Content != "a" {
		t.Errorf("content = %q", item.Files[0].Content)
	}
}
