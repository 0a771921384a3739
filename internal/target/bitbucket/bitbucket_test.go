package bitbucket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/snippet"
	"github.com/gistmirror/gistmirror/internal/transport"
)

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.TargetConfig{
		Name:      "my-bitbucket",
		Provider:  config.ProviderBitbucket,
		Token:     "tok",
		BaseURL:   srv.URL,
		Workspace: "acme",
	}, transport.NewClient(5*time.Second, nil), nil)
}

func TestFindFollowsNextLinks(t *testing.T) {
	var requests int
	var srvURL string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/snippets/acme" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		requests++
		switch requests {
		case 1:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"values": []map[string]interface{}{
					{"id": "aaa", "title": "other"},
				},
				"next": srvURL + "/snippets/acme?page=2",
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"values": []map[string]interface{}{
					{"id": "bbb", "title": "terraform-aws-module", "links": map[string]interface{}{
						"html": map[string]interface{}{"href": "https://bitbucket.org/acme/bbb"},
					}},
				},
			})
		}
	}))
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	a := New(config.TargetConfig{
		Name:      "my-bitbucket",
		Provider:  config.ProviderBitbucket,
		Token:     "tok",
		BaseURL:   srv.URL,
		Workspace: "acme",
	}, transport.NewClient(5*time.Second, nil), nil)

	ref, err := a.Find(context.Background(), "terraform-aws-module")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
	if ref == nil || ref.ID != "bbb" || ref.WebURL != "https://bitbucket.org/acme/bbb" {
		t.Errorf("ref = %+v", ref)
	}
}

func TestFindMiss(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"values": []interface{}{}})
	}))

	ref, err := a.Find(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if ref != nil {
		t.Errorf("ref = %+v, want nil", ref)
	}
}

func TestFindErrorPropagates(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	if _, err := a.Find(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCreateSendsMultipart(t *testing.T) {
	var gotTitle, gotPrivate string
	var gotFiles map[string]string

	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/snippets/acme" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}
		gotTitle = r.FormValue("title")
		gotPrivate = r.FormValue("is_private")
		gotFiles = map[string]string{}
		for _, fh := range r.MultipartForm.File["file"] {
			f, err := fh.Open()
			if err != nil {
				t.Fatalf("opening part: %v", err)
			}
			content, _ := io.ReadAll(f)
			f.Close()
			gotFiles[fh.Filename] = string(content)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "new1", "title": gotTitle, "links": map[string]interface{}{
				"html": map[string]interface{}{"href": "https://bitbucket.org/acme/new1"},
			},
		})
	}))

	res, err := a.Create(context.Background(), snippet.NormalizedSnippet{
		Identifier: "main",
		Visibility: snippet.VisibilityPublic,
		Files: []snippet.File{
			{Name: "main.go", Content: "package main"},
			{Name: "util.go", Content: "package main // util"},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Action != "created" || res.URL != "https://bitbucket.org/acme/new1" {
		t.Errorf("result = %+v", res)
	}
	if gotTitle != "main" || gotPrivate != "false" {
		t.Errorf("title = %q, is_private = %q", gotTitle, gotPrivate)
	}
	if gotFiles["main.go"] != "package main" || gotFiles["util.go"] != "package main // util" {
		t.Errorf("files = %v", gotFiles)
	}
}

func TestCreateInternalBecomesPrivate(t *testing.T) {
	var gotPrivate string

	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}
		gotPrivate = r.FormValue("is_private")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "n"})
	}))

	if _, err := a.Create(context.Background(), snippet.NormalizedSnippet{
		Identifier: "x",
		Visibility: snippet.VisibilityInternal,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if gotPrivate != "true" {
		t.Errorf("is_private = %q, want true", gotPrivate)
	}
}

func TestUpdate(t *testing.T) {
	var gotMethod, gotPath string

	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))

	res, err := a.Update(context.Background(),
		snippet.ExistingRef{ID: "bbb", WebURL: "https://bitbucket.org/acme/bbb"},
		snippet.NormalizedSnippet{Identifier: "main", Visibility: snippet.VisibilityPrivate})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/snippets/acme/bbb" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if res.Action != "updated" || res.URL != "https://bitbucket.org/acme/bbb" {
		t.Errorf("result = %+v", res)
	}
}

func TestDelete(t *testing.T) {
	var gotMethod, gotPath string

	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	res, err := a.Delete(context.Background(), snippet.ExistingRef{ID: "bbb"})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/snippets/acme/bbb" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if res.Action != "deleted" {
		t.Errorf("action = %q", res.Action)
	}
}
