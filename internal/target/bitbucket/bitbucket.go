package bitbucket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/snippet"
	"github.com/gistmirror/gistmirror/internal/target"
	"github.com/gistmirror/gistmirror/internal/transport"
)

const defaultBaseURL = "https://api.bitbucket.org/2.0"

// Adapter mirrors gists to Bitbucket workspace snippets. Bitbucket
// snippets are first-class objects; the snippet title carries the
// identifier because the platform has no separate description field.
// There is no internal tier, so internal maps to private.
type Adapter struct {
	name   string
	http   *transport.Client
	logger *slog.Logger

	baseURL   string
	token     string
	workspace string
}

// New creates a Bitbucket adapter for one configured target.
func New(cfg config.TargetConfig, httpc *transport.Client, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		name:      cfg.Name,
		http:      httpc,
		logger:    logger.With("target", cfg.Name, "provider", "bitbucket"),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		token:     cfg.Token,
		workspace: cfg.Workspace,
	}
}

func (a *Adapter) Name() string     { return a.name }
func (a *Adapter) Provider() string { return config.ProviderBitbucket }

type snippetEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Links struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
}

type snippetPage struct {
	Values []snippetEntry `json:"values"`
	Next   string         `json:"next"`
}

// Find pages through the workspace's snippets following the opaque
// next-link cursor until a title match or the end of data.
func (a *Adapter) Find(ctx context.Context, identifier string) (*snippet.ExistingRef, error) {
	pageURL := a.baseURL + "/snippets/" + url.PathEscape(a.workspace)

	for pageURL != "" {
		resp, err := a.http.Do(ctx, transport.RequestOptions{
			Method: http.MethodGet,
			URL:    pageURL,
			Token:  a.token,
		})
		if err != nil {
			return nil, fmt.Errorf("listing snippets: %w", err)
		}

		var page snippetPage
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return nil, fmt.Errorf("decoding snippet page: %w", err)
		}

		for _, s := range page.Values {
			if s.Title == identifier {
				return &snippet.ExistingRef{
					ID:     s.ID,
					Name:   s.Title,
					WebURL: s.Links.HTML.Href,
				}, nil
			}
		}

		pageURL = page.Next
	}

	return nil, nil
}

// Create makes a new snippet with all files in one multipart request.
func (a *Adapter) Create(ctx context.Context, sn snippet.NormalizedSnippet) (*target.Result, error) {
	body, contentType, err := encodeSnippet(sn)
	if err != nil {
		return nil, err
	}

	resp, err := a.http.Do(ctx, transport.RequestOptions{
		Method:  http.MethodPost,
		URL:     a.baseURL + "/snippets/" + url.PathEscape(a.workspace),
		Token:   a.token,
		Body:    body,
		Headers: map[string]string{"Content-Type": contentType},
	})
	if err != nil {
		return nil, fmt.Errorf("creating snippet %q: %w", sn.Identifier, err)
	}

	var created snippetEntry
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return nil, fmt.Errorf("decoding created snippet: %w", err)
	}

	a.logger.Debug("snippet created", "identifier", sn.Identifier, "id", created.ID)
	return &target.Result{Action: "created", URL: created.Links.HTML.Href}, nil
}

// Update overwrites title, visibility, and file contents.
func (a *Adapter) Update(ctx context.Context, ref snippet.ExistingRef, sn snippet.NormalizedSnippet) (*target.Result, error) {
	body, contentType, err := encodeSnippet(sn)
	if err != nil {
		return nil, err
	}

	if _, err := a.http.Do(ctx, transport.RequestOptions{
		Method:  http.MethodPut,
		URL:     a.baseURL + "/snippets/" + url.PathEscape(a.workspace) + "/" + url.PathEscape(ref.ID),
		Token:   a.token,
		Body:    body,
		Headers: map[string]string{"Content-Type": contentType},
	}); err != nil {
		return nil, fmt.Errorf("updating snippet %s: %w", ref.ID, err)
	}

	a.logger.Debug("snippet updated", "identifier", sn.Identifier, "id", ref.ID)
	return &target.Result{Action: "updated", URL: ref.WebURL}, nil
}

// Delete removes the snippet.
func (a *Adapter) Delete(ctx context.Context, ref snippet.ExistingRef) (*target.Result, error) {
	if _, err := a.http.Do(ctx, transport.RequestOptions{
		Method: http.MethodDelete,
		URL:    a.baseURL + "/snippets/" + url.PathEscape(a.workspace) + "/" + url.PathEscape(ref.ID),
		Token:  a.token,
	}); err != nil {
		return nil, fmt.Errorf("deleting snippet %s: %w", ref.ID, err)
	}
	return &target.Result{Action: "deleted"}, nil
}

// encodeSnippet builds the multipart payload Bitbucket expects: title
// and is_private fields plus one file part per snippet file.
func encodeSnippet(sn snippet.NormalizedSnippet) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("title", sn.Identifier); err != nil {
		return nil, "", fmt.Errorf("encoding title: %w", err)
	}
	isPrivate := "true"
	if sn.Visibility == snippet.VisibilityPublic {
		isPrivate = "false"
	}
	if err := w.WriteField("is_private", isPrivate); err != nil {
		return nil, "", fmt.Errorf("encoding is_private: %w", err)
	}

	for _, f := range sn.Files {
		part, err := w.CreateFormFile("file", f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("encoding file %s: %w", f.Name, err)
		}
		if _, err := part.Write([]byte(f.Content)); err != nil {
			return nil, "", fmt.Errorf("encoding file %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalizing multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
