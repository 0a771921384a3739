package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/snippet"
	"github.com/gistmirror/gistmirror/internal/transport"
)

const defaultBaseURL = "https://api.github.com"

// throttleKey paces all source-platform requests as one stream.
const throttleKey = "source"

// Client lists gists from the source account. With a token it lists
// the authenticated user's gists (secret ones included); without one
// it can only see the configured user's public gists.
type Client struct {
	http     *transport.Client
	throttle *transport.Throttle
	logger   *slog.Logger

	baseURL  string
	token    string
	username string
	pageSize int
	filters  Filters
}

// New creates a source client from configuration.
func New(cfg config.SourceConfig, sync config.SyncConfig, httpc *transport.Client, throttle *transport.Throttle, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:     httpc,
		throttle: throttle,
		logger:   logger,
		baseURL:  baseURL,
		token:    cfg.Token,
		username: cfg.Username,
		pageSize: sync.EffectivePageSize(),
		filters:  FiltersFromConfig(cfg.Filters),
	}
}

// gistFile mirrors one file entry in the gist API payload.
type gistFile struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// gist mirrors the gist API payload, list and detail variants.
type gist struct {
	ID          string              `json:"id"`
	Description string              `json:"description"`
	Public      bool                `json:"public"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Files       map[string]gistFile `json:"files"`
}

// toItem converts an API gist to the internal model. The API delivers
// files as a JSON object, so names are sorted to keep the item's file
// ordering deterministic across runs.
func (g gist) toItem(loaded bool) snippet.SourceItem {
	names := make([]string, 0, len(g.Files))
	for name := range g.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	files := make([]snippet.File, 0, len(names))
	for _, name := range names {
		f := g.Files[name]
		files = append(files, snippet.File{
			Name:     f.Filename,
			Content:  f.Content,
			Size:     f.Size,
			Language: f.Language,
		})
	}

	return snippet.SourceItem{
		ID:          g.ID,
		Description: g.Description,
		Files:       files,
		Public:      g.Public,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
		FilesLoaded: loaded,
	}
}

// listURL builds the paged listing URL.
func (c *Client) listURL(page int) string {
	path := "/gists"
	if c.token == "" {
		path = "/users/" + url.PathEscape(c.username) + "/gists"
	}
	return fmt.Sprintf("%s%s?page=%d&per_page=%d", c.baseURL, path, page, c.pageSize)
}

// List fetches every gist for the source account and applies the
// configured filters. Pages are fetched until a short or empty page
// signals the end of data, honoring the inter-request delay.
func (c *Client) List(ctx context.Context) ([]snippet.SourceItem, error) {
	var items []snippet.SourceItem

	for page := 1; ; page++ {
		if err := c.throttle.Wait(ctx, throttleKey); err != nil {
			return nil, err
		}

		resp, err := c.http.Do(ctx, transport.RequestOptions{
			Method:  http.MethodGet,
			URL:     c.listURL(page),
			Token:   c.token,
			Headers: map[string]string{"Accept": "application/vnd.github+json"},
		})
		if err != nil {
			return nil, fmt.Errorf("listing gists page %d: %w", page, err)
		}

		var gists []gist
		if err := json.Unmarshal(resp.Body, &gists); err != nil {
			return nil, fmt.Errorf("decoding gists page %d: %w", page, err)
		}

		for _, g := range gists {
			items = append(items, g.toItem(false))
		}

		c.logger.Debug("fetched gist page", "page", page, "count", len(gists))

		if len(gists) < c.pageSize {
			break
		}
	}

	c.logger.Debug("gist listing complete", "total", len(items))
	return c.filters.Apply(items, c.logger), nil
}

// Detail fetches one gist with file contents resident.
func (c *Client) Detail(ctx context.Context, id string) (*snippet.SourceItem, error) {
	if err := c.throttle.Wait(ctx, throttleKey); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(ctx, transport.RequestOptions{
		Method:  http.MethodGet,
		URL:     c.baseURL + "/gists/" + url.PathEscape(id),
		Token:   c.token,
		Headers: map[string]string{"Accept": "application/vnd.github+json"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching gist %s: %w", id, err)
	}

	var g gist
	if err := json.Unmarshal(resp.Body, &g); err != nil {
		return nil, fmt.Errorf("decoding gist %s: %w", id, err)
	}

	item := g.toItem(true)
	return &item, nil
}
