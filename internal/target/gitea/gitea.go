package gitea

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/snippet"
	"github.com/gistmirror/gistmirror/internal/target"
	"github.com/gistmirror/gistmirror/internal/transport"
)

// repoPrefix marks repositories this adapter manages. The Gitea family
// has no first-class snippet object, so each snippet is emulated with
// a prefixed repository holding its files.
const repoPrefix = "snippet-"

const commitMessage = "gistmirror sync"

// defaultBaseURLs maps providers without an explicit base_url to
// their public instance.
var defaultBaseURLs = map[string]string{
	config.ProviderGitea:    "https://gitea.com",
	config.ProviderCodeberg: "https://codeberg.org",
	config.ProviderForgejo:  "https://codeberg.org",
}

// Adapter serves gitea, codeberg, and forgejo targets; the three share
// one API surface.
type Adapter struct {
	name     string
	provider string
	http     *transport.Client
	logger   *slog.Logger

	baseURL string
	token   string
	owner   string
}

// New creates an adapter for one Gitea-family target.
func New(cfg config.TargetConfig, httpc *transport.Client, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURLs[cfg.Provider]
	}
	return &Adapter{
		name:     cfg.Name,
		provider: cfg.Provider,
		http:     httpc,
		logger:   logger.With("target", cfg.Name, "provider", cfg.Provider),
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		token:    cfg.Token,
		owner:    cfg.Username,
	}
}

func (a *Adapter) Name() string     { return a.name }
func (a *Adapter) Provider() string { return a.provider }

// RepoName returns the emulation repository name for an identifier.
func RepoName(identifier string) string {
	return repoPrefix + identifier
}

func (a *Adapter) apiURL(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return a.baseURL + "/api/v1/" + strings.Join(escaped, "/")
}

func (a *Adapter) do(ctx context.Context, method, u string, payload interface{}) (*transport.Response, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
	}
	return a.http.Do(ctx, transport.RequestOptions{
		Method:  method,
		URL:     u,
		Token:   a.token,
		Scheme:  "token",
		Body:    body,
		Headers: map[string]string{"Content-Type": "application/json"},
	})
}

type repoInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	HTMLURL     string `json:"html_url"`
}

type contentEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Type string `json:"type"`
}

// Find looks up the emulation repository by name. A 404 is a miss;
// everything else propagates as "couldn't check".
func (a *Adapter) Find(ctx context.Context, identifier string) (*snippet.ExistingRef, error) {
	resp, err := a.do(ctx, http.MethodGet, a.apiURL("repos", a.owner, RepoName(identifier)), nil)
	if err != nil {
		if transport.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up repo %s: %w", RepoName(identifier), err)
	}

	var repo repoInfo
	if err := json.Unmarshal(resp.Body, &repo); err != nil {
		return nil, fmt.Errorf("decoding repo %s: %w", RepoName(identifier), err)
	}

	return &snippet.ExistingRef{
		ID:     repo.Name,
		Name:   identifier,
		WebURL: repo.HTMLURL,
	}, nil
}

// Create makes the repository and uploads each file. Per-file upload
// failures are logged and do not fail the container: the repository
// exists and holds whatever files made it.
func (a *Adapter) Create(ctx context.Context, sn snippet.NormalizedSnippet) (*target.Result, error) {
	resp, err := a.do(ctx, http.MethodPost, a.apiURL("user", "repos"), map[string]interface{}{
		"name":        RepoName(sn.Identifier),
		"description": sn.Description,
		"private":     sn.Visibility != snippet.VisibilityPublic,
		"auto_init":   false,
	})
	if err != nil {
		return nil, fmt.Errorf("creating repo %s: %w", RepoName(sn.Identifier), err)
	}

	var repo repoInfo
	if err := json.Unmarshal(resp.Body, &repo); err != nil {
		return nil, fmt.Errorf("decoding created repo: %w", err)
	}

	for _, f := range sn.Files {
		if err := a.putFile(ctx, repo.Name, f, ""); err != nil {
			a.logger.Warn("file upload failed", "repo", repo.Name, "file", f.Name, "error", err)
		}
	}

	return &target.Result{Action: "created", URL: repo.HTMLURL}, nil
}

// Update overwrites repository metadata and file contents. Files with
// a remote counterpart are rewritten against their current revision
// SHA; remote files absent from the source set are removed.
func (a *Adapter) Update(ctx context.Context, ref snippet.ExistingRef, sn snippet.NormalizedSnippet) (*target.Result, error) {
	repoName := ref.ID

	if _, err := a.do(ctx, http.MethodPatch, a.apiURL("repos", a.owner, repoName), map[string]interface{}{
		"description": sn.Description,
		"private":     sn.Visibility != snippet.VisibilityPublic,
	}); err != nil {
		return nil, fmt.Errorf("updating repo %s: %w", repoName, err)
	}

	remote, err := a.listFiles(ctx, repoName)
	if err != nil {
		return nil, &target.AdapterError{Target: a.name, Op: "update", Err: err}
	}

	desired := make(map[string]bool, len(sn.Files))
	partial := false
	for _, f := range sn.Files {
		desired[f.Name] = true
		if err := a.putFile(ctx, repoName, f, remote[f.Name]); err != nil {
			a.logger.Warn("file update failed", "repo", repoName, "file", f.Name, "error", err)
			partial = true
		}
	}

	for name, sha := range remote {
		if desired[name] {
			continue
		}
		if err := a.deleteFile(ctx, repoName, name, sha); err != nil {
			a.logger.Warn("stale file removal failed", "repo", repoName, "file", name, "error", err)
			partial = true
		}
	}

	if partial {
		// The container was updated; file-level warnings are logged.
		a.logger.Warn("update completed with file-level failures", "repo", repoName)
	}

	return &target.Result{Action: "updated", URL: ref.WebURL}, nil
}

// Delete removes the emulation repository.
func (a *Adapter) Delete(ctx context.Context, ref snippet.ExistingRef) (*target.Result, error) {
	if _, err := a.do(ctx, http.MethodDelete, a.apiURL("repos", a.owner, ref.ID), nil); err != nil {
		return nil, fmt.Errorf("deleting repo %s: %w", ref.ID, err)
	}
	return &target.Result{Action: "deleted"}, nil
}

// putFile writes one file through the contents API. sha names the
// current revision for updates; empty means create.
func (a *Adapter) putFile(ctx context.Context, repoName string, f snippet.File, sha string) error {
	payload := map[string]interface{}{
		"content": base64.StdEncoding.EncodeToString([]byte(f.Content)),
		"message": commitMessage,
	}

	method := http.MethodPost
	if sha != "" {
		method = http.MethodPut
		payload["sha"] = sha
	}

	_, err := a.do(ctx, method, a.apiURL("repos", a.owner, repoName, "contents", f.Name), payload)
	return err
}

// deleteFile removes one file at its current revision.
func (a *Adapter) deleteFile(ctx context.Context, repoName, fileName, sha string) error {
	_, err := a.do(ctx, http.MethodDelete, a.apiURL("repos", a.owner, repoName, "contents", fileName), map[string]interface{}{
		"sha":     sha,
		"message": commitMessage,
	})
	return err
}

// listFiles returns the repository's top-level files keyed by name
// with their revision SHAs. An empty repository lists as no files.
func (a *Adapter) listFiles(ctx context.Context, repoName string) (map[string]string, error) {
	resp, err := a.do(ctx, http.MethodGet, a.apiURL("repos", a.owner, repoName, "contents"), nil)
	if err != nil {
		if transport.IsNotFound(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("listing repo contents: %w", err)
	}

	var entries []contentEntry
	if err := json.Unmarshal(resp.Body, &entries); err != nil {
		return nil, fmt.Errorf("decoding repo contents: %w", err)
	}

	files := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Type == "file" {
			files[e.Name] = e.SHA
		}
	}
	return files, nil
}
