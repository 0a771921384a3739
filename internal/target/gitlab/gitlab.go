package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/snippet"
	"github.com/gistmirror/gistmirror/internal/target"
)

const defaultBaseURL = "https://gitlab.com"

// findPageSize bounds snippet listing pages during Find.
const findPageSize = 100

// Adapter mirrors gists to GitLab personal snippets, which are
// first-class objects with multi-file support and a native internal
// visibility tier.
type Adapter struct {
	name   string
	client *gitlab.Client
	logger *slog.Logger
}

// New creates a GitLab adapter for one configured target. BaseURL
// overrides the SaaS endpoint for self-hosted instances.
func New(cfg config.TargetConfig, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client, err := gitlab.NewClient(
		cfg.Token,
		gitlab.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/api/v4"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	return &Adapter{
		name:   cfg.Name,
		client: client,
		logger: logger.With("target", cfg.Name, "provider", "gitlab"),
	}, nil
}

func (a *Adapter) Name() string     { return a.name }
func (a *Adapter) Provider() string { return config.ProviderGitLab }

// Find pages through the authenticated user's snippets looking for a
// title match. A miss is (nil, nil); list failures propagate so the
// caller can tell "doesn't exist" from "couldn't check".
func (a *Adapter) Find(ctx context.Context, identifier string) (*snippet.ExistingRef, error) {
	opt := &gitlab.ListSnippetsOptions{Page: 1, PerPage: findPageSize}

	for {
		snippets, resp, err := a.client.Snippets.ListSnippets(opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing snippets: %w", err)
		}

		for _, s := range snippets {
			if s.Title == identifier {
				return &snippet.ExistingRef{
					ID:     strconv.Itoa(s.ID),
					Name:   s.Title,
					WebURL: s.WebURL,
				}, nil
			}
		}

		if resp.NextPage == 0 {
			return nil, nil
		}
		opt.Page = resp.NextPage
	}
}

// Create makes a new snippet with all files attached in one call.
func (a *Adapter) Create(ctx context.Context, sn snippet.NormalizedSnippet) (*target.Result, error) {
	files := make([]*gitlab.CreateSnippetFileOptions, 0, len(sn.Files))
	for _, f := range sn.Files {
		files = append(files, &gitlab.CreateSnippetFileOptions{
			FilePath: gitlab.Ptr(f.Name),
			Content:  gitlab.Ptr(f.Content),
		})
	}

	created, _, err := a.client.Snippets.CreateSnippet(&gitlab.CreateSnippetOptions{
		Title:       gitlab.Ptr(sn.Identifier),
		Description: gitlab.Ptr(sn.Description),
		Visibility:  gitlab.Ptr(mapVisibility(sn.Visibility)),
		Files:       &files,
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("creating snippet %q: %w", sn.Identifier, err)
	}

	a.logger.Debug("snippet created", "identifier", sn.Identifier, "id", created.ID)
	return &target.Result{Action: "created", URL: created.WebURL}, nil
}

// Update fully overwrites the snippet: description, visibility, file
// contents, and deletion of remote files absent from the source set.
func (a *Adapter) Update(ctx context.Context, ref snippet.ExistingRef, sn snippet.NormalizedSnippet) (*target.Result, error) {
	id, err := strconv.Atoi(ref.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid snippet id %q: %w", ref.ID, err)
	}

	current, _, err := a.client.Snippets.GetSnippet(id, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching snippet %d: %w", id, err)
	}

	desired := make(map[string]bool, len(sn.Files))
	var files []*gitlab.UpdateSnippetFileOptions
	for _, f := range sn.Files {
		desired[f.Name] = true
		action := "create"
		for _, existing := range current.Files {
			if existing.Path == f.Name {
				action = "update"
				break
			}
		}
		files = append(files, &gitlab.UpdateSnippetFileOptions{
			Action:   gitlab.Ptr(action),
			FilePath: gitlab.Ptr(f.Name),
			Content:  gitlab.Ptr(f.Content),
		})
	}
	for _, existing := range current.Files {
		if !desired[existing.Path] {
			files = append(files, &gitlab.UpdateSnippetFileOptions{
				Action:   gitlab.Ptr("delete"),
				FilePath: gitlab.Ptr(existing.Path),
			})
		}
	}

	updated, _, err := a.client.Snippets.UpdateSnippet(id, &gitlab.UpdateSnippetOptions{
		Title:       gitlab.Ptr(sn.Identifier),
		Description: gitlab.Ptr(sn.Description),
		Visibility:  gitlab.Ptr(mapVisibility(sn.Visibility)),
		Files:       &files,
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("updating snippet %d: %w", id, err)
	}

	a.logger.Debug("snippet updated", "identifier", sn.Identifier, "id", id)
	return &target.Result{Action: "updated", URL: updated.WebURL}, nil
}

// Delete removes the snippet.
func (a *Adapter) Delete(ctx context.Context, ref snippet.ExistingRef) (*target.Result, error) {
	id, err := strconv.Atoi(ref.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid snippet id %q: %w", ref.ID, err)
	}

	if _, err := a.client.Snippets.DeleteSnippet(id, gitlab.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("deleting snippet %d: %w", id, err)
	}
	return &target.Result{Action: "deleted"}, nil
}

// mapVisibility translates the neutral tier to GitLab's. GitLab has a
// native internal tier, so all three pass through.
func mapVisibility(v snippet.Visibility) gitlab.VisibilityValue {
	switch v {
	case snippet.VisibilityPublic:
		return gitlab.PublicVisibility
	case snippet.VisibilityInternal:
		return gitlab.InternalVisibility
	default:
		return gitlab.PrivateVisibility
	}
}
