package keybase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/snippet"
	"github.com/gistmirror/gistmirror/internal/target"
)

const defaultBinary = "keybase"

// runner executes the keybase binary. Swappable in tests.
type runner func(ctx context.Context, args ...string) ([]byte, error)

// Adapter mirrors gists into KBFS folders. Each snippet becomes a
// directory /keybase/{public|private}/<username>/snippets/<identifier>/
// with one file per snippet file. The logged-in keybase session is the
// credential; no token is involved. KBFS has no internal tier, so
// internal maps to private.
type Adapter struct {
	name     string
	username string
	logger   *slog.Logger
	run      runner
}

// New creates a Keybase adapter for one configured target. The keybase
// binary must be on PATH with an active session; Verify checks both.
func New(cfg config.TargetConfig, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	binary := defaultBinary
	return &Adapter{
		name:     cfg.Name,
		username: cfg.Username,
		logger:   logger.With("target", cfg.Name, "provider", "keybase"),
		run: func(ctx context.Context, args ...string) ([]byte, error) {
			cmd := exec.CommandContext(ctx, binary, args...)
			out, err := cmd.CombinedOutput()
			if err != nil {
				return out, fmt.Errorf("keybase %s: %w: %s",
					args[0], err, strings.TrimSpace(string(out)))
			}
			return out, nil
		},
	}
}

func (a *Adapter) Name() string     { return a.name }
func (a *Adapter) Provider() string { return config.ProviderKeybase }

// Verify confirms the binary is reachable and a session is active.
func (a *Adapter) Verify(ctx context.Context) error {
	if _, err := exec.LookPath(defaultBinary); err != nil {
		return fmt.Errorf("keybase binary not found: %w", err)
	}
	out, err := a.run(ctx, "whoami")
	if err != nil {
		return fmt.Errorf("no active keybase session: %w", err)
	}
	who := strings.TrimSpace(string(out))
	if a.username != "" && who != a.username {
		return fmt.Errorf("keybase session is %q, configured username is %q", who, a.username)
	}
	return nil
}

func (a *Adapter) snippetDir(tier, identifier string) string {
	return "/keybase/" + tier + "/" + a.username + "/snippets/" + identifier
}

func (a *Adapter) tierFor(vis snippet.Visibility) string {
	if vis == snippet.VisibilityPublic {
		return "public"
	}
	return "private"
}

// Find probes both tiers for the snippet directory. A missing path is
// a miss, not an error; any other fs ls failure (expired session,
// service down) propagates so the caller can tell "doesn't exist"
// from "couldn't check".
func (a *Adapter) Find(ctx context.Context, identifier string) (*snippet.ExistingRef, error) {
	for _, tier := range []string{"public", "private"} {
		dir := a.snippetDir(tier, identifier)
		if _, err := a.run(ctx, "fs", "ls", dir); err != nil {
			if isNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("listing %s: %w", dir, err)
		}
		return &snippet.ExistingRef{ID: dir, Name: identifier}, nil
	}
	return nil, nil
}

// isNotExist reports whether a keybase fs error means the path is
// absent. The CLI has no structured exit codes for this, so the
// message text is matched.
func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such file") ||
		strings.Contains(msg, "not found")
}

// Create writes all files into a fresh KBFS directory.
func (a *Adapter) Create(ctx context.Context, sn snippet.NormalizedSnippet) (*target.Result, error) {
	dir := a.snippetDir(a.tierFor(sn.Visibility), sn.Identifier)

	if _, err := a.run(ctx, "fs", "mkdir", dir); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := a.writeFiles(ctx, dir, sn.Files); err != nil {
		return nil, err
	}

	a.logger.Debug("snippet directory created", "identifier", sn.Identifier, "path", dir)
	return &target.Result{Action: "created", URL: dir}, nil
}

// Update rewrites the directory contents in place. When the desired
// tier differs from where the snippet currently lives, the old
// directory is removed and the content lands under the new tier.
func (a *Adapter) Update(ctx context.Context, ref snippet.ExistingRef, sn snippet.NormalizedSnippet) (*target.Result, error) {
	dir := a.snippetDir(a.tierFor(sn.Visibility), sn.Identifier)

	if ref.ID != "" && ref.ID != dir {
		if _, err := a.run(ctx, "fs", "rm", "-r", ref.ID); err != nil {
			return nil, fmt.Errorf("removing %s: %w", ref.ID, err)
		}
		if _, err := a.run(ctx, "fs", "mkdir", dir); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	if err := a.writeFiles(ctx, dir, sn.Files); err != nil {
		return nil, err
	}
	if err := a.removeStale(ctx, dir, sn.Files); err != nil {
		return nil, err
	}

	a.logger.Debug("snippet directory updated", "identifier", sn.Identifier, "path", dir)
	return &target.Result{Action: "updated", URL: dir}, nil
}

// Delete removes the snippet directory.
func (a *Adapter) Delete(ctx context.Context, ref snippet.ExistingRef) (*target.Result, error) {
	if _, err := a.run(ctx, "fs", "rm", "-r", ref.ID); err != nil {
		return nil, fmt.Errorf("removing %s: %w", ref.ID, err)
	}
	return &target.Result{Action: "deleted"}, nil
}

// writeFiles stages content in a local temp directory and copies each
// file into KBFS. keybase fs cp reads local paths directly.
func (a *Adapter) writeFiles(ctx context.Context, dir string, files []snippet.File) error {
	tmp, err := os.MkdirTemp("", "gistmirror-kbfs-")
	if err != nil {
		return fmt.Errorf("creating staging dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(tmp)
	}()

	for _, f := range files {
		local := filepath.Join(tmp, filepath.Base(f.Name))
		if err := os.WriteFile(local, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("staging %s: %w", f.Name, err)
		}
		if _, err := a.run(ctx, "fs", "cp", local, dir+"/"+f.Name); err != nil {
			return fmt.Errorf("copying %s: %w", f.Name, err)
		}
	}
	return nil
}

// removeStale deletes KBFS files no longer present in the snippet.
func (a *Adapter) removeStale(ctx context.Context, dir string, files []snippet.File) error {
	out, err := a.run(ctx, "fs", "ls", "-1", dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}

	want := make(map[string]bool, len(files))
	for _, f := range files {
		want[f.Name] = true
	}

	for _, line := range strings.Split(string(out), "\n") {
		name := strings.TrimSpace(line)
		if name == "" || want[name] {
			continue
		}
		if _, err := a.run(ctx, "fs", "rm", dir+"/"+name); err != nil {
			return fmt.Errorf("removing stale %s: %w", name, err)
		}
	}
	return nil
}
