package target

import (
	"context"
	"log/slog"

	"github.com/gistmirror/gistmirror/internal/snippet"
)

// DryRun wraps an adapter, replacing every write with a no-op that
// logs the action that would occur. Find still executes (read-only) so
// conflict decisions stay realistic.
type DryRun struct {
	inner  Adapter
	logger *slog.Logger
}

// NewDryRun wraps an adapter for dry-run mode.
func NewDryRun(inner Adapter, logger *slog.Logger) *DryRun {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRun{inner: inner, logger: logger}
}

func (d *DryRun) Name() string     { return d.inner.Name() }
func (d *DryRun) Provider() string { return d.inner.Provider() }

func (d *DryRun) Find(ctx context.Context, identifier string) (*snippet.ExistingRef, error) {
	return d.inner.Find(ctx, identifier)
}

func (d *DryRun) Create(ctx context.Context, sn snippet.NormalizedSnippet) (*Result, error) {
	d.logger.Info("dry-run: would create",
		"target", d.inner.Name(),
		"identifier", sn.Identifier,
		"visibility", sn.Visibility,
		"files", len(sn.Files),
	)
	return &Result{Action: "created"}, nil
}

func (d *DryRun) Update(ctx context.Context, ref snippet.ExistingRef, sn snippet.NormalizedSnippet) (*Result, error) {
	d.logger.Info("dry-run: would update",
		"target", d.inner.Name(),
		"identifier", sn.Identifier,
		"existing", ref.ID,
	)
	return &Result{Action: "updated"}, nil
}

func (d *DryRun) Delete(ctx context.Context, ref snippet.ExistingRef) (*Result, error) {
	d.logger.Info("dry-run: would delete",
		"target", d.inner.Name(),
		"existing", ref.ID,
	)
	return &Result{Action: "deleted"}, nil
}
