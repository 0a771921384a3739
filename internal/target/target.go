package target

import (
	"context"
	"errors"
	"fmt"

	"github.com/gistmirror/gistmirror/internal/snippet"
)

// ErrNotApplicable is returned by adapters declining an optional
// capability (e.g. delete on a platform without object deletion). The
// orchestrator treats it as a no-op, not a failure.
var ErrNotApplicable = errors.New("operation not applicable for this platform")

// Result reports what an adapter write did.
type Result struct {
	Action string // "created", "updated", "deleted", "noop"
	URL    string // target-side link when the platform provides one
}

// AdapterError marks a platform operation that failed after at least
// one successful underlying call.
type AdapterError struct {
	Target string
	Op     string
	Err    error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Target, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Adapter is the capability set every target platform implements.
// Each concrete adapter owns its platform's base-URL resolution,
// authentication header shape, pagination idiom, and the translation
// between NormalizedSnippet and the platform's native representation.
type Adapter interface {
	// Name returns the configured target name (used for logging and
	// env-var token lookup, not platform identity).
	Name() string

	// Provider returns the platform identifier (e.g. "gitlab").
	Provider() string

	// Find looks up an existing object by identifier. A miss returns
	// (nil, nil); errors mean "couldn't check", never "doesn't exist".
	Find(ctx context.Context, identifier string) (*snippet.ExistingRef, error)

	// Create makes a new object with all files attached. Multi-call
	// platforms report overall success even when individual file
	// uploads fail, logging per-file warnings.
	Create(ctx context.Context, sn snippet.NormalizedSnippet) (*Result, error)

	// Update fully overwrites description, visibility, and file
	// contents of an existing object.
	Update(ctx context.Context, ref snippet.ExistingRef, sn snippet.NormalizedSnippet) (*Result, error)

	// Delete removes an existing object. Platforms lacking deletion
	// return ErrNotApplicable.
	Delete(ctx context.Context, ref snippet.ExistingRef) (*Result, error)
}
