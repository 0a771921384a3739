package target

import (
	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/snippet"
)

// Action is a conflict resolution decision.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// Resolve decides what to do given whether a same-identifier object
// already exists at the target and the target's conflict policy.
// "replace" maps to update because adapter updates already fully
// overwrite content; there is no partial-merge path. An unset policy
// behaves as skip, the conservative default.
func Resolve(existing *snippet.ExistingRef, policy config.OnConflict) Action {
	if existing == nil {
		return ActionCreate
	}
	switch policy {
	case config.ConflictUpdate, config.ConflictReplace:
		return ActionUpdate
	default:
		return ActionSkip
	}
}
