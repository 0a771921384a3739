package target

import (
	"testing"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/snippet"
)

func TestResolve(t *testing.T) {
	ref := &snippet.ExistingRef{ID: "42", Name: "main"}

	tests := []struct {
		name     string
		existing *snippet.ExistingRef
		policy   config.OnConflict
		want     Action
	}{
		{"absent + skip", nil, config.ConflictSkip, ActionCreate},
		{"absent + update", nil, config.ConflictUpdate, ActionCreate},
		{"absent + replace", nil, config.ConflictReplace, ActionCreate},
		{"present + skip", ref, config.ConflictSkip, ActionSkip},
		{"present + update", ref, config.ConflictUpdate, ActionUpdate},
		{"present + replace", ref, config.ConflictReplace, ActionUpdate},
		{"present + unset policy", ref, config.OnConflict(""), ActionSkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.existing, tt.policy); got != tt.want {
				t.Errorf("Resolve = %q, want %q", got, tt.want)
			}
		})
	}
}
