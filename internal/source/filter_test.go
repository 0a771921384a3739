package source

import (
	"testing"
	"time"

	"github.com/gistmirror/gistmirror/internal/snippet"
)

func mkItems() []snippet.SourceItem {
	return []snippet.SourceItem{
		{ID: "g1", Description: "terraform module", Public: true, UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "g2", Description: "private notes", Public: false, UpdatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "g3", Description: "", Public: true, UpdatedAt: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func ids(items []snippet.SourceItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func equalIDs(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestVisibilityFilter(t *testing.T) {
	f := Filters{Visibility: "public"}
	got := ids(f.Apply(mkItems(), nil))
	if !equalIDs(got, "g1", "g3") {
		t.Errorf("public filter = %v", got)
	}

	f = Filters{Visibility: "private"}
	got = ids(f.Apply(mkItems(), nil))
	if !equalIDs(got, "g2") {
		t.Errorf("private filter = %v", got)
	}

	f = Filters{Visibility: "all"}
	got = ids(f.Apply(mkItems(), nil))
	if !equalIDs(got, "g1", "g2", "g3") {
		t.Errorf("all filter = %v", got)
	}
}

func TestIDAllowListBypassesOtherFilters(t *testing.T) {
	f := Filters{
		IDs:        []string{"g2"},
		Visibility: "public", // would exclude g2
		Include:    "terraform",
		Since:      "2030-01-01",
	}
	got := ids(f.Apply(mkItems(), nil))
	if !equalIDs(got, "g2") {
		t.Errorf("allow-list = %v, want exclusively g2", got)
	}
}

func TestSinceFilterInclusive(t *testing.T) {
	f := Filters{Since: "2024-06-01"}
	got := ids(f.Apply(mkItems(), nil))
	if !equalIDs(got, "g2", "g3") {
		t.Errorf("since filter = %v, want boundary item kept", got)
	}
}

func TestSinceFilterMalformedDateIsNoOp(t *testing.T) {
	f := Filters{Since: "next tuesday"}
	got := ids(f.Apply(mkItems(), nil))
	if !equalIDs(got, "g1", "g2", "g3") {
		t.Errorf("malformed since = %v, want pass-through", got)
	}
}

func TestIncludePattern(t *testing.T) {
	f := Filters{Include: "TERRAFORM"}
	got := ids(f.Apply(mkItems(), nil))
	if !equalIDs(got, "g1") {
		t.Errorf("include filter = %v, want case-insensitive match only", got)
	}
}

func TestExcludePatternKeepsEmptyDescription(t *testing.T) {
	f := Filters{Exclude: "notes"}
	got := ids(f.Apply(mkItems(), nil))
	// g3 has no description: it never matches, so exclude keeps it.
	if !equalIDs(got, "g1", "g3") {
		t.Errorf("exclude filter = %v", got)
	}
}

func TestMalformedPatternIsNoOp(t *testing.T) {
	f := Filters{Include: "(unclosed"}
	got := ids(f.Apply(mkItems(), nil))
	if !equalIDs(got, "g1", "g2", "g3") {
		t.Errorf("malformed include = %v, want pass-through", got)
	}
}

func TestFilterChainComposes(t *testing.T) {
	f := Filters{Visibility: "public", Include: "terraform"}
	got := ids(f.Apply(mkItems(), nil))
	if !equalIDs(got, "g1") {
		t.Errorf("chained filters = %v", got)
	}
}
