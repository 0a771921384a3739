package snippet

import "time"

// File is one named text file inside a snippet. Filenames are unique
// within an item.
type File struct {
	Name     string
	Content  string
	Size     int64
	Language string
}

// SourceItem is one gist fetched from the source platform. Immutable
// once fetched; owned by the orchestrator for the duration of one run.
type SourceItem struct {
	ID          string
	Description string
	Files       []File
	Public      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// FilesLoaded reports whether file contents are resident. The list
	// endpoint returns metadata only; the orchestrator fetches detail
	// lazily before the first dispatch of an item.
	FilesLoaded bool
}

// Visibility is the platform-neutral visibility tier of a snippet.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
)

// NormalizedSnippet is the adapter-facing payload built per
// (SourceItem, TargetConfig) pair. Constructed, consumed by one
// adapter call, discarded.
type NormalizedSnippet struct {
	Identifier  string
	Description string
	Visibility  Visibility
	Files       []File
}

// ExistingRef points at an object already present at a target. ID is
// the target-native handle (numeric snippet ID, repo name, KBFS path);
// only the adapter that produced it interprets it.
type ExistingRef struct {
	ID     string
	Name   string
	WebURL string
}
