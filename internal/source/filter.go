package source

import (
	"log/slog"
	"regexp"
	"time"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/snippet"
)

// Filters selects which listed items participate in a run. When IDs is
// non-empty it is used exclusively and every other stage is bypassed.
type Filters struct {
	Visibility string
	Since      string
	Include    string
	Exclude    string
	IDs        []string
}

// FiltersFromConfig converts the config representation.
func FiltersFromConfig(fc config.FilterConfig) Filters {
	return Filters{
		Visibility: fc.Visibility,
		Since:      fc.Since,
		Include:    fc.Include,
		Exclude:    fc.Exclude,
		IDs:        fc.IDs,
	}
}

// Apply runs the filter chain in fixed precedence: ID allow-list
// (exclusive), then visibility, since-date, include pattern, exclude
// pattern as a sequential AND chain. A malformed pattern or date makes
// that stage a no-op; it never aborts the listing.
func (f Filters) Apply(items []snippet.SourceItem, logger *slog.Logger) []snippet.SourceItem {
	if logger == nil {
		logger = slog.Default()
	}

	if len(f.IDs) > 0 {
		allowed := make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			allowed[id] = true
		}
		var out []snippet.SourceItem
		for _, item := range items {
			if allowed[item.ID] {
				out = append(out, item)
			}
		}
		logger.Debug("filter stage", "stage", "ids", "in", len(items), "out", len(out))
		return out
	}

	items = f.applyVisibility(items, logger)
	items = f.applySince(items, logger)
	items = f.applyPattern(items, f.Include, false, logger)
	items = f.applyPattern(items, f.Exclude, true, logger)
	return items
}

func (f Filters) applyVisibility(items []snippet.SourceItem, logger *slog.Logger) []snippet.SourceItem {
	var wantPublic bool
	switch f.Visibility {
	case "public":
		wantPublic = true
	case "private", "secret":
		wantPublic = false
	default:
		return items
	}

	var out []snippet.SourceItem
	for _, item := range items {
		if item.Public == wantPublic {
			out = append(out, item)
		}
	}
	logger.Debug("filter stage", "stage", "visibility", "in", len(items), "out", len(out))
	return out
}

func (f Filters) applySince(items []snippet.SourceItem, logger *slog.Logger) []snippet.SourceItem {
	if f.Since == "" {
		return items
	}

	since, err := parseSince(f.Since)
	if err != nil {
		logger.Warn("ignoring malformed since filter", "since", f.Since, "error", err)
		return items
	}

	var out []snippet.SourceItem
	for _, item := range items {
		// Inclusive: items updated exactly at the boundary pass.
		if !item.UpdatedAt.Before(since) {
			out = append(out, item)
		}
	}
	logger.Debug("filter stage", "stage", "since", "in", len(items), "out", len(out))
	return out
}

func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// applyPattern filters by a case-insensitive regex over the
// description. An empty description never matches, so include drops it
// and exclude keeps it. invert selects exclude semantics.
func (f Filters) applyPattern(items []snippet.SourceItem, pattern string, invert bool, logger *slog.Logger) []snippet.SourceItem {
	if pattern == "" {
		return items
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		logger.Warn("ignoring malformed filter pattern", "pattern", pattern, "error", err)
		return items
	}

	stage := "include"
	if invert {
		stage = "exclude"
	}

	var out []snippet.SourceItem
	for _, item := range items {
		matched := item.Description != "" && re.MatchString(item.Description)
		if matched != invert {
			out = append(out, item)
		}
	}
	logger.Debug("filter stage", "stage", stage, "in", len(items), "out", len(out))
	return out
}
