package snippet

import "strings"

// maxIdentifierLen bounds description-derived identifiers.
const maxIdentifierLen = 50

// DeriveIdentifier returns the stable, platform-neutral name used to
// match a source item to its counterpart at a target. It never fails
// and always returns the same value for the same item.
//
// Known limitation: two items whose sanitized descriptions share the
// same 50-character prefix derive the same identifier. This mirrors
// the matching behavior targets observe; it is not deduplicated here.
func DeriveIdentifier(item SourceItem) string {
	if item.Description != "" {
		if id := sanitize(item.Description); id != "" {
			return id
		}
	}

	if len(item.Files) > 0 {
		name := item.Files[0].Name
		if dot := strings.LastIndex(name, "."); dot > 0 {
			name = name[:dot]
		}
		if name != "" {
			return name
		}
	}

	if len(item.ID) > 8 {
		return item.ID[:8]
	}
	return item.ID
}

// sanitize lowercases, maps everything outside [a-z0-9] to '-',
// collapses runs of '-', trims, and truncates to maxIdentifierLen.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastDash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > maxIdentifierLen {
		out = out[:maxIdentifierLen]
		out = strings.TrimRight(out, "-")
	}
	return out
}
