package snippet

// FormatDescription applies a target's prefix/suffix/preserve policy.
// When preserve is false the original description is dropped entirely
// and only prefix+suffix remain.
func FormatDescription(description, prefix, suffix string, preserve bool) string {
	if preserve {
		return prefix + description + suffix
	}
	return prefix + suffix
}
