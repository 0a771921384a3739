package snippet

// VisibilityMode is a target's visibility policy.
type VisibilityMode string

const (
	ModePreserve VisibilityMode = "preserve"
	ModePublic   VisibilityMode = "public"
	ModePrivate  VisibilityMode = "private"
	ModeInternal VisibilityMode = "internal"
)

// MapVisibility translates a source item's public flag plus a target's
// visibility policy into a visibility tier. Unrecognized modes fall
// back to preserve. Adapters lacking an internal tier treat
// VisibilityInternal as private.
func MapVisibility(isPublic bool, mode VisibilityMode) Visibility {
	switch mode {
	case ModePublic:
		return VisibilityPublic
	case ModePrivate:
		return VisibilityPrivate
	case ModeInternal:
		return VisibilityInternal
	default:
		if isPublic {
			return VisibilityPublic
		}
		return VisibilityPrivate
	}
}
