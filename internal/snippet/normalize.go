package snippet

// NormalizeOptions carries the per-target formatting policy used to
// build an adapter payload from a source item.
type NormalizeOptions struct {
	DescriptionPrefix   string
	DescriptionSuffix   string
	PreserveDescription bool
	VisibilityMode      VisibilityMode
}

// Normalize builds the adapter-facing payload for one (item, target)
// pair. Files are copied so the payload never aliases the item.
func Normalize(item SourceItem, opts NormalizeOptions) NormalizedSnippet {
	files := make([]File, len(item.Files))
	copy(files, item.Files)

	return NormalizedSnippet{
		Identifier:  DeriveIdentifier(item),
		Description: FormatDescription(item.Description, opts.DescriptionPrefix, opts.DescriptionSuffix, opts.PreserveDescription),
		Visibility:  MapVisibility(item.Public, opts.VisibilityMode),
		Files:       files,
	}
}
