package snippet

import "testing"

func TestFormatDescription(t *testing.T) {
	tests := []struct {
		name     string
		desc     string
		prefix   string
		suffix   string
		preserve bool
		want     string
	}{
		{"preserve plain", "my gist", "", "", true, "my gist"},
		{"preserve with prefix", "my gist", "[mirror] ", "", true, "[mirror] my gist"},
		{"preserve with both", "my gist", "[mirror] ", " (synced)", true, "[mirror] my gist (synced)"},
		{"dropped", "my gist", "[mirror]", "", false, "[mirror]"},
		{"dropped empty affixes", "my gist", "", "", false, ""},
		{"empty description preserved", "", "pre-", "-suf", true, "pre--suf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatDescription(tt.desc, tt.prefix, tt.suffix, tt.preserve)
			if got != tt.want {
				t.Errorf("FormatDescription = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeCopiesFiles(t *testing.T) {
	item := SourceItem{
		ID:          "abc123456789",
		Description: "Terraform AWS Module!!",
		Public:      true,
		Files:       []File{{Name: "main.tf", Content: "resource {}"}},
	}
	sn := Normalize(item, NormalizeOptions{
		PreserveDescription: true,
		VisibilityMode:      ModePreserve,
	})

	if sn.Identifier != "terraform-aws-module" {
		t.Errorf("Identifier = %q, want %q", sn.Identifier, "terraform-aws-module")
	}
	if sn.Visibility != VisibilityPublic {
		t.Errorf("Visibility = %q, want public", sn.Visibility)
	}

	sn.Files[0].Content = "mutated"
	if item.Files[0].Content != "resource {}" {
		t.Error("Normalize aliased the item's file slice")
	}
}
