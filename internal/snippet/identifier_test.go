package snippet

import (
	"strings"
	"testing"
)

func TestDeriveIdentifierFromDescription(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{"simple", "Terraform AWS Module!!", "terraform-aws-module"},
		{"collapses runs", "a   b---c", "a-b-c"},
		{"trims edges", "  !hello!  ", "hello"},
		{"lowercases", "MyScript", "myscript"},
		{"digits kept", "backup v2", "backup-v2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveIdentifier(SourceItem{ID: "abc123456789", Description: tt.description})
			if got != tt.want {
				t.Errorf("DeriveIdentifier(%q) = %q, want %q", tt.description, got, tt.want)
			}
		})
	}
}

func TestDeriveIdentifierTruncation(t *testing.T) {
	long := strings.Repeat("abcde ", 20)
	got := DeriveIdentifier(SourceItem{ID: "x", Description: long})
	if len(got) > 50 {
		t.Errorf("identifier length = %d, want <= 50", len(got))
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("identifier %q has trailing dash after truncation", got)
	}
}

func TestDeriveIdentifierFromFirstFile(t *testing.T) {
	item := SourceItem{
		ID: "abc123456789",
		Files: []File{
			{Name: "main.go"},
			{Name: "util.go"},
		},
	}
	if got := DeriveIdentifier(item); got != "main" {
		t.Errorf("DeriveIdentifier = %q, want %q", got, "main")
	}

	// No extension: whole name is used.
	item.Files = []File{{Name: "Makefile"}}
	if got := DeriveIdentifier(item); got != "Makefile" {
		t.Errorf("DeriveIdentifier = %q, want %q", got, "Makefile")
	}
}

func TestDeriveIdentifierFromID(t *testing.T) {
	item := SourceItem{ID: "abc123456789"}
	if got := DeriveIdentifier(item); got != "abc12345" {
		t.Errorf("DeriveIdentifier = %q, want %q", got, "abc12345")
	}

	// Short IDs are used whole.
	item.ID = "ab12"
	if got := DeriveIdentifier(item); got != "ab12" {
		t.Errorf("DeriveIdentifier = %q, want %q", got, "ab12")
	}
}

func TestDeriveIdentifierDeterministic(t *testing.T) {
	item := SourceItem{
		ID:          "abc123456789",
		Description: "My Deploy Script (v2)",
		Files:       []File{{Name: "deploy.sh"}},
	}
	first := DeriveIdentifier(item)
	for i := 0; i < 10; i++ {
		if got := DeriveIdentifier(item); got != first {
			t.Fatalf("iteration %d: got %q, want %q", i, got, first)
		}
	}
}
