package identifier

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple login", "octocat", true},
		{"single character", "a", true},
		{"single digit", "7", true},
		{"internal hyphen", "mona-lisa", true},
		{"multiple internal hyphens", "a-b-c", true},
		{"mixed case preserved", "OctoCat42", true},
		{"max length", strings.Repeat("a", 39), true},
		{"surrounding whitespace trimmed", "  torvalds  ", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"too long", strings.Repeat("a", 40), false},
		{"leading hyphen", "-octocat", false},
		{"trailing hyphen", "octocat-", false},
		{"only hyphen", "-", false},
		{"underscore", "invalid_user", false},
		{"exclamation mark", "invalid_user!", false},
		{"internal space", "octo cat", false},
		{"unicode", "octocät", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.input); got != tt.want {
				t.Errorf("Validate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  OctoCat "); got != "octocat" {
		t.Errorf("Normalize = %q, want %q", got, "octocat")
	}
}

func TestParseBatch_DeduplicatesFirstSeen(t *testing.T) {
	batch := ParseBatch("a, a, B")

	want := []string{"a", "B"}
	if !reflect.DeepEqual(batch.Valid, want) {
		t.Errorf("Valid = %v, want %v", batch.Valid, want)
	}
	if len(batch.Invalid) != 0 {
		t.Errorf("Invalid = %v, want empty", batch.Invalid)
	}
}

func TestParseBatch_CaseSensitiveDedup(t *testing.T) {
	// Exact-match dedup only: different casing stays distinct.
	batch := ParseBatch("Octocat, octocat")

	want := []string{"Octocat", "octocat"}
	if !reflect.DeepEqual(batch.Valid, want) {
		t.Errorf("Valid = %v, want %v", batch.Valid, want)
	}
}

func TestParseBatch_MixedInput(t *testing.T) {
	batch := ParseBatch("octocat, , invalid_user!, torvalds")

	wantValid := []string{"octocat", "torvalds"}
	if !reflect.DeepEqual(batch.Valid, wantValid) {
		t.Errorf("Valid = %v, want %v", batch.Valid, wantValid)
	}

	wantInvalid := []string{"invalid_user!"}
	if !reflect.DeepEqual(batch.Invalid, wantInvalid) {
		t.Errorf("Invalid = %v, want %v", batch.Invalid, wantInvalid)
	}
}

func TestParseBatch_Empty(t *testing.T) {
	batch := ParseBatch("")

	if len(batch.Valid) != 0 || len(batch.Invalid) != 0 {
		t.Errorf("ParseBatch(\"\") = %+v, want empty batch", batch)
	}
}
