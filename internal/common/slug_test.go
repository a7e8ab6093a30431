package common

import "testing"

// TestSlugify verifies filename-safe slug generation
func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Curtin Maritime", "curtin-maritime"},
		{"punctuation collapses", "Great Lakes Dredge & Dock", "great-lakes-dredge-dock"},
		{"leading and trailing stripped", "  Weeks Marine  ", "weeks-marine"},
		{"digits kept", "Area 51 Marine", "area-51-marine"},
		{"empty falls back", "", "target"},
		{"symbols only fall back", "&&&", "target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
