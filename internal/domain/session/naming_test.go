package session

import (
	"strings"
	"testing"
)

func TestGenerateName(t *testing.T) {
	for i := 0; i < 50; i++ {
		name := GenerateName()

		parts := strings.Split(name, "-")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			t.Fatalf("expected adjective-namesake, got %q", name)
		}
		if !IsValidName(name) {
			t.Fatalf("generated name %q is not valid", name)
		}
	}
}

func TestIsValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"terse-gage", true},
		{"my-project-notes", true},
		{"", false},
		{"noseparator", false},
		{"has space-in-it", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidName(tt.name); got != tt.want {
				t.Errorf("IsValidName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
