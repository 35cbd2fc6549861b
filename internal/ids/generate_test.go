package ids

import "testing"

func TestNew_Length(t *testing.T) {
	id := New()

	if len(id) != Length {
		t.Fatalf("expected ID length %d, got %d: %q", Length, len(id), id)
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %q", id)
		}
		seen[id] = true
	}
}

func TestNew_Valid(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := New()
		if !Valid(id) {
			t.Errorf("generated ID failed validation: %q", id)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"AbCdEfGhIjKlMnOpQrStUv", true},
		{"1234567890-_1234567890", true},
		{"short", false},
		{"", false},
		{"AbCdEfGhIjKlMnOpQrStUvWx", false},
		{"AbCdEfGhIjKlMnOpQrSt!v", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.id); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
