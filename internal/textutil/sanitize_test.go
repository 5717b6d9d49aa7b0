package textutil

import (
	"strings"
	"testing"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "   ", "unknown"},
		{"path", "room1/IMG_0001.jpg", "room1_img_0001_jpg"},
		{"diacritics", "Galería/Müller Café.png", "galeria_muller_cafe_png"},
		{"punctuation only", "///", "unknown"},
		{"collapses runs", "a  --  b", "a_--_b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.input); got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeTokenTruncates(t *testing.T) {
	got := SanitizeToken(strings.Repeat("a", 200))
	if len(got) != maxTokenLength {
		t.Fatalf("expected %d chars, got %d", maxTokenLength, len(got))
	}
}

func TestStableFileNameIsDeterministic(t *testing.T) {
	a := StableFileName("room1/IMG_0001.jpg", "jpg")
	b := StableFileName("room1/IMG_0001.jpg", ".jpg")
	if a != b {
		t.Fatalf("expected identical names, got %q and %q", a, b)
	}
	if !strings.HasPrefix(a, "room1_img_0001_jpg-") || !strings.HasSuffix(a, ".jpg") {
		t.Fatalf("unexpected name %q", a)
	}
	// Both tokens fold to the same text but the hash keeps them apart.
	if StableFileName("room1/a b.jpg", "jpg") == StableFileName("room1/a_b.jpg", "jpg") {
		t.Fatal("expected hash suffix to separate colliding tokens")
	}
}

func TestFoldAndCollapse(t *testing.T) {
	if got := FoldDiacritics("Señor Dalí"); got != "Senor Dali" {
		t.Fatalf("FoldDiacritics = %q", got)
	}
	if got := CollapseWhitespace("  The \n Kiss\t "); got != "The Kiss" {
		t.Fatalf("CollapseWhitespace = %q", got)
	}
}
