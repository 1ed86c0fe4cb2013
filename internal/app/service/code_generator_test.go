package service

import (
	"strings"
	"testing"
)

func TestCodeGenerator_Generate(t *testing.T) {
	gen := NewCodeGenerator("", 0)

	code, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(code) != DefaultCodeLength {
		t.Fatalf("expected %d-character code, got %q", DefaultCodeLength, code)
	}
	for _, r := range code {
		if !strings.ContainsRune(DefaultCodeAlphabet, r) {
			t.Fatalf("code %q contains character outside the alphabet", code)
		}
	}
}

func TestCodeGenerator_CustomAlphabet(t *testing.T) {
	gen := NewCodeGenerator("abc123", 10)

	for range 20 {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if len(code) != 10 {
			t.Fatalf("expected 10-character code, got %q", code)
		}
		for _, r := range code {
			if !strings.ContainsRune("abc123", r) {
				t.Fatalf("code %q contains character outside the alphabet", code)
			}
		}
	}
}

func TestCodeGenerator_CodesAreDistinct(t *testing.T) {
	gen := NewCodeGenerator("", 6)

	seen := make(map[string]struct{}, 100)
	for range 100 {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("generated duplicate code %q within 100 draws", code)
		}
		seen[code] = struct{}{}
	}
}
