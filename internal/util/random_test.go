package util

import (
	"strings"
	"testing"
)

func TestGenerateRandomHex(t *testing.T) {
	hex := GenerateRandomHex(16)
	if len(hex) != 16 {
		t.Errorf("expected length 16, got %d", len(hex))
	}
	for _, c := range hex {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("unexpected character %q in hex string", c)
		}
	}

	if GenerateRandomHex(0) != "" {
		t.Error("expected empty string for zero length")
	}
	if GenerateRandomHex(-5) != "" {
		t.Error("expected empty string for negative length")
	}
}

func TestGenerateOptimisticID(t *testing.T) {
	id := GenerateOptimisticID()
	if !strings.HasPrefix(id, "sup-") {
		t.Errorf("expected sup- prefix, got %q", id)
	}
	if len(strings.Split(id, "-")) != 3 {
		t.Errorf("expected timestamp and suffix components, got %q", id)
	}

	// Collisions within a session should be vanishingly unlikely.
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		v := GenerateOptimisticID()
		if seen[v] {
			t.Fatalf("duplicate optimistic id generated: %q", v)
		}
		seen[v] = true
	}
}
