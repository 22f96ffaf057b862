package utils

import (
	"testing"
)

func TestHashString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple string",
			input:    "hello",
			expected: "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "da39a3ee5e6b4b0d3255bfef95601890afd80709",
		},
		{
			name:     "Complex string",
			input:    "The quick brown fox jumps over the lazy dog",
			expected: "2fd4e1c67a2d28fced849ee1bb76e7391b93eb12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HashString(tt.input)

			if len(result) != 40 {
				t.Errorf("Expected hash length 40, got %d", len(result))
			}

			if result != HashString(tt.input) {
				t.Errorf("Hash function not consistent")
			}

			if result != tt.expected {
				t.Errorf("Expected hash %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestHashString_Uniqueness(t *testing.T) {
	inputs := []string{
		"test1",
		"test2",
		"Test1",
		"test 1",
		"test1 ",
		" test1",
	}

	seen := make(map[string]string)
	for _, input := range inputs {
		hash := HashString(input)
		if prev, exists := seen[hash]; exists {
			t.Errorf("Hash collision: %q and %q both hash to %s", prev, input, hash)
		}
		seen[hash] = input
	}
}
