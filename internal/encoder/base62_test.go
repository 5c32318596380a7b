package encoder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateLength(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"zero falls back to default", 0, DefaultLength},
		{"negative falls back to default", -3, DefaultLength},
		{"single char", 1, 1},
		{"default", 6, 6},
		{"long", 32, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := Generate(tt.input)
			assert.Len(t, code, tt.expected)
			assert.True(t, isBase62(code), "unexpected character in %q", code)
		})
	}
}

func TestGenerateCoversAlphabet(t *testing.T) {
	// 62^6 codes: a few thousand draws should touch every character
	seen := make(map[byte]bool)
	for i := 0; i < 2000; i++ {
		code := Generate(DefaultLength)
		for j := 0; j < len(code); j++ {
			seen[code[j]] = true
		}
	}
	assert.Len(t, seen, len(alphabet))
}

func TestGenerateVaries(t *testing.T) {
	codes := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		codes[Generate(DefaultLength)] = true
	}
	// collisions are possible but vanishingly rare at 62^6
	assert.Greater(t, len(codes), 990)
}

func isBase62(s string) bool {
	return s != "" && strings.Trim(s, alphabet) == ""
}

func TestIsBase62(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"abc", true},
		{"A1b2C3", true},
		{"", false},
		{"my-link", false},
		{"with space", false},
		{"under_score", false},
		{"ünicode", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, isBase62(tt.input))
		})
	}
}
