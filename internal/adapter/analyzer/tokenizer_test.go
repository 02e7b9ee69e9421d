package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"hello world", []string{"hello", "world"}},
		{"getUserName", []string{"getUserName"}},
		{"get_user_name", []string{"get_user_name"}},
		{"Größe über", []string{"Größe", "über"}},
		{"a, b; c.", []string{"a", "b", "c"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitWords(tt.input))
		})
	}
}

func TestWordTokenizerCount(t *testing.T) {
	tok := NewWordTokenizer()
	assert.False(t, tok.Exact())

	assert.Equal(t, 0, tok.CountTokens(""))
	assert.Equal(t, 0, tok.CountTokens("   \n\t"))
	assert.Equal(t, 1, tok.CountTokens("|"))
	// ten words -> 13 tokens
	assert.Equal(t, 13, tok.CountTokens("one two three four five six seven eight nine ten"))
}

func TestWordTokenizerMonotonic(t *testing.T) {
	tok := NewWordTokenizer()
	short := tok.CountTokens(strings.Repeat("word ", 10))
	long := tok.CountTokens(strings.Repeat("word ", 100))
	assert.Less(t, short, long)
}

func TestNewTokenizerUnknownEncodingFallsBack(t *testing.T) {
	tok := NewTokenizer("no_such_encoding")
	assert.False(t, tok.Exact())
	assert.Equal(t, 2, tok.CountTokens("hello world"))
}
