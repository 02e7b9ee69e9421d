package analyzer

import (
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used by the OpenAI embedding models.
const DefaultEncoding = "cl100k_base"

// Tokenizer counts model tokens for chunk budgeting.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer loads the named BPE encoding. When the encoding cannot be
// loaded (offline, unknown name) the tokenizer falls back to a word-based
// estimate.
func NewTokenizer(encoding string) *Tokenizer {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return &Tokenizer{}
	}
	return &Tokenizer{enc: enc}
}

// NewWordTokenizer returns a tokenizer that only uses the word estimate.
func NewWordTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Exact reports whether counts come from a real BPE encoding.
func (t *Tokenizer) Exact() bool {
	return t.enc != nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if t.enc != nil {
		return len(t.enc.Encode(text, nil, nil))
	}
	return estimateTokens(text)
}

// estimateTokens approximates subword tokens: words plus punctuation, with
// the average word being about 1.3 tokens.
func estimateTokens(text string) int {
	words := splitWords(text)
	punct := 0
	for _, r := range text {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			punct++
		}
	}
	if len(words) == 0 && punct == 0 {
		return 0
	}
	n := int(float64(len(words))*1.3) + punct
	if n == 0 {
		n = 1
	}
	return n
}

// splitWords splits text into words using unicode word boundaries.
func splitWords(text string) []string {
	var words []string
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, text[start:])
	}
	return words
}
