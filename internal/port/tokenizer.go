package port

// Tokenizer counts model tokens so chunkers can stay under a budget.
type Tokenizer interface {
	CountTokens(text string) int
}
