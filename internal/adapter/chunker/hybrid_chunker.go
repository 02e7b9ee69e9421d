package chunker

import (
	"sort"
	"strings"

	"ragdesk/internal/domain"
	"ragdesk/internal/port"
)

// DefaultMaxTokens is the input limit of the OpenAI embedding models.
const DefaultMaxTokens = 8191

// HybridChunker splits a document along its structure and then enforces a
// token budget. Oversized elements are split on line and word boundaries;
// with mergePeers, neighbouring elements under the same headings are packed
// together while they fit.
type HybridChunker struct {
	maxTokens  int
	mergePeers bool
	tokenizer  port.Tokenizer
}

func NewHybridChunker(maxTokens int, mergePeers bool, tokenizer port.Tokenizer) *HybridChunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &HybridChunker{
		maxTokens:  maxTokens,
		mergePeers: mergePeers,
		tokenizer:  tokenizer,
	}
}

type heading struct {
	level int
	text  string
}

type piece struct {
	headings []string
	text     string
	pages    []int
}

func (c *HybridChunker) Chunk(doc *domain.Document) ([]domain.Chunk, error) {
	if doc.Empty() {
		return nil, domain.ErrEmptyDocument
	}

	elements := doc.Elements
	if doc.Table != nil {
		table := &domain.Document{Table: doc.Table}
		elements = append([]domain.Element{{Kind: domain.ElementTable, Text: table.ExportMarkdown()}}, elements...)
	}

	var stack []heading
	var pieces []piece

	for _, el := range elements {
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}
		if el.Kind == domain.ElementHeading {
			level := el.Level
			if level <= 0 {
				level = 1
			}
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, heading{level: level, text: text})
			continue
		}

		headings := headingTexts(stack)
		budget := c.maxTokens - c.tokenizer.CountTokens(strings.Join(headings, "\n"))
		if budget <= 0 {
			budget = c.maxTokens
		}

		var pages []int
		if el.Page > 0 {
			pages = []int{el.Page}
		}
		for _, part := range c.splitText(text, budget) {
			pieces = c.add(pieces, piece{
				headings: headings,
				text:     part,
				pages:    pages,
			}, budget)
		}
	}

	// A document made only of headings still yields its outline.
	if len(pieces) == 0 && len(stack) > 0 {
		pieces = append(pieces, piece{text: strings.Join(headingTexts(stack), "\n")})
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	for _, p := range pieces {
		text := p.text
		if len(p.headings) > 0 {
			text = strings.Join(p.headings, "\n") + "\n" + text
		}
		chunks = append(chunks, domain.Chunk{
			Text:     text,
			Filename: doc.Origin,
			Pages:    p.pages,
			Headings: p.headings,
		})
	}
	return chunks, nil
}

// add appends p, merging it into the previous piece when peers may merge.
func (c *HybridChunker) add(pieces []piece, p piece, budget int) []piece {
	if !c.mergePeers || len(pieces) == 0 {
		return append(pieces, p)
	}
	last := &pieces[len(pieces)-1]
	if !sameHeadings(last.headings, p.headings) {
		return append(pieces, p)
	}
	merged := last.text + "\n\n" + p.text
	if c.tokenizer.CountTokens(merged) > budget {
		return append(pieces, p)
	}
	last.text = merged
	last.pages = unionPages(last.pages, p.pages)
	return pieces
}

// splitText splits text into parts of at most budget tokens, preferring line
// boundaries and falling back to words for overlong lines. Words that are
// still too long (encoded blobs, minified code) are cut into rune windows.
func (c *HybridChunker) splitText(text string, budget int) []string {
	if c.tokenizer.CountTokens(text) <= budget {
		return []string{text}
	}

	var units []string
	for _, line := range strings.Split(text, "\n") {
		if c.tokenizer.CountTokens(line) <= budget {
			units = append(units, line)
			continue
		}
		var words []string
		for _, word := range strings.Fields(line) {
			if c.tokenizer.CountTokens(word) <= budget {
				words = append(words, word)
				continue
			}
			words = append(words, splitRunes(word, budget, c.tokenizer)...)
		}
		units = append(units, accumulate(words, " ", budget, c.tokenizer)...)
	}
	return accumulate(units, "\n", budget, c.tokenizer)
}

// splitRunes cuts s into the longest rune prefixes that fit the budget. A
// window is never empty, so a single rune over budget still makes progress.
func splitRunes(s string, budget int, tokenizer port.Tokenizer) []string {
	runes := []rune(s)
	var parts []string
	for len(runes) > 0 {
		lo, hi := 1, len(runes)
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if tokenizer.CountTokens(string(runes[:mid])) <= budget {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		parts = append(parts, string(runes[:lo]))
		runes = runes[lo:]
	}
	return parts
}

// accumulate packs units into parts of at most budget tokens. Every unit is
// expected to fit on its own.
func accumulate(units []string, sep string, budget int, tokenizer port.Tokenizer) []string {
	var parts []string
	current := ""

	for _, unit := range units {
		if current == "" {
			current = unit
			continue
		}
		candidate := current + sep + unit
		if tokenizer.CountTokens(candidate) > budget {
			parts = append(parts, strings.TrimSpace(current))
			current = unit
			continue
		}
		current = candidate
	}
	if s := strings.TrimSpace(current); s != "" {
		parts = append(parts, s)
	}
	return parts
}

func headingTexts(stack []heading) []string {
	if len(stack) == 0 {
		return nil
	}
	out := make([]string, len(stack))
	for i, h := range stack {
		out[i] = h.text
	}
	return out
}

func sameHeadings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func unionPages(a, b []int) []int {
	if len(b) == 0 {
		return a
	}
	seen := make(map[int]struct{}, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, list := range [][]int{a, b} {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}
