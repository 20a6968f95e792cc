// Package knowledge holds the text processing behind the knowledge base and
// FAQ corpora: chunking, FAQ parsing and term-overlap retrieval.
package knowledge

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const (
	// DefaultChunkSize and DefaultChunkOverlap are measured in characters.
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100

	// MatchedContentQuestion labels FAQ blocks that carry no "A:" marker.
	MatchedContentQuestion = "Matched Content"
)

// Chunk splits text into windows of size characters that overlap by
// overlap characters. Blank windows are dropped.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	runes := []rune(text)
	step := size - overlap

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		if piece := strings.TrimSpace(string(runes[i:end])); piece != "" {
			chunks = append(chunks, piece)
		}
	}
	return chunks
}

var blankLine = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

// SplitFAQ separates an FAQ file into blocks on blank lines.
func SplitFAQ(text string) []string {
	var blocks []string
	for _, part := range blankLine.Split(text, -1) {
		if part = strings.TrimSpace(part); part != "" {
			blocks = append(blocks, part)
		}
	}
	return blocks
}

// ParseFAQ turns a "Q: ... A: ..." block into an entry. Blocks without an
// answer marker become a "Matched Content" entry holding the whole block.
func ParseFAQ(block string) domain.FAQEntry {
	block = strings.TrimSpace(block)
	idx := strings.Index(block, "A:")
	if idx < 0 {
		return domain.FAQEntry{Question: MatchedContentQuestion, Answer: block}
	}
	question := strings.TrimSpace(block[:idx])
	question = strings.TrimSpace(strings.TrimPrefix(question, "Q:"))
	answer := strings.TrimSpace(block[idx+len("A:"):])
	if question == "" {
		question = MatchedContentQuestion
	}
	return domain.FAQEntry{Question: question, Answer: answer}
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "i": {}, "in": {},
	"is": {}, "it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "the": {},
	"to": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"with": {}, "you": {}, "your": {},
}

// Tokenize lower-cases text and returns its distinct content terms in order of
// first appearance.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// Match is a ranked document index.
type Match struct {
	Index int
	Score float64
}

// Rank scores each document by how many distinct query terms it contains,
// with a small boost for repeated occurrences, and returns up to k matches
// with a positive score. Ties keep document order.
func Rank(query string, docs []string, k int) []Match {
	terms := Tokenize(query)
	if len(terms) == 0 || k <= 0 {
		return nil
	}

	var matches []Match
	for i, doc := range docs {
		counts := termCounts(doc)
		var score float64
		for _, term := range terms {
			if n := counts[term]; n > 0 {
				score += 1 + 0.1*float64(n-1)
			}
		}
		if score > 0 {
			matches = append(matches, Match{Index: i, Score: score})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func termCounts(text string) map[string]int {
	counts := map[string]int{}
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		counts[f]++
	}
	return counts
}
