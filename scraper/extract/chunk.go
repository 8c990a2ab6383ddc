package extract

import (
	"math"
	"strings"
)

// wordsPerToken approximates how many words one model token covers.
const wordsPerToken = 0.75

// EstimateTokens is a word-count based token estimate; good enough for sizing chunks.
func EstimateTokens(text string) int {
	return int(math.Ceil(float64(len(strings.Fields(text))) / wordsPerToken))
}

// Chunk splits text into pieces of at most threshold estimated tokens. Each
// chunk after the first repeats the trailing overlapRate share of the previous
// one so records cut at a boundary appear whole in at least one chunk. Line
// breaks inside a chunk are kept; runs of spaces are collapsed.
func Chunk(text string, threshold int, overlapRate float64) []string {
	words := splitWords(text)
	if len(words) == 0 {
		return nil
	}

	size := int(float64(threshold) * wordsPerToken)
	if threshold <= 0 || size <= 0 || len(words) <= size {
		return []string{text}
	}

	overlap := int(float64(size) * overlapRate)
	if overlap >= size {
		overlap = size - 1
	}
	step := size - overlap

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, joinWords(words[start:end]))
		if end == len(words) {
			break
		}
	}
	return chunks
}

type word struct {
	text string
	// eol marks the last word of a line.
	eol bool
}

func splitWords(text string) []word {
	var words []word
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		for i, f := range fields {
			words = append(words, word{text: f, eol: i == len(fields)-1})
		}
	}
	return words
}

func joinWords(words []word) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			if words[i-1].eol {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(w.text)
	}
	return b.String()
}
