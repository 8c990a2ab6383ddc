package extract

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChunk(t *testing.T) {
	text := "a b c d e f g h"

	tests := []struct {
		name      string
		threshold int
		overlap   float64
		expected  []string
	}{
		{"fits in one chunk", 100, 0.1, []string{text}},
		{"disabled threshold", 0, 0.1, []string{text}},
		// threshold 4 tokens ~ 3 words
		{"no overlap", 4, 0, []string{"a b c", "d e f", "g h"}},
		// threshold 8 tokens ~ 6 words, overlap 0.5 -> 3 words repeated
		{"half overlap", 8, 0.5, []string{"a b c d e f", "d e f g h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(text, tt.threshold, tt.overlap)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Chunk() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChunkKeepsLineBreaks(t *testing.T) {
	text := "[Toyota Aqua](https://riyasewana.com/buy/aqua) Colombo\nRs. 6,250,000\n\n---\n\n[Honda Vezel](https://riyasewana.com/buy/vezel) Kandy"

	// threshold 8 tokens ~ 6 words, no overlap
	got := Chunk(text, 8, 0)
	expected := []string{
		"[Toyota Aqua](https://riyasewana.com/buy/aqua) Colombo\nRs. 6,250,000\n---",
		"[Honda Vezel](https://riyasewana.com/buy/vezel) Kandy",
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Chunk() mismatch (-want +got):\n%s", diff)
	}
}

func TestChunkEmpty(t *testing.T) {
	if got := Chunk("   ", 10, 0.1); got != nil {
		t.Errorf("Chunk() = %v, want nil", got)
	}
}

func TestChunkCoversEveryWord(t *testing.T) {
	words := make([]string, 1000)
	for i := range words {
		words[i] = "w"
	}
	chunks := Chunk(strings.Join(words, " "), 100, 0.1)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := EstimateTokens(c); n > 100 {
			t.Errorf("chunk %d has %d estimated tokens, want <= 100", i, n)
		}
	}
}
