package kg

import (
	"slices"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "collapses whitespace",
			input:    "hello   world\n\t foo",
			expected: "hello world foo",
		},
		{
			name:     "removes bracketed annotations",
			input:    "welcome [Music] to the show [inaudible] folks",
			expected: "welcome to the show folks",
		},
		{
			name:     "trims the result",
			input:    "  [Applause] hi  ",
			expected: "hi",
		},
		{
			name:     "empty input",
			input:    "   \n ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestChunkText_TotalAndBounded(t *testing.T) {
	words := make([]string, 25)
	for i := range words {
		words[i] = "word" + string(rune('a'+i))
	}
	text := strings.Join(words, "  \n ")

	chunks := slices.Collect(ChunkText("doc-1", text, 10))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	var rejoined []string
	for i, chunk := range chunks {
		chunkWords := strings.Fields(chunk.Text)
		if len(chunkWords) > 10 {
			t.Fatalf("chunk %d exceeds word budget: %d words", i, len(chunkWords))
		}
		if chunk.Index != i {
			t.Fatalf("expected index %d, got %d", i, chunk.Index)
		}
		if chunk.DocID != "doc-1" {
			t.Fatalf("unexpected doc id %q", chunk.DocID)
		}
		rejoined = append(rejoined, chunkWords...)
	}

	if !slices.Equal(rejoined, strings.Fields(Clean(text))) {
		t.Fatal("chunk words do not reproduce the cleaned word sequence")
	}
	if len(strings.Fields(chunks[2].Text)) != 5 {
		t.Fatalf("expected final chunk of 5 words, got %d", len(strings.Fields(chunks[2].Text)))
	}
}

func TestChunkText_Offsets(t *testing.T) {
	text := "one two three four five six"
	cleaned := Clean(text)

	for chunk := range ChunkText("doc-1", text, 2) {
		if got := cleaned[chunk.Start:chunk.End]; got != chunk.Text {
			t.Fatalf("offsets of chunk %d do not address its text: %q vs %q", chunk.Index, got, chunk.Text)
		}
	}
}

func TestChunkText_Restartable(t *testing.T) {
	seq := ChunkText("doc-1", "a b c d e f g", 3)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Fatal("ranging twice over the sequence produced different chunks")
	}
}

func TestChunkText_EmptyInput(t *testing.T) {
	chunks := slices.Collect(ChunkText("doc-1", "  [Music]  ", 10))
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunkText_DefaultMaxWords(t *testing.T) {
	chunks := slices.Collect(ChunkText("doc-1", "just a few words", 0))
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk with defaulted budget, got %d", len(chunks))
	}
}
