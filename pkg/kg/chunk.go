package kg

import (
	"iter"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultMaxWords is the word budget per chunk when the caller does not
// provide one.
const DefaultMaxWords = 600

var bracketedRe = regexp.MustCompile(`\[[^\[\]]*\]`)

// Clean prepares raw document text for chunking. It collapses runs of
// whitespace into single spaces, removes bracketed annotations such as
// "[inaudible]" or "[Music]", and trims the result. Cleaning is
// deterministic, so repeated indexing of the same document always sees
// the same word sequence.
func Clean(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = bracketedRe.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

// ChunkText cleans text and splits it on word boundaries into chunks of at
// most maxWords words; the final chunk may be shorter. The returned
// sequence is lazy and restartable: ranging over it again replays the
// identical chunks, which keeps re-indexing idempotent. Empty input after
// cleaning yields an empty sequence. A maxWords <= 0 falls back to
// DefaultMaxWords.
func ChunkText(docID, text string, maxWords int) iter.Seq[Chunk] {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	return func(yield func(Chunk) bool) {
		cleaned := Clean(text)
		if cleaned == "" {
			return
		}

		words := strings.Fields(cleaned)
		offset := 0
		index := 0
		for i := 0; i < len(words); i += maxWords {
			end := min(i+maxWords, len(words))
			chunkText := strings.Join(words[i:end], " ")

			c := Chunk{
				DocID: docID,
				Index: index,
				Start: offset,
				End:   offset + len(chunkText),
				Text:  chunkText,
			}
			if !yield(c) {
				return
			}

			offset += len(chunkText) + 1
			index++
		}
	}
}

// resplitByTokens enforces a model-context token budget on word-bounded
// chunks. Any chunk whose encoded length exceeds maxTokens is split
// further on word boundaries so every piece fits; chunk indices are
// reassigned sequentially afterwards so downstream ordering stays stable.
func resplitByTokens(chunks []Chunk, encoder string, maxTokens int) ([]Chunk, error) {
	if maxTokens <= 0 {
		return chunks, nil
	}

	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	out := make([]Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(enc.Encode(chunk.Text, nil, nil)) <= maxTokens {
			out = append(out, chunk)
			continue
		}

		words := strings.Fields(chunk.Text)
		offset := chunk.Start
		var current []string
		currentTokens := 0

		flush := func() {
			if len(current) == 0 {
				return
			}
			text := strings.Join(current, " ")
			out = append(out, Chunk{
				DocID: chunk.DocID,
				Start: offset,
				End:   offset + len(text),
				Text:  text,
			})
			offset += len(text) + 1
			current = nil
			currentTokens = 0
		}

		for _, word := range words {
			wordTokens := len(enc.Encode(word, nil, nil)) + 1
			if currentTokens+wordTokens > maxTokens && len(current) > 0 {
				flush()
			}
			current = append(current, word)
			currentTokens += wordTokens
		}
		flush()
	}

	for i := range out {
		out[i].Index = i
	}
	return out, nil
}
