package index

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkoukk/tiktoken-go"
)

// Chunk is one token-bounded span of a source document, fed to the extractor
// independently.
type Chunk struct {
	ID    string
	Index int
	Text  string
}

// splitIntoSentences breaks text on blank lines and terminal punctuation.
// Markdown structure is not preserved; the extractor only needs coherent
// spans, not layout.
func splitIntoSentences(text string) []string {
	sentences := []string{}
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		for i := 0; i < len(trimmed); i++ {
			current.WriteByte(trimmed[i])
			if trimmed[i] != '.' && trimmed[i] != '!' && trimmed[i] != '?' {
				continue
			}
			// Keep numbered listings like "1. item" together.
			if i > 0 && trimmed[i] == '.' && trimmed[i-1] >= '0' && trimmed[i-1] <= '9' && i+1 < len(trimmed) && trimmed[i+1] == ' ' {
				continue
			}
			j := i + 1
			for j < len(trimmed) && strings.ContainsRune(`.!?"')]}`, rune(trimmed[j])) {
				current.WriteByte(trimmed[j])
				j++
			}
			flush()
			i = j - 1
		}
	}
	flush()

	return sentences
}

// SplitText groups sentences into chunks of at most maxTokens tokens under
// the given tiktoken encoding. A single sentence over the budget becomes its
// own oversized chunk rather than being dropped.
func SplitText(text string, encoder string, maxTokens int) ([]Chunk, error) {
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	chunks := []Chunk{}
	var current []string
	currentTokens := 0

	flush := func() error {
		if len(current) == 0 {
			return nil
		}
		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		chunks = append(chunks, Chunk{
			ID:    id,
			Index: len(chunks),
			Text:  strings.Join(current, " "),
		})
		current = nil
		currentTokens = 0
		return nil
	}

	for _, sentence := range sentences {
		tokens := len(enc.Encode(sentence, nil, nil))
		if currentTokens+tokens > maxTokens && len(current) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		current = append(current, sentence)
		currentTokens += tokens
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return chunks, nil
}
