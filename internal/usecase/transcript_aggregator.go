package usecase

import "unicode"

// transcriptBuffer holds the latest cumulative engine text and its word count.
type transcriptBuffer struct {
	text  string
	words int
}

func (b *transcriptBuffer) Set(text string) {
	b.text = text
	b.words = countWords(text)
}

func (b *transcriptBuffer) Reset() {
	b.text = ""
	b.words = 0
}

func (b *transcriptBuffer) Text() string { return b.text }

func (b *transcriptBuffer) Words() int { return b.words }

// countWords counts non-empty whitespace-delimited tokens.
func countWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
