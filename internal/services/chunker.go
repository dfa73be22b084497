package services

import "strings"

type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText implements TextChunker. Text is split on paragraph boundaries
// and packed into chunks of roughly maxChunkSize characters; each chunk
// starts with the tail of the previous one as overlap. Paragraphs longer
// than a chunk are split mid-paragraph.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for len(para) > maxChunkSize {
			pieces = append(pieces, para[:maxChunkSize])
			para = strings.TrimSpace(para[maxChunkSize:])
		}
		if para != "" {
			pieces = append(pieces, para)
		}
	}

	var chunks []string
	var current strings.Builder
	var carry string

	emit := func() {
		chunk := current.String()
		chunks = append(chunks, chunk)
		if overlap > 0 {
			carry = lastNChars(chunk, overlap)
		}
		current.Reset()
	}

	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(piece)+2 > maxChunkSize {
			emit()
		}
		if current.Len() == 0 && carry != "" {
			current.WriteString(carry)
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(piece)
	}

	if current.Len() > 0 {
		emit()
	}

	return chunks
}

func lastNChars(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
