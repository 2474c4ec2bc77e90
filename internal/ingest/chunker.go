// Package ingest loads a jurisdiction's source text into the vector index:
// paragraph-aware chunking, concurrent embedding, then a wholesale
// delete-then-insert swap so stale chunks never coexist with new ones.
package ingest

import "strings"

// SplitText chunks text by paragraphs, merging consecutive paragraphs until
// adding one would exceed maxChars. A single paragraph over the limit is hard
// split on rune boundaries.
func SplitText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 2000
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for _, piece := range splitLong(para, maxChars) {
			if current.Len() > 0 && current.Len()+len("\n\n")+len(piece) > maxChars {
				flush()
			}
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(piece)
		}
	}
	flush()
	return chunks
}

func splitLong(para string, maxChars int) []string {
	if len(para) <= maxChars {
		return []string{para}
	}
	var pieces []string
	runes := []rune(para)
	for len(runes) > 0 {
		n := maxChars
		if n > len(runes) {
			n = len(runes)
		}
		pieces = append(pieces, string(runes[:n]))
		runes = runes[n:]
	}
	return pieces
}
