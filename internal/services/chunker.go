package services

import "strings"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// TextChunk is one window of source text with its character offsets into
// the cleaned input.
type TextChunk struct {
	Text      string
	CharStart int
	CharEnd   int
}

// SplitText windows text into chunks of roughly size characters with the
// given overlap. Cut points prefer paragraph breaks, then sentence ends,
// then a hard cut. Offsets are rune positions so multi-byte text never gets
// split mid-character.
func SplitText(text string, size, overlap int) []TextChunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 10
		}
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []TextChunk{{Text: string(runes), CharStart: 0, CharEnd: len(runes)}}
	}

	var out []TextChunk
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = findCutPoint(runes, start, end)
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			out = append(out, TextChunk{Text: piece, CharStart: start, CharEnd: end})
		}
		if end >= len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// findCutPoint scans backward from the size limit for a natural boundary.
// Boundaries in the first half of the window are ignored so chunks never
// collapse to fragments.
func findCutPoint(runes []rune, start, limit int) int {
	floor := start + (limit-start)/2

	// Paragraph break first.
	for i := limit - 1; i > floor; i-- {
		if runes[i] == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			return i + 1
		}
	}
	// Then a sentence end followed by whitespace.
	for i := limit - 1; i > floor; i-- {
		if isSentenceEnd(runes[i]) && i+1 < len(runes) && isSpace(runes[i+1]) {
			return i + 1
		}
	}
	// Then any line break or space.
	for i := limit - 1; i > floor; i-- {
		if isSpace(runes[i]) {
			return i + 1
		}
	}
	return limit
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', ';':
		return true
	default:
		return false
	}
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

// CollapseWhitespace folds runs of whitespace into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}

// TrimToTokenBudget cuts text to at most n whitespace-delimited tokens.
// Used for the multimodal contextual text, which has a hard model-side cap.
func TrimToTokenBudget(s string, n int) string {
	if n <= 0 {
		return ""
	}
	fields := strings.Fields(s)
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:n], " ")
}
