package chunker

import "strings"

// splitSeparators are tried in order, coarsest first. A piece that exceeds
// the size limit is re-split with the next separator down.
var splitSeparators = []string{"\n\n", "\n", ". ", " "}

// CountTokens approximates token count as whitespace-separated words.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// SplitText breaks text into pieces of at most maxTokens tokens each,
// preferring paragraph boundaries over line, sentence, and word boundaries.
// An indivisible unit longer than maxTokens is emitted as-is rather than cut
// mid-word.
func SplitText(text string, maxTokens int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxTokens <= 0 || CountTokens(text) <= maxTokens {
		return []string{text}
	}
	return splitRecursive(text, maxTokens, 0)
}

func splitRecursive(text string, maxTokens, sepIdx int) []string {
	if CountTokens(text) <= maxTokens {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}
	if sepIdx >= len(splitSeparators) {
		// atomic unit, keep intact
		return []string{strings.TrimSpace(text)}
	}

	sep := splitSeparators[sepIdx]
	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		return splitRecursive(text, maxTokens, sepIdx+1)
	}

	var out []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		piece := strings.TrimSpace(current.String())
		if piece != "" {
			out = append(out, piece)
		}
		current.Reset()
		currentTokens = 0
	}

	for _, part := range parts {
		partTokens := CountTokens(part)
		if partTokens > maxTokens {
			flush()
			out = append(out, splitRecursive(part, maxTokens, sepIdx+1)...)
			continue
		}
		if currentTokens+partTokens > maxTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(part)
		currentTokens += partTokens
	}
	flush()

	return out
}
