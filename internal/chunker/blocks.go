// Package chunker splits page markdown into retrieval-sized chunks, keeping
// code blocks and tables atomic and replacing them with LLM summaries.
package chunker

import "strings"

// BlockKind classifies a structural region of page markdown.
type BlockKind string

const (
	BlockProse BlockKind = "prose"
	BlockCode  BlockKind = "code"
	BlockTable BlockKind = "table"
)

// Block is a contiguous region of the page text. StartOffset is the byte
// offset of the block's first line within the original page text and fixes
// the relative order of blocks.
type Block struct {
	Kind        BlockKind
	Content     string
	Language    string
	StartOffset int
}

// ParseBlocks splits markdown into prose, fenced code, and pipe-table blocks
// in document order. Unterminated code fences run to the end of the text.
func ParseBlocks(text string) []Block {
	var blocks []Block

	lines := strings.Split(text, "\n")
	offsets := lineOffsets(lines)

	var prose []string
	proseStart := -1

	flushProse := func() {
		if len(prose) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(prose, "\n"))
		if content != "" {
			blocks = append(blocks, Block{
				Kind:        BlockProse,
				Content:     content,
				StartOffset: proseStart,
			})
		}
		prose = nil
		proseStart = -1
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if fence, lang := isFenceOpen(trimmed); fence {
			flushProse()
			start := offsets[i]
			var body []string
			i++
			for i < len(lines) && !isFenceClose(strings.TrimSpace(lines[i])) {
				body = append(body, lines[i])
				i++
			}
			blocks = append(blocks, Block{
				Kind:        BlockCode,
				Content:     strings.Join(body, "\n"),
				Language:    lang,
				StartOffset: start,
			})
			continue
		}

		if isTableRow(trimmed) && i+1 < len(lines) && isTableSeparator(strings.TrimSpace(lines[i+1])) {
			flushProse()
			start := offsets[i]
			rows := []string{line, lines[i+1]}
			i += 2
			for i < len(lines) && isTableRow(strings.TrimSpace(lines[i])) {
				rows = append(rows, lines[i])
				i++
			}
			i--
			blocks = append(blocks, Block{
				Kind:        BlockTable,
				Content:     strings.Join(rows, "\n"),
				StartOffset: start,
			})
			continue
		}

		if proseStart < 0 {
			proseStart = offsets[i]
		}
		prose = append(prose, line)
	}

	flushProse()
	return blocks
}

// lineOffsets returns the byte offset of each line's start.
func lineOffsets(lines []string) []int {
	offsets := make([]int, len(lines))
	pos := 0
	for i, line := range lines {
		offsets[i] = pos
		pos += len(line) + 1
	}
	return offsets
}

func isFenceOpen(line string) (bool, string) {
	if !strings.HasPrefix(line, "```") {
		return false, ""
	}
	lang := strings.TrimSpace(strings.TrimPrefix(line, "```"))
	return true, lang
}

func isFenceClose(line string) bool {
	return line == "```"
}

func isTableRow(line string) bool {
	return strings.HasPrefix(line, "|") && strings.Count(line, "|") >= 2
}

// isTableSeparator matches the header separator row, e.g. |---|:---:|.
func isTableSeparator(line string) bool {
	if !isTableRow(line) {
		return false
	}
	for _, cell := range strings.Split(strings.Trim(line, "|"), "|") {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			return false
		}
		for _, r := range cell {
			if r != '-' && r != ':' {
				return false
			}
		}
		if !strings.Contains(cell, "-") {
			return false
		}
	}
	return true
}
