package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlocks_ProseOnly(t *testing.T) {
	blocks := ParseBlocks("First paragraph.\n\nSecond paragraph.")

	require.Len(t, blocks, 1)
	assert.Equal(t, BlockProse, blocks[0].Kind)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", blocks[0].Content)
	assert.Equal(t, 0, blocks[0].StartOffset)
}

func TestParseBlocks_MixedContentKeepsOrder(t *testing.T) {
	text := "Intro text.\n\n```go\nfunc main() {}\n```\n\nMiddle text.\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\nClosing text."

	blocks := ParseBlocks(text)
	require.Len(t, blocks, 5)

	assert.Equal(t, BlockProse, blocks[0].Kind)
	assert.Equal(t, "Intro text.", blocks[0].Content)

	assert.Equal(t, BlockCode, blocks[1].Kind)
	assert.Equal(t, "go", blocks[1].Language)
	assert.Equal(t, "func main() {}", blocks[1].Content)

	assert.Equal(t, BlockProse, blocks[2].Kind)
	assert.Equal(t, "Middle text.", blocks[2].Content)

	assert.Equal(t, BlockTable, blocks[3].Kind)
	assert.Contains(t, blocks[3].Content, "| a | b |")
	assert.Contains(t, blocks[3].Content, "| 1 | 2 |")

	assert.Equal(t, BlockProse, blocks[4].Kind)
	assert.Equal(t, "Closing text.", blocks[4].Content)

	// offsets strictly increase with document position
	for i := 1; i < len(blocks); i++ {
		assert.Greater(t, blocks[i].StartOffset, blocks[i-1].StartOffset)
	}
}

func TestParseBlocks_UnterminatedFence(t *testing.T) {
	blocks := ParseBlocks("before\n```python\nprint('hi')\nprint('bye')")

	require.Len(t, blocks, 2)
	assert.Equal(t, BlockCode, blocks[1].Kind)
	assert.Equal(t, "python", blocks[1].Language)
	assert.Equal(t, "print('hi')\nprint('bye')", blocks[1].Content)
}

func TestParseBlocks_PipeLineWithoutSeparatorIsProse(t *testing.T) {
	blocks := ParseBlocks("| not | a table\nplain line")

	require.Len(t, blocks, 1)
	assert.Equal(t, BlockProse, blocks[0].Kind)
}

func TestParseBlocks_Empty(t *testing.T) {
	assert.Empty(t, ParseBlocks(""))
	assert.Empty(t, ParseBlocks("   \n\n  "))
}

func TestIsTableSeparator(t *testing.T) {
	assert.True(t, isTableSeparator("|---|---|"))
	assert.True(t, isTableSeparator("| :--- | ---: |"))
	assert.False(t, isTableSeparator("| a | b |"))
	assert.False(t, isTableSeparator("|::|::|"))
}
