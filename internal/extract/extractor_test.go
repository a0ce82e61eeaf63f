package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverter struct {
	result *ConvertResult
	err    error
}

func (f *fakeConverter) Convert(_ context.Context, _ string, _ []byte) (*ConvertResult, error) {
	return f.result, f.err
}

func TestExtractPages_ConverterPrimaryPath(t *testing.T) {
	conv := &fakeConverter{
		result: &ConvertResult{
			TotalPages: 3,
			Pages: []ConvertedPage{
				{Page: 1, Markdown: "# Intro"},
				{Page: 2, Markdown: ""},
				{Page: 3, Markdown: "## Details"},
			},
		},
	}
	ext := NewExtractor(conv)

	total, pages, err := ext.ExtractPages(context.Background(), "doc.pdf", []byte("not a real pdf"))
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	require.Len(t, pages, 3)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "# Intro", pages[0].Text)
	// empty pages stay in the sequence so numbering remains contiguous
	assert.Equal(t, 2, pages[1].Number)
	assert.Equal(t, "", pages[1].Text)
	assert.Equal(t, 3, pages[2].Number)
}

func TestExtractPages_ConverterFillsMissingPageNumbers(t *testing.T) {
	conv := &fakeConverter{
		result: &ConvertResult{
			TotalPages: 2,
			Pages: []ConvertedPage{
				{Markdown: "first"},
				{Markdown: "second"},
			},
		},
	}
	ext := NewExtractor(conv)

	_, pages, err := ext.ExtractPages(context.Background(), "doc.pdf", []byte("bytes"))
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, 2, pages[1].Number)
}

func TestExtractPages_ConverterFailsAndPDFUnreadable(t *testing.T) {
	conv := &fakeConverter{err: errors.New("service unavailable")}
	ext := NewExtractor(conv)

	_, _, err := ext.ExtractPages(context.Background(), "doc.pdf", []byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestExtractPages_NoConverterAndPDFUnreadable(t *testing.T) {
	ext := NewExtractor(nil)

	_, _, err := ext.ExtractPages(context.Background(), "doc.pdf", []byte("garbage"))
	assert.Error(t, err)
}
