package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkdownBlocks(t *testing.T) {
	source := []byte(`# Title

First paragraph with some words.

Second paragraph continues the document.

- item one
- item two

` + "```" + `
code line
` + "```" + `
`)

	paragraphs := ParseMarkdown(source)
	require.Len(t, paragraphs, 5)
	assert.Equal(t, "Title", paragraphs[0].Text)
	assert.Equal(t, "First paragraph with some words.", paragraphs[1].Text)
	assert.Equal(t, "Second paragraph continues the document.", paragraphs[2].Text)
	assert.Equal(t, "- item one\n- item two", paragraphs[3].Text)
	assert.Equal(t, "code line", paragraphs[4].Text)
}

func TestParseMarkdownEmpty(t *testing.T) {
	assert.Empty(t, ParseMarkdown(nil))
	assert.Empty(t, ParseMarkdown([]byte("   \n\n  ")))
}

func TestParseMarkdownNoPages(t *testing.T) {
	paragraphs := ParseMarkdown([]byte("One paragraph."))
	require.Len(t, paragraphs, 1)
	assert.Nil(t, paragraphs[0].Page)
	assert.Nil(t, paragraphs[0].PageEnd)
}
