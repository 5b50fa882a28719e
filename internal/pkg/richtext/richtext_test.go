package richtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemapBoldAndExpandableQuote(t *testing.T) {
	text, entities := Remap("<b>Bold</b> <blockquote expandable>Quoted</blockquote>")

	assert.Equal(t, "Bold Quoted", text)
	require.Len(t, entities, 2)
	assert.Equal(t, Entity{Type: Bold, Offset: 0, Length: 4}, entities[0])
	assert.Equal(t, Entity{Type: Blockquote, Offset: 5, Length: 6, Expandable: true}, entities[1])
}

func TestRemapPlainQuote(t *testing.T) {
	text, entities := Remap("<blockquote>q</blockquote>")

	assert.Equal(t, "q", text)
	require.Len(t, entities, 1)
	assert.Equal(t, Blockquote, entities[0].Type)
	assert.False(t, entities[0].Expandable)
	assert.Equal(t, 0, entities[0].Offset)
	assert.Equal(t, 1, entities[0].Length)
}

func TestRemapOutputHasNoMarkupResidue(t *testing.T) {
	text, _ := Remap("<i>a</i> <blockquote expandable><b>b</b></blockquote> <code>c</code>")

	assert.NotContains(t, text, "<")
	assert.NotContains(t, text, ">")
	for _, r := range text {
		assert.False(t, r >= '\ue000' && r <= '\uf8ff', "private-use rune leaked into output")
	}
}

func TestRemapUnmatchedOpenIsDropped(t *testing.T) {
	text, entities := Remap("<blockquote>abc")

	assert.Equal(t, "abc", text)
	for _, e := range entities {
		assert.NotEqual(t, Blockquote, e.Type)
	}
}

func TestRemapOffsetsAreUTF16Units(t *testing.T) {
	// The emoji is a surrogate pair: two UTF-16 code units.
	text, entities := Remap("\U0001F600 <b>x</b>")

	assert.Equal(t, "\U0001F600 x", text)
	require.Len(t, entities, 1)
	assert.Equal(t, Bold, entities[0].Type)
	assert.Equal(t, 3, entities[0].Offset)
	assert.Equal(t, 1, entities[0].Length)
}

func TestRemapSpanInsideQuote(t *testing.T) {
	_, entities := Remap("<blockquote><i>hi</i></blockquote>")

	require.Len(t, entities, 2)
	types := []EntityType{entities[0].Type, entities[1].Type}
	assert.ElementsMatch(t, []EntityType{Italic, Blockquote}, types)
	for _, e := range entities {
		assert.Equal(t, 0, e.Offset)
		assert.Equal(t, 2, e.Length)
	}
}

func TestRemapLinkKeepsURL(t *testing.T) {
	text, entities := Remap(`<a href="https://example.com">go</a>`)

	assert.Equal(t, "go", text)
	require.Len(t, entities, 1)
	assert.Equal(t, Link, entities[0].Type)
	assert.Equal(t, "https://example.com", entities[0].URL)
	assert.Equal(t, 2, entities[0].Length)
}

func TestRemapUnescapesHTMLEntities(t *testing.T) {
	text, entities := Remap("a &amp; b")

	assert.Equal(t, "a & b", text)
	assert.Empty(t, entities)
}

func TestRemapSortsByOffsetThenLength(t *testing.T) {
	_, entities := Remap("<b>one</b> <i>two</i> <s>three</s>")

	require.Len(t, entities, 3)
	for i := 1; i < len(entities); i++ {
		assert.LessOrEqual(t, entities[i-1].Offset, entities[i].Offset)
	}
}

func TestStrip(t *testing.T) {
	plain := Strip("<b>Weather</b>\n<blockquote expandable>long description</blockquote>")

	assert.Equal(t, "Weather\nlong description", strings.ReplaceAll(plain, "\r", ""))
}
