package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("short text", 500, 50)
	assert.Equal(t, []string{"short text"}, chunks)
}

func TestSplitTextEmpty(t *testing.T) {
	assert.Nil(t, SplitText("", 500, 50))
}

func TestSplitTextOverlap(t *testing.T) {
	text := strings.Repeat("a", 8) + strings.Repeat("b", 8)
	chunks := SplitText(text, 10, 4)

	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaaaaaabb", chunks[0])
	// The second window starts 6 runes in and already reaches the end.
	assert.Equal(t, "aabbbbbbbb", chunks[1])
}

func TestSplitTextExactFit(t *testing.T) {
	text := strings.Repeat("x", 10)
	chunks := SplitText(text, 10, 3)
	assert.Equal(t, []string{text}, chunks)
}

func TestSplitTextMultibyte(t *testing.T) {
	text := strings.Repeat("产品支持七天无理由退货", 3)
	chunks := SplitText(text, 20, 5)

	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.True(t, len([]rune(c)) <= 20)
	}
	// No chunk may split a multibyte rune.
	for _, c := range chunks {
		assert.True(t, strings.ContainsRune("产品支持七天无理由退货", []rune(c)[0]))
	}
}

func TestSplitTextStopsAtEnd(t *testing.T) {
	text := strings.Repeat("y", 25)
	chunks := SplitText(text, 10, 2)

	require.NotEmpty(t, chunks)
	last := chunks[len(chunks)-1]
	assert.True(t, strings.HasSuffix(text, last))

	var total int
	for _, c := range chunks {
		total += len([]rune(c))
	}
	// Total coverage equals text length plus one overlap per boundary.
	assert.Equal(t, 25+2*(len(chunks)-1), total)
}
