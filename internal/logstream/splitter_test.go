package logstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect() (*[]string, func(string)) {
	var lines []string
	return &lines, func(l string) { lines = append(lines, l) }
}

func TestLineSplitterAcrossChunks(t *testing.T) {
	lines, onLine := collect()
	s := NewLineSplitter(onLine)

	_, _ = s.Write([]byte("hello\nwor"))
	_, _ = s.Write([]byte("ld\n\n"))
	s.Flush()

	assert.Equal(t, []string{"hello", "world"}, *lines)
}

func TestLineSplitterCRLFAndTrailing(t *testing.T) {
	lines, onLine := collect()
	s := NewLineSplitter(onLine)

	_, _ = s.Write([]byte("a\r\n\r\nb\r"))
	assert.Equal(t, []string{"a"}, *lines)

	_, _ = s.Write([]byte("\nc"))
	s.Flush()
	assert.Equal(t, []string{"a", "b", "c"}, *lines)
}

func TestLineSplitterMultibyteSplit(t *testing.T) {
	lines, onLine := collect()
	s := NewLineSplitter(onLine)

	raw := []byte("héllo\n")
	_, _ = s.Write(raw[:2])
	_, _ = s.Write(raw[2:])

	assert.Equal(t, []string{"héllo"}, *lines)
}

func TestLineSplitterLongLine(t *testing.T) {
	lines, onLine := collect()
	s := NewLineSplitter(onLine)

	_, _ = s.Write([]byte(strings.Repeat("x", MaxLineBytes+10)))
	s.Flush()

	assert.Len(t, *lines, 2)
	assert.Len(t, (*lines)[0], MaxLineBytes)
	assert.Len(t, (*lines)[1], 10)
}

func TestLineSplitterLongLineCutsOnRuneBoundary(t *testing.T) {
	lines, onLine := collect()
	s := NewLineSplitter(onLine)

	head := strings.Repeat("a", MaxLineBytes-1)
	_, _ = s.Write([]byte(head + "éb"))
	s.Flush()

	assert.Equal(t, []string{head, "éb"}, *lines)
	for _, l := range *lines {
		assert.NotContains(t, l, "\uFFFD")
	}
}
