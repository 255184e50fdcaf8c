package logstream

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// MaxLineBytes caps a buffered partial line; longer lines are emitted in pieces.
const MaxLineBytes = 64 * 1024

// LineSplitter buffers bytes and calls onLine for every complete non-empty line.
// Lines end with \n; a trailing \r is stripped.
type LineSplitter struct {
	buf    []byte
	onLine func(string)
}

func NewLineSplitter(onLine func(string)) *LineSplitter {
	return &LineSplitter{onLine: onLine}
}

func (s *LineSplitter) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)

	start := 0
	for {
		i := bytes.IndexByte(s.buf[start:], '\n')
		if i < 0 {
			break
		}
		s.emit(s.buf[start : start+i])
		start += i + 1
	}
	n := copy(s.buf, s.buf[start:])
	s.buf = s.buf[:n]

	for len(s.buf) > MaxLineBytes {
		cut := runeCut(s.buf, MaxLineBytes)
		s.emit(s.buf[:cut])
		n = copy(s.buf, s.buf[cut:])
		s.buf = s.buf[:n]
	}
	return len(p), nil
}

// runeCut moves a cut at max back to a rune boundary, unless no boundary is
// found within one rune's length.
func runeCut(b []byte, max int) int {
	for i := max; i > max-utf8.UTFMax && i > 0; i-- {
		if utf8.RuneStart(b[i]) {
			return i
		}
	}
	return max
}

// Flush emits the buffered partial line, if any.
func (s *LineSplitter) Flush() {
	if len(s.buf) > 0 {
		s.emit(s.buf)
		s.buf = s.buf[:0]
	}
}

func (s *LineSplitter) emit(line []byte) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(line) == 0 {
		return
	}
	s.onLine(strings.ToValidUTF8(string(line), "\uFFFD"))
}
