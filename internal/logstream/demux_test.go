package logstream

import (
	"bytes"
	"strings"
	"testing"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type part struct {
	stream stdcopy.StdType
	text   string
}

func framed(t *testing.T, parts ...part) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, p := range parts {
		_, err := stdcopy.NewStdWriter(&buf, p.stream).Write([]byte(p.text))
		require.NoError(t, err)
	}
	return buf.Bytes()
}

func TestPumpFramed(t *testing.T) {
	data := framed(t,
		part{stdcopy.Stdout, "Starting server\nDone (3.2s)"},
		part{stdcopy.Stderr, "WARN low memory\n"},
		part{stdcopy.Stdout, "!\n"},
	)

	lines, onLine := collect()
	require.NoError(t, Pump(bytes.NewReader(data), true, onLine))

	assert.Equal(t, []string{"Starting server", "WARN low memory", "Done (3.2s)!"}, *lines)
}

func TestDemuxerByteByByte(t *testing.T) {
	data := framed(t,
		part{stdcopy.Stdout, "one\n"},
		part{stdcopy.Stderr, "two\n"},
	)

	var out, errOut bytes.Buffer
	d := NewDemuxer(true, func(s stdcopy.StdType, p []byte) {
		if s == stdcopy.Stderr {
			errOut.Write(p)
			return
		}
		out.Write(p)
	})
	for i := range data {
		_, err := d.Write(data[i : i+1])
		require.NoError(t, err)
	}
	d.Flush()

	assert.False(t, d.Raw())
	assert.Equal(t, "one\n", out.String())
	assert.Equal(t, "two\n", errOut.String())
}

func TestPumpRawFallback(t *testing.T) {
	lines, onLine := collect()
	require.NoError(t, Pump(strings.NewReader("plain text\nsecond line\n"), true, onLine))

	assert.Equal(t, []string{"plain text", "second line"}, *lines)
}

func TestDemuxerFallbackAfterFrames(t *testing.T) {
	data := framed(t, part{stdcopy.Stdout, "framed\n"})
	data = append(data, []byte("raw tail\n")...)

	lines, onLine := collect()
	require.NoError(t, Pump(bytes.NewReader(data), true, onLine))

	assert.Equal(t, []string{"framed", "raw tail"}, *lines)
}

func TestPumpUnframed(t *testing.T) {
	// A valid-looking header is still text when the stream is not framed.
	data := append([]byte{1, 0, 0, 0, 0, 0, 0, 2}, []byte("hi\n")...)

	var got []byte
	d := NewDemuxer(false, func(_ stdcopy.StdType, p []byte) { got = append(got, p...) })
	_, err := d.Write(data)
	require.NoError(t, err)

	assert.True(t, d.Raw())
	assert.Equal(t, data, got)
}

func TestDemuxerFlushPartialHeader(t *testing.T) {
	var got []byte
	d := NewDemuxer(true, func(_ stdcopy.StdType, p []byte) { got = append(got, p...) })
	_, _ = d.Write([]byte{1, 0, 0})
	assert.Empty(t, got)

	d.Flush()
	assert.Equal(t, []byte{1, 0, 0}, got)
}
