package logstream

import (
	"io"

	"github.com/docker/docker/pkg/stdcopy"
)

// Pump reads r until it ends, calling onLine for each text line.
// Stdout and stderr keep separate partial-line buffers.
func Pump(r io.Reader, framed bool, onLine func(string)) error {
	stdout := NewLineSplitter(onLine)
	stderr := NewLineSplitter(onLine)

	d := NewDemuxer(framed, func(stream stdcopy.StdType, p []byte) {
		if stream == stdcopy.Stderr || stream == stdcopy.Systemerr {
			_, _ = stderr.Write(p)
			return
		}
		_, _ = stdout.Write(p)
	})

	_, err := io.Copy(d, r)
	d.Flush()
	stdout.Flush()
	stderr.Flush()
	return err
}
