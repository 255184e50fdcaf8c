// Package logstream turns an engine log stream into text lines.
//
// With TTY disabled the engine frames every write with an 8 byte header:
//
//	[stream, 0, 0, 0, size(uint32 big endian)]
//
// The Demuxer parses those frames across arbitrary chunk boundaries. Any header that is
// not a valid frame switches it into raw mode for the rest of the stream, and the bytes
// already buffered are emitted as stdout text so no output is lost.
package logstream

import (
	"encoding/binary"

	"github.com/docker/docker/pkg/stdcopy"
)

const headerLen = 8

type state int

const (
	stateHeader state = iota
	statePayload
	stateRaw
)

// EmitFunc receives demultiplexed bytes. The slice is only valid during the call.
type EmitFunc func(stream stdcopy.StdType, p []byte)

// Demuxer is an io.Writer splitting a framed stream into stdout and stderr payloads.
type Demuxer struct {
	emit      EmitFunc
	state     state
	hdr       [headerLen]byte
	hdrLen    int
	stream    stdcopy.StdType
	remaining uint32
}

// NewDemuxer returns a Demuxer. When framed is false the stream is passed through as stdout.
func NewDemuxer(framed bool, emit EmitFunc) *Demuxer {
	d := &Demuxer{emit: emit}
	if !framed {
		d.state = stateRaw
	}
	return d
}

// Raw reports whether the demuxer has fallen back to raw mode.
func (d *Demuxer) Raw() bool {
	return d.state == stateRaw
}

func (d *Demuxer) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		switch d.state {
		case stateRaw:
			d.emit(stdcopy.Stdout, p)
			return n, nil

		case stateHeader:
			k := copy(d.hdr[d.hdrLen:], p)
			d.hdrLen += k
			p = p[k:]
			if !validHeaderPrefix(d.hdr[:d.hdrLen]) {
				d.fallback()
				continue
			}
			if d.hdrLen < headerLen {
				continue
			}
			d.stream = stdcopy.StdType(d.hdr[0])
			d.remaining = binary.BigEndian.Uint32(d.hdr[4:])
			d.hdrLen = 0
			if d.remaining > 0 {
				d.state = statePayload
			}

		case statePayload:
			k := len(p)
			if uint32(k) > d.remaining {
				k = int(d.remaining)
			}
			d.emit(d.stream, p[:k])
			d.remaining -= uint32(k)
			p = p[k:]
			if d.remaining == 0 {
				d.state = stateHeader
			}
		}
	}
	return n, nil
}

// Flush emits a partially received header as raw text. Call it once the stream ends.
func (d *Demuxer) Flush() {
	if d.state == stateHeader && d.hdrLen > 0 {
		d.emit(stdcopy.Stdout, d.hdr[:d.hdrLen])
		d.hdrLen = 0
	}
}

func (d *Demuxer) fallback() {
	d.state = stateRaw
	if d.hdrLen > 0 {
		d.emit(stdcopy.Stdout, d.hdr[:d.hdrLen])
		d.hdrLen = 0
	}
}

func validHeaderPrefix(h []byte) bool {
	if len(h) > 0 && h[0] > byte(stdcopy.Systemerr) {
		return false
	}
	for i := 1; i < len(h) && i < 4; i++ {
		if h[i] != 0 {
			return false
		}
	}
	return true
}
