package shairport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultMaxFrameSize bounds a single item document. Cover art arrives
	// base64-encoded inside one item, so this is sized for large images.
	DefaultMaxFrameSize = 16 * 1024 * 1024

	readChunkSize = 4096
)

// ItemTerminator ends every metadata document on the pipe
var ItemTerminator = []byte("</item>")

// Splitter cuts a byte stream into terminator-delimited frames.
// It is not safe for concurrent use.
type Splitter struct {
	reader     io.Reader
	terminator []byte
	maxFrame   int

	buf    []byte
	chunk  []byte
	resync bool
}

// NewSplitter creates a splitter reading from r. maxFrame <= 0 selects
// DefaultMaxFrameSize.
func NewSplitter(r io.Reader, terminator []byte, maxFrame int) *Splitter {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	return &Splitter{
		reader:     r,
		terminator: terminator,
		maxFrame:   maxFrame,
		chunk:      make([]byte, readChunkSize),
	}
}

// NextFrame returns the next frame, terminator included.
//
// Errors:
//   - ErrStreamStalled: a read returned no bytes; buffered data is kept
//   - *FrameError with Kind=FrameErrorOversized: buffer exceeded the ceiling
//     and was discarded, apart from a possible partial terminator
//   - *FrameError with Kind=FrameErrorRead: the reader failed
func (s *Splitter) NextFrame() ([]byte, error) {
	for {
		if frame, ok := s.cut(); ok {
			return frame, nil
		}

		if len(s.buf) > s.maxFrame {
			size := len(s.buf)
			// The tail may hold the start of the discarded frame's terminator
			keep := min(len(s.terminator)-1, size)
			s.buf = s.buf[:copy(s.buf, s.buf[size-keep:])]
			s.resync = true
			return nil, &FrameError{
				Kind: FrameErrorOversized,
				Msg:  fmt.Sprintf("%d bytes buffered without terminator, limit %d", size, s.maxFrame),
			}
		}

		n, err := s.reader.Read(s.chunk)
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
			continue
		}
		if err == nil || errors.Is(err, io.EOF) {
			return nil, ErrStreamStalled
		}
		return nil, &FrameError{Kind: FrameErrorRead, Msg: "read failed", Err: err}
	}
}

// Buffered returns the number of bytes held for the next frame
func (s *Splitter) Buffered() int {
	return len(s.buf)
}

// Reset swaps the reader and drops buffered bytes, for reopened pipes
func (s *Splitter) Reset(r io.Reader) {
	s.reader = r
	s.buf = s.buf[:0]
	s.resync = false
}

// cut extracts a complete frame from the buffer. While resynchronizing, the
// bytes up to the first terminator belong to a discarded frame and are dropped.
func (s *Splitter) cut() ([]byte, bool) {
	for {
		idx := bytes.Index(s.buf, s.terminator)
		if idx < 0 {
			return nil, false
		}
		end := idx + len(s.terminator)

		if s.resync {
			s.buf = s.buf[:copy(s.buf, s.buf[end:])]
			s.resync = false
			continue
		}

		frame := make([]byte, end)
		copy(frame, s.buf[:end])
		s.buf = s.buf[:copy(s.buf, s.buf[end:])]
		return frame, true
	}
}
