package shairport

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamStalled means a read returned no data before a terminator was seen.
	// Partial data stays buffered; call again later.
	ErrStreamStalled = errors.New("stream stalled")

	// ErrStalled is returned by Source.Poll once the empty-read ceiling is reached
	ErrStalled = errors.New("no metadata after repeated empty reads")
)

// FrameErrorKind classifies splitter errors
type FrameErrorKind int

const (
	// FrameErrorOversized indicates buffered bytes exceeded the frame ceiling
	// without a terminator. The splitter resynchronizes on the next terminator.
	FrameErrorOversized FrameErrorKind = iota
	// FrameErrorRead indicates the underlying reader failed
	FrameErrorRead
)

// FrameError represents a splitter error
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// DecodeErrorKind classifies decoder errors
type DecodeErrorKind int

const (
	// DecodeErrorMalformed indicates the frame is not a well-formed item document
	DecodeErrorMalformed DecodeErrorKind = iota
	// DecodeErrorBadEncoding indicates an unsupported or undecodable payload encoding
	DecodeErrorBadEncoding
	// DecodeErrorBadHex indicates a type or code tag that is not a hex 4-char code
	DecodeErrorBadHex
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeErrorMalformed:
		return "malformed"
	case DecodeErrorBadEncoding:
		return "bad encoding"
	case DecodeErrorBadHex:
		return "bad hex"
	default:
		return "unknown"
	}
}

// DecodeError is returned by Decode. All kinds are recoverable: drop the
// frame and continue with the next one.
type DecodeError struct {
	Kind DecodeErrorKind
	Msg  string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is a *DecodeError of the given kind
func IsDecodeError(err error, kind DecodeErrorKind) bool {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
