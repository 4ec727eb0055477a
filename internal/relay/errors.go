package relay

import (
	"errors"
	"fmt"
)

// ErrEmptyResult reports a stream that completed without usable text.
var ErrEmptyResult = errors.New("stream completed without content")

// ErrFrameTooLarge is the cause of a MalformedFrameError for a line longer
// than MaxFrameBytes.
var ErrFrameTooLarge = errors.New("frame exceeds size limit")

// TransportError wraps a failure of the underlying byte stream.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedFrameError describes a data frame that is not valid JSON or is
// too large.
// It is logged and counted by the Parser, never returned from Finish.
type MalformedFrameError struct {
	Frame string
	Err   error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame %q: %v", e.Frame, e.Err)
}

func (e *MalformedFrameError) Unwrap() error {
	return e.Err
}
