package osc

import (
	"errors"
	"fmt"
)

// Decode errors. Every error returned by the decoder wraps exactly one of
// these and can be checked with errors.Is.
var (
	ErrEmptyInput          = errors.New("osc: empty input")
	ErrUnrecognizedPacket  = errors.New("osc: unrecognized packet format")
	ErrMalformedBundleTag  = errors.New("osc: malformed bundle tag")
	ErrTruncated           = errors.New("osc: truncated read")
	ErrInvalidString       = errors.New("osc: invalid string")
	ErrUnknownTypeTag      = errors.New("osc: unknown type tag")
	ErrUnmatchedArrayClose = errors.New("osc: ']' outside of array")
	ErrUnterminatedArray   = errors.New("osc: unterminated array")
	ErrInvalidChar         = errors.New("osc: invalid char code point")
	ErrTrailingBytes       = errors.New("osc: trailing bytes after packet")
	ErrFrameTooLarge       = errors.New("osc: stream frame too large")
	ErrNestingTooDeep      = errors.New("osc: nesting too deep")
)

// Encode errors.
var (
	ErrEmptyAddress = errors.New("osc: empty address")
	ErrNilValue     = errors.New("osc: nil packet or argument")
	ErrBlobTooLarge = errors.New("osc: blob too large")
	ErrMarkSize     = errors.New("osc: placed data does not match mark size")
)

// Time conversion errors.
var (
	ErrTimeBeforeEpoch = errors.New("osc: time is before the unix epoch and cannot be stored")
	ErrTimeOverflow    = errors.New("osc: time overflows what an OSC time tag can store")
)

// DecodeError describes where in the input a decode failed.
type DecodeError struct {
	// Offset is the byte offset into the decoded buffer (the datagram, or the
	// frame payload for stream decoding) at which the failure was detected.
	Offset int
	// Tag is the offending type tag for ErrUnknownTypeTag, otherwise zero.
	Tag rune
	Err error
}

func (e *DecodeError) Error() string {
	if e.Tag != 0 {
		return fmt.Sprintf("%v %q at offset %d", e.Err, e.Tag, e.Offset)
	}
	return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
}

func (e *DecodeError) Unwrap() error { return e.Err }
