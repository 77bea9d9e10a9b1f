package osc

import (
	"io"
)

// Output receives encoded OSC data. Besides sequential writes it supports
// reserving a fixed-size region (a mark) that is filled in later with Place.
// The encoder uses this to write bundle element lengths after the element
// itself has been written.
//
// Marks must only be placed into the Output that created them, and callers
// must not interleave encodes from different goroutines on one Output.
type Output interface {
	// Write writes all of p or returns an error.
	Write(p []byte) (int, error)
	// Mark reserves size bytes at the current position.
	Mark(size int) (Mark, error)
	// Place fills a previously reserved mark. len(data) must equal the
	// reserved size.
	Place(m Mark, data []byte) error
}

// Mark is a reserved region of an Output.
type Mark struct {
	Offset int64
	Size   int
}

// Buffer is a growable in-memory Output. The zero value is ready to use.
// Writing into a Buffer never fails.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a Buffer that appends to b.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{buf: b}
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *Buffer) Mark(size int) (Mark, error) {
	m := Mark{Offset: int64(len(b.buf)), Size: size}
	b.buf = append(b.buf, make([]byte, size)...)
	return m, nil
}

func (b *Buffer) Place(m Mark, data []byte) error {
	if len(data) != m.Size {
		return ErrMarkSize
	}
	copy(b.buf[m.Offset:m.Offset+int64(m.Size)], data)
	return nil
}

// Bytes returns the buffered data.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int { return len(b.buf) }

// Reset empties the buffer, keeping its capacity.
func (b *Buffer) Reset() { b.buf = b.buf[:0] }

// WriteSeekerOutput adapts an io.WriteSeeker (a file, for instance) to the
// Output interface. Marks are written as zeros and later patched in place by
// seeking back.
type WriteSeekerOutput struct {
	W io.WriteSeeker
}

var (
	_ Output = (*Buffer)(nil)
	_ Output = WriteSeekerOutput{}
)

func (o WriteSeekerOutput) Write(p []byte) (int, error) {
	n, err := o.W.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

func (o WriteSeekerOutput) Mark(size int) (Mark, error) {
	pos, err := o.W.Seek(0, io.SeekCurrent)
	if err != nil {
		return Mark{}, err
	}
	if _, err := o.Write(make([]byte, size)); err != nil {
		return Mark{}, err
	}
	return Mark{Offset: pos, Size: size}, nil
}

func (o WriteSeekerOutput) Place(m Mark, data []byte) error {
	if len(data) != m.Size {
		return ErrMarkSize
	}
	cur, err := o.W.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := o.W.Seek(m.Offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := o.Write(data); err != nil {
		return err
	}
	_, err = o.W.Seek(cur, io.SeekStart)
	return err
}
