package osc

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	bit32Size = 4
	bit64Size = 8
)

var zeros [bit32Size]byte

// Encode serializes the packet into its datagram encoding.
func Encode(p Packet) ([]byte, error) {
	var b Buffer
	if _, err := EncodeInto(p, &b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// EncodeInto writes the datagram encoding of p to out and returns the number
// of bytes written. If an error occurs, out may have been partially written.
func EncodeInto(p Packet, out Output) (int, error) {
	e := encoder{out: out}
	err := e.packet(p)
	return e.n, err
}

// EncodeStream serializes the packet prefixed with its 4 byte big-endian
// length, for stream transports without datagram framing.
func EncodeStream(p Packet) ([]byte, error) {
	return EncodeStreamAll([]Packet{p})
}

// EncodeStreamAll serializes each packet as a length-prefixed stream frame
// and concatenates the frames.
func EncodeStreamAll(ps []Packet) ([]byte, error) {
	var b Buffer
	for _, p := range ps {
		if _, err := encodeFrame(p, &b); err != nil {
			return nil, err
		}
	}
	return b.Bytes(), nil
}

// encodeFrame writes one length-prefixed packet to out.
func encodeFrame(p Packet, out Output) (int, error) {
	e := encoder{out: out}
	if err := e.element(p); err != nil {
		return e.n, err
	}
	return e.n, nil
}

// MarshalBinary serializes the OSC message to a byte array. The array has the
// following format:
// 1. OSC Address Pattern
// 2. OSC Type Tag String
// 3. OSC Arguments
func (msg *Message) MarshalBinary() ([]byte, error) {
	return Encode(msg)
}

// MarshalBinary serializes the OSC bundle to a byte array with the following
// format:
// 1. Bundle string: '#bundle'
// 2. OSC timetag
// 3. Length of first OSC bundle element
// 4. First bundle element
// 5. Length of n OSC bundle element
// 6. n bundle element
func (b *Bundle) MarshalBinary() ([]byte, error) {
	return Encode(b)
}

// EncodeString returns s as an OSC string: NUL terminated and zero padded to
// a multiple of 4 bytes.
func EncodeString(s string) []byte {
	b := make([]byte, len(s)+padBytesNeeded(len(s)))
	copy(b, s)
	return b
}

// Pad rounds n up to the next multiple of 4.
func Pad(n int) int {
	return n + (bit32Size-n%bit32Size)%bit32Size
}

// padBytesNeeded determines how many zero bytes follow a string of the given
// length: the NUL terminator plus the padding up to the next 4 byte boundary.
func padBytesNeeded(elementLen int) int {
	return 4*(elementLen/4+1) - elementLen
}

type encoder struct {
	out Output
	n   int
}

func (e *encoder) write(p []byte) error {
	n, err := e.out.Write(p)
	e.n += n
	return err
}

func (e *encoder) packet(p Packet) error {
	switch t := p.(type) {
	case *Message:
		if t != nil {
			return e.message(t)
		}
	case *Bundle:
		if t != nil {
			return e.bundle(t)
		}
	}
	return ErrNilValue
}

// element writes p preceded by its 4 byte length. The length is reserved
// first and placed once the packet has been written.
func (e *encoder) element(p Packet) error {
	mark, err := e.out.Mark(bit32Size)
	if err != nil {
		return err
	}
	e.n += bit32Size
	start := e.n
	if err := e.packet(p); err != nil {
		return err
	}
	var size [bit32Size]byte
	binary.BigEndian.PutUint32(size[:], uint32(e.n-start))
	return e.out.Place(mark, size[:])
}

func (e *encoder) message(msg *Message) error {
	if msg.Address == "" {
		return ErrEmptyAddress
	}
	if err := validString(msg.Address); err != nil {
		return err
	}
	if err := e.paddedString(msg.Address); err != nil {
		return err
	}

	typetags, err := msg.TypeTags()
	if err != nil {
		return err
	}
	if err := e.paddedString(typetags); err != nil {
		return err
	}

	for _, arg := range msg.Arguments {
		if err := e.payload(arg); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) bundle(b *Bundle) error {
	if err := e.paddedString(bundleTag); err != nil {
		return err
	}
	if err := e.timetag(b.Timetag); err != nil {
		return err
	}
	for _, elem := range b.Elements {
		if err := e.element(elem); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) timetag(t Timetag) error {
	var buf [bit64Size]byte
	binary.BigEndian.PutUint32(buf[:bit32Size], t.Seconds)
	binary.BigEndian.PutUint32(buf[bit32Size:], t.Fractional)
	return e.write(buf[:])
}

func (e *encoder) uint32(v uint32) error {
	var buf [bit32Size]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return e.write(buf[:])
}

func (e *encoder) uint64(v uint64) error {
	var buf [bit64Size]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return e.write(buf[:])
}

// payload writes the argument's data bytes. Arrays contribute the payloads of
// their elements only; their structure lives in the type tag string.
func (e *encoder) payload(arg Argument) error {
	switch t := arg.(type) {
	case Int:
		return e.uint32(uint32(t))
	case Long:
		return e.uint64(uint64(t))
	case Float:
		return e.uint32(math.Float32bits(float32(t)))
	case Double:
		return e.uint64(math.Float64bits(float64(t)))
	case Char:
		if !utf8.ValidRune(rune(t)) {
			return fmt.Errorf("%w: %U", ErrInvalidChar, rune(t))
		}
		return e.uint32(uint32(t))
	case String:
		if err := validString(string(t)); err != nil {
			return err
		}
		return e.paddedString(string(t))
	case Blob:
		return e.blob(t)
	case Timetag:
		return e.timetag(t)
	case Midi:
		return e.write([]byte{t.Port, t.Status, t.Data1, t.Data2})
	case Color:
		return e.write([]byte{t.R, t.G, t.B, t.A})
	case Bool, Nil, Inf:
		return nil
	case Array:
		for _, v := range t {
			if err := e.payload(v); err != nil {
				return err
			}
		}
		return nil
	}
	return ErrNilValue
}

// paddedString writes str, its NUL terminator and the padding bytes.
func (e *encoder) paddedString(str string) error {
	if err := e.write([]byte(str)); err != nil {
		return err
	}
	return e.write(zeros[:padBytesNeeded(len(str))])
}

// blob writes the data byte array as an OSC blob. If the length of data isn't
// 32-bit aligned, padding bytes will be added. The padding is not counted in
// the length field.
func (e *encoder) blob(data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return ErrBlobTooLarge
	}
	if err := e.uint32(uint32(len(data))); err != nil {
		return err
	}
	if err := e.write(data); err != nil {
		return err
	}
	return e.write(zeros[:Pad(len(data))-len(data)])
}

func validString(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidString)
	}
	if strings.IndexByte(s, 0) >= 0 {
		return fmt.Errorf("%w: contains NUL byte", ErrInvalidString)
	}
	return nil
}

// appendTypeTag appends the type tag(s) of arg to tags.
func appendTypeTag(tags []byte, arg Argument) ([]byte, error) {
	switch t := arg.(type) {
	case nil:
		return nil, ErrNilValue
	case Array:
		tags = append(tags, TypeArrayOpen)
		var err error
		for _, v := range t {
			if tags, err = appendTypeTag(tags, v); err != nil {
				return nil, err
			}
		}
		return append(tags, TypeArrayClose), nil
	}
	return append(tags, arg.Tag()), nil
}
