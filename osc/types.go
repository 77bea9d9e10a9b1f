package osc

import (
	"bytes"
	"encoding"
	"math"
)

const (
	// Type tags of the OSC argument kinds.
	TypeInt32      byte = 'i'
	TypeInt64      byte = 'h'
	TypeFloat32    byte = 'f'
	TypeFloat64    byte = 'd'
	TypeString     byte = 's'
	TypeBlob       byte = 'b'
	TypeTimetag    byte = 't'
	TypeChar       byte = 'c'
	TypeColor      byte = 'r'
	TypeMidi       byte = 'm'
	TypeTrue       byte = 'T'
	TypeFalse      byte = 'F'
	TypeNil        byte = 'N'
	TypeInf        byte = 'I'
	TypeArrayOpen  byte = '['
	TypeArrayClose byte = ']'

	bundleTag = "#bundle"
)

// Argument is a single OSC message argument. The set of implementations is
// closed: Int, Long, Float, Double, String, Blob, Timetag, Char, Color, Midi,
// Bool, Nil, Inf and Array.
type Argument interface {
	// Tag returns the type tag of the argument. Arrays report '['.
	Tag() byte
	argument()
}

// Int is a 32-bit signed integer ('i').
type Int int32

// Long is a 64-bit signed integer ('h').
type Long int64

// Float is a 32-bit IEEE 754 float ('f').
type Float float32

// Double is a 64-bit IEEE 754 float ('d').
type Double float64

// String is an OSC string ('s'). It must be valid UTF-8 without NUL bytes.
type String string

// Blob is an arbitrary byte sequence ('b').
type Blob []byte

// Char is a unicode scalar value transmitted as a 32-bit code point ('c').
type Char rune

// Bool is true ('T') or false ('F'). It has no payload bytes.
type Bool bool

// Nil is the OSC nil value ('N').
type Nil struct{}

// Inf is the OSC infinitum value ('I').
type Inf struct{}

// Array is an ordered sequence of arguments, bracketed by '[' and ']' in the
// type tag string. Arrays may nest.
type Array []Argument

// Color is a 32-bit RGBA color ('r').
type Color struct {
	R, G, B, A uint8
}

// Midi is a 4 byte MIDI message ('m'). It is mainly used for tunneling MIDI
// over a network.
type Midi struct {
	Port   uint8
	Status uint8
	Data1  uint8
	Data2  uint8
}

func (Int) Tag() byte     { return TypeInt32 }
func (Long) Tag() byte    { return TypeInt64 }
func (Float) Tag() byte   { return TypeFloat32 }
func (Double) Tag() byte  { return TypeFloat64 }
func (String) Tag() byte  { return TypeString }
func (Blob) Tag() byte    { return TypeBlob }
func (Timetag) Tag() byte { return TypeTimetag }
func (Char) Tag() byte    { return TypeChar }
func (Color) Tag() byte   { return TypeColor }
func (Midi) Tag() byte    { return TypeMidi }
func (Nil) Tag() byte     { return TypeNil }
func (Inf) Tag() byte     { return TypeInf }
func (Array) Tag() byte   { return TypeArrayOpen }

func (b Bool) Tag() byte {
	if b {
		return TypeTrue
	}
	return TypeFalse
}

func (Int) argument()     {}
func (Long) argument()    {}
func (Float) argument()   {}
func (Double) argument()  {}
func (String) argument()  {}
func (Blob) argument()    {}
func (Timetag) argument() {}
func (Char) argument()    {}
func (Color) argument()   {}
func (Midi) argument()    {}
func (Bool) argument()    {}
func (Nil) argument()     {}
func (Inf) argument()     {}
func (Array) argument()   {}

// Packet is the unit of transmission of OSC: either a *Message or a *Bundle.
type Packet interface {
	encoding.BinaryMarshaler
	packet()
}

// Message represents a single OSC message. An OSC message consists of an OSC
// address pattern and zero or more arguments.
type Message struct {
	Address   string
	Arguments []Argument
}

// Bundle represents an OSC bundle. It consists of the OSC-string "#bundle"
// followed by an OSC Time Tag, followed by zero or more OSC bundle/message
// elements. See http://opensoundcontrol.org/spec-1_0 for more information.
type Bundle struct {
	Timetag  Timetag
	Elements []Packet
}

func (*Message) packet() {}
func (*Bundle) packet()  {}

// Verify that Message and Bundle implement the Packet interface.
var (
	_ Packet = (*Message)(nil)
	_ Packet = (*Bundle)(nil)
)

////
// Message
////

// NewMessage returns a new Message. The address parameter is the OSC address.
func NewMessage(address string, args ...Argument) *Message {
	return &Message{Address: address, Arguments: args}
}

// Append appends the given arguments to the arguments list.
func (msg *Message) Append(args ...Argument) {
	msg.Arguments = append(msg.Arguments, args...)
}

// Clear clears the OSC address and all arguments.
func (msg *Message) Clear() {
	msg.Address = ""
	msg.ClearData()
}

// ClearData removes all arguments from the OSC Message.
func (msg *Message) ClearData() {
	msg.Arguments = msg.Arguments[:0]
}

// CountArguments returns the number of arguments.
func (msg *Message) CountArguments() int {
	return len(msg.Arguments)
}

// TypeTags returns the type tag string, including the leading ','.
func (msg *Message) TypeTags() (string, error) {
	tags := []byte{','}
	var err error
	for _, arg := range msg.Arguments {
		if tags, err = appendTypeTag(tags, arg); err != nil {
			return "", err
		}
	}
	return string(tags), nil
}

// Equal reports whether msg and m have the same address and structurally
// equal arguments. Floats are compared bit for bit.
func (msg *Message) Equal(m *Message) bool {
	if msg == nil || m == nil {
		return msg == m
	}
	return msg.Address == m.Address && argumentsEqual(msg.Arguments, m.Arguments)
}

////
// Bundle
////

// NewBundle returns an OSC Bundle with the given time tag and elements.
func NewBundle(tt Timetag, elems ...Packet) *Bundle {
	return &Bundle{Timetag: tt, Elements: elems}
}

// Append appends an OSC bundle or OSC message to the bundle.
func (b *Bundle) Append(p Packet) error {
	switch t := p.(type) {
	case *Message:
		if t == nil {
			return ErrNilValue
		}
	case *Bundle:
		if t == nil {
			return ErrNilValue
		}
	default:
		return ErrNilValue
	}
	b.Elements = append(b.Elements, p)
	return nil
}

// Equal reports whether b and o carry the same time tag and structurally
// equal elements.
func (b *Bundle) Equal(o *Bundle) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Timetag != o.Timetag || len(b.Elements) != len(o.Elements) {
		return false
	}
	for i := range b.Elements {
		if !PacketsEqual(b.Elements[i], o.Elements[i]) {
			return false
		}
	}
	return true
}

// PacketsEqual reports whether a and b are structurally equal packets.
func PacketsEqual(a, b Packet) bool {
	switch x := a.(type) {
	case *Message:
		y, ok := b.(*Message)
		return ok && x.Equal(y)
	case *Bundle:
		y, ok := b.(*Bundle)
		return ok && x.Equal(y)
	}
	return a == nil && b == nil
}

// ArgumentsEqual reports whether a and b are structurally equal. Float and
// Double values are compared by their bit patterns.
func ArgumentsEqual(a, b Argument) bool {
	switch x := a.(type) {
	case Float:
		y, ok := b.(Float)
		return ok && math.Float32bits(float32(x)) == math.Float32bits(float32(y))
	case Double:
		y, ok := b.(Double)
		return ok && math.Float64bits(float64(x)) == math.Float64bits(float64(y))
	case Blob:
		y, ok := b.(Blob)
		return ok && bytes.Equal(x, y)
	case Array:
		y, ok := b.(Array)
		return ok && argumentsEqual(x, y)
	case nil:
		return b == nil
	}
	// Every other case is a comparable value type.
	return a == b
}

func argumentsEqual(a, b []Argument) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ArgumentsEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
