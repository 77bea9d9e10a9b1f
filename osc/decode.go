package osc

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// Decoder decodes OSC packets subject to a set of Limits. A Decoder holds no
// state between calls and is safe for concurrent use.
type Decoder struct {
	Limits Limits
}

// NewDecoder returns a Decoder enforcing the given limits.
func NewDecoder(l Limits) *Decoder {
	return &Decoder{Limits: l}
}

// DecodeDatagram decodes one packet from a complete datagram using
// DefaultLimits. See Decoder.DecodeDatagram.
func DecodeDatagram(data []byte) ([]byte, Packet, error) {
	return NewDecoder(DefaultLimits()).DecodeDatagram(data)
}

// DecodeStreamFrame decodes one length-prefixed frame using DefaultLimits.
// See Decoder.DecodeStreamFrame.
func DecodeStreamFrame(data []byte) ([]byte, Packet, error) {
	return NewDecoder(DefaultLimits()).DecodeStreamFrame(data)
}

// DecodeStreamAll drains all complete frames using DefaultLimits. See
// Decoder.DecodeStreamAll.
func DecodeStreamAll(data []byte) ([]byte, []Packet, error) {
	return NewDecoder(DefaultLimits()).DecodeStreamAll(data)
}

// ParsePacket parses an OSC packet from a datagram. Unlike DecodeDatagram it
// rejects bytes left over after the packet.
func ParsePacket(data []byte) (Packet, error) {
	return NewDecoder(DefaultLimits()).Parse(data)
}

// UnmarshalBinary decodes an OSC message from data.
func (msg *Message) UnmarshalBinary(data []byte) error {
	p, err := ParsePacket(data)
	if err != nil {
		return err
	}
	m, ok := p.(*Message)
	if !ok {
		return &DecodeError{Err: ErrUnrecognizedPacket}
	}
	*msg = *m
	return nil
}

// UnmarshalBinary decodes an OSC bundle from data.
func (b *Bundle) UnmarshalBinary(data []byte) error {
	p, err := ParsePacket(data)
	if err != nil {
		return err
	}
	bb, ok := p.(*Bundle)
	if !ok {
		return &DecodeError{Err: ErrUnrecognizedPacket}
	}
	*b = *bb
	return nil
}

// DecodeDatagram decodes exactly one packet from data and returns the bytes
// that were not consumed. For a well-formed datagram the remainder is empty.
func (d *Decoder) DecodeDatagram(data []byte) ([]byte, Packet, error) {
	r := reader{buf: data, limits: d.Limits}
	p, pos, err := r.packet(0, len(data), 0)
	if err != nil {
		return data, nil, err
	}
	return data[pos:], p, nil
}

// Parse decodes a datagram holding exactly one packet. Bytes left over after
// the packet are reported as ErrTrailingBytes.
func (d *Decoder) Parse(data []byte) (Packet, error) {
	rest, p, err := d.DecodeDatagram(data)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, &DecodeError{Offset: len(data) - len(rest), Err: ErrTrailingBytes}
	}
	return p, nil
}

// DecodeStreamFrame decodes one frame consisting of a 4 byte big-endian
// length followed by that many bytes of packet data. If data does not yet
// hold the whole frame, it returns data unchanged with a nil packet and a nil
// error: the caller should read more bytes and try again. Otherwise it returns
// the packet and the bytes following the frame.
func (d *Decoder) DecodeStreamFrame(data []byte) ([]byte, Packet, error) {
	if len(data) < bit32Size {
		return data, nil, nil
	}
	size := uint64(binary.BigEndian.Uint32(data))
	if max := d.Limits.MaxFrameSize; max > 0 && size > uint64(max) {
		return data, nil, &DecodeError{Err: ErrFrameTooLarge}
	}
	if size > uint64(len(data)-bit32Size) {
		return data, nil, nil
	}
	end := bit32Size + int(size)
	frame := data[bit32Size:end]
	r := reader{buf: frame, limits: d.Limits}
	p, _, err := r.packet(0, len(frame), 0)
	if err != nil {
		return data, nil, err
	}
	return data[end:], p, nil
}

// DecodeStreamAll decodes frames from data until no complete frame is left
// and returns the undecoded remainder.
//
// Once a bundle has been decoded, every following frame in data is appended
// to that bundle's elements instead of being returned on its own: a
// length-prefixed frame is indistinguishable from a bundle element. Callers
// that need every frame as a separate packet should call DecodeStreamFrame in
// a loop.
//
// On error, the packets decoded so far are returned together with the
// remainder starting at the frame that failed.
func (d *Decoder) DecodeStreamAll(data []byte) ([]byte, []Packet, error) {
	var (
		packets []Packet
		open    *Bundle
	)
	for {
		rest, p, err := d.DecodeStreamFrame(data)
		if err != nil {
			return data, packets, err
		}
		if p == nil {
			return rest, packets, nil
		}
		data = rest
		if open != nil {
			open.Elements = append(open.Elements, p)
			continue
		}
		packets = append(packets, p)
		if b, ok := p.(*Bundle); ok {
			open = b
		}
	}
}

// reader decodes from buf. Positions are absolute offsets into buf so that
// padding is always computed against the start of the outermost buffer, also
// while decoding nested bundle elements.
type reader struct {
	buf    []byte
	limits Limits
}

func (r *reader) fail(pos int, err error) error {
	return &DecodeError{Offset: pos, Err: err}
}

// packet decodes the packet occupying buf[pos:end] and returns the position
// after it.
func (r *reader) packet(pos, end, depth int) (Packet, int, error) {
	if pos >= end {
		return nil, pos, r.fail(pos, ErrEmptyInput)
	}

	switch r.buf[pos] {
	case '/':
		msg, next, err := r.message(pos, end)
		if err != nil {
			return nil, pos, err
		}
		return msg, next, nil
	case '#':
		b, next, err := r.bundle(pos, end, depth)
		if err != nil {
			return nil, pos, err
		}
		return b, next, nil
	}
	return nil, pos, r.fail(pos, ErrUnrecognizedPacket)
}

func (r *reader) bundle(pos, end, depth int) (*Bundle, int, error) {
	if max := r.limits.MaxNesting; max > 0 && depth >= max {
		return nil, pos, r.fail(pos, ErrNestingTooDeep)
	}

	tag, pos, err := r.paddedString(pos, end)
	if err != nil {
		return nil, pos, err
	}
	if tag != bundleTag {
		return nil, pos, r.fail(pos, ErrMalformedBundleTag)
	}

	tt, pos, err := r.timetag(pos, end)
	if err != nil {
		return nil, pos, err
	}

	b := &Bundle{Timetag: tt}
	for pos < end {
		size, next, err := r.uint32(pos, end)
		if err != nil {
			return nil, pos, err
		}
		if uint64(size) > uint64(end-next) {
			return nil, pos, r.fail(pos, ErrTruncated)
		}
		elemEnd := next + int(size)
		p, _, err := r.packet(next, elemEnd, depth+1)
		if err != nil {
			return nil, pos, err
		}
		b.Elements = append(b.Elements, p)
		pos = elemEnd
	}
	return b, pos, nil
}

func (r *reader) message(pos, end int) (*Message, int, error) {
	addr, pos, err := r.paddedString(pos, end)
	if err != nil {
		return nil, pos, err
	}
	msg := &Message{Address: addr}

	// Messages from older implementations may omit the type tag string.
	if pos == end {
		return msg, pos, nil
	}

	tags, pos, err := r.paddedString(pos, end)
	if err != nil {
		return nil, pos, err
	}
	if len(tags) <= 1 {
		return msg, pos, nil
	}
	if tags[0] != ',' {
		return nil, pos, &DecodeError{Offset: pos, Err: ErrUnknownTypeTag, Tag: rune(tags[0])}
	}

	msg.Arguments, pos, err = r.arguments(tags[1:], pos, end)
	if err != nil {
		return nil, pos, err
	}
	return msg, pos, nil
}

// arguments decodes the payloads described by tags. Arrays are decoded with
// an explicit stack of the argument lists under construction: '[' pushes the
// current list and starts a new one, ']' pops it and appends the finished
// array.
func (r *reader) arguments(tags string, pos, end int) ([]Argument, int, error) {
	var (
		args  = make([]Argument, 0, len(tags))
		stack [][]Argument
		arg   Argument
		err   error
	)
	for i := 0; i < len(tags); i++ {
		switch c := tags[i]; c {
		case TypeArrayOpen:
			if max := r.limits.MaxNesting; max > 0 && len(stack) >= max {
				return nil, pos, r.fail(pos, ErrNestingTooDeep)
			}
			stack = append(stack, args)
			args = nil

		case TypeArrayClose:
			if len(stack) == 0 {
				return nil, pos, r.fail(pos, ErrUnmatchedArrayClose)
			}
			arr := Array(args)
			args = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			args = append(args, arr)

		default:
			if c >= utf8.RuneSelf {
				tag, _ := utf8.DecodeRuneInString(tags[i:])
				return nil, pos, &DecodeError{Offset: pos, Err: ErrUnknownTypeTag, Tag: tag}
			}
			if arg, pos, err = r.argument(c, pos, end); err != nil {
				return nil, pos, err
			}
			args = append(args, arg)
		}
	}
	if len(stack) > 0 {
		return nil, pos, r.fail(pos, ErrUnterminatedArray)
	}
	return args, pos, nil
}

// argument decodes a single non-array argument with the given tag.
func (r *reader) argument(tag byte, pos, end int) (Argument, int, error) {
	switch tag {
	case TypeInt32:
		v, pos, err := r.uint32(pos, end)
		return Int(int32(v)), pos, err

	case TypeInt64:
		v, pos, err := r.uint64(pos, end)
		return Long(int64(v)), pos, err

	case TypeFloat32:
		v, pos, err := r.uint32(pos, end)
		return Float(math.Float32frombits(v)), pos, err

	case TypeFloat64:
		v, pos, err := r.uint64(pos, end)
		return Double(math.Float64frombits(v)), pos, err

	case TypeString:
		s, pos, err := r.paddedString(pos, end)
		return String(s), pos, err

	case TypeBlob:
		return r.blob(pos, end)

	case TypeTimetag:
		return r.timetag(pos, end)

	case TypeChar:
		v, next, err := r.uint32(pos, end)
		if err != nil {
			return nil, pos, err
		}
		if v > math.MaxInt32 || !utf8.ValidRune(rune(v)) {
			return nil, pos, r.fail(pos, ErrInvalidChar)
		}
		return Char(v), next, nil

	case TypeColor:
		b, pos, err := r.take(bit32Size, pos, end)
		if err != nil {
			return nil, pos, err
		}
		return Color{R: b[0], G: b[1], B: b[2], A: b[3]}, pos, nil

	case TypeMidi:
		b, pos, err := r.take(bit32Size, pos, end)
		if err != nil {
			return nil, pos, err
		}
		return Midi{Port: b[0], Status: b[1], Data1: b[2], Data2: b[3]}, pos, nil

	case TypeTrue:
		return Bool(true), pos, nil

	case TypeFalse:
		return Bool(false), pos, nil

	case TypeNil:
		return Nil{}, pos, nil

	case TypeInf:
		return Inf{}, pos, nil
	}
	return nil, pos, &DecodeError{Offset: pos, Err: ErrUnknownTypeTag, Tag: rune(tag)}
}

// take returns the next n bytes.
func (r *reader) take(n, pos, end int) ([]byte, int, error) {
	if n > end-pos {
		return nil, pos, r.fail(pos, ErrTruncated)
	}
	return r.buf[pos : pos+n], pos + n, nil
}

func (r *reader) uint32(pos, end int) (uint32, int, error) {
	b, next, err := r.take(bit32Size, pos, end)
	if err != nil {
		return 0, pos, err
	}
	return binary.BigEndian.Uint32(b), next, nil
}

func (r *reader) uint64(pos, end int) (uint64, int, error) {
	b, next, err := r.take(bit64Size, pos, end)
	if err != nil {
		return 0, pos, err
	}
	return binary.BigEndian.Uint64(b), next, nil
}

func (r *reader) timetag(pos, end int) (Timetag, int, error) {
	v, pos, err := r.uint64(pos, end)
	if err != nil {
		return Timetag{}, pos, err
	}
	return TimetagFromUint64(v), pos, nil
}

// skipPadding advances pos to the next 4 byte boundary of the outermost
// buffer.
func (r *reader) skipPadding(pos, end int) (int, error) {
	next := Pad(pos)
	if next > end {
		return pos, r.fail(pos, ErrTruncated)
	}
	return next, nil
}

// paddedString reads a NUL terminated string and skips its padding.
func (r *reader) paddedString(pos, end int) (string, int, error) {
	n := bytes.IndexByte(r.buf[pos:end], 0)
	if n < 0 {
		return "", pos, r.fail(pos, ErrTruncated)
	}
	str := r.buf[pos : pos+n]
	if !utf8.Valid(str) {
		return "", pos, r.fail(pos, ErrInvalidString)
	}
	next, err := r.skipPadding(pos+n+1, end)
	if err != nil {
		return "", pos, err
	}
	return string(str), next, nil
}

// blob reads an OSC blob. Padding bytes are skipped and not returned.
func (r *reader) blob(pos, end int) (Argument, int, error) {
	size, next, err := r.uint32(pos, end)
	if err != nil {
		return nil, pos, err
	}
	if uint64(size) > uint64(end-next) {
		return nil, pos, r.fail(pos, ErrTruncated)
	}
	data := make(Blob, size)
	copy(data, r.buf[next:])
	next, err = r.skipPadding(next+int(size), end)
	if err != nil {
		return nil, pos, err
	}
	return data, next, nil
}
