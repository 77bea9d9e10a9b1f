package osc

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// frame prefixes data with its 4 byte big-endian length.
func frame(data []byte) []byte {
	n := len(data)
	return append([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}, data...)
}

func cat(parts ...[]byte) []byte {
	var b []byte
	for _, p := range parts {
		b = append(b, p...)
	}
	return b
}

func TestDecodeGolden(t *testing.T) {
	for _, tt := range []struct {
		name   string
		golden string
		want   Packet
	}{
		{"message without arguments", goldenMessageWithoutArgs, NewMessage("/some/addr")},
		{"message with all types", goldenMessageAllTypes, allTypesMessage()},
		{"empty bundle", goldenEmptyBundle, NewBundle(TimetagFromParts(4, 2))},
		{"nested bundle", goldenBundle, goldenBundlePacket()},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rest, got, err := DecodeDatagram(mustHex(t, tt.golden))
			if err != nil {
				t.Fatalf("DecodeDatagram() error = %v", err)
			}
			if len(rest) != 0 {
				t.Errorf("DecodeDatagram() left %d bytes", len(rest))
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodeDatagram() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeArray(t *testing.T) {
	data := cat(
		[]byte("/a\x00\x00"),
		[]byte(",[ifi]\x00\x00"),
		[]byte{0, 0, 0, 1},
		[]byte{0x40, 0, 0, 0},
		[]byte{0, 0, 0, 3},
	)
	p, err := ParsePacket(data)
	if err != nil {
		t.Fatal(err)
	}
	want := NewMessage("/a", Array{Int(1), Float(2), Int(3)})
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("ParsePacket() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeNestedArrays(t *testing.T) {
	data := cat(
		[]byte("/a\x00\x00"),
		[]byte(",i[[s]][]T\x00\x00"),
		[]byte{0, 0, 0, 7},
		EncodeString("deep"),
	)
	p, err := ParsePacket(data)
	if err != nil {
		t.Fatal(err)
	}
	want := NewMessage("/a", Int(7), Array{Array{String("deep")}}, Array(nil), Bool(true))
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("ParsePacket() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeMessageWithoutTypeTags(t *testing.T) {
	p, err := ParsePacket([]byte("/legacy\x00"))
	if err != nil {
		t.Fatal(err)
	}
	msg, ok := p.(*Message)
	if !ok {
		t.Fatalf("ParsePacket() = %T, want *Message", p)
	}
	if msg.Address != "/legacy" || msg.CountArguments() != 0 {
		t.Errorf("ParsePacket() = %v, want /legacy without arguments", msg)
	}
}

func TestDecodeErrors(t *testing.T) {
	bundleHeader := cat([]byte("#bundle\x00"), make([]byte, 8))

	for _, tt := range []struct {
		name string
		data []byte
		want error
	}{
		{"empty input", nil, ErrEmptyInput},
		{"unrecognized first byte", []byte("xyz\x00"), ErrUnrecognizedPacket},
		{"malformed bundle tag", cat([]byte("#bundlx\x00"), make([]byte, 8)), ErrMalformedBundleTag},
		{"bundle tag without NUL", []byte("#bun"), ErrTruncated},
		{"bundle without timetag", []byte("#bundle\x00\x00\x00"), ErrTruncated},
		{"address without NUL", []byte("/a"), ErrTruncated},
		{"address without padding", []byte("/a\x00"), ErrTruncated},
		{"address not utf8", []byte("/\xff\x00\x00"), ErrInvalidString},
		{"missing int payload", []byte("/a\x00\x00,i\x00\x00"), ErrTruncated},
		{"short long payload", []byte("/a\x00\x00,h\x00\x00\x00\x00\x00\x01"), ErrTruncated},
		{"unknown type tag", []byte("/a\x00\x00,x\x00\x00"), ErrUnknownTypeTag},
		{"type tags without comma", []byte("/a\x00\x00xi\x00\x00\x00\x00\x00\x01"), ErrUnknownTypeTag},
		{"unmatched array close", []byte("/a\x00\x00,]\x00\x00"), ErrUnmatchedArrayClose},
		{"unterminated array", []byte("/a\x00\x00,[i\x00\x00\x00\x00\x01\x00"), ErrUnterminatedArray},
		{"surrogate char", []byte("/a\x00\x00,c\x00\x00\x00\x00\xd8\x00"), ErrInvalidChar},
		{"char beyond int32", []byte("/a\x00\x00,c\x00\x00\xff\xff\xff\xff"), ErrInvalidChar},
		{"string not utf8", []byte("/a\x00\x00,s\x00\x00\xfe\x00\x00\x00"), ErrInvalidString},
		{"blob longer than input", []byte("/a\x00\x00,b\x00\x00\x00\x00\x00\x10abcd"), ErrTruncated},
		{"blob without padding", []byte("/a\x00\x00,b\x00\x00\x00\x00\x00\x03abc"), ErrTruncated},
		{"bundle element longer than input", cat(bundleHeader, []byte{0, 0, 1, 0}), ErrTruncated},
		{"bundle element size truncated", cat(bundleHeader, []byte{0, 0}), ErrTruncated},
		{"empty bundle element", cat(bundleHeader, []byte{0, 0, 0, 0}), ErrEmptyInput},
		{"malformed bundle element", cat(bundleHeader, []byte{0, 0, 0, 4}, []byte("/a\x00\x00"), []byte{0, 0, 0, 4}, []byte("zzzz")), ErrUnrecognizedPacket},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rest, p, err := DecodeDatagram(tt.data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("DecodeDatagram() error = %v, want %v", err, tt.want)
			}
			if p != nil {
				t.Errorf("DecodeDatagram() packet = %v, want nil", p)
			}
			if !bytes.Equal(rest, tt.data) {
				t.Errorf("DecodeDatagram() rest = %x, want input %x", rest, tt.data)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("DecodeDatagram() error %T is not a *DecodeError", err)
			}
		})
	}
}

func TestDecodeErrorDetails(t *testing.T) {
	_, _, err := DecodeDatagram([]byte("/a\x00\x00,i\x00\x00"))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}
	if de.Offset != 8 {
		t.Errorf("Offset = %d, want 8", de.Offset)
	}

	_, _, err = DecodeDatagram([]byte("/a\x00\x00,\xc3\xa9\x00"))
	if !errors.As(err, &de) || !errors.Is(err, ErrUnknownTypeTag) {
		t.Fatalf("error = %v, want unknown type tag", err)
	}
	if de.Tag != 'é' {
		t.Errorf("Tag = %q, want 'é'", de.Tag)
	}
}

func TestDecodeDatagramRemainder(t *testing.T) {
	data := cat(mustHex(t, goldenMessageWithoutArgs), []byte{1, 2, 3, 4})
	rest, p, err := DecodeDatagram(data)
	if err != nil {
		t.Fatal(err)
	}
	if !PacketsEqual(p, NewMessage("/some/addr")) {
		t.Errorf("DecodeDatagram() = %v", p)
	}
	if !bytes.Equal(rest, []byte{1, 2, 3, 4}) {
		t.Errorf("DecodeDatagram() rest = %x, want 01020304", rest)
	}

	if _, err := ParsePacket(data); !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("ParsePacket() error = %v, want %v", err, ErrTrailingBytes)
	}
}

func TestPaddingFollowsOutermostBuffer(t *testing.T) {
	// The string starts at offset 1, so its padding ends at offset 8, not at
	// offset 5.
	r := reader{buf: []byte("x/ab\x00\x00\x00\x00zzzz"), limits: DefaultLimits()}
	s, next, err := r.paddedString(1, len(r.buf))
	if err != nil {
		t.Fatal(err)
	}
	if s != "/ab" || next != 8 {
		t.Errorf("paddedString() = %q, %d; want \"/ab\", 8", s, next)
	}
}

func TestDecodeStreamFrame(t *testing.T) {
	msg := mustHex(t, goldenMessageWithoutArgs)

	t.Run("needs more data", func(t *testing.T) {
		for _, data := range [][]byte{
			nil,
			{0, 0},
			{0, 0, 0},
			{0, 0, 0, 16, 0x2f, 0x73},
			frame(msg)[:19],
		} {
			rest, p, err := DecodeStreamFrame(data)
			if err != nil || p != nil {
				t.Errorf("DecodeStreamFrame(%x) = %v, %v; want nil, nil", data, p, err)
			}
			if !bytes.Equal(rest, data) {
				t.Errorf("DecodeStreamFrame(%x) rest = %x, want input", data, rest)
			}
		}
	})

	t.Run("exact frame", func(t *testing.T) {
		rest, p, err := DecodeStreamFrame(frame(msg))
		if err != nil {
			t.Fatal(err)
		}
		if len(rest) != 0 {
			t.Errorf("rest = %x, want empty", rest)
		}
		if !PacketsEqual(p, NewMessage("/some/addr")) {
			t.Errorf("packet = %v", p)
		}
	})

	t.Run("trailing data", func(t *testing.T) {
		data := cat(frame(msg), []byte{0, 0, 0, 16, 0x2f})
		rest, p, err := DecodeStreamFrame(data)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(rest, []byte{0, 0, 0, 16, 0x2f}) {
			t.Errorf("rest = %x", rest)
		}
		if !PacketsEqual(p, NewMessage("/some/addr")) {
			t.Errorf("packet = %v", p)
		}
	})

	t.Run("malformed frame", func(t *testing.T) {
		data := frame([]byte("zzzz"))
		rest, p, err := DecodeStreamFrame(data)
		if !errors.Is(err, ErrUnrecognizedPacket) {
			t.Errorf("error = %v, want %v", err, ErrUnrecognizedPacket)
		}
		if p != nil || !bytes.Equal(rest, data) {
			t.Errorf("DecodeStreamFrame() = %x, %v", rest, p)
		}
	})

	t.Run("frame too large", func(t *testing.T) {
		dec := NewDecoder(Limits{MaxFrameSize: 8})
		_, p, err := dec.DecodeStreamFrame(frame(msg)[:4])
		if !errors.Is(err, ErrFrameTooLarge) || p != nil {
			t.Errorf("DecodeStreamFrame() = %v, %v; want %v", p, err, ErrFrameTooLarge)
		}
	})

	t.Run("error offsets are relative to the frame", func(t *testing.T) {
		_, _, err := DecodeStreamFrame(frame([]byte("/a\x00\x00,i\x00\x00")))
		var de *DecodeError
		if !errors.As(err, &de) || de.Offset != 8 {
			t.Errorf("error = %v, want offset 8", err)
		}
	})
}

func TestDecodeStreamAll(t *testing.T) {
	msg := mustHex(t, goldenMessageWithoutArgs)
	bundle := mustHex(t, goldenEmptyBundle)

	t.Run("two messages", func(t *testing.T) {
		rest, ps, err := DecodeStreamAll(cat(frame(msg), frame(msg)))
		if err != nil {
			t.Fatal(err)
		}
		if len(rest) != 0 || len(ps) != 2 {
			t.Fatalf("DecodeStreamAll() = %d packets, %d bytes left; want 2, 0", len(ps), len(rest))
		}
		for _, p := range ps {
			if !PacketsEqual(p, NewMessage("/some/addr")) {
				t.Errorf("packet = %v", p)
			}
		}
	})

	t.Run("frames after a bundle join the bundle", func(t *testing.T) {
		rest, ps, err := DecodeStreamAll(cat(frame(msg), frame(bundle), frame(msg), frame(msg)))
		if err != nil {
			t.Fatal(err)
		}
		if len(rest) != 0 {
			t.Errorf("rest = %x, want empty", rest)
		}
		want := []Packet{
			NewMessage("/some/addr"),
			NewBundle(TimetagFromParts(4, 2), NewMessage("/some/addr"), NewMessage("/some/addr")),
		}
		if diff := cmp.Diff(want, ps); diff != "" {
			t.Errorf("DecodeStreamAll() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("partial trailing frame", func(t *testing.T) {
		tail := frame(msg)[:10]
		rest, ps, err := DecodeStreamAll(cat(frame(msg), tail))
		if err != nil {
			t.Fatal(err)
		}
		if len(ps) != 1 || !bytes.Equal(rest, tail) {
			t.Errorf("DecodeStreamAll() = %d packets, rest %x; want 1, %x", len(ps), rest, tail)
		}
	})

	t.Run("malformed frame", func(t *testing.T) {
		bad := frame([]byte("zzzz"))
		rest, ps, err := DecodeStreamAll(cat(frame(msg), bad))
		if !errors.Is(err, ErrUnrecognizedPacket) {
			t.Fatalf("error = %v, want %v", err, ErrUnrecognizedPacket)
		}
		if len(ps) != 1 || !bytes.Equal(rest, bad) {
			t.Errorf("DecodeStreamAll() = %d packets, rest %x; want 1, %x", len(ps), rest, bad)
		}
	})
}

func TestDecodeNestingLimits(t *testing.T) {
	dec := NewDecoder(Limits{MaxNesting: 2})

	arrays := func(depth int) []byte {
		tags := ","
		for i := 0; i < depth; i++ {
			tags += "["
		}
		for i := 0; i < depth; i++ {
			tags += "]"
		}
		return cat(EncodeString("/a"), EncodeString(tags))
	}
	if _, err := dec.Parse(arrays(2)); err != nil {
		t.Errorf("Parse(2 nested arrays) error = %v", err)
	}
	if _, err := dec.Parse(arrays(3)); !errors.Is(err, ErrNestingTooDeep) {
		t.Errorf("Parse(3 nested arrays) error = %v, want %v", err, ErrNestingTooDeep)
	}

	bundles := func(depth int) Packet {
		p := Packet(NewMessage("/a"))
		for i := 0; i < depth; i++ {
			p = NewBundle(Immediately, p)
		}
		return p
	}
	for _, tt := range []struct {
		depth int
		want  error
	}{
		{2, nil},
		{3, ErrNestingTooDeep},
	} {
		data, err := Encode(bundles(tt.depth))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := dec.Parse(data); !errors.Is(err, tt.want) {
			t.Errorf("Parse(%d nested bundles) error = %v, want %v", tt.depth, err, tt.want)
		}
	}

	if _, err := NewDecoder(Limits{}).Parse(arrays(100)); err != nil {
		t.Errorf("Parse() without limits error = %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	nan32 := Float(math.Float32frombits(0x7fc00001))
	nan64 := Double(math.Float64frombits(0x7ff8000000000001))

	for _, tt := range []struct {
		name   string
		packet Packet
	}{
		{"no arguments", NewMessage("/a")},
		{"all types", allTypesMessage()},
		{"nan payloads", NewMessage("/nan", nan32, nan64, Float(math.Inf(-1)))},
		{"empty values", NewMessage("/empty", String(""), Blob{}, Array{})},
		{"nested empty arrays", NewMessage("/arr", Array{Array{}, Array{Array{}}})},
		{"extreme integers", NewMessage("/int", Int(math.MinInt32), Long(math.MaxInt64), Char(0x10FFFF))},
		{"unicode", NewMessage("/ünï/cödé", String("日本語"), Char('€'))},
		{"empty bundle", NewBundle(Immediately)},
		{"nested bundles", goldenBundlePacket()},
		{"bundle of bundles", NewBundle(TimetagFromParts(1, 2), NewBundle(TimetagFromParts(3, 4)), NewBundle(TimetagFromParts(5, 6), allTypesMessage()))},
	} {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.packet)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if len(data)%4 != 0 {
				t.Errorf("len(Encode()) = %d, not a multiple of 4", len(data))
			}
			rest, got, err := DecodeDatagram(data)
			if err != nil {
				t.Fatalf("DecodeDatagram() error = %v", err)
			}
			if len(rest) != 0 {
				t.Errorf("DecodeDatagram() left %d bytes", len(rest))
			}
			if !PacketsEqual(tt.packet, got) {
				t.Errorf("round trip = %v, want %v", got, tt.packet)
			}

			stream, err := EncodeStream(tt.packet)
			if err != nil {
				t.Fatalf("EncodeStream() error = %v", err)
			}
			rest, got, err = DecodeStreamFrame(stream)
			if err != nil || len(rest) != 0 {
				t.Fatalf("DecodeStreamFrame() = %x, %v", rest, err)
			}
			if !PacketsEqual(tt.packet, got) {
				t.Errorf("stream round trip = %v, want %v", got, tt.packet)
			}
		})
	}
}

func TestUnmarshalBinary(t *testing.T) {
	var msg Message
	if err := msg.UnmarshalBinary(mustHex(t, goldenMessageAllTypes)); err != nil {
		t.Fatal(err)
	}
	if !msg.Equal(allTypesMessage()) {
		t.Errorf("Message.UnmarshalBinary() = %v", &msg)
	}
	if err := msg.UnmarshalBinary(mustHex(t, goldenBundle)); !errors.Is(err, ErrUnrecognizedPacket) {
		t.Errorf("Message.UnmarshalBinary(bundle) error = %v, want %v", err, ErrUnrecognizedPacket)
	}

	var b Bundle
	if err := b.UnmarshalBinary(mustHex(t, goldenBundle)); err != nil {
		t.Fatal(err)
	}
	if !b.Equal(goldenBundlePacket()) {
		t.Errorf("Bundle.UnmarshalBinary() = %v", &b)
	}
	if err := b.UnmarshalBinary(mustHex(t, goldenMessageWithoutArgs)); !errors.Is(err, ErrUnrecognizedPacket) {
		t.Errorf("Bundle.UnmarshalBinary(message) error = %v, want %v", err, ErrUnrecognizedPacket)
	}
}

func FuzzDecodeDatagram(f *testing.F) {
	for _, s := range []string{goldenMessageWithoutArgs, goldenMessageAllTypes, goldenEmptyBundle, goldenBundle} {
		b, err := hex.DecodeString(s)
		if err != nil {
			f.Fatal(err)
		}
		f.Add(b)
	}
	f.Add([]byte("/a\x00\x00,[ifi]\x00\x00"))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, p, err := DecodeDatagram(data)
		if err != nil {
			return
		}
		enc, err := Encode(p)
		if err != nil {
			t.Fatalf("Encode(%v) error = %v", p, err)
		}
		got, err := ParsePacket(enc)
		if err != nil {
			t.Fatalf("ParsePacket(%x) error = %v", enc, err)
		}
		if !PacketsEqual(p, got) {
			t.Errorf("re-decoded %v, want %v", got, p)
		}
	})
}
