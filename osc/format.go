package osc

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// String renders the message as its address, type tag string and argument
// values, separated by spaces.
func (msg *Message) String() string {
	if msg == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(msg.Address)

	tags, err := msg.TypeTags()
	if err != nil || len(msg.Arguments) == 0 {
		return sb.String()
	}
	sb.WriteByte(' ')
	sb.WriteString(tags)
	for _, arg := range msg.Arguments {
		sb.WriteByte(' ')
		writeValue(&sb, arg)
	}
	return sb.String()
}

// String renders the bundle header followed by its elements.
func (b *Bundle) String() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(bundleTag)
	sb.WriteByte(' ')
	sb.WriteString(b.Timetag.String())
	sb.WriteString(" {")
	for i, p := range b.Elements {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteByte(' ')
		if s, ok := p.(fmt.Stringer); ok {
			sb.WriteString(s.String())
		}
	}
	sb.WriteString(" }")
	return sb.String()
}

// String formats the time tag as an RFC 3339 timestamp with nanoseconds.
func (t Timetag) String() string {
	return t.Time().Format(time.RFC3339Nano)
}

func (c Color) String() string {
	return fmt.Sprintf("{%d,%d,%d,%d}", c.R, c.G, c.B, c.A)
}

func (m Midi) String() string {
	return fmt.Sprintf("{port:%d, status:0x%02X, data:0x%02X%02X}", m.Port, m.Status, m.Data1, m.Data2)
}

func (Nil) String() string { return "Nil" }

func (Inf) String() string { return "Inf" }

func (a Array) String() string {
	var sb strings.Builder
	writeValue(&sb, a)
	return sb.String()
}

func writeValue(sb *strings.Builder, arg Argument) {
	switch t := arg.(type) {
	case Int:
		sb.WriteString(strconv.FormatInt(int64(t), 10))
	case Long:
		sb.WriteString(strconv.FormatInt(int64(t), 10))
	case Float:
		sb.WriteString(strconv.FormatFloat(float64(t), 'g', -1, 32))
	case Double:
		sb.WriteString(strconv.FormatFloat(float64(t), 'g', -1, 64))
	case String:
		sb.WriteString(string(t))
	case Blob:
		sb.WriteString("0x")
		sb.WriteString(strings.ToUpper(hex.EncodeToString(t)))
	case Char:
		sb.WriteRune(rune(t))
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(t)))
	case Array:
		sb.WriteByte('[')
		for i, v := range t {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeValue(sb, v)
		}
		sb.WriteByte(']')
	case fmt.Stringer:
		sb.WriteString(t.String())
	}
}

// PrintMessage pretty prints a Message to w.
func PrintMessage(w io.Writer, msg *Message) error {
	_, err := fmt.Fprintln(w, msg.String())
	return err
}
