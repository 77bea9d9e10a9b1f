package osc

import (
	"math"
	"time"
)

const (
	secondsFrom1900To1970 = 2208988800

	twoPow32       = float64(1 << 32)
	nanosPerSecond = 1e9
)

// Immediately is the special time tag value consisting of 63 zero bits
// followed by a one in the least significant bit, meaning "immediately".
var Immediately = Timetag{Seconds: 0, Fractional: 1}

// Timetag represents an OSC Time Tag.
// An OSC Time Tag is defined as follows:
// Time tags are represented by a 64 bit fixed point number. The first 32 bits
// specify the number of seconds since midnight on January 1, 1900, and the
// last 32 bits specify fractional parts of a second to a precision of about
// 200 picoseconds. This is the representation used by Internet NTP timestamps.
//
// Conversions to and from time.Time are lossy; a round trip in either
// direction stays within 5 nanoseconds. Only times at or after the unix epoch
// can be converted into a Timetag.
type Timetag struct {
	Seconds    uint32
	Fractional uint32
}

// NewTimetag converts t into an OSC time tag. It fails with ErrTimeBeforeEpoch
// for times before 1970-01-01T00:00:00Z and with ErrTimeOverflow for times
// whose seconds since 1900 do not fit in 32 bits.
func NewTimetag(t time.Time) (Timetag, error) {
	unix := t.Unix()
	if unix < 0 {
		return Timetag{}, ErrTimeBeforeEpoch
	}
	secs := unix + secondsFrom1900To1970
	if secs > math.MaxUint32 {
		return Timetag{}, ErrTimeOverflow
	}
	frac := math.Round(float64(t.Nanosecond()) / nanosPerSecond * twoPow32)
	return Timetag{Seconds: uint32(secs), Fractional: uint32(frac)}, nil
}

// TimetagFromParts builds a time tag from its seconds and fractional words.
func TimetagFromParts(seconds, fractional uint32) Timetag {
	return Timetag{Seconds: seconds, Fractional: fractional}
}

// TimetagFromUint64 creates a time tag from its 64-bit fixed point value.
func TimetagFromUint64(v uint64) Timetag {
	return Timetag{Seconds: uint32(v >> 32), Fractional: uint32(v)}
}

// Parts returns the seconds and fractional words of the time tag.
func (t Timetag) Parts() (seconds, fractional uint32) {
	return t.Seconds, t.Fractional
}

// Uint64 returns the 64-bit fixed point value of the time tag.
func (t Timetag) Uint64() uint64 {
	return uint64(t.Seconds)<<32 | uint64(t.Fractional)
}

// SecondsSinceEpoch returns the number of seconds since midnight 1900.
func (t Timetag) SecondsSinceEpoch() uint32 {
	return t.Seconds
}

// FractionalSecond returns the fractional part of a second, in units of
// 1/2^32 seconds.
func (t Timetag) FractionalSecond() uint32 {
	return t.Fractional
}

// Time converts the time tag to a time.Time. The fractional part is rounded to
// the nearest nanosecond.
func (t Timetag) Time() time.Time {
	nanos := math.Round(float64(t.Fractional) / twoPow32 * nanosPerSecond)
	return time.Unix(int64(t.Seconds)-secondsFrom1900To1970, int64(nanos)).UTC()
}

// ExpiresIn calculates the duration until the time tag is due. It returns
// zero if the time tag is in the past or means "immediately".
func (t Timetag) ExpiresIn() time.Duration {
	if t.Uint64() <= 1 {
		return 0
	}
	d := time.Until(t.Time())
	if d <= 0 {
		return 0
	}
	return d
}
