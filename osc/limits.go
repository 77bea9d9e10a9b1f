package osc

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

// Limits constrains the memory and nesting a decoder accepts from untrusted
// input. Zero values disable the corresponding check.
type Limits struct {
	// MaxFrameSize is the largest stream frame length prefix accepted.
	// Larger declared lengths fail with ErrFrameTooLarge instead of waiting
	// for more data.
	MaxFrameSize int `toml:"max_frame_size"`
	// MaxNesting bounds both array nesting within a message and bundle
	// nesting within a packet.
	MaxNesting int `toml:"max_nesting"`
}

// DefaultLimits returns the limits used by the package-level decode
// functions.
func DefaultLimits() Limits {
	return Limits{
		MaxFrameSize: 16 * 1024 * 1024,
		MaxNesting:   64,
	}
}

// LoadLimits reads limits from a TOML file. Keys missing from the file keep
// their default values.
func LoadLimits(path string) (Limits, error) {
	l := DefaultLimits()
	md, err := toml.DecodeFile(path, &l)
	if err != nil {
		return Limits{}, fmt.Errorf("osc: load limits %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return Limits{}, fmt.Errorf("osc: load limits %s: %w", path, err)
	}
	if err := l.validate(); err != nil {
		return Limits{}, err
	}
	return l, nil
}

// DecodeLimits reads TOML encoded limits from r. Keys missing from the input
// keep their default values.
func DecodeLimits(r io.Reader) (Limits, error) {
	l := DefaultLimits()
	md, err := toml.NewDecoder(r).Decode(&l)
	if err != nil {
		return Limits{}, fmt.Errorf("osc: decode limits: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return Limits{}, fmt.Errorf("osc: decode limits: %w", err)
	}
	if err := l.validate(); err != nil {
		return Limits{}, err
	}
	return l, nil
}

func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
}

func (l Limits) validate() error {
	if l.MaxFrameSize < 0 {
		return fmt.Errorf("osc: max_frame_size must not be negative, got %d", l.MaxFrameSize)
	}
	if l.MaxNesting < 0 {
		return fmt.Errorf("osc: max_nesting must not be negative, got %d", l.MaxNesting)
	}
	return nil
}
