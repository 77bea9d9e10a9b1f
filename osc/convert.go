package osc

import (
	"fmt"
	"iter"
	"time"

	"golang.org/x/exp/constraints"
)

// ToArgument wraps a native Go value into an Argument. Supported are the
// Argument types themselves, bool, nil, int32, int64, float32, float64,
// string, []byte, time.Time and []any (which becomes an Array).
func ToArgument(v any) (Argument, error) {
	switch t := v.(type) {
	case Argument:
		return t, nil
	case nil:
		return Nil{}, nil
	case bool:
		return Bool(t), nil
	case int32:
		return Int(t), nil
	case int64:
		return Long(t), nil
	case float32:
		return Float(t), nil
	case float64:
		return Double(t), nil
	case string:
		return String(t), nil
	case []byte:
		return Blob(t), nil
	case time.Time:
		tt, err := NewTimetag(t)
		if err != nil {
			return nil, err
		}
		return tt, nil
	case []any:
		return ArrayOf(t...)
	}
	return nil, fmt.Errorf("osc: unsupported argument type: %T", v)
}

// ToArguments converts each value with ToArgument.
func ToArguments(vs ...any) ([]Argument, error) {
	args := make([]Argument, 0, len(vs))
	for i, v := range vs {
		arg, err := ToArgument(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args = append(args, arg)
	}
	return args, nil
}

// ArrayOf builds an Array from native Go values.
func ArrayOf(vs ...any) (Array, error) {
	args, err := ToArguments(vs...)
	if err != nil {
		return nil, err
	}
	return Array(args), nil
}

// CollectArray collects the arguments of seq, in order, into an Array.
func CollectArray(seq iter.Seq[Argument]) Array {
	var arr Array
	for arg := range seq {
		arr = append(arr, arg)
	}
	return arr
}

// AsInt converts any integer to an Int, truncating it to 32 bits.
func AsInt[T constraints.Integer](v T) Int {
	return Int(int32(v))
}

// AsLong converts any integer to a Long.
func AsLong[T constraints.Integer](v T) Long {
	return Long(int64(v))
}

// AsFloat converts a float to a Float.
func AsFloat[T constraints.Float](v T) Float {
	return Float(float32(v))
}

// AsDouble converts a float to a Double.
func AsDouble[T constraints.Float](v T) Double {
	return Double(float64(v))
}
