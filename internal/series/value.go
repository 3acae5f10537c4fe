package series

import "math"

// Value is one sample of a channel. Valid is false for missing readings.
type Value struct {
	Float float64
	Valid bool
}

// Some returns a present reading.
func Some(v float64) Value {
	return Value{Float: v, Valid: true}
}

// Missing returns an absent reading.
func Missing() Value {
	return Value{}
}

// FromFloat maps NaN and ±Inf to a missing reading.
func FromFloat(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing()
	}
	return Some(v)
}

// FromFloats converts a raw float slice, treating NaN as missing.
func FromFloats(data []float64) []Value {
	out := make([]Value, len(data))
	for i, v := range data {
		out[i] = FromFloat(v)
	}
	return out
}

// Present returns only the valid readings, in order.
func Present(values []Value) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v.Valid {
			out = append(out, v.Float)
		}
	}
	return out
}

// ZeroAsMissing returns a copy where exact zero readings are missing.
// Logged channels report 0 while a sensor or module is not delivering data.
func ZeroAsMissing(values []Value) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		if v.Valid && v.Float == 0 {
			continue
		}
		out[i] = v
	}
	return out
}
