package series

// PadForward copies the last valid reading into at most limit following
// missing samples. Longer gaps keep their first limit samples filled and the
// rest missing. A non-positive limit returns an unchanged copy.
func PadForward(values []Value, limit int) []Value {
	out := make([]Value, len(values))
	copy(out, values)
	if limit <= 0 {
		return out
	}
	var last Value
	run := 0
	for i, v := range out {
		if v.Valid {
			last = v
			run = 0
			continue
		}
		run++
		if last.Valid && run <= limit {
			out[i] = last
		}
	}
	return out
}

// InterpolateLinear fills interior gaps of at most limit consecutive missing
// samples with a straight line between the bounding readings. Leading and
// trailing gaps, and longer interior gaps, stay missing.
func InterpolateLinear(values []Value, limit int) []Value {
	out := make([]Value, len(values))
	copy(out, values)
	if limit <= 0 {
		return out
	}
	prev := -1
	for i, v := range out {
		if !v.Valid {
			continue
		}
		gap := i - prev - 1
		if prev >= 0 && gap > 0 && gap <= limit {
			from, to := out[prev].Float, v.Float
			step := (to - from) / float64(gap+1)
			for k := 1; k <= gap; k++ {
				out[prev+k] = Some(from + step*float64(k))
			}
		}
		prev = i
	}
	return out
}
