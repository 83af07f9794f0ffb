package tiff

import "fmt"

// Rational is an unsigned TIFF rational value.
type Rational struct {
	Num, Den uint32
}

func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }

// SRational is a signed TIFF rational value.
type SRational struct {
	Num, Den int32
}

func (r SRational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r SRational) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }

// Entry is a single IFD entry: a tag, its field type, and the decoded value.
//
// Value holds one of the concrete shapes a TIFF type decodes to:
//
//	Byte, Undefined    []byte
//	ASCII              string
//	Short              []uint16
//	Long               []uint32
//	Long8              []uint64
//	Rational           []Rational
//	SByte              []int8
//	SShort             []int16
//	SLong              []int32
//	SRational          []SRational
//	Float              []float32
//	Double             []float64
//	sub-IFD pointer    *Directory
type Entry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Value interface{}
}

// LongArray widens any integer-shaped value to []int64. It reports false for
// non-integer values (ASCII, rationals, floats, sub-IFDs).
func (e *Entry) LongArray() ([]int64, bool) {
	switch v := e.Value.(type) {
	case []byte:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out, true
	case []uint16:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out, true
	case []uint32:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out, true
	case []uint64:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out, true
	case []int8:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out, true
	case []int16:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out, true
	case []int32:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out, true
	}
	return nil, false
}

// Long returns the first value widened to int64, or ok == false when the
// entry is empty or not integer shaped.
func (e *Entry) Long() (int64, bool) {
	v, ok := e.LongArray()
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

func (e *Entry) String() string {
	name := TagName(e.Tag)
	if name == "" {
		name = fmt.Sprintf("%#04x", e.Tag)
	}
	return fmt.Sprintf("%s: %v", name, e.Value)
}
