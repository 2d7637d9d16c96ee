package energy_counters

import (
	"fmt"
	"math"
)

type Encoding int

const (
	EncodingInt Encoding = iota
	EncodingIEEE754
)

// WordOrder is the order in which the two registers of a 32-bit value are
// stored. Bytes inside each register are always big-endian on the wire.
type WordOrder int

const (
	HighWordFirst WordOrder = iota
	LowWordFirst
)

func (e Encoding) String() string {
	switch e {
	case EncodingIEEE754:
		return "ieee754"
	default:
		return "int"
	}
}

func (o WordOrder) String() string {
	if o == LowWordFirst {
		return "low_first"
	}
	return "high_first"
}

func DecodeUint32BE(words []uint16) uint32 {
	mustWords(words, 2)
	return uint32(words[0])<<16 | uint32(words[1])
}

func DecodeInt32BE(words []uint16) int32 {
	return int32(DecodeUint32BE(words))
}

func DecodeUint16(words []uint16) uint16 {
	mustWords(words, 1)
	return words[0]
}

func DecodeInt16(words []uint16) int16 {
	return int16(DecodeUint16(words))
}

func DecodeFloatBE(words []uint16) float32 {
	return math.Float32frombits(DecodeUint32BE(words))
}

// EncodeUint32BE splits v into two registers, high word first.
func EncodeUint32BE(v uint32) []uint16 {
	return []uint16{uint16(v >> 16), uint16(v)}
}

func EncodeInt32BE(v int32) []uint16 {
	return EncodeUint32BE(uint32(v))
}

func EncodeFloatBE(v float32) []uint16 {
	return EncodeUint32BE(math.Float32bits(v))
}

func ApplyScale(raw float64, scale float64) float64 {
	return raw * scale
}

// Round rounds v to the given number of decimals. A negative value leaves v untouched.
func Round(v float64, decimals int) float64 {
	if decimals < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// decimalsForScale returns the number of significant decimals of a scale factor:
// 0.01 -> 2, 0.25 -> 2, 0.0025 -> 4, 1 -> 0. Capped at 10.
func decimalsForScale(scale float64) int {
	scale = math.Abs(scale)
	d := 0
	for ; d < 10; d++ {
		v := scale * math.Pow(10, float64(d))
		if math.Abs(v-math.Round(v)) <= 1e-9 {
			break
		}
	}
	return d
}

// Decode converts the words addressed by the field into a scaled physical value.
// words must have exactly f.Width elements.
func (f FieldSpec) Decode(words []uint16) float64 {
	if f.Placeholder {
		return 0
	}
	mustWords(words, f.Width)
	var raw float64
	switch f.Width {
	case 1:
		if f.Signed {
			raw = float64(DecodeInt16(words))
		} else {
			raw = float64(DecodeUint16(words))
		}
	case 2:
		ordered := words
		if f.WordOrder == LowWordFirst {
			ordered = []uint16{words[1], words[0]}
		}
		switch {
		case f.Encoding == EncodingIEEE754:
			raw = float64(DecodeFloatBE(ordered))
		case f.Signed:
			raw = float64(DecodeInt32BE(ordered))
		default:
			raw = float64(DecodeUint32BE(ordered))
		}
	}
	return Round(ApplyScale(raw, f.Scale), f.Decimals)
}

func mustWords(words []uint16, n int) {
	if len(words) != n {
		panic(fmt.Errorf("%w: expected %d registers, got %d", ErrSpecViolation, n, len(words)))
	}
}
