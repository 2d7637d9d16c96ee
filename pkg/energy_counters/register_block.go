package energy_counters

import "math"

// Modbus limits a single read to 125 registers.
const MaxRegistersPerRead = 125

type RegisterType int

const (
	HoldingRegister RegisterType = iota
	InputRegister
)

func (t RegisterType) String() string {
	if t == InputRegister {
		return "input"
	}
	return "holding"
}

type FieldSpec struct {
	// Offset of the first register of the field, relative to the block start
	Offset int
	// Number of registers: 1 or 2
	Width     int
	Signed    bool
	Encoding  Encoding
	WordOrder WordOrder
	Scale     float64
	// Decimals kept after scaling. Negative disables rounding.
	Decimals int
	Key      string
	// Placeholder fields are not read from the device and always decode to zero.
	Placeholder bool
}

func Uint16(offset int, scale float64, key string) FieldSpec {
	return FieldSpec{Offset: offset, Width: 1, Scale: scale, Decimals: decimalsForScale(scale), Key: key}
}

func Int16(offset int, scale float64, key string) FieldSpec {
	f := Uint16(offset, scale, key)
	f.Signed = true
	return f
}

func Uint32(offset int, scale float64, key string) FieldSpec {
	return FieldSpec{Offset: offset, Width: 2, Scale: scale, Decimals: decimalsForScale(scale), Key: key}
}

func Int32(offset int, scale float64, key string) FieldSpec {
	f := Uint32(offset, scale, key)
	f.Signed = true
	return f
}

func Float32(offset int, key string) FieldSpec {
	return FieldSpec{Offset: offset, Width: 2, Encoding: EncodingIEEE754, Scale: 1, Decimals: -1, Key: key}
}

// Zero declares an output key that the device never provides.
func Zero(key string) FieldSpec {
	return FieldSpec{Key: key, Placeholder: true, Scale: 1}
}

func (f FieldSpec) LowWordFirst() FieldSpec {
	f.WordOrder = LowWordFirst
	return f
}

func (f FieldSpec) WithDecimals(decimals int) FieldSpec {
	f.Decimals = decimals
	return f
}

func (f FieldSpec) validate(registerCount uint16) error {
	if f.Key == "" {
		return specViolation("field at offset %d has no output key", f.Offset)
	}
	if f.Placeholder {
		return nil
	}
	if f.Width != 1 && f.Width != 2 {
		return specViolation("field '%s' has width %d, expected 1 or 2", f.Key, f.Width)
	}
	if f.Encoding == EncodingIEEE754 && f.Width != 2 {
		return specViolation("field '%s' is ieee754 but spans %d register", f.Key, f.Width)
	}
	if f.Offset < 0 || f.Offset+f.Width > int(registerCount) {
		return specViolation("field '%s' (offset %d, width %d) exceeds block of %d registers", f.Key, f.Offset, f.Width, registerCount)
	}
	if f.Scale == 0 || math.IsNaN(f.Scale) || math.IsInf(f.Scale, 0) {
		return specViolation("field '%s' has invalid scale %v", f.Key, f.Scale)
	}
	return nil
}

// RegisterBlockSpec describes one contiguous Modbus read and how to decode it.
// It is immutable once built and may be shared between collectors.
type RegisterBlockSpec struct {
	Name          string
	StartAddress  uint16
	RegisterCount uint16
	RegisterType  RegisterType
	Fields        []FieldSpec
}

func NewRegisterBlockSpec(name string, startAddress uint16, registerCount uint16, fields ...FieldSpec) (*RegisterBlockSpec, error) {
	blk := &RegisterBlockSpec{
		Name:          name,
		StartAddress:  startAddress,
		RegisterCount: registerCount,
		Fields:        append([]FieldSpec(nil), fields...),
	}
	if err := blk.Validate(); err != nil {
		return nil, err
	}
	return blk, nil
}

// MustRegisterBlockSpec is like NewRegisterBlockSpec but panics on an invalid map.
// Intended for the static tables built at package init.
func MustRegisterBlockSpec(name string, startAddress uint16, registerCount uint16, fields ...FieldSpec) *RegisterBlockSpec {
	blk, err := NewRegisterBlockSpec(name, startAddress, registerCount, fields...)
	if err != nil {
		panic(err)
	}
	return blk
}

// InputRegisters returns a copy of the block read with function code 4.
func (blk *RegisterBlockSpec) InputRegisters() *RegisterBlockSpec {
	cp := *blk
	cp.RegisterType = InputRegister
	return &cp
}

func (blk *RegisterBlockSpec) Validate() error {
	if blk.RegisterCount == 0 || blk.RegisterCount > MaxRegistersPerRead {
		return specViolation("block '%s' register count %d outside 1..%d", blk.Name, blk.RegisterCount, MaxRegistersPerRead)
	}
	if int(blk.StartAddress)+int(blk.RegisterCount) > math.MaxUint16+1 {
		return specViolation("block '%s' exceeds the register address space", blk.Name)
	}
	used := make([]string, blk.RegisterCount)
	keys := make(map[string]bool, len(blk.Fields))
	has32 := false
	for _, f := range blk.Fields {
		if err := f.validate(blk.RegisterCount); err != nil {
			return err
		}
		if keys[f.Key] {
			return specViolation("block '%s' declares key '%s' twice", blk.Name, f.Key)
		}
		keys[f.Key] = true
		if f.Placeholder {
			continue
		}
		if f.Width == 2 {
			has32 = true
		}
		for i := f.Offset; i < f.Offset+f.Width; i++ {
			if used[i] != "" {
				return specViolation("block '%s': fields '%s' and '%s' overlap at offset %d", blk.Name, used[i], f.Key, i)
			}
			used[i] = f.Key
		}
	}
	if has32 && blk.RegisterCount%2 != 0 {
		return specViolation("block '%s' decodes 32-bit values but has an odd register count %d", blk.Name, blk.RegisterCount)
	}
	return nil
}

func (blk *RegisterBlockSpec) Keys() []string {
	keys := make([]string, 0, len(blk.Fields))
	for _, f := range blk.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Decode decodes every field of the block from the raw words into values.
func (blk *RegisterBlockSpec) Decode(words []uint16, values map[string]float64) error {
	if len(words) != int(blk.RegisterCount) {
		return specViolation("block '%s' expected %d registers, got %d", blk.Name, blk.RegisterCount, len(words))
	}
	for _, f := range blk.Fields {
		if f.Placeholder {
			values[f.Key] = 0
			continue
		}
		values[f.Key] = f.Decode(words[f.Offset : f.Offset+f.Width])
	}
	return nil
}

func (blk *RegisterBlockSpec) EndAddress() uint16 {
	return blk.StartAddress + blk.RegisterCount - 1
}
