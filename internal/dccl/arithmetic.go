package dccl

import (
	"fmt"
	"math"

	"github.com/tsaubergine/acomms/internal/bitset"
)

// arithmeticCore implements the shared reserved-zero-for-absent integer
// encoding used by the plain numeric codec, the enum codec (over
// [0,count-1]), the time-of-day codec (over [0,86400)) and the
// platform-name codec (over [0,30]). See spec.md §4.2.
type arithmeticCore struct {
	min, max  float64
	precision int
	scale     float64
	width     int
}

func newArithmeticCore(fieldName string, min, max float64, precision int) (arithmeticCore, error) {
	if max <= min {
		return arithmeticCore{}, fmt.Errorf("%w: field %s requires max > min", ErrSchemaError, fieldName)
	}
	scale := math.Pow(10, float64(precision))
	span := (max - min) * scale
	width := int(math.Ceil(math.Log2(span + 2)))
	if width < 1 {
		width = 1
	}
	if width > 62 {
		return arithmeticCore{}, fmt.Errorf("%w: field %s range too wide to encode", ErrSchemaError, fieldName)
	}
	return arithmeticCore{min: min, max: max, precision: precision, scale: scale, width: width}, nil
}

func (c arithmeticCore) encodeFloat(x float64) bitset.Bitset {
	if x < c.min || x > c.max {
		return bitset.FromUnsigned(0, c.width)
	}
	encoded := uint64(math.Round((x-c.min)*c.scale)) + 1
	return bitset.FromUnsigned(encoded, c.width)
}

// decodeToFloat returns (value, present).
func (c arithmeticCore) decodeToFloat(buf *bitset.Bitset) (float64, bool, error) {
	prefix, err := buf.TakePrefix(c.width)
	if err != nil {
		return 0, false, err
	}
	encoded := prefix.ToUnsigned()
	if encoded == 0 {
		return 0, false, nil
	}
	raw := (float64(encoded-1) / c.scale) + c.min
	rounded := math.Round(raw*c.scale) / c.scale
	return rounded, true, nil
}

func (c arithmeticCore) emptyBits() bitset.Bitset {
	return bitset.FromUnsigned(0, c.width)
}

// arithmeticFieldCodec is the default codec for a plain numeric (int/real)
// wire field.
type arithmeticFieldCodec struct {
	core arithmeticCore
}

func newArithmeticFieldCodec(f Field) (FieldCodec, error) {
	core, err := newArithmeticCore(f.Name, f.Min, f.Max, f.Precision)
	if err != nil {
		return nil, err
	}
	return &arithmeticFieldCodec{core: core}, nil
}

func (c *arithmeticFieldCodec) Encode(v Value) (bitset.Bitset, error) {
	if v.IsAbsent() {
		return c.core.emptyBits(), nil
	}
	return c.core.encodeFloat(v.Float), nil
}

func (c *arithmeticFieldCodec) EncodeEmpty() (bitset.Bitset, error) {
	return c.core.emptyBits(), nil
}

func (c *arithmeticFieldCodec) DecodeFrom(buf *bitset.Bitset) (Value, error) {
	val, present, err := c.core.decodeToFloat(buf)
	if err != nil {
		return Value{}, err
	}
	if !present {
		return Absent(), nil
	}
	return FloatValue(val), nil
}

func (c *arithmeticFieldCodec) Size(v *Value) (int, bool) {
	return c.core.width, true
}
