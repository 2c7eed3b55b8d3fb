package dccl

import (
	"fmt"

	"github.com/tsaubergine/acomms/internal/bitset"
)

// enumFieldCodec is an arithmetic codec over [0, len(values)-1] mapping
// enum ordinal <-> wire integer.
type enumFieldCodec struct {
	values []string
	core   arithmeticCore
}

func newEnumFieldCodec(f Field) (FieldCodec, error) {
	if len(f.EnumValues) == 0 {
		return nil, fmt.Errorf("%w: field %s is an enum with no declared values", ErrSchemaError, f.Name)
	}
	core, err := newArithmeticCore(f.Name, 0, float64(len(f.EnumValues)-1), 0)
	if err != nil {
		return nil, err
	}
	return &enumFieldCodec{values: f.EnumValues, core: core}, nil
}

func (c *enumFieldCodec) Encode(v Value) (bitset.Bitset, error) {
	if v.IsAbsent() {
		return c.EncodeEmpty()
	}
	if v.Kind != KindEnum {
		return bitset.Bitset{}, fmt.Errorf("%w: expected enum value", ErrBadFieldValue)
	}
	return c.core.encodeFloat(float64(v.EnumOrdinal)), nil
}

func (c *enumFieldCodec) EncodeEmpty() (bitset.Bitset, error) {
	return c.core.emptyBits(), nil
}

func (c *enumFieldCodec) DecodeFrom(buf *bitset.Bitset) (Value, error) {
	val, present, err := c.core.decodeToFloat(buf)
	if err != nil {
		return Value{}, err
	}
	if !present {
		return Absent(), nil
	}
	return EnumValue(int(val)), nil
}

func (c *enumFieldCodec) Size(v *Value) (int, bool) {
	return c.core.width, true
}
