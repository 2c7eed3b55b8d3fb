package dccl

import (
	"fmt"

	"github.com/tsaubergine/acomms/internal/bitset"
)

// booleanFieldCodec is fixed 1-bit when the field is required (no absent
// representation) and 2-bit (absent/false/true) when optional.
type booleanFieldCodec struct {
	optional bool
}

func newBooleanFieldCodec(f Field) (FieldCodec, error) {
	return &booleanFieldCodec{optional: !f.Required}, nil
}

func (c *booleanFieldCodec) width() int {
	if c.optional {
		return 2
	}
	return 1
}

func (c *booleanFieldCodec) Encode(v Value) (bitset.Bitset, error) {
	if v.IsAbsent() {
		return c.EncodeEmpty()
	}
	if !c.optional {
		return bitset.FromUnsigned(boolBit(v.Bool), 1), nil
	}
	if v.Bool {
		return bitset.FromUnsigned(2, 2), nil
	}
	return bitset.FromUnsigned(1, 2), nil
}

func (c *booleanFieldCodec) EncodeEmpty() (bitset.Bitset, error) {
	if !c.optional {
		return bitset.Bitset{}, fmt.Errorf("%w: required boolean field has no absent encoding", ErrBadFieldValue)
	}
	return bitset.FromUnsigned(0, 2), nil
}

func (c *booleanFieldCodec) DecodeFrom(buf *bitset.Bitset) (Value, error) {
	prefix, err := buf.TakePrefix(c.width())
	if err != nil {
		return Value{}, err
	}
	if !c.optional {
		return BoolValue(prefix.ToUnsigned() == 1), nil
	}
	switch prefix.ToUnsigned() {
	case 0:
		return Absent(), nil
	case 1:
		return BoolValue(false), nil
	default:
		return BoolValue(true), nil
	}
}

func (c *booleanFieldCodec) Size(v *Value) (int, bool) {
	return c.width(), true
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
