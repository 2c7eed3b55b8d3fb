package dccl

import (
	"fmt"

	"github.com/tsaubergine/acomms/internal/bitset"
	"github.com/tsaubergine/acomms/internal/codecreg"
)

// platformFieldCodec is arithmetic over [0,30] mapping a registered
// platform name <-> its small integer id (codecreg.Registry's
// name/id bijection). Registered per-schema so it can close over the
// registry the schema was compiled against.
type platformFieldCodec struct {
	core arithmeticCore
	reg  *codecreg.Registry
}

func newPlatformFieldCodec(f Field, reg *codecreg.Registry) (FieldCodec, error) {
	core, err := newArithmeticCore(f.Name, 0, 30, 0)
	if err != nil {
		return nil, err
	}
	return &platformFieldCodec{core: core, reg: reg}, nil
}

func (c *platformFieldCodec) Encode(v Value) (bitset.Bitset, error) {
	if v.IsAbsent() {
		return c.EncodeEmpty()
	}
	if v.Kind != KindString {
		return bitset.Bitset{}, fmt.Errorf("%w: expected platform name string", ErrBadFieldValue)
	}
	id, ok := c.reg.PlatformID(v.Str)
	if !ok {
		return bitset.Bitset{}, fmt.Errorf("%w: unregistered platform name %q", ErrBadFieldValue, v.Str)
	}
	return c.core.encodeFloat(float64(id)), nil
}

func (c *platformFieldCodec) EncodeEmpty() (bitset.Bitset, error) {
	return c.core.emptyBits(), nil
}

func (c *platformFieldCodec) DecodeFrom(buf *bitset.Bitset) (Value, error) {
	val, present, err := c.core.decodeToFloat(buf)
	if err != nil {
		return Value{}, err
	}
	if !present {
		return Absent(), nil
	}
	name, ok := c.reg.PlatformName(int(val))
	if !ok {
		return Value{}, fmt.Errorf("%w: unregistered platform id %d", ErrBadFieldValue, int(val))
	}
	return StringValue(name), nil
}

func (c *platformFieldCodec) Size(v *Value) (int, bool) {
	return c.core.width, true
}
