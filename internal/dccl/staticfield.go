package dccl

import (
	"fmt"

	"github.com/tsaubergine/acomms/internal/bitset"
)

// staticFieldCodec occupies zero bits on the wire; both sides already
// know the value from the schema. Encode is a no-op, Decode replays the
// schema constant.
type staticFieldCodec struct {
	value Value
}

func newStaticFieldCodec(f Field) (FieldCodec, error) {
	if f.Static == nil {
		return nil, fmt.Errorf("%w: field %s is static but declares no value", ErrSchemaError, f.Name)
	}
	return &staticFieldCodec{value: *f.Static}, nil
}

func (c *staticFieldCodec) Encode(v Value) (bitset.Bitset, error) {
	return bitset.Bitset{}, nil
}

func (c *staticFieldCodec) EncodeEmpty() (bitset.Bitset, error) {
	return bitset.Bitset{}, nil
}

func (c *staticFieldCodec) DecodeFrom(buf *bitset.Bitset) (Value, error) {
	return c.value, nil
}

func (c *staticFieldCodec) Size(v *Value) (int, bool) {
	return 0, true
}
