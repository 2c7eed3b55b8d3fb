package dccl

import (
	"fmt"

	"github.com/tsaubergine/acomms/internal/bitset"
)

const maxStringBytes = 255

// stringFieldCodec is one size-prefix byte followed by up to 255 raw
// bytes; used for both the string and byte-blob wire types.
type stringFieldCodec struct{}

func newStringFieldCodec(f Field) (FieldCodec, error) {
	return &stringFieldCodec{}, nil
}

func (c *stringFieldCodec) rawBytes(v Value) ([]byte, bool) {
	switch v.Kind {
	case KindString:
		return []byte(v.Str), true
	case KindBytes:
		return v.Bytes, true
	default:
		return nil, false
	}
}

func (c *stringFieldCodec) Encode(v Value) (bitset.Bitset, error) {
	if v.IsAbsent() {
		return c.EncodeEmpty()
	}
	raw, ok := c.rawBytes(v)
	if !ok {
		return bitset.Bitset{}, fmt.Errorf("%w: expected string or bytes value", ErrBadFieldValue)
	}
	if len(raw) > maxStringBytes {
		return bitset.Bitset{}, fmt.Errorf("%w: value of %d bytes exceeds max %d", ErrBadFieldValue, len(raw), maxStringBytes)
	}
	var b bitset.Bitset
	b.AppendBits(uint64(len(raw)), 8)
	for _, by := range raw {
		b.AppendBits(uint64(by), 8)
	}
	return b, nil
}

func (c *stringFieldCodec) EncodeEmpty() (bitset.Bitset, error) {
	var b bitset.Bitset
	b.AppendBits(0, 8)
	return b, nil
}

func (c *stringFieldCodec) DecodeFrom(buf *bitset.Bitset) (Value, error) {
	lenBits, err := buf.TakePrefix(8)
	if err != nil {
		return Value{}, err
	}
	n := int(lenBits.ToUnsigned())
	if n == 0 {
		return Absent(), nil
	}
	bodyBits, err := buf.TakePrefix(n * 8)
	if err != nil {
		return Value{}, err
	}
	raw := bodyBits.Bytes()
	return StringValue(string(raw)), nil
}

func (c *stringFieldCodec) Size(v *Value) (int, bool) {
	if v == nil {
		return 8, false
	}
	raw, ok := c.rawBytes(*v)
	if !ok {
		return 8, false
	}
	return 8 + len(raw)*8, false
}

// bytesFieldCodec decodes to KindBytes instead of KindString; it otherwise
// shares the exact wire layout with stringFieldCodec.
type bytesFieldCodec struct {
	stringFieldCodec
}

func newBytesFieldCodec(f Field) (FieldCodec, error) {
	return &bytesFieldCodec{}, nil
}

func (c *bytesFieldCodec) DecodeFrom(buf *bitset.Bitset) (Value, error) {
	v, err := c.stringFieldCodec.DecodeFrom(buf)
	if err != nil || v.IsAbsent() {
		return v, err
	}
	return BytesValue([]byte(v.Str)), nil
}
