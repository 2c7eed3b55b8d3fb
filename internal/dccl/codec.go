package dccl

import "github.com/tsaubergine/acomms/internal/bitset"

// FieldCodec is the pluggable strategy for one field's wire representation.
// Encode/EncodeEmpty return a complete, self-delimiting bit run (fixed
// codecs return a constant width; the string codec prefixes a length
// byte). DecodeFrom consumes exactly the bits it produced, mutating buf
// to hold whatever remains after this field.
type FieldCodec interface {
	Encode(v Value) (bitset.Bitset, error)
	EncodeEmpty() (bitset.Bitset, error)
	DecodeFrom(buf *bitset.Bitset) (Value, error)
	// Size reports the bit width this codec would use for v. If v is nil,
	// it reports the codec's minimum possible width. fixed indicates the
	// width never depends on the value.
	Size(v *Value) (bits int, fixed bool)
}

// CodecFactory builds a FieldCodec from a field's declared schema options.
// Factories return ErrSchemaError when a required option is missing.
type CodecFactory func(Field) (FieldCodec, error)

// DefaultCodecName is the well-known selector that resolves to the
// standard codec for a field's wire type.
const DefaultCodecName = "default"
