package dccl

import (
	"fmt"

	"github.com/tsaubergine/acomms/internal/codecreg"
)

// Field describes one entry in a message Schema: its wire type, codec
// selector, and the options that selector's factory needs (Min/Max/
// Precision for arithmetic fields, EnumValues for enums, Static for the
// constant codec).
type Field struct {
	Name       string
	Wire       codecreg.WireType
	Codec      string // codec name within (Wire, Codec); "" resolves to DefaultCodecName
	Required   bool
	Min        float64
	Max        float64
	Precision  int
	EnumValues []string
	Static     *Value
}

func (f Field) codecName() string {
	if f.Codec == "" {
		return DefaultCodecName
	}
	return f.Codec
}

// Schema is an ordered list of fields plus the frame-level metadata
// (DCCL message id, byte budget) needed to compile a CompiledSchema.
type Schema struct {
	DCCLID   int
	Name     string
	Fields   []Field
	MaxBytes int
}

// RegisterDefaults installs the built-in field codec factories into reg
// under DefaultCodecName, one per codecreg.WireType except WireMessage,
// which has no built-in codec (a WireMessage field fails Compile with
// ErrCodecNotFound unless the caller registers one). Call once per
// process (or per test) before compiling schemas; see spec.md §5.
func RegisterDefaults(reg *codecreg.Registry) {
	reg.Register(codecreg.WireInt, DefaultCodecName, CodecFactory(newArithmeticFieldCodec))
	reg.Register(codecreg.WireBool, DefaultCodecName, CodecFactory(newBooleanFieldCodec))
	reg.Register(codecreg.WireString, DefaultCodecName, CodecFactory(newStringFieldCodec))
	reg.Register(codecreg.WireBytes, DefaultCodecName, CodecFactory(newBytesFieldCodec))
	reg.Register(codecreg.WireEnum, DefaultCodecName, CodecFactory(newEnumFieldCodec))
	reg.Register(codecreg.WireTimeOfDay, DefaultCodecName, CodecFactory(newTimeOfDayFieldCodec))
	reg.Register(codecreg.WireStatic, DefaultCodecName, CodecFactory(newStaticFieldCodec))
	reg.Register(codecreg.WirePlatform, DefaultCodecName, CodecFactory(func(f Field) (FieldCodec, error) {
		return newPlatformFieldCodec(f, reg)
	}))
}

// CompiledSchema is a Schema with a resolved FieldCodec per field, ready
// to Encode/Decode records.
type CompiledSchema struct {
	schema  Schema
	codecs  []FieldCodec
	minBits int
	maxBits int
	varSize bool
}

// Compile walks fields in declared order, resolves each field's codec
// against reg, and records the schema's size envelope (maxBits counts a
// variable-size field at its minimum width; varSize marks that case).
// Fails with ErrSchemaError if a field's declared options are invalid,
// ErrCodecNotFound if a (wire, codec-name) selector has no factory
// registered.
func Compile(schema Schema, reg *codecreg.Registry) (*CompiledSchema, error) {
	if schema.DCCLID < 0 || schema.DCCLID > MaxDCCLID {
		return nil, fmt.Errorf("%w: schema %s dccl id %d out of range", ErrSchemaError, schema.Name, schema.DCCLID)
	}
	cs := &CompiledSchema{schema: schema, minBits: headSizeBits, maxBits: headSizeBits}
	for _, f := range schema.Fields {
		factory, err := codecreg.ResolveTyped[CodecFactory](reg, f.Wire, f.codecName())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w: %w", f.Name, ErrCodecNotFound, err)
		}
		codec, err := factory(f)
		if err != nil {
			return nil, err
		}
		cs.codecs = append(cs.codecs, codec)
		bits, fixed := codec.Size(nil)
		cs.minBits += bits
		cs.maxBits += bits
		if !fixed {
			cs.varSize = true
		}
	}
	return cs, nil
}

// DCCLID returns the compiled schema's message id.
func (cs *CompiledSchema) DCCLID() int { return cs.schema.DCCLID }

// Name returns the compiled schema's declared name.
func (cs *CompiledSchema) Name() string { return cs.schema.Name }

// MaxBytes returns the schema's configured frame budget, if any.
func (cs *CompiledSchema) MaxBytes() int { return cs.schema.MaxBytes }
