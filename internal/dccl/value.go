package dccl

import "time"

// Kind tags the variant held by a Value. Modeled as an explicit sum type
// per spec.md §9 ("Dynamic value carriers") rather than a boost::any-style
// runtime cast.
type Kind int

const (
	KindAbsent Kind = iota
	KindFloat
	KindBool
	KindString
	KindBytes
	KindEnum
	KindTime
)

// Value is one decoded or to-be-encoded field value.
type Value struct {
	Kind        Kind
	Float       float64
	Bool        bool
	Str         string
	Bytes       []byte
	EnumOrdinal int
	Time        time.Time
}

func Absent() Value                { return Value{Kind: KindAbsent} }
func FloatValue(f float64) Value   { return Value{Kind: KindFloat, Float: f} }
func BoolValue(b bool) Value       { return Value{Kind: KindBool, Bool: b} }
func StringValue(s string) Value   { return Value{Kind: KindString, Str: s} }
func BytesValue(b []byte) Value    { return Value{Kind: KindBytes, Bytes: append([]byte(nil), b...)} }
func EnumValue(ordinal int) Value  { return Value{Kind: KindEnum, EnumOrdinal: ordinal} }
func TimeValue(t time.Time) Value  { return Value{Kind: KindTime, Time: t} }

func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }

// Record is one decoded or to-be-encoded DCCL message body: field name to
// value, absent fields simply missing from the map.
type Record map[string]Value

func (r Record) Get(name string) (Value, bool) {
	v, ok := r[name]
	return v, ok
}
