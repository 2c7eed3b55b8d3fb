package dccl

import (
	"errors"
	"testing"
	"time"

	"github.com/tsaubergine/acomms/internal/codecreg"
)

func newTestRegistry(t *testing.T) *codecreg.Registry {
	t.Helper()
	reg := codecreg.New()
	RegisterDefaults(reg)
	if err := reg.RegisterPlatform(1, "topside"); err != nil {
		t.Fatalf("RegisterPlatform: %v", err)
	}
	if err := reg.RegisterPlatform(2, "auv-01"); err != nil {
		t.Fatalf("RegisterPlatform: %v", err)
	}
	return reg
}

func sampleSchema() Schema {
	return Schema{
		DCCLID: 5,
		Name:   "status",
		Fields: []Field{
			{Name: "heading", Wire: codecreg.WireInt, Required: false, Min: 0, Max: 359, Precision: 0},
			{Name: "depth", Wire: codecreg.WireInt, Required: false, Min: -10, Max: 6000, Precision: 1},
			{Name: "is_diving", Wire: codecreg.WireBool, Required: true},
			{Name: "note", Wire: codecreg.WireString, Required: false},
			{Name: "mode", Wire: codecreg.WireEnum, Required: false, EnumValues: []string{"survey", "transit", "hold"}},
			{Name: "origin", Wire: codecreg.WirePlatform, Required: false},
		},
		MaxBytes: 64,
	}
}

func TestCompileAndRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	cs, err := Compile(sampleSchema(), reg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	head := Head{CCLID: 32, Src: 1, Dest: 2, TimeOfDay: time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)}
	rec := Record{
		"heading":   FloatValue(270),
		"depth":     FloatValue(123.4),
		"is_diving": BoolValue(true),
		"note":      StringValue("diving now"),
		"mode":      EnumValue(1),
		"origin":    StringValue("auv-01"),
	}

	frame, err := cs.Encode(head, rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	gotHead, gotRec, err := cs.Decode(frame, head.TimeOfDay)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotHead.DCCLID != 5 || gotHead.Src != 1 || gotHead.Dest != 2 {
		t.Fatalf("head mismatch: %+v", gotHead)
	}

	heading, _ := gotRec.Get("heading")
	if heading.Float != 270 {
		t.Fatalf("heading round-trip: got %v", heading.Float)
	}
	depth, _ := gotRec.Get("depth")
	if diff := depth.Float - 123.4; diff > 0.05 || diff < -0.05 {
		t.Fatalf("depth round-trip precision: got %v", depth.Float)
	}
	diving, _ := gotRec.Get("is_diving")
	if !diving.Bool {
		t.Fatalf("is_diving round-trip: got %v", diving.Bool)
	}
	note, _ := gotRec.Get("note")
	if note.Str != "diving now" {
		t.Fatalf("note round-trip: got %q", note.Str)
	}
	mode, _ := gotRec.Get("mode")
	if mode.EnumOrdinal != 1 {
		t.Fatalf("mode round-trip: got %v", mode.EnumOrdinal)
	}
	origin, _ := gotRec.Get("origin")
	if origin.Str != "auv-01" {
		t.Fatalf("origin round-trip: got %q", origin.Str)
	}
}

func TestAbsenceRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	cs, err := Compile(sampleSchema(), reg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	head := Head{Src: 1, Dest: 2, TimeOfDay: time.Now().UTC()}
	rec := Record{"is_diving": BoolValue(false)}

	frame, err := cs.Encode(head, rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, gotRec, err := cs.Decode(frame, head.TimeOfDay)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for _, name := range []string{"heading", "depth", "note", "mode", "origin"} {
		v, _ := gotRec.Get(name)
		if !v.IsAbsent() {
			t.Fatalf("field %s: expected absent, got %+v", name, v)
		}
	}
}

func TestRangeSaturatesToAbsent(t *testing.T) {
	reg := newTestRegistry(t)
	cs, err := Compile(sampleSchema(), reg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	head := Head{Src: 1, Dest: 2, TimeOfDay: time.Now().UTC()}
	rec := Record{
		"heading":   FloatValue(999), // out of [0,359]
		"is_diving": BoolValue(true),
	}

	frame, err := cs.Encode(head, rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, gotRec, err := cs.Decode(frame, head.TimeOfDay)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	heading, _ := gotRec.Get("heading")
	if !heading.IsAbsent() {
		t.Fatalf("out-of-range heading should saturate to absent, got %+v", heading)
	}
}

func TestRequiredBooleanHasNoAbsentEncoding(t *testing.T) {
	reg := newTestRegistry(t)
	cs, err := Compile(sampleSchema(), reg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	head := Head{Src: 1, Dest: 2, TimeOfDay: time.Now().UTC()}
	_, err = cs.Encode(head, Record{})
	if !errors.Is(err, ErrBadFieldValue) {
		t.Fatalf("expected ErrBadFieldValue for missing required boolean, got %v", err)
	}
}

func TestFrameTooLarge(t *testing.T) {
	reg := newTestRegistry(t)
	schema := sampleSchema()
	schema.MaxBytes = 2
	cs, err := Compile(schema, reg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	head := Head{Src: 1, Dest: 2, TimeOfDay: time.Now().UTC()}
	rec := Record{"is_diving": BoolValue(true), "note": StringValue("this note is long enough to overflow the tiny budget")}
	_, err = cs.Encode(head, rec)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestEnumWithNoValuesIsSchemaError(t *testing.T) {
	reg := newTestRegistry(t)
	schema := Schema{
		DCCLID: 1,
		Name:   "bad",
		Fields: []Field{{Name: "mode", Wire: codecreg.WireEnum}},
	}
	_, err := Compile(schema, reg)
	if !errors.Is(err, ErrSchemaError) {
		t.Fatalf("expected ErrSchemaError, got %v", err)
	}
}

func TestUnresolvedCodecIsCodecNotFound(t *testing.T) {
	reg := codecreg.New() // no defaults registered
	schema := Schema{DCCLID: 1, Name: "bad", Fields: []Field{{Name: "x", Wire: codecreg.WireInt, Min: 0, Max: 1}}}
	_, err := Compile(schema, reg)
	if !errors.Is(err, codecreg.ErrCodecNotFound) {
		t.Fatalf("expected codecreg.ErrCodecNotFound, got %v", err)
	}
}
