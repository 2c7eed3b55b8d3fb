package main

import (
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

const testSchemaTOML = `
package = "genschemas"

[[schema]]
dccl_id = 2
name = "command"
max_bytes = 32

[[schema.field]]
name = "speed"
wire = "int"
min = 0
max = 10
precision = 1

[[schema.field]]
name = "heading"
wire = "enum"
enum_values = ["north", "south", "east", "west"]
`

func parseTestSchema(t *testing.T) schemaFile {
	t.Helper()
	var sf schemaFile
	if err := toml.Unmarshal([]byte(testSchemaTOML), &sf); err != nil {
		t.Fatalf("toml.Unmarshal: %v", err)
	}
	return sf
}

func TestValidateAcceptsWellFormedSchema(t *testing.T) {
	sf := parseTestSchema(t)
	if err := validate(sf); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsDuplicateDCCLID(t *testing.T) {
	sf := parseTestSchema(t)
	sf.Schema = append(sf.Schema, sf.Schema[0])
	if err := validate(sf); err == nil {
		t.Fatalf("expected error for duplicate dccl_id")
	}
}

func TestValidateRejectsUnknownWireType(t *testing.T) {
	sf := parseTestSchema(t)
	sf.Schema[0].Fields[0].Wire = "not-a-wire-type"
	if err := validate(sf); err == nil {
		t.Fatalf("expected error for unrecognized wire type")
	}
}

func TestRenderProducesCompilableLookingSource(t *testing.T) {
	sf := parseTestSchema(t)
	code, err := render(sf, "test.toml")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	src := string(code)

	if !strings.Contains(src, "package genschemas") {
		t.Fatalf("generated source missing package clause: %s", src)
	}
	if !strings.Contains(src, "func Schemas(reg *codecreg.Registry)") {
		t.Fatalf("generated source missing Schemas func: %s", src)
	}
	if !strings.Contains(src, `"speed"`) {
		t.Fatalf("generated source missing speed field: %s", src)
	}
	if !strings.Contains(src, "codecreg.WireEnum") {
		t.Fatalf("generated source missing enum wire constant: %s", src)
	}
	if !strings.Contains(src, `"north"`) {
		t.Fatalf("generated source missing enum values: %s", src)
	}
}
