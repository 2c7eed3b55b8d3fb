// Command dcclgen turns a TOML message-schema description into a
// generated Go source file exposing a Schemas function, the same way
// internal/config loads its TOML files with github.com/pelletier/go-toml/v2
// and the way acommsd.ServiceConfig.Schemas expects to be wired: dcclgen
// exists because a *dccl.CompiledSchema is a Go value with unexported
// resolved codecs, so it cannot be produced by TOML unmarshaling alone
// and every operator ends up hand-writing the same
// dccl.Schema{Fields: []dccl.Field{...}} boilerplate. Generation happens
// once at build time; the generated Schemas function still calls
// dccl.Compile at process startup against the caller's codecreg.Registry.
//
// dcclgen covers scalar leaf fields (int, bool, string, bytes, enum,
// time_of_day, platform). Static fields are rare enough in practice that
// hand-writing their dccl.Field is clearer than teaching the description
// format a constant syntax; leave them out of the input file and add them
// to the generated file by hand. Nested-message fields are not supported:
// dccl.RegisterDefaults registers no codec for codecreg.WireMessage.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"os"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"

	"github.com/tsaubergine/acomms/internal/codecreg"
	"github.com/tsaubergine/acomms/internal/dccl"
)

type schemaFile struct {
	Package string        `toml:"package"`
	Schema  []schemaEntry `toml:"schema"`
}

type schemaEntry struct {
	DCCLID   int          `toml:"dccl_id"`
	Name     string       `toml:"name"`
	MaxBytes int          `toml:"max_bytes"`
	Fields   []fieldEntry `toml:"field"`
}

type fieldEntry struct {
	Name       string   `toml:"name"`
	Wire       string   `toml:"wire"`
	Codec      string   `toml:"codec"`
	Required   bool     `toml:"required"`
	Min        float64  `toml:"min"`
	Max        float64  `toml:"max"`
	Precision  int      `toml:"precision"`
	EnumValues []string `toml:"enum_values"`
}

var wireNames = map[string]codecreg.WireType{
	"int":         codecreg.WireInt,
	"bool":        codecreg.WireBool,
	"string":      codecreg.WireString,
	"bytes":       codecreg.WireBytes,
	"enum":        codecreg.WireEnum,
	"time_of_day": codecreg.WireTimeOfDay,
	"platform":    codecreg.WirePlatform,
}

func main() {
	in := flag.String("in", "", "path to the TOML schema description")
	out := flag.String("out", "", "path to write the generated Go source (default stdout)")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "dcclgen: -in is required")
		os.Exit(1)
	}

	src, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dcclgen:", err)
		os.Exit(1)
	}

	var sf schemaFile
	if err := toml.Unmarshal(src, &sf); err != nil {
		fmt.Fprintln(os.Stderr, "dcclgen:", err)
		os.Exit(1)
	}
	if sf.Package == "" {
		sf.Package = "dcclschemas"
	}

	if err := validate(sf); err != nil {
		fmt.Fprintln(os.Stderr, "dcclgen:", err)
		os.Exit(1)
	}

	code, err := render(sf, *in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dcclgen:", err)
		os.Exit(1)
	}

	if *out == "" {
		os.Stdout.Write(code)
		return
	}
	if err := os.WriteFile(*out, code, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "dcclgen:", err)
		os.Exit(1)
	}
}

// validate compiles every schema against a scratch registry so a
// malformed description fails at generation time, not at acommsd startup.
func validate(sf schemaFile) error {
	reg := codecreg.New()
	dccl.RegisterDefaults(reg)
	seen := make(map[int]struct{}, len(sf.Schema))
	for _, entry := range sf.Schema {
		if _, dup := seen[entry.DCCLID]; dup {
			return fmt.Errorf("duplicate dccl_id %d", entry.DCCLID)
		}
		seen[entry.DCCLID] = struct{}{}

		schema, err := toDCCLSchema(entry)
		if err != nil {
			return fmt.Errorf("schema %s: %w", entry.Name, err)
		}
		if _, err := dccl.Compile(schema, reg); err != nil {
			return fmt.Errorf("schema %s: %w", entry.Name, err)
		}
	}
	return nil
}

func toDCCLSchema(entry schemaEntry) (dccl.Schema, error) {
	fields := make([]dccl.Field, 0, len(entry.Fields))
	for _, f := range entry.Fields {
		wire, ok := wireNames[strings.ToLower(strings.TrimSpace(f.Wire))]
		if !ok {
			return dccl.Schema{}, fmt.Errorf("field %s: unrecognized wire type %q", f.Name, f.Wire)
		}
		fields = append(fields, dccl.Field{
			Name:       f.Name,
			Wire:       wire,
			Codec:      f.Codec,
			Required:   f.Required,
			Min:        f.Min,
			Max:        f.Max,
			Precision:  f.Precision,
			EnumValues: f.EnumValues,
		})
	}
	return dccl.Schema{
		DCCLID:   entry.DCCLID,
		Name:     entry.Name,
		Fields:   fields,
		MaxBytes: entry.MaxBytes,
	}, nil
}

const tmplText = `// Code generated by dcclgen from {{.SourcePath}}. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/tsaubergine/acomms/internal/codecreg"
	"github.com/tsaubergine/acomms/internal/dccl"
)

// Schemas compiles every generated dccl.Schema against reg and returns
// them keyed by DCCL message id, ready to hand to acommsd.ServiceConfig.
func Schemas(reg *codecreg.Registry) (map[int]*dccl.CompiledSchema, error) {
	out := make(map[int]*dccl.CompiledSchema, {{len .Schemas}})
	for _, schema := range rawSchemas {
		compiled, err := dccl.Compile(schema, reg)
		if err != nil {
			return nil, err
		}
		out[schema.DCCLID] = compiled
	}
	return out, nil
}

var rawSchemas = []dccl.Schema{
{{- range .Schemas}}
	{
		DCCLID:   {{.DCCLID}},
		Name:     {{printf "%q" .Name}},
		MaxBytes: {{.MaxBytes}},
		Fields: []dccl.Field{
		{{- range .Fields}}
			{
				Name:     {{printf "%q" .Name}},
				Wire:     {{.WireConst}},
				Codec:    {{printf "%q" .Codec}},
				Required: {{.Required}},
				Min:      {{.Min}},
				Max:      {{.Max}},
				Precision: {{.Precision}},
				{{- if .EnumValues}}
				EnumValues: []string{ {{range .EnumValues}}{{printf "%q" .}}, {{end}} },
				{{- end}}
			},
		{{- end}}
		},
	},
{{- end}}
}
`

type tmplField struct {
	Name       string
	WireConst  string
	Codec      string
	Required   bool
	Min        float64
	Max        float64
	Precision  int
	EnumValues []string
}

type tmplSchema struct {
	DCCLID   int
	Name     string
	MaxBytes int
	Fields   []tmplField
}

var wireConstNames = map[codecreg.WireType]string{
	codecreg.WireInt:       "codecreg.WireInt",
	codecreg.WireBool:      "codecreg.WireBool",
	codecreg.WireString:    "codecreg.WireString",
	codecreg.WireBytes:     "codecreg.WireBytes",
	codecreg.WireEnum:      "codecreg.WireEnum",
	codecreg.WireTimeOfDay: "codecreg.WireTimeOfDay",
	codecreg.WirePlatform:  "codecreg.WirePlatform",
}

func render(sf schemaFile, sourcePath string) ([]byte, error) {
	tmpl, err := template.New("dcclgen").Parse(tmplText)
	if err != nil {
		return nil, err
	}

	schemas := make([]tmplSchema, 0, len(sf.Schema))
	for _, entry := range sf.Schema {
		fields := make([]tmplField, 0, len(entry.Fields))
		for _, f := range entry.Fields {
			wire := wireNames[strings.ToLower(strings.TrimSpace(f.Wire))]
			fields = append(fields, tmplField{
				Name:       f.Name,
				WireConst:  wireConstNames[wire],
				Codec:      f.Codec,
				Required:   f.Required,
				Min:        f.Min,
				Max:        f.Max,
				Precision:  f.Precision,
				EnumValues: f.EnumValues,
			})
		}
		schemas = append(schemas, tmplSchema{
			DCCLID:   entry.DCCLID,
			Name:     entry.Name,
			MaxBytes: entry.MaxBytes,
			Fields:   fields,
		})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct {
		Package    string
		SourcePath string
		Schemas    []tmplSchema
	}{Package: sf.Package, SourcePath: sourcePath, Schemas: schemas}); err != nil {
		return nil, err
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generated source is invalid: %w", err)
	}
	return formatted, nil
}
