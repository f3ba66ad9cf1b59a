package sdk

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/threadline/threadline/sdk/go/assistant"
)

// JSONSchema is the subset of JSON Schema the platform accepts for tool
// parameters and structured response formats.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	Enum                 []any                  `json:"enum,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	MinLength            *int                   `json:"minLength,omitempty"`
	MaxLength            *int                   `json:"maxLength,omitempty"`
	MinItems             *int                   `json:"minItems,omitempty"`
	MaxItems             *int                   `json:"maxItems,omitempty"`
	Pattern              string                 `json:"pattern,omitempty"`
	Format               string                 `json:"format,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	AnyOf                []*JSONSchema          `json:"anyOf,omitempty"`
}

// SchemaOptions configures JSON Schema generation from Go types.
type SchemaOptions struct {
	// IncludeSchema stamps the $schema property onto the root.
	IncludeSchema bool
	// SchemaVersion selects the draft for $schema: "draft-04", "draft-07",
	// "draft-2019-09", or the default "draft-2020-12" (what the structured
	// output validator speaks).
	SchemaVersion string
}

// TypeToJSONSchema derives a JSON Schema from a struct type (or pointer to
// one). Field names come from json tags; `json:"-"` and unexported fields are
// skipped; omitempty and pointer fields are optional, everything else is
// required.
//
// Constraint tags on fields:
//
//	description:"..."   property description
//	enum:"a,b,c"        allowed values, coerced to the field's type
//	default:"v"         default value, coerced to the field's type
//	minimum:"n"         lower bound for numbers
//	maximum:"n"         upper bound for numbers
//	minLength:"n"       lower bound for string length
//	maxLength:"n"       upper bound for string length
//	pattern:"regex"     string pattern
//	format:"email"      format hint (email, uri, uuid, date-time, ...)
//
// Example:
//
//	type GetWeatherParams struct {
//	    Location string `json:"location" description:"City name"`
//	    Unit     string `json:"unit,omitempty" enum:"celsius,fahrenheit" default:"celsius"`
//	}
//
//	schema := TypeToJSONSchema(GetWeatherParams{}, nil)
func TypeToJSONSchema(v any, opts *SchemaOptions) *JSONSchema {
	root := schemaForType(reflect.TypeOf(v), map[reflect.Type]bool{})
	if opts != nil && opts.IncludeSchema {
		root.Schema = draftURL(opts.SchemaVersion)
	}
	return root
}

func draftURL(version string) string {
	switch version {
	case "draft-04":
		return "http://json-schema.org/draft-04/schema#"
	case "draft-07":
		return "http://json-schema.org/draft-07/schema#"
	case "draft-2019-09":
		return "https://json-schema.org/draft/2019-09/schema"
	default:
		return "https://json-schema.org/draft/2020-12/schema"
	}
}

// schemaForType walks one type. The seen set breaks recursive structs: a type
// already on the walk path becomes an unconstrained schema.
func schemaForType(t reflect.Type, seen map[reflect.Type]bool) *JSONSchema {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if seen[t] {
		return &JSONSchema{}
	}

	switch kind := t.Kind(); {
	case kind == reflect.String:
		return &JSONSchema{Type: "string"}
	case isIntegerKind(kind):
		return &JSONSchema{Type: "integer"}
	case kind == reflect.Float32 || kind == reflect.Float64:
		return &JSONSchema{Type: "number"}
	case kind == reflect.Bool:
		return &JSONSchema{Type: "boolean"}
	case kind == reflect.Slice || kind == reflect.Array:
		return &JSONSchema{Type: "array", Items: schemaForType(t.Elem(), seen)}
	case kind == reflect.Map:
		if t.Key().Kind() != reflect.String {
			return &JSONSchema{Type: "object"}
		}
		return &JSONSchema{Type: "object", AdditionalProperties: schemaForType(t.Elem(), seen)}
	case kind == reflect.Struct:
		seen[t] = true
		defer delete(seen, t)
		return schemaForStruct(t, seen)
	default:
		// interface{}, chan, func: nothing useful to constrain.
		return &JSONSchema{}
	}
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func schemaForStruct(t reflect.Type, seen map[reflect.Type]bool) *JSONSchema {
	out := &JSONSchema{Type: "object", Properties: map[string]*JSONSchema{}}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, optional, skip := fieldJSONName(field)
		if skip {
			continue
		}
		prop := schemaForType(field.Type, seen)
		applyConstraintTags(prop, field)
		out.Properties[name] = prop
		if !optional && field.Type.Kind() != reflect.Ptr {
			out.Required = append(out.Required, name)
		}
	}
	return out
}

// fieldJSONName resolves the wire name of a struct field from its json tag.
// skip is true for unexported and `json:"-"` fields; optional is true when
// the tag carries omitempty.
func fieldJSONName(field reflect.StructField) (name string, optional, skip bool) {
	if !field.IsExported() {
		return "", false, true
	}
	name = field.Name
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return name, false, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			optional = true
		}
	}
	return name, optional, false
}

func applyConstraintTags(prop *JSONSchema, field reflect.StructField) {
	elem := field.Type
	for elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}

	if desc := field.Tag.Get("description"); desc != "" {
		prop.Description = desc
	}
	if raw := field.Tag.Get("enum"); raw != "" {
		for _, v := range strings.Split(raw, ",") {
			prop.Enum = append(prop.Enum, coerceTagValue(strings.TrimSpace(v), elem))
		}
	}
	if raw := field.Tag.Get("default"); raw != "" {
		prop.Default = coerceTagValue(raw, elem)
	}
	if raw := field.Tag.Get("minimum"); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			prop.Minimum = &f
		}
	}
	if raw := field.Tag.Get("maximum"); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			prop.Maximum = &f
		}
	}
	if raw := field.Tag.Get("minLength"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			prop.MinLength = &n
		}
	}
	if raw := field.Tag.Get("maxLength"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			prop.MaxLength = &n
		}
	}
	if pattern := field.Tag.Get("pattern"); pattern != "" {
		prop.Pattern = pattern
	}
	if format := field.Tag.Get("format"); format != "" {
		prop.Format = format
	}
}

// coerceTagValue converts an enum/default tag literal to the field's natural
// JSON type, falling back to the raw string when it does not parse.
func coerceTagValue(s string, t reflect.Type) any {
	switch kind := t.Kind(); {
	case kind >= reflect.Int && kind <= reflect.Int64:
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	case kind >= reflect.Uint && kind <= reflect.Uint64:
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	case kind == reflect.Float32 || kind == reflect.Float64:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case kind == reflect.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return s
}

// SchemaFromType derives a schema from T and returns it marshaled, ready for
// tool parameters or a response format. See TypeToJSONSchema for the tag
// contract.
func SchemaFromType[T any]() (json.RawMessage, error) {
	var zero T
	return json.Marshal(TypeToJSONSchema(zero, nil))
}

// MustSchemaFromType is SchemaFromType panicking on error, for static
// declarations.
func MustSchemaFromType[T any]() json.RawMessage {
	schema, err := SchemaFromType[T]()
	if err != nil {
		panic(err)
	}
	return schema
}

// JSONSchemaFormatFromType builds the schema contract for
// RunRequestBuilder.JSONSchema from a Go type, with strict mode enabled.
func JSONSchemaFormatFromType[T any](name string) (assistant.JSONSchemaFormat, error) {
	schema, err := SchemaFromType[T]()
	if err != nil {
		return assistant.JSONSchemaFormat{}, err
	}
	strict := true
	return assistant.JSONSchemaFormat{
		Name:   name,
		Schema: schema,
		Strict: &strict,
	}, nil
}

// MustJSONSchemaFormatFromType builds the schema contract, panicking on error.
func MustJSONSchemaFormatFromType[T any](name string) assistant.JSONSchemaFormat {
	format, err := JSONSchemaFormatFromType[T](name)
	if err != nil {
		panic(err)
	}
	return format
}

// ResponseFormatFromType creates the response_format payload that asks the
// platform for structured output matching T.
func ResponseFormatFromType[T any](name string) (*assistant.ResponseFormat, error) {
	format, err := JSONSchemaFormatFromType[T](name)
	if err != nil {
		return nil, err
	}
	return &assistant.ResponseFormat{
		Type:       assistant.ResponseFormatTypeJSONSchema,
		JSONSchema: &format,
	}, nil
}

// MustResponseFormatFromType creates a ResponseFormat, panicking on error.
func MustResponseFormatFromType[T any](name string) *assistant.ResponseFormat {
	rf, err := ResponseFormatFromType[T](name)
	if err != nil {
		panic(err)
	}
	return rf
}
