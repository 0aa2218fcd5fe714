package render

import (
	"fmt"

	"github.com/invopop/jsonschema"

	mcpextract "github.com/asklar/McpExtract"
)

// InputSchema returns the JSON schema of the arguments of t. Required
// parameters are listed in order; defaults are carried over.
func InputSchema(t mcpextract.ToolDescriptor) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:                 "object",
		Properties:           jsonschema.NewProperties(),
		AdditionalProperties: jsonschema.FalseSchema,
	}
	names := uniqueNames(t.Parameters, func(s string) string { return s })
	for i, p := range t.Parameters {
		ps := TypeSchema(p.Type)
		ps.Description = p.Description
		if p.DefaultValue != nil {
			ps.Default = p.DefaultValue
		}
		s.Properties.Set(names[i], ps)
		if p.IsRequired {
			s.Required = append(s.Required, names[i])
		}
	}
	return s
}

// uniqueNames maps parameter names through fn and suffixes repeats with
// _2, _3 and so on, so "unknown" placeholders stay distinct.
func uniqueNames(params []mcpextract.ParameterDescriptor, fn func(string) string) []string {
	out := make([]string, len(params))
	taken := make(map[string]bool, len(params))
	for i, p := range params {
		base := fn(p.Name)
		name := base
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

// TypeSchema maps a type descriptor to a JSON schema type.
func TypeSchema(d mcpextract.TypeDescriptor) *jsonschema.Schema {
	if d.IsArray {
		s := &jsonschema.Schema{Type: "array"}
		if d.ElementType != nil {
			s.Items = TypeSchema(*d.ElementType)
		}
		return s
	}
	switch d.TypeName {
	case "string":
		return &jsonschema.Schema{Type: "string"}
	case "int", "long":
		return &jsonschema.Schema{Type: "integer"}
	case "double", "float":
		return &jsonschema.Schema{Type: "number"}
	case "bool":
		return &jsonschema.Schema{Type: "boolean"}
	case "DateTime":
		return &jsonschema.Schema{Type: "string", Format: "date-time"}
	case "Guid":
		return &jsonschema.Schema{Type: "string", Format: "uuid"}
	}
	return &jsonschema.Schema{Type: "object"}
}
