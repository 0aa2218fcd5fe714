package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	mcpextract "github.com/asklar/McpExtract"
)

// pythonKeywords cannot be used as identifiers.
var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

type stubData struct {
	Module    string
	Version   string
	Functions []stubFunc
}

type stubFunc struct {
	Name        string
	Tool        string
	Description []string
	Params      []stubParam
	Returns     string
}

type stubParam struct {
	Name        string
	Annotation  string
	Default     string
	Description string
}

var stubsTemplate = template.Must(template.New("stubs").Parse(`"""MCP tool stubs for {{.Module}} {{.Version}}.

Generated by mcpextract. Do not edit.
"""

from typing import Any, List, Optional
{{range .Functions}}

def {{.Name}}({{if .Params}}*{{range .Params}}, {{.Name}}: {{.Annotation}}{{if .Default}} = {{.Default}}{{end}}{{end}}{{end}}) -> {{.Returns}}:
    """{{range $i, $l := .Description}}{{if $i}}
    {{end}}{{$l}}{{end}}
{{- if .Params}}

    Args:
{{- range .Params}}
        {{.Name}}:{{if .Description}} {{.Description}}{{end}}
{{- end}}
{{- end}}

    Tool: {{.Tool}}
    """
    ...
{{end}}`))

// Stubs writes Python function stubs, one per tool, to w. Parameters are
// keyword-only so defaults may appear in any position.
func Stubs(w io.Writer, res *mcpextract.AnalysisResult) error {
	data := stubData{Module: res.ModuleName, Version: res.ModuleVersion}
	seen := make(map[string]int)
	for _, t := range res.Tools {
		name := identifier(t.Name)
		if n := seen[name]; n > 0 {
			seen[name]++
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		desc := t.Description
		if strings.TrimSpace(desc) == "" {
			desc = "Calls the " + t.Name + " tool."
		}
		f := stubFunc{
			Name:        name,
			Tool:        t.Name,
			Description: docLines(desc),
			Returns:     pythonType(t.ReturnType, false),
		}
		names := uniqueNames(t.Parameters, identifier)
		for i, p := range t.Parameters {
			sp := stubParam{
				Name:        names[i],
				Annotation:  pythonType(p.Type, !p.IsRequired),
				Description: strings.Join(strings.Fields(p.Description), " "),
			}
			if !p.IsRequired {
				sp.Default = pythonLiteral(p.DefaultValue)
			}
			f.Params = append(f.Params, sp)
		}
		data.Functions = append(data.Functions, f)
	}

	var buf bytes.Buffer
	if err := stubsTemplate.Execute(&buf, data); err != nil {
		return renderError("execute stubs template", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// pythonType returns the annotation of d, wrapped in Optional when
// optional is set and d is nullable.
func pythonType(d mcpextract.TypeDescriptor, optional bool) string {
	var s string
	switch {
	case d.IsArray:
		elem := "Any"
		if d.ElementType != nil {
			elem = pythonType(*d.ElementType, false)
		}
		s = "List[" + elem + "]"
	case d.TypeName == "void":
		return "None"
	case d.TypeName == "string", d.TypeName == "DateTime", d.TypeName == "Guid":
		s = "str"
	case d.TypeName == "int", d.TypeName == "long":
		s = "int"
	case d.TypeName == "double", d.TypeName == "float":
		s = "float"
	case d.TypeName == "bool":
		s = "bool"
	default:
		return "Any"
	}
	if optional && d.IsNullable {
		return "Optional[" + s + "]"
	}
	return s
}

// pythonLiteral renders a parameter default.
func pythonLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return strconv.Quote(x)
	case float32:
		return pythonFloat(float64(x))
	case float64:
		return pythonFloat(x)
	}
	return fmt.Sprint(v)
}

func pythonFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return `float("nan")`
	case math.IsInf(f, 1):
		return `float("inf")`
	case math.IsInf(f, -1):
		return `float("-inf")`
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".en") {
		s += ".0"
	}
	return s
}

// identifier turns a tool or parameter name into a Python identifier.
func identifier(s string) string {
	s = nonIdent.ReplaceAllString(s, "_")
	switch {
	case s == "":
		return "_"
	case s[0] >= '0' && s[0] <= '9':
		s = "_" + s
	case pythonKeywords[s]:
		s += "_"
	}
	return s
}

// docLines splits a description into docstring lines, escaping quotes
// that would end the docstring.
func docLines(s string) []string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"""`, `\"\"\"`)
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return lines
}
