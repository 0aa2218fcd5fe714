// Package render turns an analysis result into files: a JSON or YAML
// document, Python stubs and an MCP bundle manifest.
package render

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	mcpextract "github.com/asklar/McpExtract"
	"github.com/asklar/McpExtract/errors"
)

// Format selects the encoding of Document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml and yml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.InvalidInput(errors.PhaseRender, "unknown format "+s+", want json or yaml")
}

// Ext returns the file extension of f, with the dot.
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// document is the analysis result followed by ready to serve MCP tool
// definitions.
type document struct {
	Tools             []mcpextract.ToolDescriptor `json:"tools"`
	ModuleName        string                      `json:"moduleName"`
	ModuleVersion     string                      `json:"moduleVersion"`
	ModuleDescription string                      `json:"moduleDescription,omitempty"`
	ModuleVendor      string                      `json:"moduleVendor,omitempty"`
	ModuleProductName string                      `json:"moduleProductName,omitempty"`
	TargetFramework   string                      `json:"targetFramework,omitempty"`
	MCPTools          []mcp.Tool                  `json:"mcpTools"`
}

// Document writes res to w in format.
func Document(w io.Writer, res *mcpextract.AnalysisResult, format Format) error {
	doc := document{
		Tools:             res.Tools,
		ModuleName:        res.ModuleName,
		ModuleVersion:     res.ModuleVersion,
		ModuleDescription: res.ModuleDescription,
		ModuleVendor:      res.ModuleVendor,
		ModuleProductName: res.ModuleProductName,
		TargetFramework:   res.TargetFramework,
		MCPTools:          make([]mcp.Tool, 0, len(res.Tools)),
	}
	if doc.Tools == nil {
		doc.Tools = []mcpextract.ToolDescriptor{}
	}
	for _, t := range res.Tools {
		tool, err := Tool(t)
		if err != nil {
			return err
		}
		doc.MCPTools = append(doc.MCPTools, tool)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return renderError("encode document", err)
	}

	switch format {
	case FormatJSON:
		_, err := w.Write(buf.Bytes())
		return err
	case FormatYAML:
		return jsonToYAML(w, buf.Bytes())
	}
	return errors.Unsupported(errors.PhaseRender, "format "+string(format))
}

// Tool returns the MCP definition of t.
func Tool(t mcpextract.ToolDescriptor) (mcp.Tool, error) {
	schema, err := json.Marshal(InputSchema(t))
	if err != nil {
		return mcp.Tool{}, renderError("encode input schema of "+t.Name, err)
	}
	tool := mcp.NewToolWithRawSchema(t.Name, t.Description, schema)
	if t.Title != "" {
		tool.Annotations.Title = t.Title
	}
	if t.ReadOnly != nil {
		tool.Annotations.ReadOnlyHint = t.ReadOnly
	}
	if t.Destructive != nil {
		tool.Annotations.DestructiveHint = t.Destructive
	}
	if t.Idempotent != nil {
		tool.Annotations.IdempotentHint = t.Idempotent
	}
	if t.OpenWorld != nil {
		tool.Annotations.OpenWorldHint = t.OpenWorld
	}
	return tool, nil
}

// jsonToYAML re-encodes a JSON document as block style YAML, keeping key order.
func jsonToYAML(w io.Writer, data []byte) error {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return renderError("convert document to yaml", err)
	}
	blockStyle(&n)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&n); err != nil {
		return renderError("encode yaml", err)
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func renderError(detail string, cause error) error {
	return errors.New(errors.PhaseRender, errors.KindInvalidInput).
		Detail("%s", detail).
		Cause(cause).
		Build()
}
