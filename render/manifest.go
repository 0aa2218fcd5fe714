package render

import (
	"encoding/json"
	"io"
	"strings"

	mcpextract "github.com/asklar/McpExtract"
)

// ManifestVersion is the MCP bundle manifest format written by Manifest.
const ManifestVersion = "0.2"

// ManifestOptions supplies what the assembly itself cannot tell.
type ManifestOptions struct {
	// EntryPoint is the server assembly inside the bundle; defaults to
	// server/<module>.dll.
	EntryPoint string
	// Command starts the server; defaults to dotnet.
	Command string
	// Author overrides the assembly's company.
	Author string
}

type manifest struct {
	ManifestVersion string         `json:"manifest_version"`
	Name            string         `json:"name"`
	DisplayName     string         `json:"display_name,omitempty"`
	Version         string         `json:"version"`
	Description     string         `json:"description"`
	Author          manifestAuthor `json:"author"`
	Server          manifestServer `json:"server"`
	Tools           []manifestTool `json:"tools"`
}

type manifestAuthor struct {
	Name string `json:"name"`
}

type manifestServer struct {
	Type       string    `json:"type"`
	EntryPoint string    `json:"entry_point"`
	MCPConfig  mcpConfig `json:"mcp_config"`
}

type mcpConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

type manifestTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Manifest writes an MCP bundle manifest.json for res to w.
func Manifest(w io.Writer, res *mcpextract.AnalysisResult, opts ManifestOptions) error {
	if opts.EntryPoint == "" {
		opts.EntryPoint = "server/" + res.ModuleName + ".dll"
	}
	if opts.Command == "" {
		opts.Command = "dotnet"
	}
	author := opts.Author
	if author == "" {
		author = res.ModuleVendor
	}
	if author == "" {
		author = "unknown"
	}
	desc := res.ModuleDescription
	if desc == "" {
		desc = res.ModuleName + " MCP server"
	}

	m := manifest{
		ManifestVersion: ManifestVersion,
		Name:            PackageName(res.ModuleName),
		DisplayName:     res.ModuleProductName,
		Version:         SemVer(res.ModuleVersion),
		Description:     desc,
		Author:          manifestAuthor{Name: author},
		Server: manifestServer{
			Type:       "binary",
			EntryPoint: opts.EntryPoint,
			MCPConfig: mcpConfig{
				Command: opts.Command,
				Args:    []string{"${__dirname}/" + opts.EntryPoint},
			},
		},
		Tools: make([]manifestTool, 0, len(res.Tools)),
	}
	for _, t := range res.Tools {
		m.Tools = append(m.Tools, manifestTool{Name: t.Name, Description: t.Description})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return renderError("encode manifest", err)
	}
	return nil
}

// PackageName lower-cases name and joins its words with dashes, e.g.
// "Contoso.WeatherTools" becomes "contoso-weather-tools".
func PackageName(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			if prevLower {
				b.WriteByte('-')
			}
			b.WriteRune(r + 'a' - 'A')
			prevLower = false
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevLower = true
		default:
			if s := b.String(); s != "" && !strings.HasSuffix(s, "-") {
				b.WriteByte('-')
			}
			prevLower = false
		}
	}
	return strings.Trim(b.String(), "-")
}

// SemVer keeps the first three components of a four-part assembly version.
func SemVer(v string) string {
	parts := strings.Split(v, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	for i, p := range parts[:3] {
		if p == "" {
			parts[i] = "0"
		}
	}
	return strings.Join(parts[:3], ".")
}
