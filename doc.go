// Package mcpextract discovers MCP server tools in compiled .NET assemblies.
//
// The analyzer reads the ECMA-335 metadata of an assembly without loading it
// into a runtime, finds the methods annotated with an MCP server tool
// attribute, and describes each tool with a small, language-neutral type
// vocabulary. The result can be rendered as a JSON or YAML document carrying
// MCP tool definitions, as Python stubs, or as an MCP bundle manifest.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	mcpextract/          Root package with the analysis result model
//	├── engine/          One analysis pass: resolve, load, walk, normalize
//	├── metadata/        PE image and ECMA-335 metadata reader
//	├── resolver/        Reference assembly lookup in installed .NET packs
//	├── universe/        Load-only type universe with cross-assembly resolution
//	├── discovery/       Member walker and marker attribute matching
//	├── normalize/       Canonical type descriptors
//	├── render/          JSON/YAML document, Python stubs, bundle manifest
//	├── config/          Environment configuration
//	├── errors/          Structured error types
//	└── cmd/mcpextract/  Command line interface
//
// # Quick Start
//
// Analyze an assembly:
//
//	result, err := engine.Analyze("bin/Release/net8.0/Tools.dll", engine.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, tool := range result.Tools {
//	    fmt.Println(tool.Name, tool.Description)
//	}
//
// Render the result:
//
//	render.Document(os.Stdout, result, render.FormatJSON)
//	render.Stubs(os.Stdout, result)
//
// # Error Handling
//
// Only two conditions stop an analysis: a missing target file
// (errors.KindNotFound) and a failure to load or walk the assembly
// (errors.KindLoadFailed, wrapping the cause and carrying the path). Missing
// reference assemblies, unmatched attributes and missing descriptions are
// logged and absorbed.
package mcpextract
