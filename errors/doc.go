// Package errors provides structured error types for the assembly analyzer.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the file path, the metadata table or blob being
// decoded, a byte offset and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRead, errors.KindMalformedBinary).
//		Path("/tmp/Tools.dll").
//		Table("MethodDef").
//		Offset(0x2c0).
//		Detail("row %d truncated", 12).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseRead, path)
//	err := errors.LoadFailed(path, cause)
//
// Only NotFound and LoadFailed terminate an analysis; the remaining kinds
// describe conditions that are logged and absorbed.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
