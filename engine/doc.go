// Package engine runs one analysis pass over a .NET assembly.
//
// # Analysis Flow
//
//  1. The target's identity and target framework marker are read (metadata.ReadFacts)
//  2. Reference assemblies are resolved for the marker's major version (resolver)
//  3. A load-only universe is built over references, siblings and the target (universe)
//  4. Public methods carrying a tool marker attribute are walked (discovery)
//  5. The universe is closed on every exit path
//
// # Errors
//
// Analyze surfaces two conditions only:
//
//	errors.ErrNotFound    the target path does not exist
//	errors.ErrLoadFailed  the target could not be read or walked; wraps the cause
//
// Missing reference assemblies are not errors. They are logged as warnings
// and unresolved types keep their short names.
//
// # Usage
//
//	res, err := engine.Analyze("bin/Release/net8.0/Tools.dll", engine.Options{
//		Logger:     engine.NewLogger(cfg.Verbose),
//		DotnetRoot: cfg.DotnetRoot,
//	})
package engine
