// Command mcpextract lists the MCP tools of a .NET assembly and renders
// them as a document, Python stubs and an MCP bundle manifest.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asklar/McpExtract/config"
	"github.com/asklar/McpExtract/engine"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by all commands, built once before any runs.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	out    io.Writer
	errOut io.Writer

	envFile    string
	verbose    bool
	references []string
	// roots replaces install root discovery when non-nil.
	roots []string
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mcpextract",
		Short: "Extract MCP tool definitions from .NET assemblies",
		Long: `mcpextract reads a compiled .NET assembly without running it and lists
the methods marked as MCP server tools, with their parameters and types.

Examples:
  # Write Tools.tools.json next to the current directory
  mcpextract extract bin/Release/net8.0/Tools.dll

  # YAML document, Python stubs and an MCP bundle manifest into ./out
  mcpextract extract Tools.dll -o out --format yaml --stubs --manifest

  # Show how references were resolved
  mcpextract inspect Tools.dll`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file to read instead of .env")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug diagnostics to stderr")
	root.PersistentFlags().StringSliceVarP(&a.references, "reference", "r", nil, "extra reference assembly (repeatable)")

	root.AddCommand(newExtractCmd(a), newInspectCmd(a), newBrowseCmd(a), newVersionCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Verbose = true
	}
	a.cfg = cfg
	a.log = engine.NewLogger(cfg.Verbose)
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()
	return nil
}

func (a *app) engine() *engine.Engine {
	return engine.New(engine.Options{
		Logger:     a.log,
		DotnetRoot: a.cfg.DotnetRoot,
		Roots:      a.roots,
		References: a.references,
	})
}

func (a *app) success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(a.errOut, "✓ "+format+"\n", args...)
}

func (a *app) warn(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(a.errOut, "! "+format+"\n", args...)
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "mcpextract %s\n", version)
		},
	}
}
