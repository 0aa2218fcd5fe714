package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	mcpextract "github.com/asklar/McpExtract"
	"github.com/asklar/McpExtract/render"
)

type extractFlags struct {
	outDir   string
	format   string
	stubs    bool
	manifest bool
	author   string
}

func newExtractCmd(a *app) *cobra.Command {
	var f extractFlags
	cmd := &cobra.Command{
		Use:   "extract ASSEMBLY",
		Short: "Write the tool document of an assembly",
		Long: `Analyze ASSEMBLY and write <module>.tools.json (or .yaml) to the output
directory. Use "-o -" to print the document to stdout instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.extract(args[0], f)
		},
	}
	cmd.Flags().StringVarP(&f.outDir, "output", "o", "", "output directory, or - for stdout (default $MCPEXTRACT_OUTPUT_DIR or .)")
	cmd.Flags().StringVar(&f.format, "format", "json", "document format (json, yaml)")
	cmd.Flags().BoolVar(&f.stubs, "stubs", false, "also write Python stubs")
	cmd.Flags().BoolVar(&f.manifest, "manifest", false, "also write an MCP bundle manifest.json")
	cmd.Flags().StringVar(&f.author, "author", "", "manifest author (default: assembly company)")
	return cmd
}

func (a *app) extract(path string, f extractFlags) error {
	format, err := render.ParseFormat(f.format)
	if err != nil {
		return err
	}
	res, err := a.analyze(path)
	if err != nil {
		return err
	}

	if f.outDir == "-" {
		return render.Document(a.out, res, format)
	}
	dir := f.outDir
	if dir == "" {
		dir = a.cfg.OutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := render.Document(&buf, res, format); err != nil {
		return err
	}
	if err := a.write(filepath.Join(dir, res.ModuleName+".tools"+format.Ext()), buf.Bytes()); err != nil {
		return err
	}
	if f.stubs {
		buf.Reset()
		if err := render.Stubs(&buf, res); err != nil {
			return err
		}
		if err := a.write(filepath.Join(dir, stubsFile(res.ModuleName)), buf.Bytes()); err != nil {
			return err
		}
	}
	if f.manifest {
		buf.Reset()
		if err := render.Manifest(&buf, res, render.ManifestOptions{Author: f.author}); err != nil {
			return err
		}
		if err := a.write(filepath.Join(dir, "manifest.json"), buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// analyze runs the engine behind a spinner when stderr is a terminal.
func (a *app) analyze(path string) (*mcpextract.AnalysisResult, error) {
	var s *spinner.Spinner
	if !a.cfg.Verbose && isTerminal(os.Stderr) {
		s = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " Analyzing " + filepath.Base(path) + "..."
		s.Start()
	}
	res, err := a.engine().Analyze(path)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return nil, err
	}
	if res.HasTools() {
		a.success("Found %d tools in %s %s", len(res.Tools), res.ModuleName, res.ModuleVersion)
	} else {
		a.warn("No tools found in %s %s", res.ModuleName, res.ModuleVersion)
	}
	return res, nil
}

func (a *app) write(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	a.success("Wrote %s", path)
	return nil
}

// stubsFile turns "Contoso.Weather" into "contoso_weather_stubs.py".
func stubsFile(module string) string {
	return strings.ReplaceAll(render.PackageName(module), "-", "_") + "_stubs.py"
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
