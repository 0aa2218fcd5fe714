package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newInspectCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "inspect ASSEMBLY",
		Short: "Show the identity and reference resolution of an assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspect(args[0], all)
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every resolved reference path")
	return cmd
}

func (a *app) inspect(path string, all bool) error {
	in, err := a.engine().Inspect(path)
	if err != nil {
		return err
	}
	f, res := in.Facts, in.Resolution
	head := color.New(color.FgCyan, color.Bold)
	field := func(k, v string) {
		if v != "" {
			fmt.Fprintf(a.out, "  %-18s %s\n", k+":", v)
		}
	}

	head.Fprintln(a.out, "Assembly")
	field("Name", f.Assembly.Name)
	field("Version", f.Assembly.Version.String())
	field("Framework", f.TargetFramework)
	field("Description", f.Description)
	field("Company", f.Company)
	field("Product", f.Product)
	field("Informational", f.InformationalVersion)

	fmt.Fprintln(a.out)
	head.Fprintf(a.out, "References (%d)\n", len(f.References))
	for _, r := range f.References {
		fmt.Fprintf(a.out, "  %s\n", r)
	}

	fmt.Fprintln(a.out)
	head.Fprintln(a.out, "Resolution")
	switch {
	case res.Degraded:
		color.New(color.FgYellow).Fprintln(a.out, "  degraded: no reference assemblies found")
	case res.Fallback:
		fmt.Fprintf(a.out, "  shared runtime fallback, %d assemblies\n", len(res.References))
	default:
		fmt.Fprintf(a.out, "  reference pack %d.x (requested %d), %d assemblies\n",
			res.ResolvedMajor, res.Major, len(res.References))
	}
	fmt.Fprintf(a.out, "  %d sibling assemblies\n", len(res.Siblings))
	if all {
		for _, p := range res.Paths() {
			fmt.Fprintf(a.out, "  %s\n", filepath.ToSlash(p))
		}
	}
	return nil
}
