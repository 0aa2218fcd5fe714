package resolver

import (
	"path/filepath"
)

// maxHostWalk bounds the upward search from the dotnet host executable.
const maxHostWalk = 4

// Roots returns the candidate install roots in search order: the configured
// override, the root of the dotnet host found on PATH, then the conventional
// roots of the platform. Duplicates are dropped.
func (r *Resolver) Roots() []string {
	if r.opts.Roots != nil {
		return dedupe(r.opts.Roots)
	}
	var roots []string
	if r.opts.DotnetRoot != "" {
		roots = append(roots, r.opts.DotnetRoot)
	}
	if host := r.hostRoot(); host != "" {
		roots = append(roots, host)
	}
	roots = append(roots, r.platform...)
	return dedupe(roots)
}

// hostRoot walks upward from the dotnet executable on PATH to the directory
// holding the shared runtime or the reference packs.
func (r *Resolver) hostRoot() string {
	if r.opts.LookPath == nil {
		return ""
	}
	exe, err := r.opts.LookPath("dotnet")
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	dir := filepath.Dir(exe)
	for i := 0; i < maxHostWalk; i++ {
		if r.isDir(filepath.Join(dir, "shared", runtimeName)) || r.isDir(filepath.Join(dir, "packs", refPackName)) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// platformRoots lists the conventional install roots for goos.
func platformRoots(goos, home string, getenv func(string) string) []string {
	var roots []string
	add := func(parts ...string) {
		if parts[0] != "" {
			roots = append(roots, filepath.Join(parts...))
		}
	}
	switch goos {
	case "windows":
		add(getenv("ProgramFiles"), "dotnet")
		add(getenv("ProgramFiles(x86)"), "dotnet")
		add(getenv("LocalAppData"), "Microsoft", "dotnet")
	case "darwin":
		roots = append(roots, "/usr/local/share/dotnet", "/opt/homebrew/share/dotnet")
		add(home, ".dotnet")
		roots = append(roots, "/usr/local/share/dotnet/x64")
	default:
		roots = append(roots, "/usr/share/dotnet", "/usr/lib/dotnet", "/usr/lib64/dotnet", "/opt/dotnet")
		add(home, ".dotnet")
		roots = append(roots, "/snap/dotnet-sdk/current")
	}
	return roots
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		key := filepath.Clean(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
