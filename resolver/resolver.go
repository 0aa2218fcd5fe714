// Package resolver locates the reference assemblies needed to interpret a
// target assembly's signatures without its original build environment.
//
// Given the target framework marker of the assembly, the resolver searches
// the installed .NET reference packs for the matching major version and then
// older ones, down to FloorMajor. When no pack is found it falls back to a
// fixed set of assemblies of the newest installed shared runtime. Assemblies
// beside the target are always included as siblings.
//
// The resolver never fails: missing references are logged as warnings and
// reported through Resolution.Degraded.
package resolver

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/asklar/McpExtract/errors"
)

const (
	refPackName = "Microsoft.NETCore.App.Ref"
	runtimeName = "Microsoft.NETCore.App"
)

// essentialAssemblies are taken from the shared runtime when no reference
// pack is installed.
var essentialAssemblies = []string{
	"System.Private.CoreLib",
	"System.Runtime",
	"mscorlib",
	"netstandard",
	"System.Collections",
	"System.Linq",
	"System.Threading.Tasks",
	"System.ComponentModel.Primitives",
	"System.ComponentModel",
	"System.Console",
}

// Resolution is the reference set computed for one target.
type Resolution struct {
	// Marker is the target framework marker the version was taken from.
	Marker string
	// References are reference or runtime assembly paths.
	References []string
	// Siblings are the other assemblies in the target's directory.
	Siblings []string
	// Major is the version requested by the marker.
	Major int
	// ResolvedMajor is the reference pack version used, zero when none was found.
	ResolvedMajor int
	// Fallback is set when References come from the shared runtime.
	Fallback bool
	// Degraded is set when no reference assemblies were found at all.
	Degraded bool
}

// Paths returns the references followed by the siblings.
func (r *Resolution) Paths() []string {
	out := make([]string, 0, len(r.References)+len(r.Siblings))
	out = append(out, r.References...)
	return append(out, r.Siblings...)
}

// Options configures a Resolver.
type Options struct {
	FS     FS
	Logger *zap.Logger
	// LookPath finds the dotnet host. Nil disables the host search.
	LookPath func(file string) (string, error)
	// Getenv reads the platform folders used on Windows.
	Getenv func(key string) string
	// DotnetRoot is searched before any discovered root.
	DotnetRoot string
	// GOOS selects the conventional roots; defaults to runtime.GOOS.
	GOOS string
	// Home is the user home directory; defaults to os.UserHomeDir.
	Home string
	// Roots, when non-nil, replaces root discovery entirely.
	Roots []string
}

// DefaultOptions returns options that search the host machine.
func DefaultOptions() Options {
	return Options{
		FS:       OSFS{},
		Logger:   zap.NewNop(),
		LookPath: exec.LookPath,
		Getenv:   os.Getenv,
		GOOS:     runtime.GOOS,
	}
}

// Resolver searches install roots for reference assemblies.
type Resolver struct {
	opts     Options
	log      *zap.Logger
	platform []string
}

// New creates a Resolver. Zero fields of opts take their defaults, except
// LookPath which stays disabled when nil.
func New(opts Options) *Resolver {
	if opts.FS == nil {
		opts.FS = OSFS{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.Home == "" {
		opts.Home, _ = os.UserHomeDir()
	}
	r := &Resolver{opts: opts, log: opts.Logger.Named("resolver")}
	if opts.Roots == nil {
		r.platform = platformRoots(opts.GOOS, opts.Home, opts.Getenv)
	}
	return r
}

// Resolve computes the reference set for the assembly at target whose
// target framework marker is marker (possibly empty).
func (r *Resolver) Resolve(target, marker string) *Resolution {
	res := &Resolution{Marker: marker, Major: ParseMajor(marker)}
	roots := r.Roots()
	r.log.Debug("searching reference packs",
		zap.String("marker", marker),
		zap.Int("major", res.Major),
		zap.Strings("roots", roots))

	res.References, res.ResolvedMajor = r.ReferencePack(roots, res.Major)
	if len(res.References) == 0 {
		r.log.Warn("no reference pack found, falling back to the shared runtime",
			zap.Error(errors.Degraded("no %s pack for net%d.0 down to net%d.0", refPackName, res.Major, FloorMajor)))
		res.References = r.RuntimeFallback(roots)
		res.Fallback = len(res.References) > 0
	}
	if len(res.References) == 0 {
		r.log.Warn("no reference assemblies found, type resolution will be degraded",
			zap.Error(errors.Degraded("no reference or runtime assemblies under %d roots", len(roots))))
		res.Degraded = true
	}

	res.Siblings = r.Siblings(target)
	r.log.Debug("resolution complete",
		zap.Int("references", len(res.References)),
		zap.Int("siblings", len(res.Siblings)),
		zap.Int("resolved_major", res.ResolvedMajor))
	return res
}

// ReferencePack returns the assemblies of the newest reference pack with a
// major version between major and FloorMajor, together with that version.
// Within one root the lexicographically greatest matching directory wins.
func (r *Resolver) ReferencePack(roots []string, major int) ([]string, int) {
	for v := major; v >= FloorMajor; v-- {
		prefix := strconv.Itoa(v) + "."
		for _, root := range roots {
			base := filepath.Join(root, "packs", refPackName)
			entries, err := r.opts.FS.ReadDir(base)
			if err != nil {
				continue
			}
			best := ""
			for _, e := range entries {
				if e.IsDir() && strings.HasPrefix(e.Name(), prefix) && e.Name() > best {
					best = e.Name()
				}
			}
			if best == "" {
				continue
			}
			dir := filepath.Join(base, best, "ref", "net"+prefix+"0")
			if files := r.dlls(dir, ""); len(files) > 0 {
				r.log.Debug("using reference pack", zap.String("dir", dir), zap.Int("files", len(files)))
				return files, v
			}
		}
	}
	return nil, 0
}

// RuntimeFallback returns the essential assemblies of the newest shared
// runtime found under roots.
func (r *Resolver) RuntimeFallback(roots []string) []string {
	for _, root := range roots {
		base := filepath.Join(root, "shared", runtimeName)
		entries, err := r.opts.FS.ReadDir(base)
		if err != nil {
			continue
		}
		newest := ""
		for _, e := range entries {
			if e.IsDir() && (newest == "" || compareVersions(e.Name(), newest) > 0) {
				newest = e.Name()
			}
		}
		if newest == "" {
			continue
		}
		dir := filepath.Join(base, newest)
		var files []string
		for _, name := range essentialAssemblies {
			p := filepath.Join(dir, name+".dll")
			if info, err := r.opts.FS.Stat(p); err == nil && !info.IsDir() {
				files = append(files, p)
			}
		}
		if len(files) > 0 {
			r.log.Debug("using shared runtime", zap.String("dir", dir), zap.Int("files", len(files)))
			return files
		}
	}
	return nil
}

// Siblings returns every assembly in the directory of target except target.
func (r *Resolver) Siblings(target string) []string {
	return r.dlls(filepath.Dir(target), filepath.Base(target))
}

// dlls lists the *.dll files of dir in name order, skipping exclude.
func (r *Resolver) dlls(dir, exclude string) []string {
	entries, err := r.opts.FS.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".dll") || strings.EqualFold(name, exclude) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out
}

func (r *Resolver) isDir(path string) bool {
	info, err := r.opts.FS.Stat(path)
	return err == nil && info.IsDir()
}
