// Package universe provides a load-only type universe over CLI assemblies.
//
// A Universe owns every assembly it opens: the target loaded with Load and
// the references pulled in lazily while resolving type references. Nothing
// is executed and the host process is not involved; assemblies are located
// through a ResolveFunc supplied by the caller. Close releases every file.
//
//	u, err := universe.New(universe.PathResolver(paths...), universe.Options{})
//	if err != nil {
//	    return err
//	}
//	defer u.Close()
//
//	asm, err := u.Load("Tools.dll")
package universe

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/asklar/McpExtract/errors"
	"github.com/asklar/McpExtract/metadata"
)

// coreNames are the assemblies that can anchor the primitive types, in
// preference order.
var coreNames = []string{"System.Private.CoreLib", "mscorlib", "System.Runtime", "netstandard"}

// DefaultCoreName scopes primitive types when no core assembly can be loaded.
const DefaultCoreName = "System.Runtime"

const (
	defaultCacheSize       = 4096
	defaultMaxForwardDepth = 8
)

// ReaderAtCloser is an assembly image source owned by the universe once returned.
type ReaderAtCloser interface {
	io.ReaderAt
	io.Closer
}

// ResolveFunc opens the image of a referenced assembly. Returning an error
// leaves the assembly unresolved; the universe keeps working without it.
type ResolveFunc func(name metadata.AssemblyName) (ReaderAtCloser, error)

// PathResolver resolves assemblies to the first path whose file name, without
// extension, equals the simple assembly name (case-insensitively).
func PathResolver(paths ...string) ResolveFunc {
	byName := make(map[string]string, len(paths))
	for _, p := range paths {
		key := strings.ToLower(strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)))
		if _, dup := byName[key]; !dup {
			byName[key] = p
		}
	}
	return func(name metadata.AssemblyName) (ReaderAtCloser, error) {
		p, ok := byName[strings.ToLower(name.Name)]
		if !ok {
			return nil, errors.NotFound(errors.PhaseLoad, name.Name)
		}
		return os.Open(p)
	}
}

// Options configures a Universe.
type Options struct {
	Logger *zap.Logger
	// CacheSize bounds the memo of resolved type references.
	CacheSize int
	// MaxForwardDepth bounds chains of type forwarders.
	MaxForwardDepth int
}

// Assembly is an assembly loaded into a universe.
type Assembly struct {
	File     *metadata.File
	universe *Universe
	closer   io.Closer
	Name     metadata.AssemblyName
	Path     string
}

// Universe is a disposable, load-only set of assemblies.
type Universe struct {
	resolve    ResolveFunc
	log        *zap.Logger
	byName     map[string]*Assembly
	attempted  map[string]bool
	loaded     []*Assembly
	types      *lru.Cache[typeKey, typeLoc]
	core       *Assembly
	coreTried  bool
	maxForward int
	closed     bool
}

// New creates an empty universe that locates references through resolve.
func New(resolve ResolveFunc, opts Options) (*Universe, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.MaxForwardDepth <= 0 {
		opts.MaxForwardDepth = defaultMaxForwardDepth
	}
	cache, err := lru.New[typeKey, typeLoc](opts.CacheSize)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).Cause(err).Build()
	}
	return &Universe{
		resolve:    resolve,
		log:        opts.Logger.Named("universe"),
		byName:     make(map[string]*Assembly),
		attempted:  make(map[string]bool),
		types:      cache,
		maxForward: opts.MaxForwardDepth,
	}, nil
}

// Load opens the assembly at path as a member of the universe. A missing
// file yields a not-found error; any other failure a load failure carrying path.
func (u *Universe) Load(path string) (*Assembly, error) {
	if u.closed {
		return nil, errors.LoadFailed(path, errors.Unsupported(errors.PhaseLoad, "universe is closed"))
	}
	f, err := metadata.Open(path)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		return nil, errors.LoadFailed(path, err)
	}
	a := u.add(f, f, path)
	u.log.Debug("loaded target", zap.String("path", path), zap.String("assembly", a.Name.String()))
	return a, nil
}

func (u *Universe) add(f *metadata.File, closer io.Closer, path string) *Assembly {
	a := &Assembly{File: f, universe: u, closer: closer, Path: path}
	if asm, ok := f.Assembly(); ok {
		a.Name = asm.AssemblyName
	} else {
		a.Name.Name = strings.TrimSuffix(f.Module().Name, filepath.Ext(f.Module().Name))
	}
	key := strings.ToLower(a.Name.Name)
	if _, dup := u.byName[key]; !dup {
		u.byName[key] = a
	}
	u.attempted[key] = true
	u.loaded = append(u.loaded, a)
	return a
}

// Assembly returns the loaded assembly named name, resolving it on first use.
// It returns nil when the assembly cannot be found or parsed.
func (u *Universe) Assembly(name metadata.AssemblyName) *Assembly {
	key := strings.ToLower(name.Name)
	if a, ok := u.byName[key]; ok {
		return a
	}
	if u.attempted[key] || u.closed {
		return nil
	}
	u.attempted[key] = true

	rc, err := u.resolve(name)
	if err != nil {
		u.log.Debug("reference not resolved", zap.String("assembly", name.String()), zap.Error(err))
		return nil
	}
	f, err := metadata.NewFile(rc)
	if err != nil {
		u.log.Debug("reference not readable", zap.String("assembly", name.String()), zap.Error(err))
		_ = rc.Close()
		return nil
	}
	path := ""
	if named, ok := rc.(interface{ Name() string }); ok {
		path = named.Name()
	}
	f.Path = path
	return u.add(f, rc, path)
}

// Core returns the assembly anchoring the primitive types, or nil when none
// of the core library names can be loaded.
func (u *Universe) Core() *Assembly {
	if u.coreTried {
		return u.core
	}
	u.coreTried = true
	for _, name := range coreNames {
		if a := u.Assembly(metadata.AssemblyName{Name: name}); a != nil {
			u.core = a
			u.log.Debug("core library", zap.String("assembly", a.Name.String()))
			break
		}
	}
	return u.core
}

// CoreName is the name of the core assembly, or DefaultCoreName.
func (u *Universe) CoreName() string {
	if c := u.Core(); c != nil {
		return c.Name.Name
	}
	return DefaultCoreName
}

// Assemblies returns the loaded assemblies in load order.
func (u *Universe) Assemblies() []*Assembly {
	return append([]*Assembly(nil), u.loaded...)
}

// Close releases every loaded assembly. It is safe to call more than once.
func (u *Universe) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	var first error
	for _, a := range u.loaded {
		if a.closer == nil {
			continue
		}
		if err := a.closer.Close(); err != nil {
			u.log.Warn("failed to close assembly", zap.String("path", a.Path), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	u.loaded = nil
	u.byName = map[string]*Assembly{}
	u.types.Purge()
	return first
}
