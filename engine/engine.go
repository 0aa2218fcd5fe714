package engine

import (
	"os"

	"go.uber.org/zap"

	mcpextract "github.com/asklar/McpExtract"
	"github.com/asklar/McpExtract/discovery"
	"github.com/asklar/McpExtract/errors"
	"github.com/asklar/McpExtract/metadata"
	"github.com/asklar/McpExtract/resolver"
	"github.com/asklar/McpExtract/universe"
)

// Options configures an Engine. The zero value analyzes against the
// reference packs installed on the host.
type Options struct {
	Logger *zap.Logger
	// DotnetRoot is searched for reference packs before discovered roots.
	DotnetRoot string
	// Roots, when non-nil, replaces install root discovery.
	Roots []string
	// References are extra assembly paths added to the universe.
	References []string
	// CacheSize bounds the universe's type resolution memo.
	CacheSize int
	// Discovery overrides the attribute matchers.
	Discovery discovery.Options
}

// DefaultOptions returns the options of a plain host analysis.
func DefaultOptions() Options {
	return Options{
		Logger:    Logger(),
		Discovery: discovery.DefaultOptions(),
	}
}

// Engine analyzes assemblies. An Engine holds no state between analyses.
type Engine struct {
	opts     Options
	log      *zap.Logger
	resolver *resolver.Resolver
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = Logger()
	}
	ro := resolver.DefaultOptions()
	ro.Logger = opts.Logger
	ro.DotnetRoot = opts.DotnetRoot
	ro.Roots = opts.Roots
	opts.Discovery.Logger = opts.Logger
	return &Engine{
		opts:     opts,
		log:      opts.Logger.Named("engine"),
		resolver: resolver.New(ro),
	}
}

// Analyze analyzes the assembly at path with opts.
func Analyze(path string, opts Options) (*mcpextract.AnalysisResult, error) {
	return New(opts).Analyze(path)
}

// Inspection is what the engine learns about an assembly before loading it.
type Inspection struct {
	Facts      *metadata.Facts
	Resolution *resolver.Resolution
}

// Inspect reads the identity of the assembly at path and resolves its
// references without walking its members.
func (e *Engine) Inspect(path string) (*Inspection, error) {
	if err := checkTarget(path); err != nil {
		return nil, err
	}
	facts, err := metadata.ReadFacts(path)
	if err != nil {
		return nil, errors.LoadFailed(path, err)
	}
	return &Inspection{
		Facts:      facts,
		Resolution: e.resolver.Resolve(path, facts.TargetFramework),
	}, nil
}

// Analyze discovers the tools of the assembly at path. The only errors are a
// missing target and a load failure carrying the target path; degraded
// reference resolution is logged and the analysis proceeds.
func (e *Engine) Analyze(path string) (*mcpextract.AnalysisResult, error) {
	in, err := e.Inspect(path)
	if err != nil {
		return nil, err
	}

	paths := append(in.Resolution.Paths(), e.opts.References...)
	u, err := universe.New(universe.PathResolver(paths...), universe.Options{
		Logger:    e.opts.Logger,
		CacheSize: e.opts.CacheSize,
	})
	if err != nil {
		return nil, errors.LoadFailed(path, err)
	}
	defer func() {
		if cerr := u.Close(); cerr != nil {
			e.log.Warn("failed to release universe", zap.Error(cerr))
		}
	}()

	asm, err := u.Load(path)
	if err != nil {
		return nil, errors.LoadFailed(path, err)
	}
	tools, err := discovery.New(e.opts.Discovery).Walk(asm)
	if err != nil {
		return nil, errors.LoadFailed(path, err)
	}

	f := in.Facts
	e.log.Debug("analysis complete",
		zap.String("module", f.Assembly.Name),
		zap.Int("tools", len(tools)),
		zap.Bool("degraded", in.Resolution.Degraded))
	return &mcpextract.AnalysisResult{
		Tools:             tools,
		ModuleName:        f.Assembly.Name,
		ModuleVersion:     f.Assembly.Version.String(),
		ModuleDescription: f.Description,
		ModuleVendor:      f.Company,
		ModuleProductName: f.Product,
		TargetFramework:   f.TargetFramework,
	}, nil
}

func checkTarget(path string) error {
	st, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return errors.NotFound(errors.PhaseLoad, path)
	case err != nil:
		return errors.LoadFailed(path, err)
	case st.IsDir():
		return errors.LoadFailed(path, errors.InvalidInput(errors.PhaseLoad, "target is a directory"))
	}
	return nil
}
