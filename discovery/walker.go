// Package discovery walks the methods of a loaded assembly and turns the ones
// carrying a tool marker attribute into tool descriptors.
//
// Attribute types are matched by name, never by identity, so the walker
// accepts every SDK generation whose marker names share the known fragments.
package discovery

import (
	"go.uber.org/zap"

	mcpextract "github.com/asklar/McpExtract"
	"github.com/asklar/McpExtract/metadata"
	"github.com/asklar/McpExtract/normalize"
	"github.com/asklar/McpExtract/universe"
)

const cancellationToken = "System.Threading.CancellationToken"

// unknownName names parameters without a Param row or name.
const unknownName = "unknown"

// Options configures a Walker.
type Options struct {
	Logger *zap.Logger
	// Tools matches tool marker attributes on methods.
	Tools Rules
	// Parameters matches marker attributes on parameters.
	Parameters Rules
	// Descriptions matches dedicated description attributes.
	Descriptions Rules
}

// DefaultOptions returns the matchers for known SDK attribute names.
func DefaultOptions() Options {
	return Options{
		Logger:       zap.NewNop(),
		Tools:        ToolRules(),
		Parameters:   ParameterRules(),
		Descriptions: DescriptionRules(),
	}
}

// Walker discovers tool methods.
type Walker struct {
	log    *zap.Logger
	tools  Rules
	params Rules
	descs  Rules
}

// New creates a Walker. Zero fields of opts take their defaults.
func New(opts Options) *Walker {
	def := DefaultOptions()
	if opts.Logger == nil {
		opts.Logger = def.Logger
	}
	if opts.Tools == nil {
		opts.Tools = def.Tools
	}
	if opts.Parameters == nil {
		opts.Parameters = def.Parameters
	}
	if opts.Descriptions == nil {
		opts.Descriptions = def.Descriptions
	}
	return &Walker{
		log:    opts.Logger.Named("discovery"),
		tools:  opts.Tools,
		params: opts.Parameters,
		descs:  opts.Descriptions,
	}
}

// Walk returns the tools declared by a, in type then method table order.
// The result is never nil. Errors are structural failures of the metadata.
func (w *Walker) Walk(a *universe.Assembly) ([]mcpextract.ToolDescriptor, error) {
	f := a.File
	tools := []mcpextract.ToolDescriptor{}
	n := f.RowCount(metadata.TableTypeDef)
	for typeRow := uint32(1); typeRow <= n; typeRow++ {
		for _, m := range f.TypeMethods(typeRow) {
			md := f.MethodDef(m)
			if md.Flags&metadata.MethodMemberAccessMask != metadata.MethodPublic {
				continue
			}
			marker, err := w.find(a, metadata.NewToken(metadata.TableMethodDef, m), w.tools)
			if err != nil {
				return nil, err
			}
			if marker == nil {
				continue
			}
			tool, err := w.tool(a, typeRow, m, md, marker)
			if err != nil {
				return nil, err
			}
			w.log.Debug("tool discovered",
				zap.String("tool", tool.Name),
				zap.String("method", tool.ClassName+"."+tool.MethodName),
				zap.Int("parameters", len(tool.Parameters)))
			tools = append(tools, tool)
		}
	}
	return tools, nil
}

func (w *Walker) tool(a *universe.Assembly, typeRow, methodRow uint32, md metadata.MethodDefRow, marker *attribute) (mcpextract.ToolDescriptor, error) {
	f := a.File
	method := metadata.NewToken(metadata.TableMethodDef, methodRow)
	sig, err := f.MethodDefSignature(methodRow)
	if err != nil {
		return mcpextract.ToolDescriptor{}, err
	}

	tool := mcpextract.ToolDescriptor{
		Name:        marker.text("Name", 0),
		MethodName:  md.Name,
		ClassName:   f.TypeDefFullName(typeRow),
		Title:       marker.text("Title", -1),
		ReadOnly:    marker.flag("ReadOnly"),
		Destructive: marker.flag("Destructive"),
		Idempotent:  marker.flag("Idempotent"),
		OpenWorld:   marker.flag("OpenWorld"),
	}
	if tool.Name == "" {
		tool.Name = md.Name
	}
	desc, err := w.find(a, method, w.descs)
	if err != nil {
		return mcpextract.ToolDescriptor{}, err
	}
	if tool.Description = desc.text("Description", 0); tool.Description == "" {
		tool.Description = marker.text("Description", 1)
	}

	gc := universe.GenericContext{
		Type:   metadata.NewToken(metadata.TableTypeDef, typeRow),
		Method: method,
	}
	tool.ReturnType = normalize.Type(a.TypeOf(sig.Return, gc))

	rows := make(map[uint16]uint32)
	for _, p := range f.MethodParams(methodRow) {
		rows[f.Param(p).Sequence] = p
	}
	nc := newNullableContext(a, typeRow, methodRow)
	tool.Parameters = make([]mcpextract.ParameterDescriptor, 0, len(sig.Params))
	for i, pt := range sig.Params {
		t := a.TypeOf(pt, gc)
		if isCancellation(t) {
			continue
		}
		p, err := w.parameter(a, t, rows[uint16(i+1)], nc)
		if err != nil {
			return mcpextract.ToolDescriptor{}, err
		}
		tool.Parameters = append(tool.Parameters, p)
	}
	return tool, nil
}

func (w *Walker) parameter(a *universe.Assembly, t *universe.Type, row uint32, nc *nullableContext) (mcpextract.ParameterDescriptor, error) {
	p := mcpextract.ParameterDescriptor{
		Name: unknownName,
		Type: normalize.Type(t),
	}
	hasDefault := false
	annotated := false
	if row != 0 {
		f := a.File
		pr := f.Param(row)
		tok := metadata.NewToken(metadata.TableParam, row)
		if pr.Name != "" {
			p.Name = pr.Name
		}
		if pr.Flags&(metadata.ParamHasDefault|metadata.ParamOptional) != 0 {
			hasDefault = true
		}
		if c, ok := f.Constant(tok); ok {
			hasDefault = true
			v, err := f.ConstantValue(c)
			if err != nil {
				w.log.Warn("ignoring undecodable parameter default",
					zap.String("parameter", p.Name),
					zap.Error(err))
			} else {
				p.DefaultValue = v
			}
		}

		desc, err := w.find(a, tok, w.descs)
		if err != nil {
			return p, err
		}
		if p.Description = desc.text("Description", 0); p.Description == "" {
			marker, err := w.find(a, tok, w.params)
			if err != nil {
				return p, err
			}
			p.Description = marker.text("Description", 0)
		}
		annotated = isReference(t) && nc.param(tok)
	}
	p.IsRequired = !hasDefault && !normalize.IsNullableValue(t) && !annotated
	return p, nil
}

// isReference reports whether t is a reference type, looking through by-refs.
func isReference(t *universe.Type) bool {
	for t != nil && t.Kind == universe.KindByRef {
		t = t.Elem
	}
	return t != nil && !t.ValueType && t.Kind != universe.KindGenericParam
}

func isCancellation(t *universe.Type) bool {
	for t != nil && t.Kind == universe.KindByRef {
		t = t.Elem
	}
	return t != nil && t.Kind == universe.KindNamed && t.FullName() == cancellationToken
}
