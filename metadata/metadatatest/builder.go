// Package metadatatest builds small, valid CLI assemblies in memory for tests.
//
// A Builder collects types, methods, references and attributes and Bytes
// lays them out as a PE32 image with an ECMA-335 metadata section. Heaps and
// table indexes are always 2 bytes wide, so images stay small: fewer than
// 2048 rows per table.
package metadatatest

import (
	"github.com/asklar/McpExtract/metadata"
)

// Handle refers to a row of the image being built. Rows of methods, fields
// and params are assigned by Bytes; use Token only after that.
type Handle struct {
	row   *uint32
	table metadata.TableID
}

func newHandle(t metadata.TableID, row uint32) Handle {
	return Handle{table: t, row: &row}
}

// Token returns the metadata token of the row.
func (h Handle) Token() metadata.Token {
	if h.row == nil {
		return 0
	}
	return metadata.NewToken(h.table, *h.row)
}

// IsZero reports whether h refers to nothing.
func (h Handle) IsZero() bool { return h.row == nil }

// Builder accumulates the contents of one assembly.
type Builder struct {
	name    string
	version metadata.Version

	assemblyRefs []assemblyRefRow
	typeRefs     []typeRefRow
	types        []*TypeBuilder
	memberRefs   []memberRefRow
	typeSpecs    [][]byte
	attrs        []attrRow
	exported     []exportedRow

	assembly    Handle
	module      Handle
	hasAssembly bool
}

type assemblyRefRow struct {
	name    string
	version metadata.Version
}

type typeRefRow struct {
	scope     Handle
	namespace string
	name      string
}

type memberRefRow struct {
	class Handle
	name  string
	sig   []byte
}

type attrRow struct {
	parent Handle
	ctor   Handle
	value  []byte
}

type exportedRow struct {
	namespace string
	name      string
	impl      Handle
}

// New starts an assembly with the given simple name and version 1.0.0.0.
func New(name string) *Builder {
	b := &Builder{
		name:        name,
		version:     metadata.Version{Major: 1},
		assembly:    newHandle(metadata.TableAssembly, 1),
		module:      newHandle(metadata.TableModule, 1),
		hasAssembly: true,
	}
	b.Type("", "<Module>", 0, Handle{})
	return b
}

// Version sets the assembly version.
func (b *Builder) Version(major, minor, build, revision uint16) *Builder {
	b.version = metadata.Version{Major: major, Minor: minor, Build: build, Revision: revision}
	return b
}

// NetModule drops the Assembly row, producing a module without a manifest.
func (b *Builder) NetModule() *Builder {
	b.hasAssembly = false
	return b
}

// Assembly returns the handle of the Assembly row, for assembly-level attributes.
func (b *Builder) Assembly() Handle { return b.assembly }

// Module returns the handle of the Module row.
func (b *Builder) Module() Handle { return b.module }

// AssemblyRef adds a reference to another assembly.
func (b *Builder) AssemblyRef(name string, major, minor uint16) Handle {
	b.assemblyRefs = append(b.assemblyRefs, assemblyRefRow{
		name:    name,
		version: metadata.Version{Major: major, Minor: minor},
	})
	return newHandle(metadata.TableAssemblyRef, uint32(len(b.assemblyRefs)))
}

// TypeRef adds a reference to a type in scope, which is an AssemblyRef, the
// Module, or an enclosing TypeRef for nested types.
func (b *Builder) TypeRef(scope Handle, namespace, name string) Handle {
	b.typeRefs = append(b.typeRefs, typeRefRow{scope: scope, namespace: namespace, name: name})
	return newHandle(metadata.TableTypeRef, uint32(len(b.typeRefs)))
}

// TypeSpec adds a TypeSpec row with the given type signature, as built by the
// signature helpers in this package.
func (b *Builder) TypeSpec(sig []byte) Handle {
	b.typeSpecs = append(b.typeSpecs, sig)
	return newHandle(metadata.TableTypeSpec, uint32(len(b.typeSpecs)))
}

// MemberRef adds a reference to a method or field of class.
func (b *Builder) MemberRef(class Handle, name string, sig []byte) Handle {
	b.memberRefs = append(b.memberRefs, memberRefRow{class: class, name: name, sig: sig})
	return newHandle(metadata.TableMemberRef, uint32(len(b.memberRefs)))
}

// Ctor adds a MemberRef to the instance constructor of class taking params.
func (b *Builder) Ctor(class Handle, params ...[]byte) Handle {
	return b.MemberRef(class, ".ctor", MethodSig(true, Prim(metadata.ElementVoid), params...))
}

// Attribute attaches a custom attribute to parent. value is the attribute
// blob, usually built with Attr.
func (b *Builder) Attribute(parent, ctor Handle, value []byte) {
	b.attrs = append(b.attrs, attrRow{parent: parent, ctor: ctor, value: value})
}

// Forward adds an ExportedType row forwarding namespace.name to the assembly impl.
func (b *Builder) Forward(namespace, name string, impl Handle) Handle {
	b.exported = append(b.exported, exportedRow{namespace: namespace, name: name, impl: impl})
	return newHandle(metadata.TableExportedType, uint32(len(b.exported)))
}

// TypeBuilder accumulates the members of one TypeDef.
type TypeBuilder struct {
	handle    Handle
	enclosing *TypeBuilder
	namespace string
	name      string
	extends   Handle
	flags     uint32
	fields    []*memberDef
	methods   []*MethodBuilder
}

type memberDef struct {
	handle Handle
	name   string
	sig    []byte
	flags  uint16
}

// Type adds a TypeDef. extends may be zero.
func (b *Builder) Type(namespace, name string, flags uint32, extends Handle) *TypeBuilder {
	t := &TypeBuilder{
		handle:    newHandle(metadata.TableTypeDef, uint32(len(b.types)+1)),
		namespace: namespace,
		name:      name,
		flags:     flags,
		extends:   extends,
	}
	b.types = append(b.types, t)
	return t
}

// Class adds a public class deriving from extends.
func (b *Builder) Class(namespace, name string, extends Handle) *TypeBuilder {
	return b.Type(namespace, name, metadata.TypePublic, extends)
}

// Nested adds a public type nested in outer.
func (b *Builder) Nested(outer *TypeBuilder, name string, extends Handle) *TypeBuilder {
	t := b.Type("", name, metadata.TypeNestedPublic, extends)
	t.enclosing = outer
	return t
}

// Handle returns the TypeDef handle.
func (t *TypeBuilder) Handle() Handle { return t.handle }

// Field adds a field with the given field signature.
func (t *TypeBuilder) Field(name string, flags uint16, sig []byte) Handle {
	f := &memberDef{handle: Handle{table: metadata.TableField, row: new(uint32)}, name: name, sig: sig, flags: flags}
	t.fields = append(t.fields, f)
	return f.handle
}

// MethodBuilder accumulates the parameters of one MethodDef.
type MethodBuilder struct {
	memberDef
	params []*ParamBuilder
}

// Method adds a method with the given flags and method signature.
func (t *TypeBuilder) Method(name string, flags uint16, sig []byte) *MethodBuilder {
	m := &MethodBuilder{memberDef: memberDef{
		handle: Handle{table: metadata.TableMethodDef, row: new(uint32)},
		name:   name,
		sig:    sig,
		flags:  flags,
	}}
	t.methods = append(t.methods, m)
	return m
}

// PublicMethod adds a public instance method.
func (t *TypeBuilder) PublicMethod(name string, sig []byte) *MethodBuilder {
	return t.Method(name, metadata.MethodPublic, sig)
}

// Handle returns the MethodDef handle.
func (m *MethodBuilder) Handle() Handle { return m.handle }

// ParamBuilder describes one Param row.
type ParamBuilder struct {
	handle   Handle
	name     string
	def      []byte
	flags    uint16
	sequence uint16
	defType  metadata.ElementType
}

// Param adds the next parameter. Sequence numbers start at 1.
func (m *MethodBuilder) Param(name string) *ParamBuilder {
	p := &ParamBuilder{
		handle:   Handle{table: metadata.TableParam, row: new(uint32)},
		name:     name,
		sequence: uint16(len(m.params) + 1),
	}
	m.params = append(m.params, p)
	return p
}

// Handle returns the Param handle.
func (p *ParamBuilder) Handle() Handle { return p.handle }

// Flags sets the parameter attributes.
func (p *ParamBuilder) Flags(flags uint16) *ParamBuilder {
	p.flags = flags
	return p
}

// Default marks the parameter optional with a constant default value.
// value is the little-endian encoding of the constant (II.22.9).
func (p *ParamBuilder) Default(et metadata.ElementType, value []byte) *ParamBuilder {
	p.flags |= metadata.ParamOptional | metadata.ParamHasDefault
	p.defType = et
	p.def = value
	if p.def == nil {
		p.def = []byte{}
	}
	return p
}
