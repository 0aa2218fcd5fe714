package universe

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/asklar/McpExtract/metadata"
)

// Kind classifies a Type.
type Kind uint8

const (
	KindNamed Kind = iota
	KindArray
	KindPointer
	KindByRef
	KindGenericParam
	KindFunctionPointer
)

// Type is a type as seen from a signature in the universe. Named types
// carry their definition's assembly when it could be resolved; value-type
// shape always comes from the signature itself, so it survives missing
// references.
type Type struct {
	// Elem is the element of arrays, pointers and by-refs.
	Elem *Type
	// Assembly defines the type; nil when unresolved.
	Assembly *Assembly
	// Args are the arguments of a generic instantiation.
	Args []*Type
	// Namespace of the outermost declaring type.
	Namespace string
	// Name is the metadata name, nested types joined by '+', including any
	// generic arity suffix such as "List`1".
	Name string
	// Scope is the name of the assembly the signature points at.
	Scope     string
	Kind      Kind
	Rank      int
	ValueType bool
	Resolved  bool
}

// FullName returns "Namespace.Name", naming the generic definition for instantiations.
func (t *Type) FullName() string {
	switch t.Kind {
	case KindArray:
		return t.Elem.FullName() + "[]"
	case KindPointer:
		return t.Elem.FullName() + "*"
	case KindByRef:
		return t.Elem.FullName() + "&"
	}
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// ShortName returns the name of the innermost nested type.
func (t *Type) ShortName() string {
	if i := strings.LastIndexByte(t.Name, '+'); i >= 0 {
		return t.Name[i+1:]
	}
	return t.Name
}

// IsGeneric reports whether t is a generic instantiation.
func (t *Type) IsGeneric() bool { return len(t.Args) > 0 }

func (t *Type) String() string {
	if !t.IsGeneric() {
		return t.FullName()
	}
	var b strings.Builder
	b.WriteString(t.FullName())
	b.WriteByte('[')
	for i, a := range t.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.String())
	}
	b.WriteByte(']')
	return b.String()
}

// primitiveNames maps element types to their System type names.
var primitiveNames = map[metadata.ElementType]string{
	metadata.ElementVoid:       "Void",
	metadata.ElementBoolean:    "Boolean",
	metadata.ElementChar:       "Char",
	metadata.ElementI1:         "SByte",
	metadata.ElementU1:         "Byte",
	metadata.ElementI2:         "Int16",
	metadata.ElementU2:         "UInt16",
	metadata.ElementI4:         "Int32",
	metadata.ElementU4:         "UInt32",
	metadata.ElementI8:         "Int64",
	metadata.ElementU8:         "UInt64",
	metadata.ElementR4:         "Single",
	metadata.ElementR8:         "Double",
	metadata.ElementString:     "String",
	metadata.ElementObject:     "Object",
	metadata.ElementI:          "IntPtr",
	metadata.ElementU:          "UIntPtr",
	metadata.ElementTypedByRef: "TypedReference",
}

// Primitive returns the core library type for a primitive element type.
func (u *Universe) Primitive(et metadata.ElementType) *Type {
	core := u.Core()
	t := &Type{
		Namespace: "System",
		Name:      primitiveNames[et],
		Kind:      KindNamed,
		ValueType: et != metadata.ElementString && et != metadata.ElementObject,
		Assembly:  core,
		Resolved:  core != nil,
		Scope:     u.CoreName(),
	}
	return t
}

// GenericContext names the generic parameters visible to a signature.
type GenericContext struct {
	// Type is the TypeDef declaring the member, or zero.
	Type metadata.Token
	// Method is the MethodDef whose signature is read, or zero.
	Method metadata.Token
}

// TypeOf converts a signature type read from a's metadata into a Type.
func (a *Assembly) TypeOf(st *metadata.SigType, gc GenericContext) *Type {
	return a.typeOf(st, gc, 0)
}

func (a *Assembly) typeOf(st *metadata.SigType, gc GenericContext, depth int) *Type {
	if st == nil || depth > maxTypeDepth {
		return &Type{Namespace: "System", Name: "Object", Scope: a.universe.CoreName()}
	}
	u := a.universe
	switch st.Elem {
	case metadata.ElementClass, metadata.ElementValueType:
		t := a.typeFromToken(st.Type, gc, depth+1)
		t.ValueType = st.Elem == metadata.ElementValueType
		return t
	case metadata.ElementSZArray:
		return &Type{Kind: KindArray, Rank: 1, Elem: a.typeOf(st.Inner, gc, depth+1)}
	case metadata.ElementArray:
		return &Type{Kind: KindArray, Rank: int(st.Number), Elem: a.typeOf(st.Inner, gc, depth+1)}
	case metadata.ElementPtr:
		return &Type{Kind: KindPointer, ValueType: true, Elem: a.typeOf(st.Inner, gc, depth+1)}
	case metadata.ElementByRef:
		return &Type{Kind: KindByRef, Elem: a.typeOf(st.Inner, gc, depth+1)}
	case metadata.ElementGenericInst:
		def := a.typeOf(st.Inner, gc, depth+1)
		inst := *def
		inst.Args = make([]*Type, 0, len(st.Args))
		for _, arg := range st.Args {
			inst.Args = append(inst.Args, a.typeOf(arg, gc, depth+1))
		}
		return &inst
	case metadata.ElementVar:
		return &Type{Kind: KindGenericParam, Name: a.genericParamName(gc.Type, st.Number, "T")}
	case metadata.ElementMVar:
		return &Type{Kind: KindGenericParam, Name: a.genericParamName(gc.Method, st.Number, "TMethod")}
	case metadata.ElementFnPtr:
		return &Type{Kind: KindFunctionPointer, Name: "IntPtr", Namespace: "System", ValueType: true}
	}
	if _, ok := primitiveNames[st.Elem]; ok {
		return u.Primitive(st.Elem)
	}
	return &Type{Namespace: "System", Name: "Object", Scope: u.CoreName()}
}

const maxTypeDepth = 64

func (a *Assembly) genericParamName(owner metadata.Token, n uint32, fallback string) string {
	if !owner.IsNil() {
		for _, gp := range a.File.GenericParams(owner) {
			if uint32(gp.Number) == n && gp.Name != "" {
				return gp.Name
			}
		}
	}
	if n == 0 {
		return fallback
	}
	return fallback + strconv.FormatUint(uint64(n), 10)
}

// TypeFromToken returns the type named by a TypeDef, TypeRef or TypeSpec
// token of a, resolving references through the universe.
func (a *Assembly) TypeFromToken(tok metadata.Token, gc GenericContext) *Type {
	return a.typeFromToken(tok, gc, 0)
}

func (a *Assembly) typeFromToken(tok metadata.Token, gc GenericContext, depth int) *Type {
	f := a.File
	switch tok.Table() {
	case metadata.TableTypeDef:
		ns, name := f.TypeName(tok)
		return &Type{
			Namespace: ns,
			Name:      name,
			Kind:      KindNamed,
			Assembly:  a,
			Resolved:  true,
			Scope:     a.Name.Name,
			ValueType: a.isValueTypeDef(tok.Row()),
		}
	case metadata.TableTypeRef:
		ns, name := f.TypeName(tok)
		t := &Type{Namespace: ns, Name: name, Kind: KindNamed, Scope: a.scopeName(tok.Row())}
		if loc, ok := a.universe.resolveTypeRef(a, tok.Row()); ok {
			t.Assembly = loc.asm
			t.Resolved = true
			t.ValueType = loc.asm.isValueTypeDef(loc.row)
		}
		return t
	case metadata.TableTypeSpec:
		st, err := f.TypeSpec(tok.Row())
		if err == nil {
			return a.typeOf(st, gc, depth+1)
		}
		a.universe.log.Debug("unreadable TypeSpec", zap.Uint32("token", uint32(tok)), zap.Error(err))
	}
	return &Type{Namespace: "System", Name: "Object", Scope: a.universe.CoreName()}
}

// isValueTypeDef reports whether a TypeDef derives from System.ValueType or System.Enum.
func (a *Assembly) isValueTypeDef(row uint32) bool {
	ext := a.File.TypeDef(row).Extends
	if ext.IsNil() {
		return false
	}
	ns, name := a.File.TypeName(ext)
	if ns != "System" {
		return false
	}
	if name == "Enum" {
		return true
	}
	// System.Enum itself derives from System.ValueType but is a reference type.
	return name == "ValueType" && a.File.TypeDefFullName(row) != "System.Enum"
}

// isEnumDef reports whether a TypeDef derives from System.Enum.
func (a *Assembly) isEnumDef(row uint32) bool {
	ext := a.File.TypeDef(row).Extends
	if ext.IsNil() {
		return false
	}
	ns, name := a.File.TypeName(ext)
	return ns == "System" && name == "Enum"
}

func (a *Assembly) scopeName(typeRefRow uint32) string {
	scope := a.File.TypeRefScope(typeRefRow)
	switch scope.Table() {
	case metadata.TableAssemblyRef:
		return a.File.AssemblyRef(scope.Row()).Name
	case metadata.TableModuleRef:
		return a.File.ModuleRefName(scope.Row())
	}
	return a.Name.Name
}
