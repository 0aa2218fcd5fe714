package universe

import (
	"strings"

	"go.uber.org/zap"

	"github.com/asklar/McpExtract/metadata"
)

type typeKey struct {
	assembly  string
	namespace string
	name      string
}

// typeLoc is a TypeDef row of a loaded assembly.
type typeLoc struct {
	asm *Assembly
	row uint32
}

// resolveTypeRef finds the definition of TypeRef row of a.
func (u *Universe) resolveTypeRef(a *Assembly, row uint32) (typeLoc, bool) {
	ns, name := a.File.TypeName(metadata.NewToken(metadata.TableTypeRef, row))
	scope := a.File.TypeRefScope(row)
	switch scope.Table() {
	case metadata.TableAssemblyRef:
		target := u.Assembly(a.File.AssemblyRef(scope.Row()).AssemblyName)
		if target == nil {
			return typeLoc{}, false
		}
		return u.findType(target, ns, name, 0)
	case metadata.TableModule:
		return u.findType(a, ns, name, 0)
	}
	return typeLoc{}, false
}

// FindType looks up a type by namespace and '+' joined name in the named
// assembly, following type forwarders.
func (u *Universe) FindType(assembly, namespace, name string) (*Assembly, uint32, bool) {
	a := u.Assembly(metadata.AssemblyName{Name: assembly})
	if a == nil {
		return nil, 0, false
	}
	loc, ok := u.findType(a, namespace, name, 0)
	return loc.asm, loc.row, ok
}

func (u *Universe) findType(a *Assembly, ns, name string, depth int) (typeLoc, bool) {
	key := typeKey{assembly: strings.ToLower(a.Name.Name), namespace: ns, name: name}
	if loc, ok := u.types.Get(key); ok {
		return loc, loc.asm != nil
	}
	loc := u.lookup(a, ns, name, depth)
	u.types.Add(key, loc)
	return loc, loc.asm != nil
}

func (u *Universe) lookup(a *Assembly, ns, name string, depth int) typeLoc {
	if row, ok := a.File.FindTypeDef(ns, name); ok {
		return typeLoc{asm: a, row: row}
	}
	if depth >= u.maxForward {
		u.log.Debug("type forwarding too deep", zap.String("type", ns+"."+name), zap.String("assembly", a.Name.Name))
		return typeLoc{}
	}
	// Nested types are forwarded with their outermost type.
	outer := name
	if i := strings.IndexByte(name, '+'); i >= 0 {
		outer = name[:i]
	}
	f := a.File
	for row := uint32(1); row <= f.RowCount(metadata.TableExportedType); row++ {
		et := f.ExportedType(row)
		if et.Name != outer || et.Namespace != ns || et.Implementation.Table() != metadata.TableAssemblyRef {
			continue
		}
		target := u.Assembly(f.AssemblyRef(et.Implementation.Row()).AssemblyName)
		if target == nil {
			return typeLoc{}
		}
		u.log.Debug("following type forwarder",
			zap.String("type", ns+"."+name),
			zap.String("from", a.Name.Name),
			zap.String("to", target.Name.Name))
		loc, _ := u.findType(target, ns, name, depth+1)
		return loc
	}
	return typeLoc{}
}

// enumUnderlying returns the element type of the value__ field of an enum
// TypeDef, or zero when loc is not an enum.
func enumUnderlying(loc typeLoc) metadata.ElementType {
	f := loc.asm.File
	if !loc.asm.isEnumDef(loc.row) {
		return 0
	}
	for _, fr := range f.TypeFields(loc.row) {
		field := f.Field(fr)
		if field.Name != "value__" || field.Flags&metadata.FieldStatic != 0 {
			continue
		}
		st, err := f.FieldSignature(fr)
		if err != nil {
			return 0
		}
		return st.Elem
	}
	return 0
}

// Enums returns the enum resolver for attribute blobs of a.
func (a *Assembly) Enums() metadata.EnumResolver {
	return enumResolver{a: a}
}

type enumResolver struct {
	a *Assembly
}

func (r enumResolver) EnumUnderlying(st *metadata.SigType) metadata.ElementType {
	tok := st.Type
	switch tok.Table() {
	case metadata.TableTypeDef:
		return enumUnderlying(typeLoc{asm: r.a, row: tok.Row()})
	case metadata.TableTypeRef:
		if loc, ok := r.a.universe.resolveTypeRef(r.a, tok.Row()); ok {
			return enumUnderlying(loc)
		}
	}
	return 0
}

// EnumUnderlyingByName resolves a serialized type name such as
// "Ns.Outer+Level, Assembly, Version=1.0.0.0". Without an assembly part the
// type is looked up in a and then in the core library.
func (r enumResolver) EnumUnderlyingByName(serialized string) metadata.ElementType {
	typeName, asmName, _ := strings.Cut(serialized, ",")
	typeName = strings.TrimSpace(typeName)
	asmName, _, _ = strings.Cut(asmName, ",")
	asmName = strings.TrimSpace(asmName)
	ns, name := splitTypeName(typeName)

	u := r.a.universe
	var candidates []*Assembly
	if asmName != "" {
		candidates = append(candidates, u.Assembly(metadata.AssemblyName{Name: asmName}))
	} else {
		candidates = append(candidates, r.a, u.Core())
	}
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if loc, ok := u.findType(c, ns, name, 0); ok {
			return enumUnderlying(loc)
		}
	}
	return 0
}

// splitTypeName splits "Ns.Outer+Inner" into "Ns" and "Outer+Inner".
func splitTypeName(full string) (string, string) {
	top := full
	if i := strings.IndexByte(full, '+'); i >= 0 {
		top = full[:i]
	}
	i := strings.LastIndexByte(top, '.')
	if i < 0 {
		return "", full
	}
	return full[:i], full[i+1:]
}

// CtorParamNames returns the declared parameter names of an attribute
// constructor, indexed by position. Names are empty where the constructor
// definition cannot be found.
func (a *Assembly) CtorParamNames(ctor *metadata.AttributeCtor) []string {
	names := make([]string, len(ctor.Sig.Params))
	switch ctor.Method.Table() {
	case metadata.TableMethodDef:
		fillParamNames(a.File, ctor.Method.Row(), names)
	case metadata.TableMemberRef:
		var loc typeLoc
		var ok bool
		switch ctor.Type.Table() {
		case metadata.TableTypeDef:
			loc, ok = typeLoc{asm: a, row: ctor.Type.Row()}, true
		case metadata.TableTypeRef:
			loc, ok = a.universe.resolveTypeRef(a, ctor.Type.Row())
		}
		if !ok {
			return names
		}
		if m, found := findMethod(loc, ".ctor", a.File, ctor.Sig); found {
			fillParamNames(loc.asm.File, m, names)
		}
	}
	return names
}

func fillParamNames(f *metadata.File, method uint32, names []string) {
	for _, pr := range f.MethodParams(method) {
		p := f.Param(pr)
		if p.Sequence >= 1 && int(p.Sequence) <= len(names) {
			names[p.Sequence-1] = p.Name
		}
	}
}

// findMethod finds a method of loc named name whose signature matches sig,
// which was read from the metadata of from.
func findMethod(loc typeLoc, name string, from *metadata.File, sig *metadata.MethodSig) (uint32, bool) {
	f := loc.asm.File
	for _, m := range f.TypeMethods(loc.row) {
		if f.MethodDef(m).Name != name {
			continue
		}
		ms, err := f.MethodDefSignature(m)
		if err != nil || len(ms.Params) != len(sig.Params) {
			continue
		}
		match := true
		for i := range ms.Params {
			if !sameType(f, ms.Params[i], from, sig.Params[i]) {
				match = false
				break
			}
		}
		if match {
			return m, true
		}
	}
	return 0, false
}

// sameType compares signature types from two files by shape and type name.
func sameType(fa *metadata.File, a *metadata.SigType, fb *metadata.File, b *metadata.SigType) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Elem != b.Elem {
		return false
	}
	switch a.Elem {
	case metadata.ElementClass, metadata.ElementValueType:
		nsA, nameA := fa.TypeName(a.Type)
		nsB, nameB := fb.TypeName(b.Type)
		return nsA == nsB && nameA == nameB
	case metadata.ElementSZArray, metadata.ElementPtr, metadata.ElementByRef:
		return sameType(fa, a.Inner, fb, b.Inner)
	case metadata.ElementArray:
		return a.Number == b.Number && sameType(fa, a.Inner, fb, b.Inner)
	case metadata.ElementGenericInst:
		if len(a.Args) != len(b.Args) || !sameType(fa, a.Inner, fb, b.Inner) {
			return false
		}
		for i := range a.Args {
			if !sameType(fa, a.Args[i], fb, b.Args[i]) {
				return false
			}
		}
		return true
	case metadata.ElementVar, metadata.ElementMVar:
		return a.Number == b.Number
	}
	return true
}
