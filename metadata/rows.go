package metadata

import (
	"fmt"
	"sort"
)

// Version is a four-part assembly version.
type Version struct {
	Major    uint16
	Minor    uint16
	Build    uint16
	Revision uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// AssemblyName identifies an assembly by simple name and version.
type AssemblyName struct {
	Name    string
	Culture string
	Version Version
}

func (n AssemblyName) String() string {
	return n.Name + ", Version=" + n.Version.String()
}

type ModuleRow struct {
	Name string
	Mvid []byte
}

type TypeRefRow struct {
	Name      string
	Namespace string
	Scope     Token
}

type TypeDefRow struct {
	Name       string
	Namespace  string
	Extends    Token
	Flags      uint32
	FieldList  uint32
	MethodList uint32
}

type FieldRow struct {
	Name      string
	Signature uint32
	Flags     uint16
}

type MethodDefRow struct {
	Name      string
	RVA       uint32
	Signature uint32
	ParamList uint32
	ImplFlags uint16
	Flags     uint16
}

type ParamRow struct {
	Name     string
	Flags    uint16
	Sequence uint16
}

type MemberRefRow struct {
	Name      string
	Class     Token
	Signature uint32
}

type ConstantRow struct {
	Parent Token
	Value  uint32
	Type   ElementType
}

type CustomAttributeRow struct {
	Parent Token
	Type   Token
	Value  uint32
}

type AssemblyRow struct {
	AssemblyName
	HashAlgID uint32
	Flags     uint32
	PublicKey uint32
}

type AssemblyRefRow struct {
	AssemblyName
	Flags            uint32
	PublicKeyOrToken uint32
	HashValue        uint32
}

type ExportedTypeRow struct {
	Name           string
	Namespace      string
	Implementation Token
	Flags          uint32
	TypeDefID      uint32
}

type GenericParamRow struct {
	Name   string
	Owner  Token
	Number uint16
	Flags  uint16
}

func (f *File) tbl(id TableID) *table { return &f.tables.t[id] }

// Module returns the single Module row.
func (f *File) Module() ModuleRow {
	t := f.tbl(TableModule)
	return ModuleRow{Name: f.String(t.get(1, 1)), Mvid: f.GUID(t.get(1, 2))}
}

func (f *File) TypeRef(row uint32) TypeRefRow {
	t := f.tbl(TableTypeRef)
	return TypeRefRow{
		Scope:     t.token(row, 0),
		Name:      f.String(t.get(row, 1)),
		Namespace: f.String(t.get(row, 2)),
	}
}

func (f *File) TypeDef(row uint32) TypeDefRow {
	t := f.tbl(TableTypeDef)
	return TypeDefRow{
		Flags:      t.get(row, 0),
		Name:       f.String(t.get(row, 1)),
		Namespace:  f.String(t.get(row, 2)),
		Extends:    t.token(row, 3),
		FieldList:  t.get(row, 4),
		MethodList: t.get(row, 5),
	}
}

func (f *File) Field(row uint32) FieldRow {
	t := f.tbl(TableField)
	return FieldRow{
		Flags:     uint16(t.get(row, 0)),
		Name:      f.String(t.get(row, 1)),
		Signature: t.get(row, 2),
	}
}

func (f *File) MethodDef(row uint32) MethodDefRow {
	t := f.tbl(TableMethodDef)
	return MethodDefRow{
		RVA:       t.get(row, 0),
		ImplFlags: uint16(t.get(row, 1)),
		Flags:     uint16(t.get(row, 2)),
		Name:      f.String(t.get(row, 3)),
		Signature: t.get(row, 4),
		ParamList: t.get(row, 5),
	}
}

func (f *File) Param(row uint32) ParamRow {
	t := f.tbl(TableParam)
	return ParamRow{
		Flags:    uint16(t.get(row, 0)),
		Sequence: uint16(t.get(row, 1)),
		Name:     f.String(t.get(row, 2)),
	}
}

func (f *File) MemberRef(row uint32) MemberRefRow {
	t := f.tbl(TableMemberRef)
	return MemberRefRow{
		Class:     t.token(row, 0),
		Name:      f.String(t.get(row, 1)),
		Signature: t.get(row, 2),
	}
}

func (f *File) CustomAttribute(row uint32) CustomAttributeRow {
	t := f.tbl(TableCustomAttribute)
	return CustomAttributeRow{
		Parent: t.token(row, 0),
		Type:   t.token(row, 1),
		Value:  t.get(row, 2),
	}
}

// Assembly returns the Assembly row; ok is false for netmodules.
func (f *File) Assembly() (AssemblyRow, bool) {
	t := f.tbl(TableAssembly)
	if t.rows == 0 {
		return AssemblyRow{}, false
	}
	return AssemblyRow{
		HashAlgID: t.get(1, 0),
		AssemblyName: AssemblyName{
			Version: Version{
				Major:    uint16(t.get(1, 1)),
				Minor:    uint16(t.get(1, 2)),
				Build:    uint16(t.get(1, 3)),
				Revision: uint16(t.get(1, 4)),
			},
			Name:    f.String(t.get(1, 7)),
			Culture: f.String(t.get(1, 8)),
		},
		Flags:     t.get(1, 5),
		PublicKey: t.get(1, 6),
	}, true
}

func (f *File) AssemblyRef(row uint32) AssemblyRefRow {
	t := f.tbl(TableAssemblyRef)
	return AssemblyRefRow{
		AssemblyName: AssemblyName{
			Version: Version{
				Major:    uint16(t.get(row, 0)),
				Minor:    uint16(t.get(row, 1)),
				Build:    uint16(t.get(row, 2)),
				Revision: uint16(t.get(row, 3)),
			},
			Name:    f.String(t.get(row, 6)),
			Culture: f.String(t.get(row, 7)),
		},
		Flags:            t.get(row, 4),
		PublicKeyOrToken: t.get(row, 5),
		HashValue:        t.get(row, 8),
	}
}

// AssemblyRefs returns every AssemblyRef row in table order.
func (f *File) AssemblyRefs() []AssemblyRefRow {
	n := f.RowCount(TableAssemblyRef)
	out := make([]AssemblyRefRow, 0, n)
	for row := uint32(1); row <= n; row++ {
		out = append(out, f.AssemblyRef(row))
	}
	return out
}

func (f *File) ExportedType(row uint32) ExportedTypeRow {
	t := f.tbl(TableExportedType)
	return ExportedTypeRow{
		Flags:          t.get(row, 0),
		TypeDefID:      t.get(row, 1),
		Name:           f.String(t.get(row, 2)),
		Namespace:      f.String(t.get(row, 3)),
		Implementation: t.token(row, 4),
	}
}

func (f *File) GenericParam(row uint32) GenericParamRow {
	t := f.tbl(TableGenericParam)
	return GenericParamRow{
		Number: uint16(t.get(row, 0)),
		Flags:  uint16(t.get(row, 1)),
		Owner:  t.token(row, 2),
		Name:   f.String(t.get(row, 3)),
	}
}

// TypeSpecSignature returns the blob index of a TypeSpec row.
func (f *File) TypeSpecSignature(row uint32) uint32 {
	return f.tbl(TableTypeSpec).get(row, 0)
}

// ModuleRefName returns the name of a ModuleRef row.
func (f *File) ModuleRefName(row uint32) string {
	return f.String(f.tbl(TableModuleRef).get(row, 0))
}

// listRange returns the rows [start, end) owned by row of a table whose
// column col starts a run in the target table (II.22 list columns).
func (f *File) listRange(owner TableID, col int, row uint32, target TableID) []uint32 {
	ot := f.tbl(owner)
	targetRows := f.RowCount(target)
	start := ot.get(row, col)
	end := targetRows + 1
	if row < ot.rows {
		end = ot.get(row+1, col)
	}
	if end > targetRows+1 {
		end = targetRows + 1
	}
	if start == 0 || start >= end {
		return nil
	}
	out := make([]uint32, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, f.deref(target, i))
	}
	return out
}

// deref follows the optional *Ptr indirection tables of uncompressed streams.
func (f *File) deref(target TableID, i uint32) uint32 {
	var ptr TableID
	switch target {
	case TableField:
		ptr = TableFieldPtr
	case TableMethodDef:
		ptr = TableMethodPtr
	case TableParam:
		ptr = TableParamPtr
	default:
		return i
	}
	if pt := f.tbl(ptr); pt.rows > 0 {
		return pt.get(i, 0)
	}
	return i
}

// TypeMethods returns the MethodDef rows declared by a TypeDef row.
func (f *File) TypeMethods(typeRow uint32) []uint32 {
	return f.listRange(TableTypeDef, 5, typeRow, TableMethodDef)
}

// TypeFields returns the Field rows declared by a TypeDef row.
func (f *File) TypeFields(typeRow uint32) []uint32 {
	return f.listRange(TableTypeDef, 4, typeRow, TableField)
}

// MethodParams returns the Param rows of a MethodDef row.
func (f *File) MethodParams(methodRow uint32) []uint32 {
	return f.listRange(TableMethodDef, 5, methodRow, TableParam)
}

// MethodOwner returns the TypeDef row declaring a MethodDef row, or zero.
func (f *File) MethodOwner(methodRow uint32) uint32 {
	f.indexOnce()
	return f.methodOwner[methodRow]
}

// EnclosingType returns the enclosing TypeDef row of a nested type, or zero.
func (f *File) EnclosingType(typeRow uint32) uint32 {
	f.indexOnce()
	return f.enclosing[typeRow]
}

// CustomAttributes returns the CustomAttribute rows attached to parent.
func (f *File) CustomAttributes(parent Token) []CustomAttributeRow {
	f.indexOnce()
	rows := f.attrs[parent]
	out := make([]CustomAttributeRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, f.CustomAttribute(r))
	}
	return out
}

// Constant returns the Constant row for parent, if any.
func (f *File) Constant(parent Token) (ConstantRow, bool) {
	f.indexOnce()
	row, ok := f.constants[parent]
	if !ok {
		return ConstantRow{}, false
	}
	t := f.tbl(TableConstant)
	return ConstantRow{
		Type:   ElementType(t.get(row, 0) & 0xFF),
		Parent: t.token(row, 1),
		Value:  t.get(row, 2),
	}, true
}

// GenericParams returns the generic parameters of a TypeDef or MethodDef, ordered by number.
func (f *File) GenericParams(owner Token) []GenericParamRow {
	f.indexOnce()
	rows := f.generics[owner]
	out := make([]GenericParamRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, f.GenericParam(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// FindTypeDef looks up a top-level or nested type by namespace and name.
// Nested types are addressed as "Outer+Inner" with the outer namespace.
func (f *File) FindTypeDef(namespace, name string) (uint32, bool) {
	f.indexOnce()
	row, ok := f.typesByName[namespace+"\x00"+name]
	return row, ok
}

// TypeDefFullName returns "Namespace.Name" with nested types joined by '+'.
func (f *File) TypeDefFullName(row uint32) string {
	f.indexOnce()
	ns, name := f.typeDefPath(row)
	if ns == "" {
		return name
	}
	return ns + "." + name
}

// typeDefPath returns the namespace of the outermost type and the '+' joined
// name. The enclosing index must be built.
func (f *File) typeDefPath(row uint32) (string, string) {
	td := f.TypeDef(row)
	name := td.Name
	ns := td.Namespace
	seen := map[uint32]bool{row: true}
	for outer := f.enclosing[row]; outer != 0 && !seen[outer]; outer = f.enclosing[outer] {
		seen[outer] = true
		otd := f.TypeDef(outer)
		name = otd.Name + "+" + name
		ns = otd.Namespace
	}
	return ns, name
}

func (f *File) indexOnce() {
	f.once.Do(f.buildIndexes)
}

func (f *File) buildIndexes() {
	f.attrs = make(map[Token][]uint32)
	ca := f.tbl(TableCustomAttribute)
	for row := uint32(1); row <= ca.rows; row++ {
		p := ca.token(row, 0)
		f.attrs[p] = append(f.attrs[p], row)
	}

	f.constants = make(map[Token]uint32)
	ct := f.tbl(TableConstant)
	for row := uint32(1); row <= ct.rows; row++ {
		f.constants[ct.token(row, 1)] = row
	}

	f.generics = make(map[Token][]uint32)
	gp := f.tbl(TableGenericParam)
	for row := uint32(1); row <= gp.rows; row++ {
		o := gp.token(row, 2)
		f.generics[o] = append(f.generics[o], row)
	}

	f.enclosing = make(map[uint32]uint32)
	nc := f.tbl(TableNestedClass)
	for row := uint32(1); row <= nc.rows; row++ {
		f.enclosing[nc.get(row, 0)] = nc.get(row, 1)
	}

	f.methodOwner = make(map[uint32]uint32)
	f.typesByName = make(map[string]uint32)
	for row := uint32(1); row <= f.RowCount(TableTypeDef); row++ {
		for _, m := range f.TypeMethods(row) {
			f.methodOwner[m] = row
		}
	}
	// Names depend on the enclosing index, which is complete at this point.
	for row := uint32(1); row <= f.RowCount(TableTypeDef); row++ {
		ns, name := f.typeDefPath(row)
		key := ns + "\x00" + name
		if _, dup := f.typesByName[key]; !dup {
			f.typesByName[key] = row
		}
	}
}
