package metadata

type colKind uint8

const (
	colU16 colKind = iota
	colU32
	colString
	colGUID
	colBlob
	colTable
	colCoded
)

type column struct {
	coded *codedIndex
	kind  colKind
	table TableID
}

// codedIndex describes a tagged index into one of several tables (II.24.2.6).
type codedIndex struct {
	name   string
	tables []TableID
	bits   uint
}

// tableUnused marks a tag value that maps to no table.
const tableUnused TableID = 0xFF

var (
	codedTypeDefOrRef = &codedIndex{name: "TypeDefOrRef", bits: 2,
		tables: []TableID{TableTypeDef, TableTypeRef, TableTypeSpec}}
	codedHasConstant = &codedIndex{name: "HasConstant", bits: 2,
		tables: []TableID{TableField, TableParam, TableProperty}}
	codedHasCustomAttribute = &codedIndex{name: "HasCustomAttribute", bits: 5,
		tables: []TableID{
			TableMethodDef, TableField, TableTypeRef, TableTypeDef, TableParam,
			TableInterfaceImpl, TableMemberRef, TableModule, TableDeclSecurity,
			TableProperty, TableEvent, TableStandAloneSig, TableModuleRef,
			TableTypeSpec, TableAssembly, TableAssemblyRef, TableFile,
			TableExportedType, TableManifestResource, TableGenericParam,
			TableGenericParamConstraint, TableMethodSpec,
		}}
	codedHasFieldMarshal = &codedIndex{name: "HasFieldMarshal", bits: 1,
		tables: []TableID{TableField, TableParam}}
	codedHasDeclSecurity = &codedIndex{name: "HasDeclSecurity", bits: 2,
		tables: []TableID{TableTypeDef, TableMethodDef, TableAssembly}}
	codedMemberRefParent = &codedIndex{name: "MemberRefParent", bits: 3,
		tables: []TableID{TableTypeDef, TableTypeRef, TableModuleRef, TableMethodDef, TableTypeSpec}}
	codedHasSemantics = &codedIndex{name: "HasSemantics", bits: 1,
		tables: []TableID{TableEvent, TableProperty}}
	codedMethodDefOrRef = &codedIndex{name: "MethodDefOrRef", bits: 1,
		tables: []TableID{TableMethodDef, TableMemberRef}}
	codedMemberForwarded = &codedIndex{name: "MemberForwarded", bits: 1,
		tables: []TableID{TableField, TableMethodDef}}
	codedImplementation = &codedIndex{name: "Implementation", bits: 2,
		tables: []TableID{TableFile, TableAssemblyRef, TableExportedType}}
	codedCustomAttributeType = &codedIndex{name: "CustomAttributeType", bits: 3,
		tables: []TableID{tableUnused, tableUnused, TableMethodDef, TableMemberRef, tableUnused}}
	codedResolutionScope = &codedIndex{name: "ResolutionScope", bits: 2,
		tables: []TableID{TableModule, TableModuleRef, TableAssemblyRef, TableTypeRef}}
	codedTypeOrMethodDef = &codedIndex{name: "TypeOrMethodDef", bits: 1,
		tables: []TableID{TableTypeDef, TableMethodDef}}
)

// decode splits a coded index value into a token. Unknown tags yield a nil token.
func (c *codedIndex) decode(v uint32) Token {
	tag := v & (1<<c.bits - 1)
	if int(tag) >= len(c.tables) || c.tables[tag] == tableUnused {
		return 0
	}
	return NewToken(c.tables[tag], v>>c.bits)
}

func u16() column                { return column{kind: colU16} }
func u32() column                { return column{kind: colU32} }
func str() column                { return column{kind: colString} }
func guid() column               { return column{kind: colGUID} }
func blob() column               { return column{kind: colBlob} }
func idx(t TableID) column       { return column{kind: colTable, table: t} }
func coded(c *codedIndex) column { return column{kind: colCoded, coded: c} }

// tableNames is used in diagnostics.
var tableNames = [tableCount]string{
	"Module", "TypeRef", "TypeDef", "FieldPtr", "Field", "MethodPtr", "MethodDef",
	"ParamPtr", "Param", "InterfaceImpl", "MemberRef", "Constant", "CustomAttribute",
	"FieldMarshal", "DeclSecurity", "ClassLayout", "FieldLayout", "StandAloneSig",
	"EventMap", "EventPtr", "Event", "PropertyMap", "PropertyPtr", "Property",
	"MethodSemantics", "MethodImpl", "ModuleRef", "TypeSpec", "ImplMap", "FieldRVA",
	"EncLog", "EncMap", "Assembly", "AssemblyProcessor", "AssemblyOS", "AssemblyRef",
	"AssemblyRefProcessor", "AssemblyRefOS", "File", "ExportedType", "ManifestResource",
	"NestedClass", "GenericParam", "MethodSpec", "GenericParamConstraint",
}

// String returns the table name.
func (t TableID) String() string {
	if int(t) < len(tableNames) {
		return tableNames[t]
	}
	return "Unknown"
}

// schemas lists the columns of every table (II.22). Constant.Type is a byte
// followed by a padding byte and is read as a u16.
var schemas = [tableCount][]column{
	TableModule:                 {u16(), str(), guid(), guid(), guid()},
	TableTypeRef:                {coded(codedResolutionScope), str(), str()},
	TableTypeDef:                {u32(), str(), str(), coded(codedTypeDefOrRef), idx(TableField), idx(TableMethodDef)},
	TableFieldPtr:               {idx(TableField)},
	TableField:                  {u16(), str(), blob()},
	TableMethodPtr:              {idx(TableMethodDef)},
	TableMethodDef:              {u32(), u16(), u16(), str(), blob(), idx(TableParam)},
	TableParamPtr:               {idx(TableParam)},
	TableParam:                  {u16(), u16(), str()},
	TableInterfaceImpl:          {idx(TableTypeDef), coded(codedTypeDefOrRef)},
	TableMemberRef:              {coded(codedMemberRefParent), str(), blob()},
	TableConstant:               {u16(), coded(codedHasConstant), blob()},
	TableCustomAttribute:        {coded(codedHasCustomAttribute), coded(codedCustomAttributeType), blob()},
	TableFieldMarshal:           {coded(codedHasFieldMarshal), blob()},
	TableDeclSecurity:           {u16(), coded(codedHasDeclSecurity), blob()},
	TableClassLayout:            {u16(), u32(), idx(TableTypeDef)},
	TableFieldLayout:            {u32(), idx(TableField)},
	TableStandAloneSig:          {blob()},
	TableEventMap:               {idx(TableTypeDef), idx(TableEvent)},
	TableEventPtr:               {idx(TableEvent)},
	TableEvent:                  {u16(), str(), coded(codedTypeDefOrRef)},
	TablePropertyMap:            {idx(TableTypeDef), idx(TableProperty)},
	TablePropertyPtr:            {idx(TableProperty)},
	TableProperty:               {u16(), str(), blob()},
	TableMethodSemantics:        {u16(), idx(TableMethodDef), coded(codedHasSemantics)},
	TableMethodImpl:             {idx(TableTypeDef), coded(codedMethodDefOrRef), coded(codedMethodDefOrRef)},
	TableModuleRef:              {str()},
	TableTypeSpec:               {blob()},
	TableImplMap:                {u16(), coded(codedMemberForwarded), str(), idx(TableModuleRef)},
	TableFieldRVA:               {u32(), idx(TableField)},
	TableEncLog:                 {u32(), u32()},
	TableEncMap:                 {u32()},
	TableAssembly:               {u32(), u16(), u16(), u16(), u16(), u32(), blob(), str(), str()},
	TableAssemblyProcessor:      {u32()},
	TableAssemblyOS:             {u32(), u32(), u32()},
	TableAssemblyRef:            {u16(), u16(), u16(), u16(), u32(), blob(), str(), str(), blob()},
	TableAssemblyRefProcessor:   {u32(), idx(TableAssemblyRef)},
	TableAssemblyRefOS:          {u32(), u32(), u32(), idx(TableAssemblyRef)},
	TableFile:                   {u32(), str(), blob()},
	TableExportedType:           {u32(), u32(), str(), str(), coded(codedImplementation)},
	TableManifestResource:       {u32(), u32(), str(), coded(codedImplementation)},
	TableNestedClass:            {idx(TableTypeDef), idx(TableTypeDef)},
	TableGenericParam:           {u16(), u16(), coded(codedTypeOrMethodDef), str()},
	TableMethodSpec:             {coded(codedMethodDefOrRef), blob()},
	TableGenericParamConstraint: {idx(TableGenericParam), coded(codedTypeDefOrRef)},
}

// Token is a metadata token: table id in the high byte, 1-based row below.
type Token uint32

// NewToken builds a token from a table and a 1-based row.
func NewToken(t TableID, row uint32) Token {
	return Token(uint32(t)<<24 | row&0x00FFFFFF)
}

// Table returns the table id.
func (t Token) Table() TableID { return TableID(t >> 24) }

// Row returns the 1-based row; zero means nil.
func (t Token) Row() uint32 { return uint32(t) & 0x00FFFFFF }

// IsNil reports whether the token refers to no row.
func (t Token) IsNil() bool { return t.Row() == 0 }
