package metadata

// TableID identifies an ECMA-335 metadata table (II.22).
type TableID uint8

const (
	TableModule                 TableID = 0x00
	TableTypeRef                TableID = 0x01
	TableTypeDef                TableID = 0x02
	TableFieldPtr               TableID = 0x03
	TableField                  TableID = 0x04
	TableMethodPtr              TableID = 0x05
	TableMethodDef              TableID = 0x06
	TableParamPtr               TableID = 0x07
	TableParam                  TableID = 0x08
	TableInterfaceImpl          TableID = 0x09
	TableMemberRef              TableID = 0x0A
	TableConstant               TableID = 0x0B
	TableCustomAttribute        TableID = 0x0C
	TableFieldMarshal           TableID = 0x0D
	TableDeclSecurity           TableID = 0x0E
	TableClassLayout            TableID = 0x0F
	TableFieldLayout            TableID = 0x10
	TableStandAloneSig          TableID = 0x11
	TableEventMap               TableID = 0x12
	TableEventPtr               TableID = 0x13
	TableEvent                  TableID = 0x14
	TablePropertyMap            TableID = 0x15
	TablePropertyPtr            TableID = 0x16
	TableProperty               TableID = 0x17
	TableMethodSemantics        TableID = 0x18
	TableMethodImpl             TableID = 0x19
	TableModuleRef              TableID = 0x1A
	TableTypeSpec               TableID = 0x1B
	TableImplMap                TableID = 0x1C
	TableFieldRVA               TableID = 0x1D
	TableEncLog                 TableID = 0x1E
	TableEncMap                 TableID = 0x1F
	TableAssembly               TableID = 0x20
	TableAssemblyProcessor      TableID = 0x21
	TableAssemblyOS             TableID = 0x22
	TableAssemblyRef            TableID = 0x23
	TableAssemblyRefProcessor   TableID = 0x24
	TableAssemblyRefOS          TableID = 0x25
	TableFile                   TableID = 0x26
	TableExportedType           TableID = 0x27
	TableManifestResource       TableID = 0x28
	TableNestedClass            TableID = 0x29
	TableGenericParam           TableID = 0x2A
	TableMethodSpec             TableID = 0x2B
	TableGenericParamConstraint TableID = 0x2C

	tableCount = 0x2D
)

// ElementType is a signature element type code (II.23.1.16).
type ElementType byte

const (
	ElementEnd         ElementType = 0x00
	ElementVoid        ElementType = 0x01
	ElementBoolean     ElementType = 0x02
	ElementChar        ElementType = 0x03
	ElementI1          ElementType = 0x04
	ElementU1          ElementType = 0x05
	ElementI2          ElementType = 0x06
	ElementU2          ElementType = 0x07
	ElementI4          ElementType = 0x08
	ElementU4          ElementType = 0x09
	ElementI8          ElementType = 0x0A
	ElementU8          ElementType = 0x0B
	ElementR4          ElementType = 0x0C
	ElementR8          ElementType = 0x0D
	ElementString      ElementType = 0x0E
	ElementPtr         ElementType = 0x0F
	ElementByRef       ElementType = 0x10
	ElementValueType   ElementType = 0x11
	ElementClass       ElementType = 0x12
	ElementVar         ElementType = 0x13
	ElementArray       ElementType = 0x14
	ElementGenericInst ElementType = 0x15
	ElementTypedByRef  ElementType = 0x16
	ElementI           ElementType = 0x18
	ElementU           ElementType = 0x19
	ElementFnPtr       ElementType = 0x1B
	ElementObject      ElementType = 0x1C
	ElementSZArray     ElementType = 0x1D
	ElementMVar        ElementType = 0x1E
	ElementCModReqd    ElementType = 0x1F
	ElementCModOpt     ElementType = 0x20
	ElementInternal    ElementType = 0x21
	ElementSentinel    ElementType = 0x41
	ElementPinned      ElementType = 0x45

	// Custom attribute encodings (II.23.3).
	ElementSystemType ElementType = 0x50
	ElementBoxed      ElementType = 0x51
	ElementField      ElementType = 0x53
	ElementProperty   ElementType = 0x54
	ElementEnum       ElementType = 0x55
)

// Signature calling convention flags (II.23.2.1).
const (
	SigHasThis      byte = 0x20
	SigExplicitThis byte = 0x40
	SigGeneric      byte = 0x10
	SigVarArg       byte = 0x05
	SigField        byte = 0x06
	SigProperty     byte = 0x08
	sigKindMask     byte = 0x0F
)

// Method attributes (II.23.1.10).
const (
	MethodMemberAccessMask uint16 = 0x0007
	MethodPublic           uint16 = 0x0006
	MethodStatic           uint16 = 0x0010
	MethodVirtual          uint16 = 0x0040
	MethodSpecialName      uint16 = 0x0800
)

// Param attributes (II.23.1.13).
const (
	ParamIn         uint16 = 0x0001
	ParamOut        uint16 = 0x0002
	ParamOptional   uint16 = 0x0010
	ParamHasDefault uint16 = 0x1000
)

// Type attributes (II.23.1.15).
const (
	TypeVisibilityMask uint32 = 0x00000007
	TypePublic         uint32 = 0x00000001
	TypeNestedPublic   uint32 = 0x00000002
	TypeInterface      uint32 = 0x00000020
	TypeAbstract       uint32 = 0x00000080
	TypeSealed         uint32 = 0x00000100
)

// Field attributes (II.23.1.5).
const (
	FieldStatic uint16 = 0x0010
)

// Heap size flags in the #~ stream header.
const (
	heapStringsWide byte = 0x01
	heapGUIDWide    byte = 0x02
	heapBlobWide    byte = 0x04
	heapExtraData   byte = 0x40
)

// metadataSignature is "BSJB" read as a little-endian uint32.
const metadataSignature uint32 = 0x424A5342

// comDescriptorIndex is the data directory slot of the CLI header.
const comDescriptorIndex = 14
