package metadatatest

import (
	"github.com/asklar/McpExtract/metadata"
	"github.com/asklar/McpExtract/metadata/internal/binary"
)

// Prim encodes a primitive element type such as ElementI4 or ElementString.
func Prim(et metadata.ElementType) []byte {
	return []byte{byte(et)}
}

// Class encodes a reference type. h must be a TypeDef, TypeRef or TypeSpec.
func Class(h Handle) []byte {
	return typeDefOrRef(metadata.ElementClass, h)
}

// ValueType encodes a value type. h must be a TypeDef, TypeRef or TypeSpec.
func ValueType(h Handle) []byte {
	return typeDefOrRef(metadata.ElementValueType, h)
}

func typeDefOrRef(et metadata.ElementType, h Handle) []byte {
	w := binary.NewWriter()
	w.Byte(byte(et))
	w.WriteCompressedU32(encode(typeDefOrRefTags, 2, h))
	return w.Bytes()
}

// SZArray encodes a single-dimensional zero-based array of elem.
func SZArray(elem []byte) []byte {
	return append([]byte{byte(metadata.ElementSZArray)}, elem...)
}

// GenericInst encodes an instantiation of def, which is a Class or ValueType encoding.
func GenericInst(def []byte, args ...[]byte) []byte {
	w := binary.NewWriter()
	w.Byte(byte(metadata.ElementGenericInst))
	w.WriteBytes(def)
	w.WriteCompressedU32(uint32(len(args)))
	for _, a := range args {
		w.WriteBytes(a)
	}
	return w.Bytes()
}

// Var encodes a type generic parameter reference.
func Var(n uint32) []byte {
	w := binary.NewWriter()
	w.Byte(byte(metadata.ElementVar))
	w.WriteCompressedU32(n)
	return w.Bytes()
}

// MVar encodes a method generic parameter reference.
func MVar(n uint32) []byte {
	w := binary.NewWriter()
	w.Byte(byte(metadata.ElementMVar))
	w.WriteCompressedU32(n)
	return w.Bytes()
}

// MethodSig encodes a non-generic method signature.
func MethodSig(instance bool, ret []byte, params ...[]byte) []byte {
	w := binary.NewWriter()
	var flags byte
	if instance {
		flags |= metadata.SigHasThis
	}
	w.Byte(flags)
	w.WriteCompressedU32(uint32(len(params)))
	w.WriteBytes(ret)
	for _, p := range params {
		w.WriteBytes(p)
	}
	return w.Bytes()
}

// FieldSig encodes a field signature.
func FieldSig(t []byte) []byte {
	return append([]byte{metadata.SigField}, t...)
}

// AttrBlob builds a custom attribute value blob (II.23.3).
type AttrBlob struct {
	fixed *binary.Writer
	named *binary.Writer
	count uint16
}

// Attr starts an attribute blob.
func Attr() *AttrBlob {
	return &AttrBlob{fixed: binary.NewWriter(), named: binary.NewWriter()}
}

// String appends a string fixed argument.
func (a *AttrBlob) String(s string) *AttrBlob {
	a.fixed.WriteSerString(s)
	return a
}

// Null appends a null string or type fixed argument.
func (a *AttrBlob) Null() *AttrBlob {
	a.fixed.WriteNullSerString()
	return a
}

// Bool appends a bool fixed argument.
func (a *AttrBlob) Bool(v bool) *AttrBlob {
	a.fixed.Byte(boolByte(v))
	return a
}

// I4 appends an int32 fixed argument, also used for int-backed enums.
func (a *AttrBlob) I4(v int32) *AttrBlob {
	a.fixed.WriteU32(uint32(v))
	return a
}

// Raw appends pre-encoded fixed argument bytes.
func (a *AttrBlob) Raw(b []byte) *AttrBlob {
	a.fixed.WriteBytes(b)
	return a
}

func (a *AttrBlob) namedHeader(property bool, typ []byte, name string) {
	a.count++
	if property {
		a.named.Byte(byte(metadata.ElementProperty))
	} else {
		a.named.Byte(byte(metadata.ElementField))
	}
	a.named.WriteBytes(typ)
	a.named.WriteSerString(name)
}

// NamedString appends a named string property (or field) argument.
func (a *AttrBlob) NamedString(property bool, name, value string) *AttrBlob {
	a.namedHeader(property, Prim(metadata.ElementString), name)
	a.named.WriteSerString(value)
	return a
}

// NamedBool appends a named bool argument.
func (a *AttrBlob) NamedBool(property bool, name string, v bool) *AttrBlob {
	a.namedHeader(property, Prim(metadata.ElementBoolean), name)
	a.named.Byte(boolByte(v))
	return a
}

// NamedI4 appends a named int32 argument.
func (a *AttrBlob) NamedI4(property bool, name string, v int32) *AttrBlob {
	a.namedHeader(property, Prim(metadata.ElementI4), name)
	a.named.WriteU32(uint32(v))
	return a
}

// NamedEnum appends a named enum argument whose type is given by its
// serialized name; the value is written with the width of underlying.
func (a *AttrBlob) NamedEnum(property bool, name, enumType string, underlying metadata.ElementType, v uint64) *AttrBlob {
	w := binary.NewWriter()
	w.Byte(byte(metadata.ElementEnum))
	w.WriteSerString(enumType)
	a.namedHeader(property, w.Bytes(), name)
	switch underlying {
	case metadata.ElementI1, metadata.ElementU1, metadata.ElementBoolean:
		a.named.Byte(byte(v))
	case metadata.ElementI2, metadata.ElementU2, metadata.ElementChar:
		a.named.WriteU16(uint16(v))
	case metadata.ElementI8, metadata.ElementU8:
		a.named.WriteU64(v)
	default:
		a.named.WriteU32(uint32(v))
	}
	return a
}

// NamedBoxedString appends a named object argument holding a boxed string.
func (a *AttrBlob) NamedBoxedString(property bool, name, value string) *AttrBlob {
	a.namedHeader(property, Prim(metadata.ElementBoxed), name)
	a.named.Byte(byte(metadata.ElementString))
	a.named.WriteSerString(value)
	return a
}

// Bytes returns the encoded blob.
func (a *AttrBlob) Bytes() []byte {
	w := binary.NewWriter()
	w.WriteU16(0x0001)
	w.WriteBytes(a.fixed.Bytes())
	w.WriteU16(a.count)
	w.WriteBytes(a.named.Bytes())
	return w.Bytes()
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// I4 encodes an int32 constant value for ParamBuilder.Default.
func I4(v int32) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(v))
	return w.Bytes()
}

// UTF16 encodes a string constant value for ParamBuilder.Default.
func UTF16(s string) []byte {
	w := binary.NewWriter()
	for _, r := range s {
		w.WriteU16(uint16(r))
	}
	return w.Bytes()
}
