package metadata

import (
	"fmt"

	"github.com/asklar/McpExtract/errors"
	"github.com/asklar/McpExtract/metadata/internal/binary"
)

// maxSigDepth bounds nesting of signature types.
const maxSigDepth = 64

// SigType is a decoded signature type (II.23.2.12).
//
//	Class, ValueType:  Type holds the TypeDef/TypeRef/TypeSpec token
//	SZArray, Ptr, ByRef: Inner is the element
//	Array:             Inner is the element, Number the rank
//	GenericInst:       Inner is the Class/ValueType definition, Args the arguments
//	Var, MVar:         Number is the generic parameter index
//	FnPtr:             Method is the function pointer signature
type SigType struct {
	Inner  *SigType
	Method *MethodSig
	Args   []*SigType
	Type   Token
	Number uint32
	Elem   ElementType
}

// MethodSig is a decoded method signature (II.23.2.1-3).
type MethodSig struct {
	Return       *SigType
	Params       []*SigType
	GenericCount uint32
	Flags        byte
}

// HasThis reports whether the signature is for an instance method.
func (m *MethodSig) HasThis() bool { return m.Flags&SigHasThis != 0 }

func sigError(what string, r *binary.Reader, err error) error {
	return errors.New(errors.PhaseRead, errors.KindMalformedBinary).
		Table("signature").
		Offset(int64(r.Position())).
		Detail("%s", what).
		Cause(err).
		Build()
}

// ParseMethodSig decodes a MethodDefSig, MethodRefSig or StandAloneMethodSig blob.
func ParseMethodSig(blob []byte) (*MethodSig, error) {
	r := binary.NewReader(blob)
	return readMethodSig(r, 0)
}

func readMethodSig(r *binary.Reader, depth int) (*MethodSig, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return nil, sigError("calling convention", r, err)
	}
	kind := flags & sigKindMask
	if kind == SigField || kind == SigProperty {
		return nil, sigError(fmt.Sprintf("calling convention %#x is not a method", flags), r, nil)
	}
	m := &MethodSig{Flags: flags}
	if flags&SigGeneric != 0 {
		if m.GenericCount, err = r.ReadCompressedU32(); err != nil {
			return nil, sigError("generic parameter count", r, err)
		}
	}
	count, err := r.ReadCompressedU32()
	if err != nil {
		return nil, sigError("parameter count", r, err)
	}
	if m.Return, err = readType(r, depth+1); err != nil {
		return nil, err
	}
	m.Params = make([]*SigType, 0, min(count, 64))
	for i := uint32(0); i < count; i++ {
		if peekElem(r) == ElementSentinel {
			_, _ = r.ReadByte()
		}
		p, err := readType(r, depth+1)
		if err != nil {
			return nil, err
		}
		m.Params = append(m.Params, p)
	}
	return m, nil
}

// ParseFieldSig decodes a FieldSig blob.
func ParseFieldSig(blob []byte) (*SigType, error) {
	r := binary.NewReader(blob)
	lead, err := r.ReadByte()
	if err != nil {
		return nil, sigError("field signature", r, err)
	}
	if lead&sigKindMask != SigField {
		return nil, sigError(fmt.Sprintf("lead byte %#x is not a field", lead), r, nil)
	}
	return readType(r, 0)
}

// ParseTypeSig decodes a TypeSpec blob.
func ParseTypeSig(blob []byte) (*SigType, error) {
	return readType(binary.NewReader(blob), 0)
}

func peekElem(r *binary.Reader) ElementType {
	pos := r.Position()
	b, err := r.ReadByte()
	if err != nil {
		return ElementEnd
	}
	_ = r.Seek(pos)
	return ElementType(b)
}

func readTypeDefOrRef(r *binary.Reader) (Token, error) {
	v, err := r.ReadCompressedU32()
	if err != nil {
		return 0, sigError("TypeDefOrRefOrSpecEncoded", r, err)
	}
	return codedTypeDefOrRef.decode(v), nil
}

func readType(r *binary.Reader, depth int) (*SigType, error) {
	if depth > maxSigDepth {
		return nil, sigError("type nesting too deep", r, nil)
	}
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, sigError("element type", r, err)
		}
		et := ElementType(b)
		switch et {
		case ElementCModReqd, ElementCModOpt:
			if _, err := readTypeDefOrRef(r); err != nil {
				return nil, err
			}
			continue
		case ElementPinned:
			continue
		case ElementVoid, ElementBoolean, ElementChar, ElementI1, ElementU1,
			ElementI2, ElementU2, ElementI4, ElementU4, ElementI8, ElementU8,
			ElementR4, ElementR8, ElementString, ElementObject, ElementI, ElementU,
			ElementTypedByRef:
			return &SigType{Elem: et}, nil
		case ElementClass, ElementValueType:
			tok, err := readTypeDefOrRef(r)
			if err != nil {
				return nil, err
			}
			return &SigType{Elem: et, Type: tok}, nil
		case ElementSZArray, ElementPtr, ElementByRef:
			inner, err := readType(r, depth+1)
			if err != nil {
				return nil, err
			}
			return &SigType{Elem: et, Inner: inner}, nil
		case ElementArray:
			return readArrayShape(r, depth)
		case ElementGenericInst:
			def, err := readType(r, depth+1)
			if err != nil {
				return nil, err
			}
			if def.Elem != ElementClass && def.Elem != ElementValueType {
				return nil, sigError("generic instantiation of a non-nominal type", r, nil)
			}
			n, err := r.ReadCompressedU32()
			if err != nil {
				return nil, sigError("generic argument count", r, err)
			}
			gi := &SigType{Elem: et, Inner: def, Args: make([]*SigType, 0, min(n, 16))}
			for i := uint32(0); i < n; i++ {
				arg, err := readType(r, depth+1)
				if err != nil {
					return nil, err
				}
				gi.Args = append(gi.Args, arg)
			}
			return gi, nil
		case ElementVar, ElementMVar:
			n, err := r.ReadCompressedU32()
			if err != nil {
				return nil, sigError("generic parameter number", r, err)
			}
			return &SigType{Elem: et, Number: n}, nil
		case ElementFnPtr:
			m, err := readMethodSig(r, depth+1)
			if err != nil {
				return nil, err
			}
			return &SigType{Elem: et, Method: m}, nil
		default:
			return nil, sigError(fmt.Sprintf("unexpected element type %#x", b), r, nil)
		}
	}
}

// readArrayShape reads a general array: Type Rank NumSizes Size* NumLoBounds LoBound*.
func readArrayShape(r *binary.Reader, depth int) (*SigType, error) {
	inner, err := readType(r, depth+1)
	if err != nil {
		return nil, err
	}
	rank, err := r.ReadCompressedU32()
	if err != nil {
		return nil, sigError("array rank", r, err)
	}
	nsizes, err := r.ReadCompressedU32()
	if err != nil {
		return nil, sigError("array sizes", r, err)
	}
	for i := uint32(0); i < nsizes; i++ {
		if _, err := r.ReadCompressedU32(); err != nil {
			return nil, sigError("array size", r, err)
		}
	}
	nlo, err := r.ReadCompressedU32()
	if err != nil {
		return nil, sigError("array bounds", r, err)
	}
	for i := uint32(0); i < nlo; i++ {
		if _, err := r.ReadCompressedS32(); err != nil {
			return nil, sigError("array lower bound", r, err)
		}
	}
	return &SigType{Elem: ElementArray, Inner: inner, Number: rank}, nil
}

// MethodDefSignature decodes the signature of a MethodDef row.
func (f *File) MethodDefSignature(row uint32) (*MethodSig, error) {
	b, err := f.Blob(f.MethodDef(row).Signature)
	if err != nil {
		return nil, err
	}
	return ParseMethodSig(b)
}

// MemberRefMethodSignature decodes the signature of a MemberRef row that refers to a method.
func (f *File) MemberRefMethodSignature(row uint32) (*MethodSig, error) {
	b, err := f.Blob(f.MemberRef(row).Signature)
	if err != nil {
		return nil, err
	}
	return ParseMethodSig(b)
}

// FieldSignature decodes the signature of a Field row.
func (f *File) FieldSignature(row uint32) (*SigType, error) {
	b, err := f.Blob(f.Field(row).Signature)
	if err != nil {
		return nil, err
	}
	return ParseFieldSig(b)
}

// TypeSpec decodes the signature of a TypeSpec row.
func (f *File) TypeSpec(row uint32) (*SigType, error) {
	b, err := f.Blob(f.TypeSpecSignature(row))
	if err != nil {
		return nil, err
	}
	return ParseTypeSig(b)
}
