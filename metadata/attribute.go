package metadata

import (
	"fmt"

	"github.com/asklar/McpExtract/errors"
	"github.com/asklar/McpExtract/metadata/internal/binary"
)

// TypeName is the value of a System.Type attribute argument: a serialized,
// possibly assembly-qualified, type name.
type TypeName string

// NamedArg is a field or property assignment in a custom attribute.
type NamedArg struct {
	Value   any
	Name    string
	IsField bool
}

// AttributeValue is a decoded custom attribute blob (II.23.3).
type AttributeValue struct {
	FixedArgs []any
	NamedArgs []NamedArg
}

// Named returns the value of the named argument name, if present.
func (v *AttributeValue) Named(name string) (any, bool) {
	for _, n := range v.NamedArgs {
		if n.Name == name {
			return n.Value, true
		}
	}
	return nil, false
}

// EnumResolver reports the underlying primitive type of enum types met while
// decoding attribute arguments. A zero ElementType means unknown; int32 is assumed.
type EnumResolver interface {
	EnumUnderlying(t *SigType) ElementType
	EnumUnderlyingByName(name string) ElementType
}

type defaultEnums struct{}

func (defaultEnums) EnumUnderlying(*SigType) ElementType     { return 0 }
func (defaultEnums) EnumUnderlyingByName(string) ElementType { return 0 }

type attrDecoder struct {
	r     *binary.Reader
	enums EnumResolver
}

func attrError(r *binary.Reader, err error, format string, args ...any) error {
	return errors.New(errors.PhaseRead, errors.KindMalformedBinary).
		Table("custom attribute").
		Offset(int64(r.Position())).
		Detail(format, args...).
		Cause(err).
		Build()
}

// DecodeAttribute decodes a custom attribute value blob against the signature
// of its constructor. enums may be nil.
func DecodeAttribute(blob []byte, ctor *MethodSig, enums EnumResolver) (*AttributeValue, error) {
	if enums == nil {
		enums = defaultEnums{}
	}
	d := &attrDecoder{r: binary.NewReader(blob), enums: enums}
	v := &AttributeValue{}
	if len(blob) == 0 {
		return v, nil
	}

	prolog, err := d.r.ReadU16()
	if err != nil || prolog != 0x0001 {
		return nil, attrError(d.r, err, "missing prolog")
	}

	for i, p := range ctor.Params {
		arg, err := d.fixedArg(p)
		if err != nil {
			return nil, attrError(d.r, err, "fixed argument %d", i)
		}
		v.FixedArgs = append(v.FixedArgs, arg)
	}

	if d.r.Len() == 0 {
		return v, nil
	}
	n, err := d.r.ReadU16()
	if err != nil {
		return nil, attrError(d.r, err, "named argument count")
	}
	for i := 0; i < int(n); i++ {
		na, err := d.namedArg()
		if err != nil {
			return nil, attrError(d.r, err, "named argument %d", i)
		}
		v.NamedArgs = append(v.NamedArgs, na)
	}
	return v, nil
}

func (d *attrDecoder) fixedArg(t *SigType) (any, error) {
	switch t.Elem {
	case ElementString:
		return d.serString()
	case ElementObject:
		ft, err := d.fieldOrPropType()
		if err != nil {
			return nil, err
		}
		return d.valueOf(ft)
	case ElementClass:
		// System.Type is the only class allowed in attribute arguments.
		s, err := d.serString()
		if err != nil || s == nil {
			return s, err
		}
		return TypeName(s.(string)), nil
	case ElementValueType:
		return d.primitive(orInt32(d.enums.EnumUnderlying(t)))
	case ElementSZArray:
		count, err := d.r.ReadU32()
		if err != nil {
			return nil, err
		}
		if count == 0xFFFFFFFF {
			return nil, nil
		}
		out := make([]any, 0, min(count, 1024))
		for i := uint32(0); i < count; i++ {
			e, err := d.fixedArg(t.Inner)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	default:
		return d.primitive(t.Elem)
	}
}

func orInt32(et ElementType) ElementType {
	if et == 0 {
		return ElementI4
	}
	return et
}

func (d *attrDecoder) serString() (any, error) {
	s, ok, err := d.r.ReadSerString()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (d *attrDecoder) primitive(et ElementType) (any, error) {
	r := d.r
	switch et {
	case ElementBoolean:
		b, err := r.ReadByte()
		return b != 0, err
	case ElementChar:
		v, err := r.ReadU16()
		return string(rune(v)), err
	case ElementI1:
		b, err := r.ReadByte()
		return int8(b), err
	case ElementU1:
		return r.ReadByte()
	case ElementI2:
		v, err := r.ReadU16()
		return int16(v), err
	case ElementU2:
		return r.ReadU16()
	case ElementI4:
		v, err := r.ReadU32()
		return int32(v), err
	case ElementU4:
		return r.ReadU32()
	case ElementI8:
		v, err := r.ReadU64()
		return int64(v), err
	case ElementU8:
		return r.ReadU64()
	case ElementR4:
		return r.ReadF32()
	case ElementR8:
		return r.ReadF64()
	case ElementString:
		return d.serString()
	}
	return nil, fmt.Errorf("element type %#x not allowed in attribute", byte(et))
}

type fieldType struct {
	inner    *fieldType
	enumName string
	elem     ElementType
}

func (d *attrDecoder) fieldOrPropType() (*fieldType, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	ft := &fieldType{elem: ElementType(b)}
	switch ft.elem {
	case ElementSZArray:
		if ft.inner, err = d.fieldOrPropType(); err != nil {
			return nil, err
		}
	case ElementEnum:
		s, ok, err := d.r.ReadSerString()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("enum argument without type name")
		}
		ft.enumName = s
	}
	return ft, nil
}

func (d *attrDecoder) valueOf(ft *fieldType) (any, error) {
	switch ft.elem {
	case ElementSystemType:
		s, err := d.serString()
		if err != nil || s == nil {
			return s, err
		}
		return TypeName(s.(string)), nil
	case ElementBoxed:
		inner, err := d.fieldOrPropType()
		if err != nil {
			return nil, err
		}
		return d.valueOf(inner)
	case ElementEnum:
		return d.primitive(orInt32(d.enums.EnumUnderlyingByName(ft.enumName)))
	case ElementSZArray:
		count, err := d.r.ReadU32()
		if err != nil {
			return nil, err
		}
		if count == 0xFFFFFFFF {
			return nil, nil
		}
		out := make([]any, 0, min(count, 1024))
		for i := uint32(0); i < count; i++ {
			e, err := d.valueOf(ft.inner)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	default:
		return d.primitive(ft.elem)
	}
}

func (d *attrDecoder) namedArg() (NamedArg, error) {
	kind, err := d.r.ReadByte()
	if err != nil {
		return NamedArg{}, err
	}
	if ElementType(kind) != ElementField && ElementType(kind) != ElementProperty {
		return NamedArg{}, fmt.Errorf("named argument kind %#x", kind)
	}
	ft, err := d.fieldOrPropType()
	if err != nil {
		return NamedArg{}, err
	}
	name, ok, err := d.r.ReadSerString()
	if err != nil {
		return NamedArg{}, err
	}
	if !ok {
		return NamedArg{}, fmt.Errorf("named argument without name")
	}
	val, err := d.valueOf(ft)
	if err != nil {
		return NamedArg{}, err
	}
	return NamedArg{Name: name, Value: val, IsField: ElementType(kind) == ElementField}, nil
}

// ConstantValue decodes the value blob of a Constant row (II.22.9).
func (f *File) ConstantValue(c ConstantRow) (any, error) {
	b, err := f.Blob(c.Value)
	if err != nil {
		return nil, err
	}
	if c.Type == ElementClass {
		return nil, nil // null reference
	}
	if c.Type == ElementString {
		u := make([]rune, 0, len(b)/2)
		for i := 0; i+1 < len(b); i += 2 {
			u = append(u, rune(uint16(b[i])|uint16(b[i+1])<<8))
		}
		return decodeUTF16(u), nil
	}
	d := &attrDecoder{r: binary.NewReader(b), enums: defaultEnums{}}
	return d.primitive(c.Type)
}

// decodeUTF16 joins surrogate pairs of a little-endian UTF-16 sequence.
func decodeUTF16(units []rune) string {
	out := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		c := units[i]
		if c >= 0xD800 && c < 0xDC00 && i+1 < len(units) {
			if n := units[i+1]; n >= 0xDC00 && n < 0xE000 {
				out = append(out, (c-0xD800)<<10+(n-0xDC00)+0x10000)
				i++
				continue
			}
		}
		out = append(out, c)
	}
	return string(out)
}

// AttributeCtor is the constructor referenced by a CustomAttribute row.
type AttributeCtor struct {
	Sig *MethodSig
	// Method is the MethodDef or MemberRef token of the constructor.
	Method Token
	// Type is the TypeDef, TypeRef or TypeSpec token of the attribute class.
	Type      Token
	Namespace string
	Name      string
}

// FullName returns the attribute class name with its namespace.
func (c *AttributeCtor) FullName() string {
	if c.Namespace == "" {
		return c.Name
	}
	return c.Namespace + "." + c.Name
}

// AttributeCtor resolves the constructor and class of a custom attribute.
func (f *File) AttributeCtor(ca CustomAttributeRow) (*AttributeCtor, error) {
	c := &AttributeCtor{Method: ca.Type}
	var err error
	switch ca.Type.Table() {
	case TableMethodDef:
		c.Sig, err = f.MethodDefSignature(ca.Type.Row())
		if owner := f.MethodOwner(ca.Type.Row()); owner != 0 {
			c.Type = NewToken(TableTypeDef, owner)
		}
	case TableMemberRef:
		mr := f.MemberRef(ca.Type.Row())
		c.Sig, err = f.MemberRefMethodSignature(ca.Type.Row())
		c.Type = mr.Class
	default:
		return nil, errors.Malformed("CustomAttribute", fmt.Sprintf("constructor token %#x", uint32(ca.Type)), nil)
	}
	if err != nil {
		return nil, err
	}
	c.Namespace, c.Name = f.TypeName(c.Type)
	return c, nil
}

// TypeName returns the namespace and name of a TypeDef, TypeRef or TypeSpec
// token. Nested types are joined with '+' under the outermost namespace; a
// generic instantiation names its generic definition.
func (f *File) TypeName(tok Token) (string, string) {
	switch tok.Table() {
	case TableTypeDef:
		f.indexOnce()
		return f.typeDefPath(tok.Row())
	case TableTypeRef:
		return f.typeRefPath(tok.Row())
	case TableTypeSpec:
		st, err := f.TypeSpec(tok.Row())
		if err != nil {
			return "", ""
		}
		if st.Elem == ElementGenericInst {
			st = st.Inner
		}
		if st.Elem == ElementClass || st.Elem == ElementValueType {
			return f.TypeName(st.Type)
		}
	}
	return "", ""
}

func (f *File) typeRefPath(row uint32) (string, string) {
	tr := f.TypeRef(row)
	ns, name := tr.Namespace, tr.Name
	seen := map[uint32]bool{row: true}
	for scope := tr.Scope; scope.Table() == TableTypeRef && !seen[scope.Row()]; {
		seen[scope.Row()] = true
		outer := f.TypeRef(scope.Row())
		name = outer.Name + "+" + name
		ns = outer.Namespace
		scope = outer.Scope
	}
	return ns, name
}

// TypeRefScope returns the resolution scope of the outermost TypeRef enclosing row.
func (f *File) TypeRefScope(row uint32) Token {
	scope := f.TypeRef(row).Scope
	seen := map[uint32]bool{row: true}
	for scope.Table() == TableTypeRef && !seen[scope.Row()] {
		seen[scope.Row()] = true
		scope = f.TypeRef(scope.Row()).Scope
	}
	return scope
}
