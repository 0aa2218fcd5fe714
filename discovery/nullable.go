package discovery

import (
	"github.com/asklar/McpExtract/metadata"
	"github.com/asklar/McpExtract/universe"
)

const (
	nullableAttr        = "System.Runtime.CompilerServices.NullableAttribute"
	nullableContextAttr = "System.Runtime.CompilerServices.NullableContextAttribute"

	// annotatedNullable is the flag of a reference declared with '?'.
	annotatedNullable = 2
)

// nullableContext answers whether a parameter's reference type was declared
// nullable in source, from compiler emitted nullability attributes. A
// parameter without its own attribute inherits the nearest context of its
// method or declaring types.
type nullableContext struct {
	asm      *universe.Assembly
	fallback byte
}

func newNullableContext(a *universe.Assembly, typeRow, methodRow uint32) *nullableContext {
	nc := &nullableContext{asm: a}
	if b, ok := nc.flag(metadata.NewToken(metadata.TableMethodDef, methodRow), nullableContextAttr); ok {
		nc.fallback = b
		return nc
	}
	seen := make(map[uint32]bool)
	for row := typeRow; row != 0 && !seen[row]; row = a.File.EnclosingType(row) {
		seen[row] = true
		if b, ok := nc.flag(metadata.NewToken(metadata.TableTypeDef, row), nullableContextAttr); ok {
			nc.fallback = b
			break
		}
	}
	return nc
}

// param reports whether the top-level type of the parameter is annotated nullable.
func (nc *nullableContext) param(tok metadata.Token) bool {
	if b, ok := nc.flag(tok, nullableAttr); ok {
		return b == annotatedNullable
	}
	return nc.fallback == annotatedNullable
}

// flag returns the first nullability byte of the named attribute on parent.
// Undecodable attributes are treated as absent.
func (nc *nullableContext) flag(parent metadata.Token, name string) (byte, bool) {
	f := nc.asm.File
	for _, ca := range f.CustomAttributes(parent) {
		ctor, err := f.AttributeCtor(ca)
		if err != nil || ctor.FullName() != name {
			continue
		}
		blob, err := f.Blob(ca.Value)
		if err != nil {
			return 0, false
		}
		v, err := metadata.DecodeAttribute(blob, ctor.Sig, nil)
		if err != nil || len(v.FixedArgs) == 0 {
			return 0, false
		}
		switch arg := v.FixedArgs[0].(type) {
		case uint8:
			return arg, true
		case []any:
			if len(arg) > 0 {
				if b, ok := arg[0].(uint8); ok {
					return b, true
				}
			}
		}
		return 0, false
	}
	return 0, false
}
