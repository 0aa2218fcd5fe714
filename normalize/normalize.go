// Package normalize reduces universe types to canonical type descriptors.
//
// Normalization is total: every type maps to some descriptor and there is no
// error path. Unresolved types keep the shape recorded in their signature and
// fall back to their short name.
package normalize

import (
	"strings"

	mcpextract "github.com/asklar/McpExtract"
	"github.com/asklar/McpExtract/universe"
)

// Canonical names of the primitive types, by full name.
var primitives = map[string]string{
	"System.String":   "string",
	"System.Int32":    "int",
	"System.Int64":    "long",
	"System.Double":   "double",
	"System.Single":   "float",
	"System.Boolean":  "bool",
	"System.DateTime": "DateTime",
	"System.Guid":     "Guid",
	"System.Object":   "object",
	"System.Void":     "void",
}

// collections are generic definitions normalized as arrays of their argument.
var collections = map[string]bool{
	"System.Collections.Generic.List`1":        true,
	"System.Collections.Generic.IList`1":       true,
	"System.Collections.Generic.ICollection`1": true,
	"System.Collections.Generic.IEnumerable`1": true,
}

const (
	nullableName = "System.Nullable`1"
	taskName     = "System.Threading.Tasks.Task"
	valueTask    = "System.Threading.Tasks.ValueTask"
)

// maxDepth bounds recursion through pathological generic nesting.
const maxDepth = 32

// Type returns the canonical descriptor of t.
func Type(t *universe.Type) mcpextract.TypeDescriptor {
	return normalize(t, 0)
}

func normalize(t *universe.Type, depth int) mcpextract.TypeDescriptor {
	if t == nil || depth > maxDepth {
		return mcpextract.TypeDescriptor{TypeName: "object", IsNullable: true}
	}

	switch t.Kind {
	case universe.KindByRef:
		return normalize(t.Elem, depth+1)
	case universe.KindArray:
		elem := normalize(t.Elem, depth+1)
		return mcpextract.TypeDescriptor{
			TypeName:    "array",
			IsNullable:  true,
			IsArray:     true,
			ElementType: &elem,
			DisplayName: Display(t),
		}
	case universe.KindPointer:
		return mcpextract.TypeDescriptor{TypeName: normalize(t.Elem, depth+1).TypeName + "*", DisplayName: Display(t)}
	case universe.KindGenericParam:
		return mcpextract.TypeDescriptor{TypeName: t.Name, IsNullable: true, DisplayName: t.Name}
	}

	full := t.FullName()
	if IsAsync(t) {
		if t.IsGeneric() {
			return normalize(t.Args[0], depth+1)
		}
		v := mcpextract.Void
		v.DisplayName = Display(t)
		return v
	}

	if full == nullableName && len(t.Args) == 1 {
		d := normalize(t.Args[0], depth+1)
		d.IsNullable = true
		d.DisplayName = Display(t)
		return d
	}

	d := mcpextract.TypeDescriptor{IsNullable: !t.ValueType, DisplayName: Display(t)}
	if collections[full] && len(t.Args) == 1 {
		elem := normalize(t.Args[0], depth+1)
		d.TypeName = "array"
		d.IsArray = true
		d.ElementType = &elem
		return d
	}

	if t.IsGeneric() {
		d.TypeName = genericName(t, depth)
		return d
	}
	if name, ok := primitives[full]; ok {
		d.TypeName = name
		return d
	}
	d.TypeName = baseName(t)
	return d
}

// IsAsync reports whether t is Task, ValueTask or a single-argument
// instantiation of either.
func IsAsync(t *universe.Type) bool {
	if t == nil || t.Kind != universe.KindNamed {
		return false
	}
	switch t.FullName() {
	case taskName, valueTask:
		return !t.IsGeneric()
	case taskName + "`1", valueTask + "`1":
		return len(t.Args) == 1
	}
	return false
}

// genericName renders an uncovered generic type as "Base<A, B>".
func genericName(t *universe.Type, depth int) string {
	var b strings.Builder
	b.WriteString(baseName(t))
	b.WriteByte('<')
	for i, a := range t.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(argName(normalize(a, depth+1)))
	}
	b.WriteByte('>')
	return b.String()
}

func argName(d mcpextract.TypeDescriptor) string {
	if d.IsArray && d.ElementType != nil {
		return argName(*d.ElementType) + "[]"
	}
	return d.TypeName
}

// baseName is the short name without the generic arity suffix.
func baseName(t *universe.Type) string {
	name := t.ShortName()
	if i := strings.IndexByte(name, '`'); i >= 0 {
		name = name[:i]
	}
	return name
}

// IsNullableValue reports whether t, after unwrapping by-refs, is a
// Nullable<T> instantiation. Reference types are nullable only by convention
// and do not count.
func IsNullableValue(t *universe.Type) bool {
	for t != nil && t.Kind == universe.KindByRef {
		t = t.Elem
	}
	return t != nil && t.Kind == universe.KindNamed && t.FullName() == nullableName && len(t.Args) == 1
}
