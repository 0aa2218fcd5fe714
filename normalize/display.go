package normalize

import (
	"strings"

	"github.com/asklar/McpExtract/universe"
)

// keywords are the C# spellings of the built-in types.
var keywords = map[string]string{
	"System.String":  "string",
	"System.Int32":   "int",
	"System.Int64":   "long",
	"System.Int16":   "short",
	"System.Byte":    "byte",
	"System.SByte":   "sbyte",
	"System.UInt16":  "ushort",
	"System.UInt32":  "uint",
	"System.UInt64":  "ulong",
	"System.Double":  "double",
	"System.Single":  "float",
	"System.Decimal": "decimal",
	"System.Boolean": "bool",
	"System.Char":    "char",
	"System.Object":  "object",
	"System.Void":    "void",
}

// Display renders t the way it reads in C# source, e.g. "Task<List<string>>"
// or "int?".
func Display(t *universe.Type) string {
	var b strings.Builder
	display(&b, t, 0)
	return b.String()
}

func display(b *strings.Builder, t *universe.Type, depth int) {
	if t == nil || depth > maxDepth {
		b.WriteString("object")
		return
	}
	switch t.Kind {
	case universe.KindArray:
		display(b, t.Elem, depth+1)
		b.WriteByte('[')
		for i := 1; i < t.Rank; i++ {
			b.WriteByte(',')
		}
		b.WriteByte(']')
		return
	case universe.KindPointer:
		display(b, t.Elem, depth+1)
		b.WriteByte('*')
		return
	case universe.KindByRef:
		display(b, t.Elem, depth+1)
		return
	case universe.KindGenericParam:
		b.WriteString(t.Name)
		return
	}

	full := t.FullName()
	if full == nullableName && len(t.Args) == 1 {
		display(b, t.Args[0], depth+1)
		b.WriteByte('?')
		return
	}
	if kw, ok := keywords[full]; ok && !t.IsGeneric() {
		b.WriteString(kw)
		return
	}
	b.WriteString(baseName(t))
	if !t.IsGeneric() {
		return
	}
	b.WriteByte('<')
	for i, a := range t.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		display(b, a, depth+1)
	}
	b.WriteByte('>')
}
