package discovery

import (
	"strings"

	"go.uber.org/zap"

	"github.com/asklar/McpExtract/metadata"
	"github.com/asklar/McpExtract/universe"
)

// attribute is a matched custom attribute with its decoded arguments.
type attribute struct {
	asm   *universe.Assembly
	ctor  *metadata.AttributeCtor
	value *metadata.AttributeValue
	names []string
}

// find returns the attribute on parent accepted by the earliest rule, or nil.
// Ties go to the first attribute in table order. An undecodable blob leaves
// the attribute matched but without arguments.
func (w *Walker) find(a *universe.Assembly, parent metadata.Token, rules Rules) (*attribute, error) {
	var best *attribute
	var bestRow metadata.CustomAttributeRow
	rank := len(rules)
	for _, ca := range a.File.CustomAttributes(parent) {
		ctor, err := a.File.AttributeCtor(ca)
		if err != nil {
			return nil, err
		}
		i := rules.Match(ctor.Namespace, ctor.Name)
		if i < 0 || i >= rank {
			continue
		}
		rank = i
		best = &attribute{asm: a, ctor: ctor}
		bestRow = ca
		if i == 0 {
			break
		}
	}
	if best == nil {
		return nil, nil
	}

	best.value = &metadata.AttributeValue{}
	blob, err := a.File.Blob(bestRow.Value)
	if err == nil {
		var v *metadata.AttributeValue
		if v, err = metadata.DecodeAttribute(blob, best.ctor.Sig, a.Enums()); err == nil {
			best.value = v
		}
	}
	if err != nil {
		w.log.Warn("ignoring undecodable attribute arguments",
			zap.String("attribute", best.ctor.FullName()),
			zap.Error(err))
	}
	return best, nil
}

// named returns a named argument, matching the name case-insensitively.
func (at *attribute) named(name string) (any, bool) {
	if v, ok := at.value.Named(name); ok {
		return v, true
	}
	for _, n := range at.value.NamedArgs {
		if strings.EqualFold(n.Name, name) {
			return n.Value, true
		}
	}
	return nil, false
}

// ctorArg returns the fixed argument whose declared constructor parameter
// is called name.
func (at *attribute) ctorArg(name string) (any, bool) {
	if at.names == nil {
		at.names = at.asm.CtorParamNames(at.ctor)
	}
	for i, n := range at.names {
		if i < len(at.value.FixedArgs) && strings.EqualFold(n, name) {
			return at.value.FixedArgs[i], true
		}
	}
	return nil, false
}

// text resolves a string argument: named argument, then the constructor
// argument of the same name, then the fixed argument at index.
func (at *attribute) text(name string, index int) string {
	if at == nil {
		return ""
	}
	if v, ok := at.named(name); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if v, ok := at.ctorArg(name); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if index >= 0 && index < len(at.value.FixedArgs) {
		if s, ok := at.value.FixedArgs[index].(string); ok {
			return s
		}
	}
	return ""
}

func (at *attribute) flag(name string) *bool {
	if at == nil {
		return nil
	}
	v, ok := at.named(name)
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}
