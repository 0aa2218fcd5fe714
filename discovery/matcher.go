package discovery

import (
	"strings"
)

// Matcher decides whether an attribute type is of interest. namespace may be
// empty; name is the metadata name of the attribute type.
type Matcher interface {
	Match(namespace, name string) bool
}

// ExactMatcher matches a full "Namespace.Name" or a bare simple name.
type ExactMatcher struct {
	patterns map[string]bool
}

// NewExactMatcher creates a matcher from a list of patterns. Patterns
// containing a dot match the full name, others the simple name.
func NewExactMatcher(patterns ...string) *ExactMatcher {
	m := &ExactMatcher{patterns: make(map[string]bool, len(patterns))}
	for _, p := range patterns {
		m.patterns[p] = true
	}
	return m
}

// Match returns true if either the full or the simple name is a pattern.
func (m *ExactMatcher) Match(namespace, name string) bool {
	simple := simpleName(name)
	if m.patterns[simple] {
		return true
	}
	if namespace == "" {
		return m.patterns[name]
	}
	return m.patterns[namespace+"."+name]
}

// ContainsMatcher matches names that contain any fragment.
type ContainsMatcher struct {
	fragments []string
}

// NewContainsMatcher creates a matcher from name fragments.
func NewContainsMatcher(fragments ...string) *ContainsMatcher {
	return &ContainsMatcher{fragments: fragments}
}

// Match returns true if the simple or full name contains a fragment.
func (m *ContainsMatcher) Match(namespace, name string) bool {
	full := name
	if namespace != "" {
		full = namespace + "." + name
	}
	for _, f := range m.fragments {
		if strings.Contains(full, f) {
			return true
		}
	}
	return false
}

// Rules is an ordered list of matchers. Earlier matchers win.
type Rules []Matcher

// Match returns the index of the first matcher accepting the name, or -1.
func (r Rules) Match(namespace, name string) int {
	for i, m := range r {
		if m.Match(namespace, name) {
			return i
		}
	}
	return -1
}

func simpleName(name string) string {
	if i := strings.LastIndexByte(name, '+'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Marker fragments of tool methods across SDK versions.
var toolFragments = []string{
	"McpServerToolAttribute",
	"McpServerTool",
	"McpToolAttribute",
	"McpTool",
}

// Marker fragments of tool parameters.
var parameterFragments = []string{
	"McpServerParameterAttribute",
	"McpParameterAttribute",
	"McpParameter",
}

// Description attribute names, tried in order.
var descriptionNames = []string{
	"System.ComponentModel.DescriptionAttribute",
	"DescriptionAttribute",
	"McpDescriptionAttribute",
	"Description",
}

// ToolRules matches tool marker attributes, exact names before fragments.
func ToolRules() Rules {
	return Rules{
		NewExactMatcher(toolFragments...),
		NewContainsMatcher(toolFragments...),
	}
}

// ParameterRules matches parameter marker attributes.
func ParameterRules() Rules {
	return Rules{
		NewExactMatcher(parameterFragments...),
		NewContainsMatcher(parameterFragments...),
	}
}

// DescriptionRules matches dedicated description attributes. Each name is
// its own rule so that earlier names take priority.
func DescriptionRules() Rules {
	r := make(Rules, 0, len(descriptionNames))
	for _, n := range descriptionNames {
		r = append(r, NewExactMatcher(n))
	}
	return r
}
