package mcpextract

// AnalysisResult is the outcome of analyzing one assembly.
type AnalysisResult struct {
	// Tools is never nil; an assembly without tools yields an empty list.
	Tools             []ToolDescriptor `json:"tools" yaml:"tools"`
	ModuleName        string           `json:"moduleName" yaml:"moduleName"`
	ModuleVersion     string           `json:"moduleVersion" yaml:"moduleVersion"`
	ModuleDescription string           `json:"moduleDescription,omitempty" yaml:"moduleDescription,omitempty"`
	ModuleVendor      string           `json:"moduleVendor,omitempty" yaml:"moduleVendor,omitempty"`
	ModuleProductName string           `json:"moduleProductName,omitempty" yaml:"moduleProductName,omitempty"`
	// TargetFramework is the target framework marker, empty when absent.
	TargetFramework string `json:"targetFramework,omitempty" yaml:"targetFramework,omitempty"`
}

// ToolDescriptor is one discovered tool method.
type ToolDescriptor struct {
	ReturnType  TypeDescriptor        `json:"returnType" yaml:"returnType"`
	Parameters  []ParameterDescriptor `json:"parameters" yaml:"parameters"`
	Name        string                `json:"name" yaml:"name"`
	Description string                `json:"description" yaml:"description"`
	MethodName  string                `json:"methodName" yaml:"methodName"`
	ClassName   string                `json:"className" yaml:"className"`

	// Optional hints copied from the marker attribute.
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	ReadOnly    *bool  `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	Destructive *bool  `json:"destructive,omitempty" yaml:"destructive,omitempty"`
	Idempotent  *bool  `json:"idempotent,omitempty" yaml:"idempotent,omitempty"`
	OpenWorld   *bool  `json:"openWorld,omitempty" yaml:"openWorld,omitempty"`
}

// ParameterDescriptor is one surfaced parameter of a tool.
type ParameterDescriptor struct {
	Type        TypeDescriptor `json:"type" yaml:"type"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	IsRequired  bool           `json:"isRequired" yaml:"isRequired"`
	// DefaultValue is the declared default of an optional parameter.
	DefaultValue any `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
}

// TypeDescriptor is the canonical shape of a type.
type TypeDescriptor struct {
	// ElementType is set only for arrays.
	ElementType *TypeDescriptor `json:"elementType,omitempty" yaml:"elementType,omitempty"`
	TypeName    string          `json:"typeName" yaml:"typeName"`
	// DisplayName renders the original type, e.g. "Task<List<string>>".
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	IsNullable  bool   `json:"isNullable" yaml:"isNullable"`
	IsArray     bool   `json:"isArray" yaml:"isArray"`
}

// Void is the descriptor of methods without a result.
var Void = TypeDescriptor{TypeName: "void"}

// HasTools reports whether any tool was discovered.
func (r *AnalysisResult) HasTools() bool {
	return len(r.Tools) > 0
}

// Tool returns the tool with the given public name.
func (r *AnalysisResult) Tool(name string) (*ToolDescriptor, bool) {
	for i := range r.Tools {
		if r.Tools[i].Name == name {
			return &r.Tools[i], true
		}
	}
	return nil, false
}

// RequiredParameters returns the names of the required parameters in order.
func (t *ToolDescriptor) RequiredParameters() []string {
	var out []string
	for _, p := range t.Parameters {
		if p.IsRequired {
			out = append(out, p.Name)
		}
	}
	return out
}
