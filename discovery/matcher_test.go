package discovery

import "testing"

func TestRules(t *testing.T) {
	tests := []struct {
		rules     Rules
		namespace string
		name      string
		want      int
	}{
		{ToolRules(), "ModelContextProtocol.Server", "McpServerToolAttribute", 0},
		{ToolRules(), "", "McpTool", 0},
		{ToolRules(), "Legacy", "McpServerToolExtendedAttribute", 1},
		{ToolRules(), "Legacy", "Outer+McpToolAttribute", 0},
		{ToolRules(), "System", "ObsoleteAttribute", -1},
		{ParameterRules(), "ModelContextProtocol.Server", "McpParameterAttribute", 0},
		{ParameterRules(), "X", "McpParameterInfoAttribute", 1},
		{DescriptionRules(), "System.ComponentModel", "DescriptionAttribute", 0},
		{DescriptionRules(), "Contoso", "DescriptionAttribute", 1},
		{DescriptionRules(), "Contoso", "McpDescriptionAttribute", 2},
		{DescriptionRules(), "", "Description", 3},
		{DescriptionRules(), "Contoso", "Descriptions", -1},
	}
	for _, tt := range tests {
		t.Run(tt.namespace+"."+tt.name, func(t *testing.T) {
			if got := tt.rules.Match(tt.namespace, tt.name); got != tt.want {
				t.Errorf("Match() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExactMatcher(t *testing.T) {
	m := NewExactMatcher("Contoso.ToolAttribute", "Marker")
	tests := []struct {
		namespace, name string
		want            bool
	}{
		{"Contoso", "ToolAttribute", true},
		{"Other", "ToolAttribute", false},
		{"Any", "Marker", true},
		{"Any", "Outer+Marker", true},
		{"", "Contoso.ToolAttribute", true},
		{"Any", "Markers", false},
	}
	for _, tt := range tests {
		if got := m.Match(tt.namespace, tt.name); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.namespace, tt.name, got, tt.want)
		}
	}
}
