package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	mcpextract "github.com/asklar/McpExtract"
	"github.com/asklar/McpExtract/errors"
	"github.com/asklar/McpExtract/metadata"
	mdt "github.com/asklar/McpExtract/metadata/metadatatest"
)

// writeTarget writes Sample.Tools.dll with a single echo tool.
func writeTarget(t *testing.T, dir string) string {
	t.Helper()
	b := mdt.New("Sample.Tools").Version(1, 0, 0, 0)
	rt := b.AssemblyRef("System.Runtime", 8, 0)
	sdk := b.AssemblyRef("ModelContextProtocol", 0, 3)
	str := mdt.Prim(metadata.ElementString)

	marker := b.Ctor(b.TypeRef(sdk, "ModelContextProtocol.Server", "McpServerToolAttribute"), str)
	tools := b.Class("Sample", "Tools", b.TypeRef(rt, "System", "Object"))
	echo := tools.PublicMethod("Echo", mdt.MethodSig(true, str, str))
	echo.Param("message")
	b.Attribute(echo.Handle(), marker, mdt.Attr().String("echo").Bytes())
	return b.WriteFile(t, dir, "Sample.Tools.dll")
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&app{roots: []string{}})
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestExtract(t *testing.T) {
	t.Setenv("MCPEXTRACT_VERBOSE", "")
	target := writeTarget(t, t.TempDir())
	dir := filepath.Join(t.TempDir(), "out")

	_, stderr, err := run(t, "extract", target, "-o", dir, "--stubs", "--manifest")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(stderr, "Found 1 tools in Sample.Tools 1.0.0.0") {
		t.Errorf("stderr = %q", stderr)
	}

	for _, name := range []string{"Sample.Tools.tools.json", "sample_tools_stubs.py", "manifest.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	stubs, err := os.ReadFile(filepath.Join(dir, "sample_tools_stubs.py"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(stubs), "def echo(*, message: str) -> str:") {
		t.Errorf("stubs:\n%s", stubs)
	}
}

func TestExtract_Stdout(t *testing.T) {
	target := writeTarget(t, t.TempDir())

	stdout, _, err := run(t, "extract", target, "-o", "-", "--format", "yaml")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, want := range []string{"moduleName: Sample.Tools", "name: echo", "mcpTools:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestExtract_Errors(t *testing.T) {
	_, _, err := run(t, "extract", filepath.Join(t.TempDir(), "missing.dll"))
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing file: err = %v, want not found", err)
	}

	target := writeTarget(t, t.TempDir())
	_, _, err = run(t, "extract", target, "--format", "toml")
	if !errors.Is(err, &errors.Error{Kind: errors.KindInvalidInput}) {
		t.Errorf("bad format: err = %v, want invalid input", err)
	}

	if _, _, err := run(t, "extract"); err == nil {
		t.Error("extract without an assembly succeeded")
	}
}

func TestInspect(t *testing.T) {
	t.Setenv("DOTNET_ROOT", "")
	target := writeTarget(t, t.TempDir())

	stdout, _, err := run(t, "inspect", target)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"Sample.Tools", "ModelContextProtocol, Version=0.3.0.0", "degraded"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "mcpextract dev\n" {
		t.Errorf("version = %q", stdout)
	}
}

func TestFilterTools(t *testing.T) {
	tools := []mcpextract.ToolDescriptor{
		{Name: "get_forecast", ClassName: "Weather.Tools", Description: "Daily forecast"},
		{Name: "echo", ClassName: "Sample.Tools"},
		{Name: "alerts", ClassName: "Weather.Alerts", Description: "Severe weather ALERTS"},
	}
	tests := []struct {
		query string
		want  []int
	}{
		{"", []int{0, 1, 2}},
		{"  ", []int{0, 1, 2}},
		{"weather", []int{0, 2}},
		{"ECHO", []int{1}},
		{"forecast", []int{0}},
		{"nothing", []int{}},
	}
	for _, tt := range tests {
		if got := filterTools(tools, tt.query); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("filterTools(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestBrowseModel(t *testing.T) {
	m := newBrowseModel("Sample.Tools.dll", nil)
	if got := m.View(); got != "Analyzing assembly..." {
		t.Errorf("initial view = %q", got)
	}

	m.Update(analyzedMsg{result: &mcpextract.AnalysisResult{
		ModuleName:    "Sample.Tools",
		ModuleVersion: "1.0.0.0",
		Tools: []mcpextract.ToolDescriptor{
			{Name: "echo", ReturnType: mcpextract.TypeDescriptor{TypeName: "string"}},
			{Name: "count", ReturnType: mcpextract.TypeDescriptor{TypeName: "int"}},
		},
	}})
	if len(m.visible) != 2 {
		t.Fatalf("visible = %v", m.visible)
	}
	if !strings.Contains(m.View(), "count") {
		t.Errorf("list view:\n%s", m.View())
	}

	m.filter.SetValue("cou")
	m.applyFilter()
	if !reflect.DeepEqual(m.visible, []int{1}) {
		t.Errorf("filtered = %v", m.visible)
	}

	m.Update(analyzedMsg{err: errors.NotFound(errors.PhaseLoad, "x.dll")})
	if !strings.Contains(m.View(), "Error:") {
		t.Errorf("error view:\n%s", m.View())
	}
}
