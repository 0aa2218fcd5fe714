package engine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	mcpextract "github.com/asklar/McpExtract"
	"github.com/asklar/McpExtract/errors"
	"github.com/asklar/McpExtract/metadata"
	mdt "github.com/asklar/McpExtract/metadata/metadatatest"
)

const tfm = ".NETCoreApp,Version=v8.0"

// writeRefPack writes a System.Runtime reference assembly under
// root/packs/Microsoft.NETCore.App.Ref/<version>/ref/net8.0.
func writeRefPack(t *testing.T, root, version string) {
	t.Helper()
	dir := filepath.Join(root, "packs", "Microsoft.NETCore.App.Ref", version, "ref", "net8.0")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	core := mdt.New("System.Runtime").Version(8, 0, 0, 0)
	object := core.Class("System", "Object", mdt.Handle{})
	valueType := core.Class("System", "ValueType", object.Handle())
	core.Class("System", "String", object.Handle())
	core.Class("System.Threading.Tasks", "Task`1", object.Handle())
	core.Type("System", "Nullable`1", metadata.TypePublic|metadata.TypeSealed, valueType.Handle())
	core.Type("System.Threading", "CancellationToken", metadata.TypePublic|metadata.TypeSealed, valueType.Handle())
	core.WriteFile(t, dir, "System.Runtime.dll")
}

// writeSdk writes ModelContextProtocol.dll into dir, declaring the marker
// attribute with a (name) constructor.
func writeSdk(t *testing.T, dir string) {
	t.Helper()
	b := mdt.New("ModelContextProtocol").Version(0, 3, 0, 0)
	rt := b.AssemblyRef("System.Runtime", 8, 0)
	attr := b.Class("ModelContextProtocol.Server", "McpServerToolAttribute", b.TypeRef(rt, "System", "Object"))
	ctor := attr.Method(".ctor", 0x1886, mdt.MethodSig(true, mdt.Prim(metadata.ElementVoid), mdt.Prim(metadata.ElementString)))
	ctor.Param("name")
	b.WriteFile(t, dir, "ModelContextProtocol.dll")
}

// writeTarget writes Sample.Tools.dll into dir with an Echo tool and a
// Count tool taking a cancellation token.
func writeTarget(t *testing.T, dir string) string {
	t.Helper()
	b := mdt.New("Sample.Tools").Version(1, 2, 3, 0)
	rt := b.AssemblyRef("System.Runtime", 8, 0)
	sdk := b.AssemblyRef("ModelContextProtocol", 0, 3)
	cm := b.AssemblyRef("System.ComponentModel.Primitives", 8, 0)
	str := mdt.Prim(metadata.ElementString)
	i4 := mdt.Prim(metadata.ElementI4)

	tfmCtor := b.Ctor(b.TypeRef(rt, "System.Runtime.Versioning", "TargetFrameworkAttribute"), str)
	b.Attribute(b.Assembly(), tfmCtor, mdt.Attr().String(tfm).Bytes())
	for attr, value := range map[string]string{
		"AssemblyDescriptionAttribute": "Sample tools",
		"AssemblyCompanyAttribute":     "Contoso",
		"AssemblyProductAttribute":     "Contoso Tools",
	} {
		ctor := b.Ctor(b.TypeRef(rt, "System.Reflection", attr), str)
		b.Attribute(b.Assembly(), ctor, mdt.Attr().String(value).Bytes())
	}

	marker := b.Ctor(b.TypeRef(sdk, "ModelContextProtocol.Server", "McpServerToolAttribute"), str)
	desc := b.Ctor(b.TypeRef(cm, "System.ComponentModel", "DescriptionAttribute"), str)
	task := b.TypeRef(rt, "System.Threading.Tasks", "Task`1")
	cancel := b.TypeRef(rt, "System.Threading", "CancellationToken")

	tools := b.Class("Sample", "Tools", b.TypeRef(rt, "System", "Object"))
	echo := tools.PublicMethod("Echo", mdt.MethodSig(true, mdt.GenericInst(mdt.Class(task), str), str))
	msg := echo.Param("message")
	b.Attribute(echo.Handle(), marker, mdt.Attr().String("echo").Bytes())
	b.Attribute(echo.Handle(), desc, mdt.Attr().String("Echo the input message").Bytes())
	b.Attribute(msg.Handle(), desc, mdt.Attr().String("The message to echo").Bytes())

	count := tools.PublicMethod("Count", mdt.MethodSig(true, i4, mdt.ValueType(cancel), i4))
	count.Param("cancellationToken")
	count.Param("limit").Default(metadata.ElementI4, mdt.I4(10))
	b.Attribute(count.Handle(), marker, mdt.Attr().String("count").Bytes())

	return b.WriteFile(t, dir, "Sample.Tools.dll")
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

var echoWant = mcpextract.ToolDescriptor{
	Name:        "echo",
	Description: "Echo the input message",
	MethodName:  "Echo",
	ClassName:   "Sample.Tools",
	ReturnType:  mcpextract.TypeDescriptor{TypeName: "string", DisplayName: "string", IsNullable: true},
	Parameters: []mcpextract.ParameterDescriptor{{
		Name:        "message",
		Description: "The message to echo",
		Type:        mcpextract.TypeDescriptor{TypeName: "string", DisplayName: "string", IsNullable: true},
		IsRequired:  true,
	}},
}

func TestAnalyze(t *testing.T) {
	root := t.TempDir()
	writeRefPack(t, root, "8.0.4")
	dir := t.TempDir()
	writeSdk(t, dir)
	target := writeTarget(t, dir)

	log, logs := observed()
	res, err := Analyze(target, Options{Logger: log, Roots: []string{root}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.ModuleName != "Sample.Tools" || res.ModuleVersion != "1.2.3.0" {
		t.Errorf("module = %q %q", res.ModuleName, res.ModuleVersion)
	}
	if res.ModuleDescription != "Sample tools" || res.ModuleVendor != "Contoso" || res.ModuleProductName != "Contoso Tools" {
		t.Errorf("module facts = %q %q %q", res.ModuleDescription, res.ModuleVendor, res.ModuleProductName)
	}
	if res.TargetFramework != tfm {
		t.Errorf("TargetFramework = %q", res.TargetFramework)
	}
	if len(res.Tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(res.Tools))
	}
	if !reflect.DeepEqual(res.Tools[0], echoWant) {
		t.Errorf("Tools[0] =\n%+v\nwant\n%+v", res.Tools[0], echoWant)
	}

	count := res.Tools[1]
	if count.Name != "count" || len(count.Parameters) != 1 {
		t.Fatalf("Tools[1] = %+v", count)
	}
	if p := count.Parameters[0]; p.Name != "limit" || p.Type.TypeName != "int" || p.IsRequired || p.DefaultValue != int32(10) {
		t.Errorf("limit = %+v", p)
	}
	if n := logs.FilterMessageSnippet("no reference").Len(); n != 0 {
		t.Errorf("got %d degraded warnings with a reference pack present", n)
	}
}

func TestAnalyze_Degraded(t *testing.T) {
	dir := t.TempDir()
	target := writeTarget(t, dir)

	log, logs := observed()
	res, err := Analyze(target, Options{Logger: log, Roots: []string{}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(res.Tools))
	}
	if !reflect.DeepEqual(res.Tools[0], echoWant) {
		t.Errorf("Tools[0] =\n%+v\nwant\n%+v", res.Tools[0], echoWant)
	}
	if got := res.Tools[1].Parameters; len(got) != 1 || got[0].Name != "limit" {
		t.Errorf("count parameters = %+v", got)
	}
	warned := false
	for _, e := range logs.FilterLevelExact(zapcore.WarnLevel).All() {
		if strings.Contains(e.Message, "degraded") {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a degraded resolution warning")
	}
}

func TestAnalyze_NoTools(t *testing.T) {
	dir := t.TempDir()
	b := mdt.New("Empty")
	b.Class("Empty", "Nothing", mdt.Handle{}).PublicMethod("Run", mdt.MethodSig(true, mdt.Prim(metadata.ElementVoid)))
	target := b.WriteFile(t, dir, "Empty.dll")

	res, err := Analyze(target, Options{Roots: []string{}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Tools == nil || len(res.Tools) != 0 {
		t.Errorf("Tools = %#v, want empty non-nil", res.Tools)
	}
	if res.HasTools() {
		t.Error("HasTools() = true")
	}
	if res.TargetFramework != "" {
		t.Errorf("TargetFramework = %q, want empty", res.TargetFramework)
	}
}

func TestAnalyze_ForeignEnumNamedArgument(t *testing.T) {
	dir := t.TempDir()

	lib := mdt.New("Lib")
	rt := lib.AssemblyRef("System.Runtime", 8, 0)
	level := lib.Type("Lib", "Level", metadata.TypePublic|metadata.TypeSealed, lib.TypeRef(rt, "System", "Enum"))
	level.Field("value__", 0x0606, mdt.FieldSig(mdt.Prim(metadata.ElementU1)))
	lib.WriteFile(t, dir, "Lib.dll")

	b := mdt.New("Sample.Tools")
	brt := b.AssemblyRef("System.Runtime", 8, 0)
	sdk := b.AssemblyRef("ModelContextProtocol", 0, 3)
	b.AssemblyRef("Lib", 1, 0)
	marker := b.Ctor(b.TypeRef(sdk, "ModelContextProtocol.Server", "McpServerToolAttribute"))
	tools := b.Class("Sample", "Tools", b.TypeRef(brt, "System", "Object"))
	echo := tools.PublicMethod("Echo", mdt.MethodSig(true, mdt.Prim(metadata.ElementVoid)))
	b.Attribute(echo.Handle(), marker, mdt.Attr().
		NamedEnum(true, "Level", "Lib.Level, Lib, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null", metadata.ElementU1, 2).
		NamedString(true, "Name", "echo").
		Bytes())
	target := b.WriteFile(t, dir, "Sample.Tools.dll")

	res, err := Analyze(target, Options{Roots: []string{}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Tools) != 1 || res.Tools[0].Name != "echo" {
		t.Errorf("Tools = %+v, want one tool named echo", res.Tools)
	}
}

// Corrupt images must fail with load_failed or succeed, never crash.
func TestAnalyze_CorruptImages(t *testing.T) {
	data, err := os.ReadFile(writeTarget(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "Corrupt.dll")

	check := func(name string, img []byte) {
		t.Helper()
		if err := os.WriteFile(path, img, 0o644); err != nil {
			t.Fatal(err)
		}
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("%s: panic: %v", name, r)
			}
		}()
		if _, err := Analyze(path, Options{Roots: []string{}}); err != nil && !errors.Is(err, errors.ErrLoadFailed) {
			t.Errorf("%s: err = %v, want load_failed", name, err)
		}
	}

	for n := 0; n < len(data); n += 16 {
		check(fmt.Sprintf("truncated at %d", n), data[:n])
	}
	for i := range data {
		for _, v := range []byte{0x00, 0xFF} {
			if data[i] == v {
				continue
			}
			img := bytes.Clone(data)
			img[i] = v
			check(fmt.Sprintf("byte %d = %#x", i, v), img)
		}
	}
}

func TestAnalyze_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.dll")
	if err := os.WriteFile(garbage, []byte("MZ not really"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		kind error
	}{
		{"missing", filepath.Join(dir, "missing.dll"), errors.ErrNotFound},
		{"garbage", garbage, errors.ErrLoadFailed},
		{"directory", dir, errors.ErrLoadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Analyze(tt.path, Options{Roots: []string{}})
			if res != nil {
				t.Errorf("Analyze returned a partial result: %+v", res)
			}
			if !errors.Is(err, tt.kind) {
				t.Fatalf("err = %v, want %v", err, tt.kind)
			}
			var e *errors.Error
			if !errors.As(err, &e) || e.Path != tt.path {
				t.Errorf("err = %#v, want path %q", err, tt.path)
			}
		})
	}
}

func TestInspect(t *testing.T) {
	root := t.TempDir()
	writeRefPack(t, root, "8.0.1")
	writeRefPack(t, root, "8.0.11")
	dir := t.TempDir()
	writeSdk(t, dir)
	target := writeTarget(t, dir)

	in, err := New(Options{Roots: []string{root}}).Inspect(target)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	r := in.Resolution
	if r.Major != 8 || r.ResolvedMajor != 8 || r.Degraded || r.Fallback {
		t.Errorf("resolution = %+v", r)
	}
	if len(r.References) != 1 || !strings.Contains(r.References[0], filepath.Join("8.0.11", "ref")) {
		t.Errorf("References = %v, want the 8.0.11 pack", r.References)
	}
	if len(r.Siblings) != 1 || filepath.Base(r.Siblings[0]) != "ModelContextProtocol.dll" {
		t.Errorf("Siblings = %v", r.Siblings)
	}
	if in.Facts.Assembly.Name != "Sample.Tools" {
		t.Errorf("Facts.Assembly = %v", in.Facts.Assembly)
	}
}

func TestNewLogger(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		log := NewLogger(verbose)
		if got := log.Core().Enabled(zapcore.DebugLevel); got != verbose {
			t.Errorf("NewLogger(%v) debug enabled = %v", verbose, got)
		}
		if !log.Core().Enabled(zapcore.WarnLevel) {
			t.Errorf("NewLogger(%v) drops warnings", verbose)
		}
	}
}
