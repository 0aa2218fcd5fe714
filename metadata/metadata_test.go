package metadata_test

import (
	"bytes"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/asklar/McpExtract/errors"
	"github.com/asklar/McpExtract/metadata"
	mdt "github.com/asklar/McpExtract/metadata/metadatatest"
)

type sample struct {
	b     *mdt.Builder
	tools *mdt.TypeBuilder
	inner *mdt.TypeBuilder
	echo  *mdt.MethodBuilder
}

func buildSample() *sample {
	b := mdt.New("Sample.Tools").Version(1, 2, 3, 4)
	runtime := b.AssemblyRef("System.Runtime", 8, 0)
	mcp := b.AssemblyRef("ModelContextProtocol", 0, 3)
	object := b.TypeRef(runtime, "System", "Object")

	tfm := b.TypeRef(runtime, "System.Runtime.Versioning", "TargetFrameworkAttribute")
	b.Attribute(b.Assembly(), b.Ctor(tfm, mdt.Prim(metadata.ElementString)),
		mdt.Attr().String(".NETCoreApp,Version=v8.0").NamedString(true, "FrameworkDisplayName", ".NET 8.0").Bytes())
	company := b.TypeRef(runtime, "System.Reflection", "AssemblyCompanyAttribute")
	b.Attribute(b.Assembly(), b.Ctor(company, mdt.Prim(metadata.ElementString)),
		mdt.Attr().String("Contoso").Bytes())

	tools := b.Class("Sample", "Tools", object)
	echo := tools.PublicMethod("Echo", mdt.MethodSig(true,
		mdt.Prim(metadata.ElementString),
		mdt.Prim(metadata.ElementString),
		mdt.Prim(metadata.ElementI4)))
	echo.Param("message")
	echo.Param("count").Default(metadata.ElementI4, mdt.I4(3))

	inner := b.Nested(tools, "Inner", object)
	inner.Method("Hidden", 0x0001, mdt.MethodSig(false, mdt.Prim(metadata.ElementVoid)))
	inner.Field("value__", metadata.FieldStatic, mdt.FieldSig(mdt.Prim(metadata.ElementU1)))

	marker := b.TypeRef(mcp, "ModelContextProtocol.Server", "McpServerToolAttribute")
	b.Attribute(echo.Handle(), b.Ctor(marker), mdt.Attr().
		NamedString(true, "Name", "echo").
		NamedBool(true, "ReadOnly", true).
		Bytes())

	return &sample{b: b, tools: tools, inner: inner, echo: echo}
}

func openSample(t *testing.T) (*sample, *metadata.File) {
	t.Helper()
	s := buildSample()
	f, err := metadata.NewFile(bytes.NewReader(s.b.Bytes()))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return s, f
}

func TestNewFile_Identity(t *testing.T) {
	_, f := openSample(t)

	asm, ok := f.Assembly()
	if !ok {
		t.Fatal("expected an Assembly row")
	}
	if asm.Name != "Sample.Tools" {
		t.Errorf("assembly name = %q", asm.Name)
	}
	if got := asm.Version.String(); got != "1.2.3.4" {
		t.Errorf("version = %s, want 1.2.3.4", got)
	}
	if f.RuntimeVersion != "v4.0.30319" {
		t.Errorf("runtime version = %q", f.RuntimeVersion)
	}
	refs := f.AssemblyRefs()
	if len(refs) != 2 || refs[0].Name != "System.Runtime" || refs[0].Version.Major != 8 {
		t.Errorf("unexpected assembly refs: %+v", refs)
	}
	if f.Module().Name != "Sample.Tools.dll" {
		t.Errorf("module name = %q", f.Module().Name)
	}
}

func TestNewFile_Types(t *testing.T) {
	s, f := openSample(t)

	if n := f.RowCount(metadata.TableTypeDef); n != 3 {
		t.Fatalf("TypeDef rows = %d, want 3", n)
	}
	tests := []struct {
		row  uint32
		want string
	}{
		{1, "<Module>"},
		{s.tools.Handle().Token().Row(), "Sample.Tools"},
		{s.inner.Handle().Token().Row(), "Sample.Tools+Inner"},
	}
	for _, tt := range tests {
		if got := f.TypeDefFullName(tt.row); got != tt.want {
			t.Errorf("TypeDefFullName(%d) = %q, want %q", tt.row, got, tt.want)
		}
	}

	row, ok := f.FindTypeDef("Sample", "Tools+Inner")
	if !ok || row != s.inner.Handle().Token().Row() {
		t.Errorf("FindTypeDef(Tools+Inner) = %d, %v", row, ok)
	}
	if _, ok := f.FindTypeDef("Sample", "Missing"); ok {
		t.Error("FindTypeDef found a missing type")
	}
	if outer := f.EnclosingType(s.inner.Handle().Token().Row()); outer != s.tools.Handle().Token().Row() {
		t.Errorf("EnclosingType = %d", outer)
	}

	ns, name := f.TypeName(f.TypeDef(s.tools.Handle().Token().Row()).Extends)
	if ns != "System" || name != "Object" {
		t.Errorf("base type = %s.%s", ns, name)
	}
}

func TestNewFile_Methods(t *testing.T) {
	s, f := openSample(t)

	toolsRow := s.tools.Handle().Token().Row()
	methods := f.TypeMethods(toolsRow)
	if len(methods) != 1 {
		t.Fatalf("Tools methods = %v", methods)
	}
	md := f.MethodDef(methods[0])
	if md.Name != "Echo" || md.Flags&metadata.MethodMemberAccessMask != metadata.MethodPublic {
		t.Errorf("unexpected method %+v", md)
	}
	if owner := f.MethodOwner(methods[0]); owner != toolsRow {
		t.Errorf("MethodOwner = %d, want %d", owner, toolsRow)
	}

	innerMethods := f.TypeMethods(s.inner.Handle().Token().Row())
	if len(innerMethods) != 1 || f.MethodDef(innerMethods[0]).Name != "Hidden" {
		t.Errorf("Inner methods = %v", innerMethods)
	}
	if fields := f.TypeFields(s.inner.Handle().Token().Row()); len(fields) != 1 {
		t.Errorf("Inner fields = %v", fields)
	}
	if fields := f.TypeFields(toolsRow); len(fields) != 0 {
		t.Errorf("Tools fields = %v", fields)
	}

	sig, err := f.MethodDefSignature(methods[0])
	if err != nil {
		t.Fatalf("MethodDefSignature: %v", err)
	}
	if !sig.HasThis() || sig.Return.Elem != metadata.ElementString || len(sig.Params) != 2 {
		t.Fatalf("unexpected signature %+v", sig)
	}
	if sig.Params[1].Elem != metadata.ElementI4 {
		t.Errorf("second parameter = %#x", sig.Params[1].Elem)
	}

	params := f.MethodParams(methods[0])
	if len(params) != 2 {
		t.Fatalf("params = %v", params)
	}
	msg, count := f.Param(params[0]), f.Param(params[1])
	if msg.Name != "message" || msg.Sequence != 1 || msg.Flags&metadata.ParamHasDefault != 0 {
		t.Errorf("message param = %+v", msg)
	}
	if count.Name != "count" || count.Flags&metadata.ParamHasDefault == 0 {
		t.Errorf("count param = %+v", count)
	}

	c, ok := f.Constant(metadata.NewToken(metadata.TableParam, params[1]))
	if !ok {
		t.Fatal("expected a constant for count")
	}
	v, err := f.ConstantValue(c)
	if err != nil || v != int32(3) {
		t.Errorf("ConstantValue = %v, %v", v, err)
	}
	if _, ok := f.Constant(metadata.NewToken(metadata.TableParam, params[0])); ok {
		t.Error("message should have no constant")
	}
}

func TestNewFile_Attributes(t *testing.T) {
	s, f := openSample(t)

	attrs := f.CustomAttributes(s.echo.Handle().Token())
	if len(attrs) != 1 {
		t.Fatalf("attributes on Echo = %d", len(attrs))
	}
	ctor, err := f.AttributeCtor(attrs[0])
	if err != nil {
		t.Fatalf("AttributeCtor: %v", err)
	}
	if got := ctor.FullName(); got != "ModelContextProtocol.Server.McpServerToolAttribute" {
		t.Errorf("attribute type = %q", got)
	}
	if ctor.Method.Table() != metadata.TableMemberRef {
		t.Errorf("ctor token table = %s", ctor.Method.Table())
	}
	if scope := f.TypeRefScope(ctor.Type.Row()); scope.Table() != metadata.TableAssemblyRef {
		t.Errorf("scope = %s", scope.Table())
	}

	blob, err := f.Blob(attrs[0].Value)
	if err != nil {
		t.Fatal(err)
	}
	val, err := metadata.DecodeAttribute(blob, ctor.Sig, nil)
	if err != nil {
		t.Fatalf("DecodeAttribute: %v", err)
	}
	if name, ok := val.Named("Name"); !ok || name != "echo" {
		t.Errorf("Name = %v, %v", name, ok)
	}
	if ro, ok := val.Named("ReadOnly"); !ok || ro != true {
		t.Errorf("ReadOnly = %v, %v", ro, ok)
	}
	if _, ok := val.Named("Title"); ok {
		t.Error("unexpected Title")
	}
}

func TestReadFacts(t *testing.T) {
	s := buildSample()
	path := s.b.WriteFile(t, t.TempDir(), "Sample.Tools.dll")

	facts, err := metadata.ReadFacts(path)
	if err != nil {
		t.Fatalf("ReadFacts: %v", err)
	}
	if facts.TargetFramework != ".NETCoreApp,Version=v8.0" {
		t.Errorf("TargetFramework = %q", facts.TargetFramework)
	}
	if facts.Company != "Contoso" {
		t.Errorf("Company = %q", facts.Company)
	}
	if facts.Assembly.Name != "Sample.Tools" {
		t.Errorf("Assembly = %v", facts.Assembly)
	}
	if len(facts.References) != 2 || facts.References[1].Name != "ModelContextProtocol" {
		t.Errorf("References = %v", facts.References)
	}
}

func TestReadFacts_NoTargetFramework(t *testing.T) {
	b := mdt.New("Bare")
	f, err := metadata.NewFile(bytes.NewReader(b.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	facts, err := f.Facts()
	if err != nil {
		t.Fatal(err)
	}
	if facts.TargetFramework != "" || len(facts.References) != 0 {
		t.Errorf("unexpected facts %+v", facts)
	}
}

func TestOpen_NotFound(t *testing.T) {
	_, err := metadata.Open(filepath.Join(t.TempDir(), "missing.dll"))
	if !stderrors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewFile_Malformed(t *testing.T) {
	img := buildSample().b.Bytes()

	badRoot := bytes.Clone(img)
	i := bytes.Index(badRoot, []byte("BSJB"))
	copy(badRoot[i:], "XXXX")

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a PE", []byte("this is not a portable executable image")},
		{"truncated", img[:0x1A0]},
		{"bad metadata signature", badRoot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := metadata.NewFile(bytes.NewReader(tt.data))
			if !stderrors.Is(err, errors.ErrMalformedBinary) {
				t.Errorf("expected malformed binary, got %v", err)
			}
		})
	}
}
