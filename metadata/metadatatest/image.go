package metadatatest

import (
	"bytes"
	"debug/pe"
	encbin "encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/asklar/McpExtract/metadata"
	"github.com/asklar/McpExtract/metadata/internal/binary"
)

// Coded index tags (II.24.2.6).
var (
	typeDefOrRefTags = map[metadata.TableID]uint32{
		metadata.TableTypeDef: 0, metadata.TableTypeRef: 1, metadata.TableTypeSpec: 2,
	}
	hasConstantTags = map[metadata.TableID]uint32{
		metadata.TableField: 0, metadata.TableParam: 1,
	}
	hasCustomAttributeTags = map[metadata.TableID]uint32{
		metadata.TableMethodDef: 0, metadata.TableField: 1, metadata.TableTypeRef: 2,
		metadata.TableTypeDef: 3, metadata.TableParam: 4, metadata.TableMemberRef: 6,
		metadata.TableModule: 7, metadata.TableTypeSpec: 13, metadata.TableAssembly: 14,
		metadata.TableAssemblyRef: 15,
	}
	memberRefParentTags = map[metadata.TableID]uint32{
		metadata.TableTypeDef: 0, metadata.TableTypeRef: 1, metadata.TableMethodDef: 3,
		metadata.TableTypeSpec: 4,
	}
	customAttributeTypeTags = map[metadata.TableID]uint32{
		metadata.TableMethodDef: 2, metadata.TableMemberRef: 3,
	}
	resolutionScopeTags = map[metadata.TableID]uint32{
		metadata.TableModule: 0, metadata.TableAssemblyRef: 2, metadata.TableTypeRef: 3,
	}
	implementationTags = map[metadata.TableID]uint32{
		metadata.TableAssemblyRef: 1, metadata.TableExportedType: 2,
	}
)

func encode(tags map[metadata.TableID]uint32, bits uint, h Handle) uint32 {
	if h.row == nil {
		return 0
	}
	tag, ok := tags[h.table]
	if !ok {
		panic(fmt.Sprintf("metadatatest: table %s not allowed in coded index", h.table))
	}
	return *h.row<<bits | tag
}

const (
	fileAlignment = 0x200
	textRVA       = 0x2000
	cliHeaderSize = 72
	peOffset      = 0x80
)

// exportedTypeForwarder is the IsTypeForwarder flag of ExportedType rows.
const exportedTypeForwarder = 0x00200000

type stringHeap struct {
	w     *binary.Writer
	index map[string]uint32
}

func newStringHeap() *stringHeap {
	h := &stringHeap{w: binary.NewWriter(), index: map[string]uint32{"": 0}}
	h.w.Byte(0)
	return h
}

func (h *stringHeap) add(s string) uint32 {
	if i, ok := h.index[s]; ok {
		return i
	}
	i := uint32(h.w.Len())
	h.w.WriteBytes([]byte(s))
	h.w.Byte(0)
	h.index[s] = i
	return i
}

type blobHeap struct {
	w *binary.Writer
}

func newBlobHeap() *blobHeap {
	h := &blobHeap{w: binary.NewWriter()}
	h.w.Byte(0)
	return h
}

func (h *blobHeap) add(b []byte) uint32 {
	if b == nil {
		return 0
	}
	i := uint32(h.w.Len())
	h.w.WriteCompressedU32(uint32(len(b)))
	h.w.WriteBytes(b)
	return i
}

// layout assigns rows to fields, methods and params in declaration order.
func (b *Builder) layout() (fields []*memberDef, methods []*MethodBuilder, params []*ParamBuilder) {
	for _, t := range b.types {
		for _, f := range t.fields {
			fields = append(fields, f)
			*f.handle.row = uint32(len(fields))
		}
		for _, m := range t.methods {
			methods = append(methods, m)
			*m.handle.row = uint32(len(methods))
			for _, p := range m.params {
				params = append(params, p)
				*p.handle.row = uint32(len(params))
			}
		}
	}
	return fields, methods, params
}

// Bytes lays out the assembly as a PE32 image.
func (b *Builder) Bytes() []byte {
	fields, methods, params := b.layout()
	strs := newStringHeap()
	blobs := newBlobHeap()

	type tableData struct {
		w    *binary.Writer
		rows uint32
	}
	var tbls [0x2D]tableData
	row := func(id metadata.TableID) *binary.Writer {
		if tbls[id].w == nil {
			tbls[id].w = binary.NewWriter()
		}
		tbls[id].rows++
		return tbls[id].w
	}

	// Module
	w := row(metadata.TableModule)
	w.WriteU16(0)
	w.WriteU16(uint16(strs.add(b.name + ".dll")))
	w.WriteU16(1)
	w.WriteU16(0)
	w.WriteU16(0)

	for _, tr := range b.typeRefs {
		w := row(metadata.TableTypeRef)
		w.WriteU16(uint16(encode(resolutionScopeTags, 2, tr.scope)))
		w.WriteU16(uint16(strs.add(tr.name)))
		w.WriteU16(uint16(strs.add(tr.namespace)))
	}

	fieldNext, methodNext := uint32(1), uint32(1)
	for _, t := range b.types {
		w := row(metadata.TableTypeDef)
		w.WriteU32(t.flags)
		w.WriteU16(uint16(strs.add(t.name)))
		w.WriteU16(uint16(strs.add(t.namespace)))
		w.WriteU16(uint16(encode(typeDefOrRefTags, 2, t.extends)))
		w.WriteU16(uint16(fieldNext))
		w.WriteU16(uint16(methodNext))
		fieldNext += uint32(len(t.fields))
		methodNext += uint32(len(t.methods))
	}

	for _, f := range fields {
		w := row(metadata.TableField)
		w.WriteU16(f.flags)
		w.WriteU16(uint16(strs.add(f.name)))
		w.WriteU16(uint16(blobs.add(f.sig)))
	}

	paramNext := uint32(1)
	for _, m := range methods {
		w := row(metadata.TableMethodDef)
		w.WriteU32(0)
		w.WriteU16(0)
		w.WriteU16(m.flags)
		w.WriteU16(uint16(strs.add(m.name)))
		w.WriteU16(uint16(blobs.add(m.sig)))
		w.WriteU16(uint16(paramNext))
		paramNext += uint32(len(m.params))
	}

	for _, p := range params {
		w := row(metadata.TableParam)
		w.WriteU16(p.flags)
		w.WriteU16(p.sequence)
		w.WriteU16(uint16(strs.add(p.name)))
	}

	for _, mr := range b.memberRefs {
		w := row(metadata.TableMemberRef)
		w.WriteU16(uint16(encode(memberRefParentTags, 3, mr.class)))
		w.WriteU16(uint16(strs.add(mr.name)))
		w.WriteU16(uint16(blobs.add(mr.sig)))
	}

	// Constant rows are sorted by parent; params are the only parents here.
	for _, p := range params {
		if p.def == nil {
			continue
		}
		w := row(metadata.TableConstant)
		w.Byte(byte(p.defType))
		w.Byte(0)
		w.WriteU16(uint16(encode(hasConstantTags, 2, p.handle)))
		w.WriteU16(uint16(blobs.add(p.def)))
	}

	for _, ca := range b.sortedAttrs() {
		w := row(metadata.TableCustomAttribute)
		w.WriteU16(uint16(encode(hasCustomAttributeTags, 5, ca.parent)))
		w.WriteU16(uint16(encode(customAttributeTypeTags, 3, ca.ctor)))
		w.WriteU16(uint16(blobs.add(ca.value)))
	}

	for _, sig := range b.typeSpecs {
		w := row(metadata.TableTypeSpec)
		w.WriteU16(uint16(blobs.add(sig)))
	}

	if b.hasAssembly {
		w := row(metadata.TableAssembly)
		w.WriteU32(0x8004) // SHA1
		w.WriteU16(b.version.Major)
		w.WriteU16(b.version.Minor)
		w.WriteU16(b.version.Build)
		w.WriteU16(b.version.Revision)
		w.WriteU32(0)
		w.WriteU16(0)
		w.WriteU16(uint16(strs.add(b.name)))
		w.WriteU16(0)
	}

	for _, ar := range b.assemblyRefs {
		w := row(metadata.TableAssemblyRef)
		w.WriteU16(ar.version.Major)
		w.WriteU16(ar.version.Minor)
		w.WriteU16(ar.version.Build)
		w.WriteU16(ar.version.Revision)
		w.WriteU32(0)
		w.WriteU16(0)
		w.WriteU16(uint16(strs.add(ar.name)))
		w.WriteU16(0)
		w.WriteU16(0)
	}

	for _, et := range b.exported {
		w := row(metadata.TableExportedType)
		w.WriteU32(exportedTypeForwarder)
		w.WriteU32(0)
		w.WriteU16(uint16(strs.add(et.name)))
		w.WriteU16(uint16(strs.add(et.namespace)))
		w.WriteU16(uint16(encode(implementationTags, 2, et.impl)))
	}

	// NestedClass rows are sorted by the nested type.
	for _, t := range b.types {
		if t.enclosing == nil {
			continue
		}
		w := row(metadata.TableNestedClass)
		w.WriteU16(uint16(*t.handle.row))
		w.WriteU16(uint16(*t.enclosing.handle.row))
	}

	// #~ stream
	ts := binary.NewWriter()
	ts.WriteU32(0)
	ts.Byte(2)
	ts.Byte(0)
	ts.Byte(0) // all heaps narrow
	ts.Byte(1)
	var valid uint64
	for id := range tbls {
		if tbls[id].rows > 0 {
			valid |= 1 << uint(id)
		}
	}
	ts.WriteU64(valid)
	ts.WriteU64(0)
	for id := range tbls {
		if tbls[id].rows > 0 {
			ts.WriteU32(tbls[id].rows)
		}
	}
	for id := range tbls {
		if tbls[id].rows > 0 {
			ts.WriteBytes(tbls[id].w.Bytes())
		}
	}
	ts.Align(4)
	strs.w.Align(4)
	blobs.w.Align(4)

	guid := bytes.Repeat([]byte{0xAB}, 16)
	us := []byte{0, 0, 0, 0}

	return image(metadataRoot([]stream{
		{"#~", ts.Bytes()},
		{"#Strings", strs.w.Bytes()},
		{"#US", us},
		{"#GUID", guid},
		{"#Blob", blobs.w.Bytes()},
	}))
}

// sortedAttrs orders CustomAttribute rows by encoded parent, as the table requires.
func (b *Builder) sortedAttrs() []attrRow {
	out := make([]attrRow, len(b.attrs))
	copy(out, b.attrs)
	key := func(a attrRow) uint32 { return encode(hasCustomAttributeTags, 5, a.parent) }
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && key(out[j]) < key(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

type stream struct {
	name string
	data []byte
}

// metadataRoot writes the BSJB header, stream headers and streams (II.24.2.1).
func metadataRoot(streams []stream) []byte {
	const version = "v4.0.30319\x00\x00"

	hdr := 16 + len(version) + 4
	for _, s := range streams {
		hdr += 8 + (len(s.name)+1+3)&^3
	}

	w := binary.NewWriter()
	w.WriteU32(0x424A5342)
	w.WriteU16(1)
	w.WriteU16(1)
	w.WriteU32(0)
	w.WriteU32(uint32(len(version)))
	w.WriteBytes([]byte(version))
	w.WriteU16(0)
	w.WriteU16(uint16(len(streams)))
	off := hdr
	for _, s := range streams {
		w.WriteU32(uint32(off))
		w.WriteU32(uint32(len(s.data)))
		w.WriteBytes([]byte(s.name))
		w.Byte(0)
		w.Align(4)
		off += len(s.data)
	}
	for _, s := range streams {
		w.WriteBytes(s.data)
	}
	return w.Bytes()
}

// image wraps metadata in a one-section PE32 file with a CLI header.
func image(md []byte) []byte {
	body := binary.NewWriter()
	body.WriteU32(cliHeaderSize)
	body.WriteU16(2)
	body.WriteU16(5)
	body.WriteU32(textRVA + cliHeaderSize)
	body.WriteU32(uint32(len(md)))
	body.WriteU32(1) // ILONLY
	body.PadTo(cliHeaderSize)
	body.WriteBytes(md)
	rawSize := (body.Len() + fileAlignment - 1) &^ (fileAlignment - 1)
	virtSize := uint32(body.Len())
	body.PadTo(rawSize)

	var out bytes.Buffer
	dos := make([]byte, peOffset)
	dos[0], dos[1] = 'M', 'Z'
	encbin.LittleEndian.PutUint32(dos[0x3C:], peOffset)
	out.Write(dos)
	out.WriteString("PE\x00\x00")

	fh := pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_I386,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(encbin.Size(pe.OptionalHeader32{})),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_32BIT_MACHINE | pe.IMAGE_FILE_DLL,
	}
	oh := pe.OptionalHeader32{
		Magic:                 0x10b,
		SizeOfCode:            uint32(rawSize),
		BaseOfCode:            textRVA,
		ImageBase:             0x10000000,
		SectionAlignment:      0x2000,
		FileAlignment:         fileAlignment,
		MajorSubsystemVersion: 4,
		SizeOfImage:           textRVA + 0x2000*uint32((rawSize+0x1FFF)/0x2000),
		SizeOfHeaders:         fileAlignment,
		Subsystem:             3,
		NumberOfRvaAndSizes:   16,
	}
	oh.DataDirectory[14] = pe.DataDirectory{VirtualAddress: textRVA, Size: cliHeaderSize}
	sh := pe.SectionHeader32{
		VirtualSize:      virtSize,
		VirtualAddress:   textRVA,
		SizeOfRawData:    uint32(rawSize),
		PointerToRawData: fileAlignment,
		Characteristics:  0x60000020,
	}
	copy(sh.Name[:], ".text")

	_ = encbin.Write(&out, encbin.LittleEndian, fh)
	_ = encbin.Write(&out, encbin.LittleEndian, oh)
	_ = encbin.Write(&out, encbin.LittleEndian, sh)
	for out.Len() < fileAlignment {
		out.WriteByte(0)
	}
	out.Write(body.Bytes())
	return out.Bytes()
}

// WriteFile writes the image to dir/name and returns the path.
func (b *Builder) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
