package metadata

import (
	"debug/pe"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/asklar/McpExtract/errors"
	"github.com/asklar/McpExtract/metadata/internal/binary"
)

// File is a parsed CLI image. It holds the metadata in memory and keeps the
// underlying reader open until Close.
type File struct {
	closer io.Closer

	attrs       map[Token][]uint32
	constants   map[Token]uint32
	generics    map[Token][]uint32
	enclosing   map[uint32]uint32
	methodOwner map[uint32]uint32
	typesByName map[string]uint32
	tables      *tables

	// Path is the file the image was opened from, empty for NewFile.
	Path string

	// RuntimeVersion is the version string of the metadata root, e.g. "v4.0.30319".
	RuntimeVersion string

	heaps heaps
	once  sync.Once

	// CLIFlags are the flags of the CLI header (II.25.3.3.1).
	CLIFlags uint32
}

// Open opens the named file and parses its CLI metadata.
func Open(path string) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(errors.PhaseRead, path)
		}
		return nil, errors.New(errors.PhaseRead, errors.KindInvalidInput).Path(path).Cause(err).Build()
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.PhaseRead, errors.KindInvalidInput).Path(path).Cause(err).Build()
	}
	f, err := NewFile(fh)
	if err != nil {
		fh.Close()
		return nil, errors.WithPath(err, path)
	}
	f.closer = fh
	f.Path = path
	return f, nil
}

// NewFile parses the CLI metadata of a PE image read from r.
// The caller keeps ownership of r.
func NewFile(r io.ReaderAt) (*File, error) {
	img, err := pe.NewFile(r)
	if err != nil {
		return nil, errors.Malformed("PE", "not a PE image", err)
	}
	defer img.Close()

	var dir pe.DataDirectory
	switch oh := img.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes > comDescriptorIndex {
			dir = oh.DataDirectory[comDescriptorIndex]
		}
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes > comDescriptorIndex {
			dir = oh.DataDirectory[comDescriptorIndex]
		}
	default:
		return nil, errors.Malformed("PE", "missing optional header", nil)
	}
	if dir.VirtualAddress == 0 || dir.Size < 72 {
		return nil, errors.Malformed("CLI header", "image has no CLI header", nil)
	}

	cli, err := readRVA(img, dir.VirtualAddress, 72)
	if err != nil {
		return nil, errors.Malformed("CLI header", "unreadable", err)
	}
	cr := binary.NewReader(cli)
	_ = cr.Skip(8) // cb, runtime major/minor
	mdRVA, _ := cr.ReadU32()
	mdSize, _ := cr.ReadU32()
	flags, _ := cr.ReadU32()
	if mdRVA == 0 || mdSize == 0 {
		return nil, errors.Malformed("CLI header", "no metadata directory", nil)
	}

	md, err := readRVA(img, mdRVA, mdSize)
	if err != nil {
		return nil, errors.Malformed("metadata root", "unreadable", err)
	}

	f := &File{CLIFlags: flags}
	if err := f.parseRoot(md); err != nil {
		return nil, err
	}
	return f, nil
}

// readRVA copies size bytes at a relative virtual address out of the section containing it.
func readRVA(img *pe.File, rva, size uint32) ([]byte, error) {
	for _, s := range img.Sections {
		span := s.VirtualSize
		if s.Size > span {
			span = s.Size
		}
		if rva < s.VirtualAddress || rva >= s.VirtualAddress+span {
			continue
		}
		off := rva - s.VirtualAddress
		if uint64(off)+uint64(size) > uint64(s.Size) {
			return nil, fmt.Errorf("rva %#x+%d beyond raw data of section %s", rva, size, s.Name)
		}
		buf := make([]byte, size)
		if _, err := s.ReadAt(buf, int64(off)); err != nil {
			return nil, err
		}
		return buf, nil
	}
	return nil, fmt.Errorf("rva %#x not mapped by any section", rva)
}

// parseRoot reads the metadata root and its stream headers (II.24.2.1).
func (f *File) parseRoot(md []byte) error {
	r := binary.NewReader(md)
	sig, err := r.ReadU32()
	if err != nil || sig != metadataSignature {
		return errors.Malformed("metadata root", "bad signature", err)
	}
	if err := r.Skip(8); err != nil { // major, minor, reserved
		return errors.Malformed("metadata root", "truncated", err)
	}
	vlen, err := r.ReadU32()
	if err != nil {
		return errors.Malformed("metadata root", "truncated", err)
	}
	vbytes, err := r.ReadBytes(int(vlen))
	if err != nil {
		return errors.Malformed("metadata root", "version string truncated", err)
	}
	f.RuntimeVersion = cstring(vbytes)
	if err := r.Skip(2); err != nil { // flags
		return errors.Malformed("metadata root", "truncated", err)
	}
	nstreams, err := r.ReadU16()
	if err != nil {
		return errors.Malformed("metadata root", "truncated", err)
	}

	var tableStream []byte
	for i := 0; i < int(nstreams); i++ {
		off, err1 := r.ReadU32()
		size, err2 := r.ReadU32()
		name, err3 := r.ReadCString()
		if err1 != nil || err2 != nil || err3 != nil {
			return errors.Malformed("metadata root", fmt.Sprintf("stream header %d truncated", i), nil)
		}
		if err := r.Align4(); err != nil {
			return errors.Malformed("metadata root", "stream header padding", err)
		}
		if uint64(off)+uint64(size) > uint64(len(md)) {
			return errors.Malformed(name, fmt.Sprintf("stream [%d,+%d) outside metadata", off, size), nil)
		}
		data := md[off : off+size]
		switch name {
		case "#~", "#-":
			tableStream = data
		case "#Strings":
			f.heaps.strings = data
		case "#Blob":
			f.heaps.blob = data
		case "#GUID":
			f.heaps.guid = data
		case "#US":
			f.heaps.us = data
		}
	}
	if tableStream == nil {
		return errors.Malformed("metadata root", "no table stream", nil)
	}

	ts, err := parseTables(tableStream)
	if err != nil {
		return err
	}
	f.tables = ts
	return nil
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Close releases the underlying file, if Open created it.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	err := f.closer.Close()
	f.closer = nil
	return err
}
