package metadata

import (
	"fmt"

	"github.com/asklar/McpExtract/errors"
	"github.com/asklar/McpExtract/metadata/internal/binary"
)

type heaps struct {
	strings []byte
	blob    []byte
	guid    []byte
	us      []byte
}

// String returns the #Strings heap entry at idx, or "" when idx is out of range.
func (f *File) String(idx uint32) string {
	h := f.heaps.strings
	if idx == 0 || int(idx) >= len(h) {
		return ""
	}
	end := int(idx)
	for end < len(h) && h[end] != 0 {
		end++
	}
	return string(h[idx:end])
}

// Blob returns the #Blob heap entry at idx. Index zero is the empty blob.
func (f *File) Blob(idx uint32) ([]byte, error) {
	if idx == 0 {
		return nil, nil
	}
	h := f.heaps.blob
	if int(idx) >= len(h) {
		return nil, errors.Malformed("#Blob", fmt.Sprintf("index %d outside heap of %d bytes", idx, len(h)), nil)
	}
	r := binary.NewReader(h)
	if err := r.Seek(int(idx)); err != nil {
		return nil, errors.Malformed("#Blob", "bad index", err)
	}
	n, err := r.ReadCompressedU32()
	if err != nil {
		return nil, errors.Malformed("#Blob", fmt.Sprintf("length at %d", idx), err)
	}
	data, err := r.ReadBytes(int(n))
	if err != nil {
		return nil, errors.Malformed("#Blob", fmt.Sprintf("entry at %d truncated", idx), err)
	}
	return data, nil
}

// GUID returns the 1-based #GUID heap entry, or nil.
func (f *File) GUID(idx uint32) []byte {
	off := int(idx-1) * 16
	if idx == 0 || off+16 > len(f.heaps.guid) {
		return nil
	}
	return f.heaps.guid[off : off+16]
}
