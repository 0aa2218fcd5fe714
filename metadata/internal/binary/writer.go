package binary

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Writer provides buffered writing utilities for metadata encoding.
type Writer struct {
	buf *bytes.Buffer
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{buf: &bytes.Buffer{}}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	w.buf.Write(data)
}

// WriteU16 writes a little-endian uint16.
func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// WriteU32 writes a little-endian uint32.
func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// WriteU64 writes a little-endian uint64.
func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// WriteF64 writes a little-endian float64.
func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// WriteIndex writes a 2 or 4 byte table or heap index.
func (w *Writer) WriteIndex(v uint32, wide bool) {
	if wide {
		w.WriteU32(v)
		return
	}
	w.WriteU16(uint16(v))
}

// WriteCompressedU32 writes an ECMA-335 compressed unsigned integer.
func (w *Writer) WriteCompressedU32(v uint32) {
	switch {
	case v < 0x80:
		w.buf.WriteByte(byte(v))
	case v < 0x4000:
		w.buf.WriteByte(byte(v>>8) | 0x80)
		w.buf.WriteByte(byte(v))
	default:
		w.buf.WriteByte(byte(v>>24) | 0xC0)
		w.buf.WriteByte(byte(v >> 16))
		w.buf.WriteByte(byte(v >> 8))
		w.buf.WriteByte(byte(v))
	}
}

// WriteSerString writes a custom attribute SerString.
func (w *Writer) WriteSerString(s string) {
	w.WriteCompressedU32(uint32(len(s)))
	w.buf.WriteString(s)
}

// WriteNullSerString writes the null SerString marker.
func (w *Writer) WriteNullSerString() {
	w.buf.WriteByte(0xFF)
}

// Align pads with zero bytes up to a multiple of n.
func (w *Writer) Align(n int) {
	for w.buf.Len()%n != 0 {
		w.buf.WriteByte(0)
	}
}

// PadTo pads with zero bytes up to an absolute length.
func (w *Writer) PadTo(n int) {
	for w.buf.Len() < n {
		w.buf.WriteByte(0)
	}
}
