package binary

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestReaderReadByte(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data)

	for i, want := range data {
		if r.Position() != i {
			t.Errorf("position before read %d: got %d, want %d", i, r.Position(), i)
		}
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte %d: %v", i, err)
		}
		if b != want {
			t.Errorf("ReadByte %d: got 0x%02x, want 0x%02x", i, b, want)
		}
	}

	_, err := r.ReadByte()
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestReaderFixedWidth(t *testing.T) {
	r := NewReader([]byte{0x34, 0x12, 0x78, 0x56, 0x34, 0x12, 0xAA})
	u16, err := r.ReadU16()
	if err != nil || u16 != 0x1234 {
		t.Fatalf("ReadU16 = %#x, %v", u16, err)
	}
	u32, err := r.ReadU32()
	if err != nil || u32 != 0x12345678 {
		t.Fatalf("ReadU32 = %#x, %v", u32, err)
	}
	if _, err := r.ReadU16(); err == nil {
		t.Error("expected error reading past end")
	}
}

func TestCompressedU32(t *testing.T) {
	tests := []struct {
		value   uint32
		encoded []byte
	}{
		{0x03, []byte{0x03}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x80, 0x80}},
		{0x2E57, []byte{0xAE, 0x57}},
		{0x3FFF, []byte{0xBF, 0xFF}},
		{0x4000, []byte{0xC0, 0x00, 0x40, 0x00}},
		{0x1FFFFFFF, []byte{0xDF, 0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		w := NewWriter()
		w.WriteCompressedU32(tt.value)
		if !bytes.Equal(w.Bytes(), tt.encoded) {
			t.Errorf("encode %#x: got % x, want % x", tt.value, w.Bytes(), tt.encoded)
		}

		got, err := NewReader(tt.encoded).ReadCompressedU32()
		if err != nil {
			t.Fatalf("decode %#x: %v", tt.value, err)
		}
		if got != tt.value {
			t.Errorf("decode % x: got %#x, want %#x", tt.encoded, got, tt.value)
		}
	}
}

func TestCompressedU32Invalid(t *testing.T) {
	_, err := NewReader([]byte{0xE0}).ReadCompressedU32()
	if !errors.Is(err, ErrBadCompressed) {
		t.Errorf("expected ErrBadCompressed, got %v", err)
	}
}

func TestCompressedS32(t *testing.T) {
	// Values from ECMA-335 II.23.2.
	tests := []struct {
		encoded []byte
		want    int32
	}{
		{[]byte{0x06}, 3},
		{[]byte{0x7B}, -3},
		{[]byte{0x80, 0x80}, 64},
		{[]byte{0x01}, -64},
		{[]byte{0xC0, 0x00, 0x40, 0x00}, 8192},
		{[]byte{0x80, 0x01}, -8192},
		{[]byte{0xDF, 0xFF, 0xFF, 0xFE}, 268435455},
		{[]byte{0xC0, 0x00, 0x00, 0x01}, -268435456},
	}

	for _, tt := range tests {
		got, err := NewReader(tt.encoded).ReadCompressedS32()
		if err != nil {
			t.Fatalf("decode % x: %v", tt.encoded, err)
		}
		if got != tt.want {
			t.Errorf("decode % x: got %d, want %d", tt.encoded, got, tt.want)
		}
	}
}

func TestSerString(t *testing.T) {
	w := NewWriter()
	w.WriteSerString("echo")
	w.WriteNullSerString()
	w.WriteSerString("")

	r := NewReader(w.Bytes())
	s, ok, err := r.ReadSerString()
	if err != nil || !ok || s != "echo" {
		t.Fatalf("first = %q %v %v", s, ok, err)
	}
	s, ok, err = r.ReadSerString()
	if err != nil || ok || s != "" {
		t.Fatalf("null = %q %v %v", s, ok, err)
	}
	s, ok, err = r.ReadSerString()
	if err != nil || !ok || s != "" {
		t.Fatalf("empty = %q %v %v", s, ok, err)
	}
}

func TestCStringAndAlign(t *testing.T) {
	r := NewReader([]byte{'#', '~', 0, 0, 0xAB})
	s, err := r.ReadCString()
	if err != nil || s != "#~" {
		t.Fatalf("ReadCString = %q, %v", s, err)
	}
	if err := r.Align4(); err != nil {
		t.Fatal(err)
	}
	if r.Position() != 4 {
		t.Errorf("position after align = %d, want 4", r.Position())
	}
}

func TestReaderSeekBounds(t *testing.T) {
	r := NewReader(make([]byte, 4))
	if err := r.Seek(5); err == nil {
		t.Error("expected error seeking past end")
	}
	if err := r.Seek(4); err != nil {
		t.Errorf("seek to end: %v", err)
	}
}

func TestWriteIndex(t *testing.T) {
	w := NewWriter()
	w.WriteIndex(0x0102, false)
	w.WriteIndex(0x01020304, true)
	want := []byte{0x02, 0x01, 0x04, 0x03, 0x02, 0x01}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("got % x, want % x", w.Bytes(), want)
	}
}

func TestParseErrorUnwrap(t *testing.T) {
	r := NewReader(nil)
	err := r.WrapError("#~", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("ParseError should unwrap")
	}
}
