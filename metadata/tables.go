package metadata

import (
	"fmt"
	"math/bits"

	"github.com/asklar/McpExtract/errors"
	"github.com/asklar/McpExtract/metadata/internal/binary"
)

type table struct {
	data    []byte
	offsets []int
	widths  []int
	cols    []column
	rows    uint32
	rowSize int
}

type tables struct {
	t           [tableCount]table
	stringsWide bool
	guidWide    bool
	blobWide    bool
}

// parseTables decodes the #~ (or #-) stream header and slices every present table.
func parseTables(data []byte) (*tables, error) {
	r := binary.NewReader(data)
	ts := &tables{}

	if err := r.Skip(4); err != nil {
		return nil, errors.Malformed("#~", "header truncated", err)
	}
	if err := r.Skip(2); err != nil { // major, minor
		return nil, errors.Malformed("#~", "header truncated", err)
	}
	heapSizes, err := r.ReadByte()
	if err != nil {
		return nil, errors.Malformed("#~", "header truncated", err)
	}
	if err := r.Skip(1); err != nil {
		return nil, errors.Malformed("#~", "header truncated", err)
	}
	valid, err := r.ReadU64()
	if err != nil {
		return nil, errors.Malformed("#~", "valid mask truncated", err)
	}
	if _, err := r.ReadU64(); err != nil {
		return nil, errors.Malformed("#~", "sorted mask truncated", err)
	}

	ts.stringsWide = heapSizes&heapStringsWide != 0
	ts.guidWide = heapSizes&heapGUIDWide != 0
	ts.blobWide = heapSizes&heapBlobWide != 0

	if valid>>tableCount != 0 {
		return nil, errors.Malformed("#~", fmt.Sprintf("unsupported tables in valid mask %#x", valid), nil)
	}

	for id := 0; id < tableCount; id++ {
		if valid&(1<<uint(id)) == 0 {
			continue
		}
		n, err := r.ReadU32()
		if err != nil {
			return nil, errors.Malformed("#~", "row counts truncated", err)
		}
		ts.t[id].rows = n
	}
	if heapSizes&heapExtraData != 0 {
		if err := r.Skip(4); err != nil {
			return nil, errors.Malformed("#~", "extra data truncated", err)
		}
	}

	for id := 0; id < tableCount; id++ {
		t := &ts.t[id]
		t.cols = schemas[id]
		t.widths = make([]int, len(t.cols))
		t.offsets = make([]int, len(t.cols))
		size := 0
		for i, c := range t.cols {
			t.offsets[i] = size
			t.widths[i] = ts.columnWidth(c)
			size += t.widths[i]
		}
		t.rowSize = size
	}

	for id := 0; id < tableCount; id++ {
		t := &ts.t[id]
		if t.rows == 0 {
			continue
		}
		n := int(t.rows) * t.rowSize
		raw, err := r.ReadBytes(n)
		if err != nil {
			return nil, errors.New(errors.PhaseRead, errors.KindMalformedBinary).
				Table(TableID(id).String()).
				Offset(int64(r.Position())).
				Detail("%d rows of %d bytes exceed stream", t.rows, t.rowSize).
				Cause(err).
				Build()
		}
		t.data = raw
	}

	return ts, nil
}

func (ts *tables) columnWidth(c column) int {
	switch c.kind {
	case colU16:
		return 2
	case colU32:
		return 4
	case colString:
		return heapWidth(ts.stringsWide)
	case colGUID:
		return heapWidth(ts.guidWide)
	case colBlob:
		return heapWidth(ts.blobWide)
	case colTable:
		if ts.t[c.table].rows > 0xFFFF {
			return 4
		}
		return 2
	case colCoded:
		var maxRows uint32
		for _, id := range c.coded.tables {
			if id != tableUnused && ts.t[id].rows > maxRows {
				maxRows = ts.t[id].rows
			}
		}
		if maxRows >= 1<<(16-c.coded.bits) {
			return 4
		}
		return 2
	}
	return 0
}

func heapWidth(wide bool) int {
	if wide {
		return 4
	}
	return 2
}

// get returns column col of the 1-based row. Out of range rows read as zero.
func (t *table) get(row uint32, col int) uint32 {
	if row == 0 || row > t.rows {
		return 0
	}
	off := int(row-1)*t.rowSize + t.offsets[col]
	b := t.data[off : off+t.widths[col]]
	if len(b) == 2 {
		return uint32(b[0]) | uint32(b[1])<<8
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// token decodes a coded index column into a token.
func (t *table) token(row uint32, col int) Token {
	c := t.cols[col]
	v := t.get(row, col)
	if c.kind == colTable {
		return NewToken(c.table, v)
	}
	return c.coded.decode(v)
}

// RowCount returns the number of rows in a table.
func (f *File) RowCount(id TableID) uint32 {
	if int(id) >= tableCount {
		return 0
	}
	return f.tables.t[id].rows
}

// TableCount returns the number of non-empty tables.
func (f *File) TableCount() int {
	ts := f.tables
	var mask uint64
	for id := 0; id < tableCount; id++ {
		if ts.t[id].rows > 0 {
			mask |= 1 << uint(id)
		}
	}
	return bits.OnesCount64(mask)
}
