package ibdrescue

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbrescue/go-ibdrescue/column"
	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/page"
	"github.com/dbrescue/go-ibdrescue/record"
	"github.com/dbrescue/go-ibdrescue/schema"
)

const testSpaceID = 5

// rowSpec drives the leaf-page fixture builder.
type rowSpec struct {
	id      int
	name    string
	note    []byte            // nil means NULL
	extern  *record.ExternRef // note moves off-page when set
	prefix  []byte            // inline prefix stored before the pointer
	deleted bool
}

func scanTable(t *testing.T) *schema.TableDef {
	t.Helper()
	td := schema.NewTableDef("notes")
	for _, col := range []*schema.Column{
		{Name: "id", Type: schema.TypeInt},
		{Name: "name", Type: schema.TypeVarchar, Length: 100, Charset: "utf8mb4"},
		{Name: "note", Type: schema.TypeText, Charset: "utf8mb4", Nullable: true},
	} {
		require.NoError(t, td.AddColumn(col))
	}
	require.NoError(t, td.AddIndex(&schema.IndexDef{
		ID: 7, Name: "PRIMARY", RootPage: 3, Columns: []string{"id"}, IsPrimary: true,
	}))
	return td
}

func filHeader(p []byte, pageNo uint32, typ format.PageType) {
	format.PutBe32(p, format.FilPageOffset, pageNo)
	format.PutBe32(p, format.FilPagePrev, 0xFFFFFFFF)
	format.PutBe32(p, format.FilPageNext, 0xFFFFFFFF)
	format.PutBe16(p, format.FilPageType, uint16(typ))
	format.PutBe32(p, format.FilPageSpaceID, testSpaceID)
}

func fspPage(t *testing.T, totalPages uint32) []byte {
	t.Helper()
	p := make([]byte, format.DefaultPageSize)
	filHeader(p, 0, format.PageTypeFspHdr)
	hdr := page.FspHeader{
		SpaceID:   testSpaceID,
		SizePages: totalPages,
		FreeLimit: totalPages,
		Flags: 1<<format.FlagsPostAntelopeShift |
			1<<format.FlagsAtomicBlobsShift |
			1<<format.FlagsSDIShift,
	}
	require.NoError(t, hdr.Write(p))
	return p
}

// leafPage assembles a compact leaf page of the scan table's primary
// index from row specs.
func leafPage(t *testing.T, pageNo uint32, indexID uint64, level uint16, rows []rowSpec) []byte {
	t.Helper()
	p := make([]byte, format.DefaultPageSize)
	filHeader(p, pageNo, format.PageTypeIndex)

	infContent := format.PageDataOff + format.RecordHeaderSize // 99
	supContent := infContent + format.SystemRecordBytes + format.RecordHeaderSize

	copy(p[infContent:], "infimum\x00")
	copy(p[supContent:], "supremum")
	require.NoError(t, record.RecordHeader{NumOwned: 1, Type: format.RecInfimum}.
		Write(p, format.PageDataOff))
	require.NoError(t, record.RecordHeader{
		NumOwned: uint8(1 + len(rows)), HeapNumber: 1, Type: format.RecSupremum,
	}.Write(p, supContent-format.RecordHeaderSize))

	pos := supContent + format.SystemRecordBytes // 120
	contents := make([]int, len(rows))
	for i, r := range rows {
		pre := format.RecordHeaderSize + 1 + 1 // header, bitmap, name length
		noteVar := 0
		switch {
		case r.extern != nil:
			noteVar = 2
		case r.note != nil:
			noteVar = 1
		}
		pre += noteVar
		content := pos + pre
		contents[i] = content

		bitmap := byte(0)
		if r.note == nil && r.extern == nil {
			bitmap = 0x01
		}
		p[content-6] = bitmap
		p[content-7] = byte(len(r.name))
		switch {
		case r.extern != nil:
			inline := len(r.prefix) + record.ExternRefSize
			p[content-8] = 0xC0 | byte(inline>>8)
			p[content-9] = byte(inline)
		case r.note != nil:
			p[content-8] = byte(len(r.note))
		}

		format.PutBe32(p, content, uint32(r.id)|0x80000000)
		cur := content + 4 + 6 + 7 // id, trx id, roll ptr
		copy(p[cur:], r.name)
		cur += len(r.name)
		switch {
		case r.extern != nil:
			copy(p[cur:], r.prefix)
			require.NoError(t, r.extern.Write(p, cur+len(r.prefix)))
			cur += len(r.prefix) + record.ExternRefSize
		case r.note != nil:
			copy(p[cur:], r.note)
			cur += len(r.note)
		}
		pos = cur
	}
	heapTop := pos

	// Next pointers chain infimum through the rows to supremum.
	nextOf := func(i int) int {
		if i+1 < len(rows) {
			return contents[i+1] - contents[i]
		}
		return supContent - contents[i]
	}
	first := supContent
	if len(rows) > 0 {
		first = contents[0]
	}
	require.NoError(t, record.RecordHeader{
		NumOwned: 1, Type: format.RecInfimum, NextRecOffset: first - infContent,
	}.Write(p, format.PageDataOff))
	for i, r := range rows {
		require.NoError(t, record.RecordHeader{
			HeapNumber:    uint16(i + 2),
			FlagsDeleted:  r.deleted,
			NextRecOffset: nextOf(i),
		}.Write(p, contents[i]-format.RecordHeaderSize))
	}

	hdr := record.IndexHeader{
		NumDirSlots: 2,
		HeapTop:     uint16(heapTop),
		NumHeapRecs: uint16(len(rows) + 2),
		Format:      format.FormatCompact,
		NumUserRecs: uint16(len(rows)),
		PageLevel:   level,
		IndexID:     indexID,
	}
	require.NoError(t, hdr.Write(p, format.FilHeaderSize))

	dirStart := len(p) - format.FilTrailerSize - 2*format.PageDirSlotSize
	format.PutBe16(p, dirStart, uint16(supContent))
	format.PutBe16(p, dirStart+2, uint16(infContent))
	return p
}

func assembleSpace(t *testing.T, pages ...[]byte) *PageReader {
	t.Helper()
	file := bytes.Join(pages, nil)
	reader, err := OpenTablespace(bytes.NewReader(file), ReaderOptions{})
	require.NoError(t, err)
	return reader
}

func collectRows(t *testing.T, s *RowScanner) []*record.ParsedRow {
	t.Helper()
	var rows []*record.ParsedRow
	require.NoError(t, s.Scan(func(r *record.ParsedRow) error {
		rows = append(rows, r)
		return nil
	}))
	return rows
}

func TestRowScannerScan(t *testing.T) {
	td := scanTable(t)
	rows := []rowSpec{
		{id: 1, name: "alice", note: []byte("hi")},
		{id: 2, name: "bob"},
		{id: 3, name: "carol", deleted: true},
	}
	reader := assembleSpace(t,
		fspPage(t, 4),
		make([]byte, format.DefaultPageSize),
		make([]byte, format.DefaultPageSize),
		leafPage(t, 3, 7, 0, rows))

	s, err := NewRowScanner(reader, td, column.DefaultOptions(), DumpOptions{})
	require.NoError(t, err)
	got := collectRows(t, s)

	require.Len(t, got, 2, "delete-marked row is dropped by default")
	id, _ := got[0].Value("id")
	assert.Equal(t, int64(1), id.Go())
	note, _ := got[0].Value("note")
	assert.Equal(t, "hi", note.Go())
	note, _ = got[1].Value("note")
	assert.True(t, note.IsNull())

	stats := s.Stats()
	assert.Equal(t, 1, stats.PagesVisited)
	assert.Equal(t, 2, stats.RowsDecoded)
	assert.Equal(t, 1, stats.DeletedSkipped)

	t.Run("include deleted", func(t *testing.T) {
		s, err := NewRowScanner(reader, td, column.DefaultOptions(), DumpOptions{IncludeDeleted: true})
		require.NoError(t, err)
		got := collectRows(t, s)
		require.Len(t, got, 3)
		assert.True(t, got[2].Deleted)
	})
}

func TestRowScannerSkipsForeignAndNonLeafPages(t *testing.T) {
	td := scanTable(t)
	reader := assembleSpace(t,
		fspPage(t, 4),
		leafPage(t, 1, 7, 1, nil), // same index, interior level
		leafPage(t, 2, 9, 0, nil), // different index
		leafPage(t, 3, 7, 0, []rowSpec{{id: 1, name: "only"}}))

	s, err := NewRowScanner(reader, td, column.DefaultOptions(), DumpOptions{})
	require.NoError(t, err)
	got := collectRows(t, s)
	require.Len(t, got, 1)
	assert.Equal(t, 2, s.Stats().PagesSkipped)
}

func TestScanDeterminism(t *testing.T) {
	td := scanTable(t)
	specs := make([]rowSpec, 55)
	for i := range specs {
		specs[i] = rowSpec{id: i + 1, name: fmt.Sprintf("name-%03d", i+1)}
	}
	reader := assembleSpace(t, fspPage(t, 2), leafPage(t, 1, 7, 0, specs))

	s, err := NewRowScanner(reader, td, column.DefaultOptions(), DumpOptions{})
	require.NoError(t, err)

	first := collectRows(t, s)
	require.Len(t, first, 55)
	assert.Equal(t, 55, s.Stats().RowsDecoded)
	for i, row := range first {
		id, _ := row.Value("id")
		require.Equal(t, int64(i+1), id.Go())
		name, _ := row.Value("name")
		require.Equal(t, fmt.Sprintf("name-%03d", i+1), name.Go())
	}

	second := collectRows(t, s)
	assert.Equal(t, first, second, "repeated scans yield identical rows")
}

func TestResolveExterns(t *testing.T) {
	td := scanTable(t)
	ref := &record.ExternRef{
		SpaceID: testSpaceID, PageNo: 2,
		Offset: page.BlobHeaderPartLen, Length: 11,
	}
	next := uint32(3)
	blob1, err := page.WriteBlobPage(format.DefaultPageSize, format.PageTypeBlob,
		2, testSpaceID, []byte("hello "), &next)
	require.NoError(t, err)
	blob2, err := page.WriteBlobPage(format.DefaultPageSize, format.PageTypeBlob,
		3, testSpaceID, []byte("world"), nil)
	require.NoError(t, err)

	reader := assembleSpace(t,
		fspPage(t, 4),
		leafPage(t, 1, 7, 0, []rowSpec{
			{id: 1, name: "a", extern: ref, prefix: []byte("pfx:")},
		}),
		blob1, blob2)

	s, err := NewRowScanner(reader, td, column.DefaultOptions(), DumpOptions{})
	require.NoError(t, err)
	got := collectRows(t, s)
	require.Len(t, got, 1)
	assert.False(t, got[0].HasExtern())

	note, ok := got[0].Value("note")
	require.True(t, ok)
	assert.Equal(t, record.KindBytes, note.Kind)
	assert.Equal(t, []byte("pfx:hello world"), note.Bytes)
}

func TestResolveExternHonorsOffset(t *testing.T) {
	td := scanTable(t)

	// First chain link with its part header at a nonstandard position,
	// located only by the pointer's stored offset.
	hdrOff := 300
	blob := make([]byte, format.DefaultPageSize)
	filHeader(blob, 2, format.PageTypeBlob)
	format.PutBe32(blob, hdrOff, 5)
	format.PutBe32(blob, hdrOff+4, 0xFFFFFFFF)
	copy(blob[hdrOff+8:], "world")

	ref := &record.ExternRef{
		SpaceID: testSpaceID, PageNo: 2, Offset: uint32(hdrOff), Length: 5,
	}
	rows := []rowSpec{{id: 1, name: "a", extern: ref, prefix: []byte("pfx:")}}
	reader := assembleSpace(t, fspPage(t, 3), leafPage(t, 1, 7, 0, rows), blob)

	s, err := NewRowScanner(reader, td, column.DefaultOptions(), DumpOptions{})
	require.NoError(t, err)
	got := collectRows(t, s)
	require.Len(t, got, 1)
	note, ok := got[0].Value("note")
	require.True(t, ok)
	assert.Equal(t, []byte("pfx:world"), note.Bytes)

	t.Run("offset out of page drops the record", func(t *testing.T) {
		bad := *ref
		bad.Offset = uint32(format.DefaultPageSize)
		rows := []rowSpec{{id: 1, name: "a", extern: &bad, prefix: []byte("pfx:")}}
		reader := assembleSpace(t, fspPage(t, 3), leafPage(t, 1, 7, 0, rows), blob)

		s, err := NewRowScanner(reader, td, column.DefaultOptions(), DumpOptions{})
		require.NoError(t, err)
		got := collectRows(t, s)
		assert.Empty(t, got)
		assert.Equal(t, 1, s.Stats().RecordsSkipped)
	})
}
