// index.go - Index definitions and decode-target selection
package schema

import (
	"fmt"

	"github.com/dbrescue/go-ibdrescue/format"
)

// IndexDef describes one index of the table.
type IndexDef struct {
	ID        uint64
	Name      string
	RootPage  uint32
	Columns   []string // ordered key columns
	IsPrimary bool
}

// AddIndex appends an index definition.
func (td *TableDef) AddIndex(idx *IndexDef) error {
	for _, col := range idx.Columns {
		if _, ok := td.ColumnMap[col]; !ok {
			return fmt.Errorf("index %s references unknown column %s: %w",
				idx.Name, col, format.ErrSchemaMismatch)
		}
	}
	td.Indexes = append(td.Indexes, idx)
	if idx.IsPrimary && len(td.PrimaryKeys) == 0 {
		if err := td.SetPrimaryKeys(idx.Columns); err != nil {
			return err
		}
	}
	return nil
}

// PrimaryIndex returns the index flagged primary, or nil.
func (td *TableDef) PrimaryIndex() *IndexDef {
	for _, idx := range td.Indexes {
		if idx.IsPrimary {
			return idx
		}
	}
	return nil
}

// SelectedIndex is the current decode target; nil until selected.
func (td *TableDef) SelectedIndex() *IndexDef { return td.selected }

// SelectIndexByName makes the named index the decode target.
func (td *TableDef) SelectIndexByName(name string) (*IndexDef, error) {
	for _, idx := range td.Indexes {
		if idx.Name == name {
			td.selected = idx
			return idx, nil
		}
	}
	return nil, fmt.Errorf("index %q not found in table %s: %w", name, td.Name, format.ErrSchemaMismatch)
}

// SelectIndexByID makes the index with the given identifier the decode target.
func (td *TableDef) SelectIndexByID(id uint64) (*IndexDef, error) {
	for _, idx := range td.Indexes {
		if idx.ID == id {
			td.selected = idx
			return idx, nil
		}
	}
	return nil, fmt.Errorf("index id %d not found in table %s: %w", id, td.Name, format.ErrSchemaMismatch)
}

// SelectPrimaryIndex makes the primary index the decode target.
func (td *TableDef) SelectPrimaryIndex() (*IndexDef, error) {
	if idx := td.PrimaryIndex(); idx != nil {
		td.selected = idx
		return idx, nil
	}
	return nil, fmt.Errorf("table %s has no primary index: %w", td.Name, format.ErrSchemaMismatch)
}

// AdoptDiscoveredID records an index identifier discovered from a
// candidate root page's on-disk index-id field, for schemas whose
// export lacks identifiers. The primary index is selected.
func (td *TableDef) AdoptDiscoveredID(id uint64) (*IndexDef, error) {
	idx, err := td.SelectPrimaryIndex()
	if err != nil {
		return nil, err
	}
	idx.ID = id
	return idx, nil
}

// MinHeaderBytes is the smallest possible compact record header for
// this table: 5 fixed bytes plus the null bitmap.
func (td *TableDef) MinHeaderBytes() int {
	return 5 + td.NullBitmapSize()
}

// MinRecordBytes is the smallest leaf-record footprint: header,
// internal trx-id/roll-ptr fields and every non-nullable fixed column
// at its minimum width.
func (td *TableDef) MinRecordBytes() int {
	n := td.MinHeaderBytes() + 6 + 7
	for _, col := range td.Columns {
		if col.Nullable {
			continue
		}
		n += col.StorageSize()
	}
	return n
}

// MaxRecordBytes is the largest in-page footprint: every column at its
// maximum inline width plus two length bytes per variable column.
func (td *TableDef) MaxRecordBytes() int {
	n := td.MinHeaderBytes() + 6 + 7
	for _, col := range td.Columns {
		if col.IsVariableLength() {
			n += 2 + col.MaxInlineBytes()
			continue
		}
		n += col.StorageSize()
	}
	return n
}
