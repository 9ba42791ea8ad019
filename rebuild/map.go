// map.go - Page allocation and index-id mapping for a rebuild
package rebuild

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/dbrescue/go-ibdrescue/format"
)

// RebuildMap tracks everything the rebuild decided during planning:
// which old index ids map to which new ones, and which output pages are
// taken. Source page numbers are preserved one-to-one; only relocated
// overflow chains get fresh pages past the old end.
type RebuildMap struct {
	IndexIDs  map[uint64]uint64
	nextFresh uint32
	allocated map[uint32]bool
}

// NewRebuildMap starts a map for a source of oldPages pages.
func NewRebuildMap(oldPages uint32) *RebuildMap {
	return &RebuildMap{
		IndexIDs:  make(map[uint64]uint64),
		nextFresh: oldPages,
		allocated: make(map[uint32]bool),
	}
}

// AllocPage hands out the next fresh page number past the source end.
func (m *RebuildMap) AllocPage() uint32 {
	n := m.nextFresh
	m.nextFresh++
	m.allocated[n] = true
	return n
}

// TotalPages is the output page count after all allocations.
func (m *RebuildMap) TotalPages() uint32 { return m.nextFresh }

// MapIndexID translates one identifier; missing entries are a remap
// conflict, never silently passed through.
func (m *RebuildMap) MapIndexID(old uint64) (uint64, error) {
	if id, ok := m.IndexIDs[old]; ok {
		return id, nil
	}
	return 0, errors.Wrapf(format.ErrRemapConflict, "index id %d has no remap entry", old)
}

// ResolveIndexIDs fills the id map from the source ids and the caller's
// intent:
//   - an explicit map must cover every source id and reference only
//     source ids;
//   - target ids, when given, are matched positionally in sorted order
//     and must match the source in count;
//   - otherwise every id maps to itself.
func (m *RebuildMap) ResolveIndexIDs(sourceIDs []uint64, explicit map[uint64]uint64, targetIDs []uint64) error {
	src := dedupSorted(sourceIDs)

	if explicit != nil {
		known := make(map[uint64]bool, len(src))
		for _, id := range src {
			known[id] = true
			if _, ok := explicit[id]; !ok {
				return errors.Wrapf(format.ErrRemapConflict,
					"source index id %d missing from explicit map", id)
			}
		}
		for k, v := range explicit {
			if !known[k] {
				return errors.Wrapf(format.ErrRemapConflict,
					"explicit map references index id %d absent from source", k)
			}
			m.IndexIDs[k] = v
		}
		return nil
	}

	if len(targetIDs) > 0 {
		dst := dedupSorted(targetIDs)
		if len(dst) != len(src) {
			return errors.Wrapf(format.ErrRemapConflict,
				"source has %d indexes, target schema has %d", len(src), len(dst))
		}
		for i, id := range src {
			m.IndexIDs[id] = dst[i]
		}
		return nil
	}

	for _, id := range src {
		m.IndexIDs[id] = id
	}
	return nil
}

func dedupSorted(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	var out []uint64
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
