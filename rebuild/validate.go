// validate.go - Dry-run remap validation
package rebuild

// RemapReport is the outcome of a validate-remap dry run: what the
// rebuild would do to index ids, without writing anything.
type RemapReport struct {
	SourceIndexIDs []uint64
	SDIPages       []uint32
	IndexIDMap     map[uint64]uint64
}

// ValidateRemap runs the planning stage only and reports the resolved
// mapping. A count mismatch or an uncovered source id returns the
// remap-conflict error the full rebuild would have failed with.
func (rb *Rebuilder) ValidateRemap() (*RemapReport, error) {
	plan, err := rb.Plan()
	if err != nil {
		return nil, err
	}
	return &RemapReport{
		SourceIndexIDs: dedupSorted(plan.SourceIndexIDs),
		SDIPages:       plan.SDIPages,
		IndexIDMap:     rb.rmap.IndexIDs,
	}, nil
}
