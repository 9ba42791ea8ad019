// rebuild.go - Tablespace rebuild pipeline: plan, expand, rewrite, finalize
//
// A rebuild consumes a possibly compressed and/or encrypted tablespace
// and emits a plaintext uncompressed one at the logical page size, with
// the schema-description records remapped to the target index ids and
// every page checksum recomputed. Page numbers are preserved
// one-to-one; only relocated overflow chains get pages past the old
// end, so node pointers and extern references stay valid without
// rewriting.
package rebuild

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	ibdrescue "github.com/dbrescue/go-ibdrescue"
	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/page"
	"github.com/dbrescue/go-ibdrescue/schema"
)

// Options configure a rebuild. Caller-owned.
type Options struct {
	// Checksum selects the formula stamped on output pages.
	Checksum format.ChecksumAlg

	// IndexIDMap explicitly maps source index ids to target ids. When
	// nil, TargetTable ids are matched positionally; when that is also
	// absent, ids map to themselves.
	IndexIDMap map[uint64]uint64

	// TargetTable supplies the destination schema: its index ids drive
	// positional mapping and its summary lands in the companion file.
	TargetTable *schema.TableDef

	// RootOverride / SpaceOverride rewrite the retained root page and
	// space id inside the schema-description documents.
	RootOverride  *uint32
	SpaceOverride *uint32

	// MetadataPath, when set, receives a JSON column/index summary next
	// to the output tablespace.
	MetadataPath string

	Logger *logrus.Logger
}

// Plan is what the first pass learned about the source.
type Plan struct {
	SourceIndexIDs []uint64
	SDIPages       []uint32
	FreePages      []uint32
	PageCount      uint32
	ZipSsize       uint32
	Encrypted      bool
}

// Rebuilder drives the four-stage pipeline. Stages must run in order;
// Run does so.
type Rebuilder struct {
	src  *ibdrescue.PageReader
	opts Options

	plan  *Plan
	rmap  *RebuildMap
	free  map[uint32]bool
	pages [][]byte
}

// New wraps an opened source tablespace.
func New(src *ibdrescue.PageReader, opts Options) *Rebuilder {
	return &Rebuilder{src: src, opts: opts}
}

func (rb *Rebuilder) logf(fields logrus.Fields, msg string) {
	if rb.opts.Logger != nil {
		rb.opts.Logger.WithFields(fields).Info(msg)
	}
}

// Plan sweeps the source once, collecting index ids and SDI page
// locations, and resolves the index-id map. Pages whose extent
// descriptor marks them free hold stale data and are excluded from
// classification. A remap conflict surfaces here, before any output
// exists.
func (rb *Rebuilder) Plan() (*Plan, error) {
	params := rb.src.Params()
	p := &Plan{
		PageCount: params.SizePages,
		ZipSsize:  format.ZipSsize(params.Flags),
		Encrypted: params.Encrypted,
	}
	rb.free = make(map[uint32]bool)

	// The descriptor page covering the current group, cached across the
	// sweep: page 0 for the first group, then one XDES page per group.
	logical := params.LogicalSize
	var descData []byte
	descNo := uint32(0xFFFFFFFF)

	for pageNo := uint32(0); pageNo < p.PageCount; pageNo++ {
		group := pageNo - pageNo%uint32(logical)
		if group != descNo {
			descNo = group
			descData = nil
			if dp, err := rb.src.ReadPage(group); err == nil {
				switch dp.PageType() {
				case format.PageTypeFspHdr, format.PageTypeXdes:
					descData = dp.Data
				}
			}
		}
		if descData != nil && pageNo != group {
			if x, err := page.ExtentDescriptor(descData, pageNo, logical); err == nil {
				if x.State == page.XdesFree || x.PageFree(int(pageNo)%page.ExtentPages(logical)) {
					rb.free[pageNo] = true
					p.FreePages = append(p.FreePages, pageNo)
					continue
				}
			}
		}

		ip, err := rb.src.ReadPage(pageNo)
		if err != nil {
			rb.logf(logrus.Fields{"page": pageNo, "err": err}, "plan: skipping unreadable page")
			continue
		}
		switch ip.PageType() {
		case format.PageTypeIndex:
			hdr, err := page.ParseIndexPage(ip)
			if err != nil {
				continue
			}
			p.SourceIndexIDs = append(p.SourceIndexIDs, hdr.Hdr.IndexID)
		case format.PageTypeSDI:
			p.SDIPages = append(p.SDIPages, pageNo)
		}
	}

	rb.rmap = NewRebuildMap(p.PageCount)
	var targetIDs []uint64
	if rb.opts.TargetTable != nil {
		for _, idx := range rb.opts.TargetTable.Indexes {
			targetIDs = append(targetIDs, idx.ID)
		}
	}
	if err := rb.rmap.ResolveIndexIDs(p.SourceIndexIDs, rb.opts.IndexIDMap, targetIDs); err != nil {
		return nil, err
	}

	rb.plan = p
	return p, nil
}

// Map exposes the resolved rebuild map after Plan.
func (rb *Rebuilder) Map() *RebuildMap { return rb.rmap }

// Expand decodes every source page to the logical size and applies the
// in-place rewrites: index ids on B-tree pages, flags and space id on
// page 0.
func (rb *Rebuilder) Expand() error {
	if rb.plan == nil {
		return errors.Wrap(format.ErrInvalidFormat, "expand before plan")
	}
	logical := rb.src.Params().LogicalSize
	rb.pages = make([][]byte, 0, rb.plan.PageCount)

	for pageNo := uint32(0); pageNo < rb.plan.PageCount; pageNo++ {
		raw, err := rb.src.ReadRaw(pageNo)
		if err != nil {
			return err
		}
		decoded, err := rb.src.Codec().Reverse(raw, pageNo)
		if err != nil {
			// Carry the page verbatim rather than lose it; the row data
			// it held is already unreachable.
			rb.logf(logrus.Fields{"page": pageNo, "err": err}, "expand: carrying undecodable page")
			decoded = raw
		}

		out := make([]byte, logical)
		copy(out, decoded)

		pt, _ := format.Be16(out, format.FilPageType)
		switch format.PageType(pt) {
		case format.PageTypeIndex, format.PageTypeRtree, format.PageTypeSDI:
			// A free page's index id is stale and stays out of the remap.
			if !rb.free[pageNo] {
				if err := rb.remapIndexID(out, pageNo); err != nil {
					return err
				}
			}
		case format.PageTypeFspHdr:
			rb.rewritePageZero(out)
		}
		if rb.opts.SpaceOverride != nil {
			format.PutBe32(out, format.FilPageSpaceID, *rb.opts.SpaceOverride)
		}
		rb.pages = append(rb.pages, out)
	}
	return nil
}

// remapIndexID substitutes the index-id field of a B-tree page header.
// SDI pages keep their id: the SDI index is not a user index.
func (rb *Rebuilder) remapIndexID(p []byte, pageNo uint32) error {
	pt, _ := format.Be16(p, format.FilPageType)
	if format.PageType(pt) == format.PageTypeSDI {
		return nil
	}
	old, err := format.Be64(p, format.FilHeaderSize+28)
	if err != nil {
		return err
	}
	id, err := rb.rmap.MapIndexID(old)
	if err != nil {
		return errors.Wrapf(err, "page %d", pageNo)
	}
	format.PutBe64(p, format.FilHeaderSize+28, id)
	return nil
}

// rewritePageZero clears the compression and encryption bits of the
// space flags: the output is plaintext at the logical page size.
func (rb *Rebuilder) rewritePageZero(p []byte) {
	hdr, err := page.ParseFspHeader(p)
	if err != nil {
		return
	}
	hdr.Flags = format.ClearZipSsize(hdr.Flags)
	hdr.Flags &^= 1 << format.FlagsEncryptionShift
	if rb.opts.SpaceOverride != nil {
		hdr.SpaceID = *rb.opts.SpaceOverride
	}
	hdr.Write(p)
}

// Finalize updates the page count on page 0, stamps every checksum and
// streams the image to w. The companion metadata file, when requested,
// is written last.
func (rb *Rebuilder) Finalize(w io.Writer) error {
	if rb.pages == nil {
		return errors.Wrap(format.ErrInvalidFormat, "finalize before expand")
	}

	if len(rb.pages) > 0 {
		p0 := rb.pages[0]
		if hdr, err := page.ParseFspHeader(p0); err == nil {
			hdr.SizePages = rb.rmap.TotalPages()
			hdr.FreeLimit = rb.rmap.TotalPages()
			hdr.Write(p0)
		}
	}

	for i, p := range rb.pages {
		format.StampChecksum(p, rb.opts.Checksum)
		if _, err := w.Write(p); err != nil {
			return errors.Wrapf(err, "write page %d", i)
		}
	}

	if rb.opts.MetadataPath != "" {
		if err := rb.writeMetadata(); err != nil {
			return err
		}
	}
	return nil
}

// Run executes the whole pipeline against w.
func (rb *Rebuilder) Run(w io.Writer) error {
	if _, err := rb.Plan(); err != nil {
		return err
	}
	if err := rb.Expand(); err != nil {
		return err
	}
	if err := rb.RewriteSDI(); err != nil {
		return err
	}
	return rb.Finalize(w)
}

// metadataDoc is the companion summary written next to a rebuilt file.
type metadataDoc struct {
	Table    string            `json:"table,omitempty"`
	SpaceID  uint32            `json:"space_id"`
	Pages    uint32            `json:"pages"`
	PageSize int               `json:"page_size"`
	IndexMap map[uint64]uint64 `json:"index_id_map"`
	Columns  []metadataColumn  `json:"columns,omitempty"`
	Indexes  []metadataIndex   `json:"indexes,omitempty"`
}

type metadataColumn struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type metadataIndex struct {
	Name    string   `json:"name"`
	ID      uint64   `json:"id"`
	Primary bool     `json:"primary"`
	Columns []string `json:"columns"`
}

func (rb *Rebuilder) writeMetadata() error {
	doc := metadataDoc{
		SpaceID:  rb.src.Params().SpaceID,
		Pages:    rb.rmap.TotalPages(),
		PageSize: rb.src.Params().LogicalSize,
		IndexMap: rb.rmap.IndexIDs,
	}
	if rb.opts.SpaceOverride != nil {
		doc.SpaceID = *rb.opts.SpaceOverride
	}
	if td := rb.opts.TargetTable; td != nil {
		doc.Table = td.Name
		for _, col := range td.Columns {
			doc.Columns = append(doc.Columns, metadataColumn{
				Name: col.Name, Type: string(col.Type), Nullable: col.Nullable,
			})
		}
		for _, idx := range td.Indexes {
			doc.Indexes = append(doc.Indexes, metadataIndex{
				Name: idx.Name, ID: idx.ID, Primary: idx.IsPrimary, Columns: idx.Columns,
			})
		}
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(rb.opts.MetadataPath, append(out, '\n'), 0o644)
}
