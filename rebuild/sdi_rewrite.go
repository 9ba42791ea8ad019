// sdi_rewrite.go - Remap index ids inside schema-description records
package rebuild

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/page"
	"github.com/dbrescue/go-ibdrescue/record"
	"github.com/dbrescue/go-ibdrescue/schema"
)

// RewriteSDI walks the SDI pages found during planning, rewrites every
// table document's index ids per the resolved map and re-embeds the
// deflated document. A document that no longer fits its record moves to
// a fresh overflow chain past the old end of the file.
func (rb *Rebuilder) RewriteSDI() error {
	if rb.pages == nil {
		return errors.Wrap(format.ErrInvalidFormat, "rewrite before expand")
	}
	for _, pageNo := range rb.plan.SDIPages {
		if err := rb.rewriteSDIPage(pageNo); err != nil {
			return errors.Wrapf(err, "sdi page %d", pageNo)
		}
	}
	return nil
}

func (rb *Rebuilder) rewriteSDIPage(pageNo uint32) error {
	data := rb.pages[pageNo]
	ip, err := page.NewInnerPage(pageNo, data)
	if err != nil {
		return err
	}
	xp, err := page.ParseIndexPage(ip)
	if err != nil {
		return err
	}

	recs := page.ParseSDIRecords(xp, func(pos int, err error) {
		rb.logf(logrus.Fields{"page": pageNo, "pos": pos, "err": err},
			"sdi: skipping malformed record")
	})
	for _, rec := range recs {
		if rec.Type != page.SDITypeTable || rec.Deleted || rec.Extern {
			continue
		}
		if err := rb.rewriteSDIRecord(data, rec); err != nil {
			return err
		}
	}
	return nil
}

func (rb *Rebuilder) rewriteSDIRecord(data []byte, rec page.SDIRecord) error {
	doc, err := inflateSDI(rec.Payload, rec.UncompLen)
	if err != nil {
		return err
	}
	obj, err := schema.ParseSDIExport(doc)
	if err != nil {
		return err
	}
	rewritten, err := obj.RewriteIndexIDs(rb.rmap.IndexIDs, rb.opts.RootOverride, rb.opts.SpaceOverride)
	if err != nil {
		return err
	}
	payload, err := deflateSDI(rewritten)
	if err != nil {
		return err
	}

	payloadPos := rec.ContentPos + page.SDIRecordHdrLen
	if len(payload) <= int(rec.CompLen) {
		// In-place: the record keeps its physical size, slack is zeroed.
		format.PutBe32(data, rec.ContentPos+25, uint32(len(rewritten)))
		format.PutBe32(data, rec.ContentPos+29, uint32(len(payload)))
		copy(data[payloadPos:], payload)
		for i := payloadPos + len(payload); i < payloadPos+int(rec.CompLen); i++ {
			data[i] = 0
		}
		return nil
	}

	// Oversized: move the payload to an overflow chain and leave the
	// 20-byte pointer in the record.
	if rec.CompLen < page.SDIExternPtrLen {
		return errors.Wrapf(format.ErrInvalidFormat,
			"sdi record too small for extern pointer: %d", rec.CompLen)
	}
	ref, err := rb.writeSDIChain(payload)
	if err != nil {
		return err
	}
	format.PutBe32(data, rec.ContentPos+25, uint32(len(rewritten)))
	format.PutBe32(data, rec.ContentPos+29, page.SDIExternPtrLen)
	if err := ref.Write(data, payloadPos); err != nil {
		return err
	}
	for i := payloadPos + page.SDIExternPtrLen; i < payloadPos+int(rec.CompLen); i++ {
		data[i] = 0
	}
	rb.logf(logrus.Fields{"first_page": ref.PageNo, "bytes": len(payload)},
		"sdi: document moved to overflow chain")
	return nil
}

// writeSDIChain appends SDI BLOB pages holding the payload and returns
// the pointer to its first link.
func (rb *Rebuilder) writeSDIChain(payload []byte) (record.ExternRef, error) {
	logical := rb.src.Params().LogicalSize
	partMax := logical - page.BlobDataOff - format.FilTrailerSize
	spaceID := rb.src.Params().SpaceID
	if rb.opts.SpaceOverride != nil {
		spaceID = *rb.opts.SpaceOverride
	}

	var pageNos []uint32
	for off := 0; off < len(payload); off += partMax {
		pageNos = append(pageNos, rb.rmap.AllocPage())
	}
	for i, pageNo := range pageNos {
		start := i * partMax
		end := start + partMax
		if end > len(payload) {
			end = len(payload)
		}
		var next *uint32
		if i+1 < len(pageNos) {
			next = &pageNos[i+1]
		}
		img, err := page.WriteBlobPage(logical, format.PageTypeSDIBlob,
			pageNo, spaceID, payload[start:end], next)
		if err != nil {
			return record.ExternRef{}, err
		}
		rb.pages = append(rb.pages, img)
	}
	return record.ExternRef{
		SpaceID: spaceID,
		PageNo:  pageNos[0],
		Offset:  page.BlobHeaderPartLen,
		Length:  uint64(len(payload)),
	}, nil
}

func inflateSDI(payload []byte, uncompLen uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(format.ErrDecompressionFailure, "open sdi stream")
	}
	defer zr.Close()
	out := make([]byte, uncompLen)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, errors.Wrap(format.ErrDecompressionFailure, "inflate sdi document")
	}
	return out, nil
}

func deflateSDI(doc []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, errors.Wrap(format.ErrDecompressionFailure, "open sdi deflate")
	}
	if _, err := zw.Write(doc); err != nil {
		return nil, errors.Wrap(format.ErrDecompressionFailure, "deflate sdi document")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(format.ErrDecompressionFailure, "close sdi deflate")
	}
	return buf.Bytes(), nil
}
