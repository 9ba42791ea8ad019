// sdi.go - Schema-description (SDI) index pages and records
//
// An SDI page is an ordinary compact index page whose records embed the
// table/index schema as zlib-compressed JSON. Record content layout:
//
//	type(4) id(8) trx-id(6) roll-ptr(7) uncomp-len(4) comp-len(4) payload
package page

import (
	"fmt"

	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/record"
)

const (
	SDITypeTable      uint32 = 1
	SDITypeTablespace uint32 = 2

	sdiOffType      = 0
	sdiOffID        = 4
	sdiOffTrxID     = 12
	sdiOffRollPtr   = 18
	sdiOffUncompLen = 25
	sdiOffCompLen   = 29
	SDIRecordHdrLen = 33
)

// SDIRecord is one schema-description record. Payload is the raw zlib
// stream; the schema package inflates and interprets it. An extern
// record stores a 20-byte chain pointer instead, and Payload holds
// those pointer bytes until the chain is fetched.
type SDIRecord struct {
	Type       uint32
	ID         uint64
	TrxID      uint64
	RollPtr    uint64
	UncompLen  uint32
	CompLen    uint32
	Payload    []byte
	ContentPos int
	Deleted    bool
	Extern     bool
}

// SDIExternPtrLen is the stored payload length of an extern SDI record.
const SDIExternPtrLen = 20

// looksLikeZlib checks the 2-byte zlib stream header plus a sane
// compression-method nibble, the cheap magic gate before inflating.
func looksLikeZlib(b []byte) bool {
	if len(b) < 3 {
		return false
	}
	if b[0] != 0x78 {
		return false
	}
	return (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}

// ParseSDIRecords walks the leaf records of an SDI page and decodes
// each one. Malformed records are returned as errors per record via the
// skip callback, never aborting the page.
func ParseSDIRecords(p *IndexPage, skip func(pos int, err error)) []SDIRecord {
	recs, err := p.WalkRecords(1024, true)
	if err != nil && skip != nil {
		skip(0, err)
	}
	var out []SDIRecord
	for _, r := range recs {
		if r.Header.Type != format.RecConventional {
			continue
		}
		sr, err := parseSDIRecord(p.Inner.Data, r)
		if err != nil {
			if skip != nil {
				skip(r.ContentPos, err)
			}
			continue
		}
		out = append(out, sr)
	}
	return out
}

func parseSDIRecord(pageData []byte, r record.GenericRecord) (SDIRecord, error) {
	base := r.ContentPos
	if base+SDIRecordHdrLen > len(pageData) {
		return SDIRecord{}, fmt.Errorf("sdi record header out of page: %w", format.ErrTruncatedRead)
	}
	typ, _ := format.Be32(pageData, base+sdiOffType)
	id, _ := format.Be64(pageData, base+sdiOffID)
	trx, _ := format.Be48(pageData, base+sdiOffTrxID)
	roll, _ := format.Be48(pageData, base+sdiOffRollPtr) // low 6 of 7 bytes is enough for display
	uncomp, _ := format.Be32(pageData, base+sdiOffUncompLen)
	comp, _ := format.Be32(pageData, base+sdiOffCompLen)

	end := base + SDIRecordHdrLen + int(comp)
	if end > len(pageData) {
		return SDIRecord{}, fmt.Errorf("sdi payload %d overflows page: %w", comp, format.ErrInvalidFormat)
	}
	payload := pageData[base+SDIRecordHdrLen : end]
	extern := false
	if !looksLikeZlib(payload) {
		if comp != SDIExternPtrLen {
			return SDIRecord{}, fmt.Errorf("sdi payload magic mismatch: %w", format.ErrInvalidFormat)
		}
		extern = true
	}
	return SDIRecord{
		Type: typ, ID: id, TrxID: trx, RollPtr: roll,
		UncompLen: uncomp, CompLen: comp, Payload: payload,
		ContentPos: base, Deleted: r.Header.FlagsDeleted, Extern: extern,
	}, nil
}

// EncodeSDIRecordContent serializes the content bytes of an SDI record
// (header fields plus payload), used when a rebuild re-embeds a
// rewritten schema document.
func EncodeSDIRecordContent(typ uint32, id uint64, uncompLen uint32, payload []byte) []byte {
	out := make([]byte, SDIRecordHdrLen+len(payload))
	format.PutBe32(out, sdiOffType, typ)
	format.PutBe64(out, sdiOffID, id)
	// trx-id and roll-ptr are meaningless offline; left zero
	format.PutBe32(out, sdiOffUncompLen, uncompLen)
	format.PutBe32(out, sdiOffCompLen, uint32(len(payload)))
	copy(out[SDIRecordHdrLen:], payload)
	return out
}
