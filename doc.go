// Package ibdrescue interprets and rebuilds single-table InnoDB
// tablespace files offline, without a running server.
//
// The library is organized into logical groups of functionality:
//
// On-disk format:
//   - format: sizes, offsets, page types, space flags, checksums
//   - page: FIL framing, index/FSP/XDES/BLOB/SDI page parsing
//
// Per-page transforms:
//   - crypt: encryption-info header, key unwrap, unpadded AES-256-CBC
//   - zipdec: classic index-page compaction and transparent whole-page
//     compression (zlib, lz4, snappy)
//
// Record decoding:
//   - record: compact record headers, walking, schema-driven parsing
//   - column: typed value decoding per MySQL storage conventions
//   - schema: table and index definitions, CREATE TABLE and SDI ingestion
//
// Rebuilding:
//   - rebuild: decompress-and-rewrite pipeline with SDI index-id remap
//
// Basic usage:
//
//	file, _ := os.Open("table.ibd")
//	defer file.Close()
//
//	reader, _ := ibdrescue.OpenTablespace(file, ibdrescue.ReaderOptions{})
//	p, _ := reader.ReadPage(3)
//
//	if p.PageType() == format.PageTypeIndex {
//	    indexPage, _ := page.ParseIndexPage(p)
//	    records, _ := indexPage.WalkRecords(100, true)
//	    _ = records
//	}
package ibdrescue
