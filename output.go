// output.go - Row renderers: TSV, CSV and NDJSON
package ibdrescue

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dbrescue/go-ibdrescue/record"
)

// SinkFormat is the closed set of row output formats.
type SinkFormat int

const (
	SinkTSV SinkFormat = iota
	SinkCSV
	SinkNDJSON
)

// SinkFormatFromName maps a CLI name to a format.
func SinkFormatFromName(name string) (SinkFormat, error) {
	switch strings.ToLower(name) {
	case "tsv":
		return SinkTSV, nil
	case "csv":
		return SinkCSV, nil
	case "ndjson", "json":
		return SinkNDJSON, nil
	}
	return 0, fmt.Errorf("unknown output format %q", name)
}

// SinkOptions configure row rendering.
type SinkOptions struct {
	Format SinkFormat
	// Provenance adds page number, heap number and the delete mark to
	// every row.
	Provenance bool
	// Internal keeps the trx-id/roll-ptr fields in the output.
	Internal bool
}

// RowSink renders decoded rows to a writer. Not safe for concurrent use.
type RowSink struct {
	w    io.Writer
	csvw *csv.Writer
	opts SinkOptions

	wroteHeader bool
	columns     []string
}

// NewRowSink wraps a writer.
func NewRowSink(w io.Writer, opts SinkOptions) *RowSink {
	s := &RowSink{w: w, opts: opts}
	if opts.Format == SinkCSV {
		s.csvw = csv.NewWriter(w)
	}
	return s
}

// WriteRow renders one row. The first row fixes the column order for
// tabular formats.
func (s *RowSink) WriteRow(row *record.ParsedRow) error {
	switch s.opts.Format {
	case SinkNDJSON:
		return s.writeNDJSON(row)
	default:
		return s.writeTabular(row)
	}
}

// Flush drains any buffered output.
func (s *RowSink) Flush() error {
	if s.csvw != nil {
		s.csvw.Flush()
		return s.csvw.Error()
	}
	return nil
}

func (s *RowSink) visibleValues(row *record.ParsedRow) []record.Value {
	out := make([]record.Value, 0, len(row.Values))
	for _, v := range row.Values {
		if v.Kind == record.KindInternal && !s.opts.Internal {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (s *RowSink) writeTabular(row *record.ParsedRow) error {
	vals := s.visibleValues(row)
	if !s.wroteHeader {
		header := make([]string, 0, len(vals)+3)
		if s.opts.Provenance {
			header = append(header, "_page", "_heap", "_deleted")
		}
		for _, v := range vals {
			header = append(header, v.Column)
		}
		s.columns = header
		if err := s.writeFields(header); err != nil {
			return err
		}
		s.wroteHeader = true
	}

	fields := make([]string, 0, len(s.columns))
	if s.opts.Provenance {
		fields = append(fields,
			fmt.Sprint(row.PageNo), fmt.Sprint(row.HeapNumber), fmt.Sprint(row.Deleted))
	}
	for _, v := range vals {
		fields = append(fields, renderValue(v))
	}
	return s.writeFields(fields)
}

func (s *RowSink) writeFields(fields []string) error {
	if s.csvw != nil {
		return s.csvw.Write(fields)
	}
	for i, f := range fields {
		if i > 0 {
			if _, err := io.WriteString(s.w, "\t"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(s.w, escapeTSV(f)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(s.w, "\n")
	return err
}

func (s *RowSink) writeNDJSON(row *record.ParsedRow) error {
	obj := make(map[string]interface{}, len(row.Values)+3)
	if s.opts.Provenance {
		obj["_page"] = row.PageNo
		obj["_heap"] = row.HeapNumber
		obj["_deleted"] = row.Deleted
	}
	for _, v := range s.visibleValues(row) {
		switch v.Kind {
		case record.KindBytes:
			obj[v.Column] = hex.EncodeToString(v.Bytes)
		case record.KindDecimal:
			obj[v.Column] = v.Decimal.String()
		default:
			obj[v.Column] = v.Go()
		}
	}
	enc := json.NewEncoder(s.w)
	return enc.Encode(obj)
}

// renderValue is the tabular form of one value.
func renderValue(v record.Value) string {
	switch v.Kind {
	case record.KindNull:
		return "\\N"
	case record.KindInt:
		return fmt.Sprint(v.Int)
	case record.KindUint, record.KindInternal:
		return fmt.Sprint(v.Uint)
	case record.KindFloat:
		return fmt.Sprint(v.Float)
	case record.KindString, record.KindTemporal:
		return v.Str
	case record.KindBytes, record.KindExtern:
		return hex.EncodeToString(v.Bytes)
	case record.KindDecimal:
		return v.Decimal.String()
	case record.KindBool:
		return fmt.Sprint(v.Int != 0)
	}
	return ""
}

func escapeTSV(s string) string {
	r := strings.NewReplacer("\t", "\\t", "\n", "\\n", "\r", "\\r", "\\", "\\\\")
	return r.Replace(s)
}

// renderJSON renders a decoded JSON document compactly; failures fall
// back to the Go formatting.
func renderJSON(doc interface{}) string {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Sprint(doc)
	}
	return string(b)
}
