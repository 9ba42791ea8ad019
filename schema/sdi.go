// sdi.go - Build a TableDef from a schema-description (SDI) JSON export
//
// The JSON parsing itself is the external collaborator's job; this file
// only maps the already-structured document onto TableDef/IndexDef and
// offers the raw-document rewrite hook the rebuilder uses for index-id
// remapping.
package schema

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"sort"
	"strconv"
	"strings"

	"github.com/dbrescue/go-ibdrescue/format"
)

// SDI dd_object shapes, tolerant of unknown fields.
type sdiExport struct {
	Entries []sdiEntry
}

type sdiEntry struct {
	Type   uint32    `json:"type"`
	ID     uint64    `json:"id"`
	Object sdiObject `json:"object"`
}

type sdiObject struct {
	DDObjectType string          `json:"dd_object_type"`
	DDObject     json.RawMessage `json:"dd_object"`
}

// SDITableObject is the dd table document: typed fields this tool
// interprets plus the raw message for faithful re-serialization.
type SDITableObject struct {
	Name      string      `json:"name"`
	Collation uint64      `json:"collation_id"`
	Columns   []SDIColumn `json:"columns"`
	Indexes   []SDIIndex  `json:"indexes"`

	Raw map[string]interface{} `json:"-"`
}

type SDIColumn struct {
	Name            string `json:"name"`
	Type            int    `json:"type"`
	IsNullable      bool   `json:"is_nullable"`
	IsUnsigned      bool   `json:"is_unsigned"`
	CharLength      int    `json:"char_length"`
	NumericPrec     int    `json:"numeric_precision"`
	NumericScale    int    `json:"numeric_scale"`
	ColumnTypeUTF8  string `json:"column_type_utf8"`
	Hidden          int    `json:"hidden"`
	ElementsPresent []struct {
		Name string `json:"name"`
	} `json:"elements"`
}

type SDIIndex struct {
	Name          string `json:"name"`
	Type          int    `json:"type"` // 1 = primary
	SePrivateData string `json:"se_private_data"`
	Elements      []struct {
		Ordinal   int `json:"ordinal_position"`
		ColumnOpx int `json:"column_opx"`
		Length    int `json:"length"`
		Hidden    bool `json:"hidden"`
	} `json:"elements"`
}

const sdiIndexTypePrimary = 1

// hidden==2 marks SE-generated columns (DB_TRX_ID, DB_ROLL_PTR, DB_ROW_ID)
const sdiColumnVisible = 1

// ParseSDIExport decodes an ibd2sdi-style export: a JSON array whose
// entries are either the literal tool name or {type,id,object} records.
// The wrapper object an on-disk SDI record carries
// ({dd_object_type,dd_object}) and a bare dd_object are accepted too.
func ParseSDIExport(doc []byte) (*SDITableObject, error) {
	var rawEntries []json.RawMessage
	if err := json.Unmarshal(doc, &rawEntries); err != nil {
		var wrap sdiObject
		if err := json.Unmarshal(doc, &wrap); err == nil && wrap.DDObject != nil {
			if wrap.DDObjectType != "" && wrap.DDObjectType != "Table" {
				return nil, fmt.Errorf("SDI object type %q is not a table: %w",
					wrap.DDObjectType, format.ErrInvalidFormat)
			}
			return parseSDITable(wrap.DDObject)
		}
		return parseSDITable(doc)
	}
	for _, raw := range rawEntries {
		var e sdiEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			continue // tool-name literal or foreign entry
		}
		if e.Object.DDObject == nil {
			continue
		}
		if e.Object.DDObjectType != "" && e.Object.DDObjectType != "Table" {
			continue
		}
		return parseSDITable(e.Object.DDObject)
	}
	return nil, fmt.Errorf("no table object in SDI export: %w", format.ErrInvalidFormat)
}

func parseSDITable(doc []byte) (*SDITableObject, error) {
	var obj SDITableObject
	if err := json.Unmarshal(doc, &obj); err != nil {
		return nil, fmt.Errorf("parse SDI table object: %v: %w", err, format.ErrInvalidFormat)
	}
	if obj.Name == "" || len(obj.Columns) == 0 {
		return nil, fmt.Errorf("SDI table object missing name or columns: %w", format.ErrInvalidFormat)
	}
	if err := json.Unmarshal(doc, &obj.Raw); err != nil {
		return nil, fmt.Errorf("parse SDI raw object: %v: %w", err, format.ErrInvalidFormat)
	}
	return &obj, nil
}

// SePrivateField extracts one key from a "k=v;k=v" se_private_data string.
func SePrivateField(data, key string) (string, bool) {
	for _, kv := range strings.Split(data, ";") {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// IndexID returns the index identifier recorded in se_private_data.
func (ix SDIIndex) IndexID() (uint64, bool) {
	v, ok := SePrivateField(ix.SePrivateData, "id")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 64)
	return id, err == nil
}

// RootPage returns the index root page recorded in se_private_data.
func (ix SDIIndex) RootPage() (uint32, bool) {
	v, ok := SePrivateField(ix.SePrivateData, "root")
	if !ok {
		return 0, false
	}
	root, err := strconv.ParseUint(v, 10, 32)
	return uint32(root), err == nil
}

// NewTableDefFromSDI maps a parsed SDI table object onto a TableDef.
func NewTableDefFromSDI(obj *SDITableObject) (*TableDef, error) {
	td := NewTableDef(obj.Name)
	td.Engine = "InnoDB"
	for _, c := range obj.Columns {
		if c.Hidden != sdiColumnVisible {
			continue // DB_TRX_ID / DB_ROLL_PTR / DB_ROW_ID
		}
		col, err := columnFromTypeUTF8(c)
		if err != nil {
			return nil, err
		}
		if err := td.AddColumn(col); err != nil {
			return nil, err
		}
	}
	for _, ix := range obj.Indexes {
		def := &IndexDef{Name: ix.Name, IsPrimary: ix.Type == sdiIndexTypePrimary}
		if id, ok := ix.IndexID(); ok {
			def.ID = id
		}
		if root, ok := ix.RootPage(); ok {
			def.RootPage = root
		}
		for _, el := range ix.Elements {
			if el.Hidden || el.ColumnOpx >= len(td.Columns) {
				continue
			}
			def.Columns = append(def.Columns, td.Columns[el.ColumnOpx].Name)
		}
		if err := td.AddIndex(def); err != nil {
			return nil, err
		}
	}
	return td, nil
}

// NewTableDefFromSDIFile reads and maps an SDI export file.
func NewTableDefFromSDIFile(filename string) (*TableDef, error) {
	doc, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read SDI file failed: %w", err)
	}
	obj, err := ParseSDIExport(doc)
	if err != nil {
		return nil, err
	}
	return NewTableDefFromSDI(obj)
}

// columnFromTypeUTF8 maps an SDI column onto the Column model using the
// printable type string ("varchar(100)", "int unsigned", ...).
func columnFromTypeUTF8(c SDIColumn) (*Column, error) {
	typeStr := strings.TrimSpace(c.ColumnTypeUTF8)
	base := typeStr
	length := 0
	scale := 0
	if i := strings.IndexByte(typeStr, '('); i >= 0 {
		base = typeStr[:i]
		args := typeStr[i+1:]
		if j := strings.IndexByte(args, ')'); j >= 0 {
			args = args[:j]
		}
		parts := strings.Split(args, ",")
		length, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
		if len(parts) > 1 {
			scale, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
		}
	}
	base = strings.ToUpper(strings.Fields(base)[0])

	col := &Column{
		Name:      c.Name,
		Type:      normalizeColumnType(ColumnType(base), length),
		Length:    length,
		Precision: c.NumericPrec,
		Scale:     scale,
		Nullable:  c.IsNullable,
		Unsigned:  c.IsUnsigned || strings.Contains(strings.ToLower(typeStr), "unsigned"),
	}
	if col.Precision == 0 {
		col.Precision = length
	}
	if isStringType(col.Type) {
		col.Charset = "utf8mb4"
	}
	if col.Type == TypeEnum || col.Type == TypeSet {
		for _, el := range c.ElementsPresent {
			vals := &col.EnumValues
			if col.Type == TypeSet {
				vals = &col.SetValues
			}
			*vals = append(*vals, el.Name)
		}
	}
	return col, nil
}

// RewriteIndexIDs returns a re-serialized dd table document with index
// identifiers substituted per idMap, and optionally the retained root
// page and space id overridden. Unknown fields survive untouched.
func (obj *SDITableObject) RewriteIndexIDs(idMap map[uint64]uint64, rootOverride *uint32, spaceOverride *uint32) ([]byte, error) {
	indexes, ok := obj.Raw["indexes"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("dd object has no indexes array: %w", format.ErrInvalidFormat)
	}
	for _, entry := range indexes {
		ix, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		priv, _ := ix["se_private_data"].(string)
		idStr, ok := SePrivateField(priv, "id")
		if !ok {
			continue
		}
		oldID, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		newID, ok := idMap[oldID]
		if !ok {
			return nil, fmt.Errorf("index id %d has no remap entry: %w", oldID, format.ErrRemapConflict)
		}
		priv = setSePrivateField(priv, "id", strconv.FormatUint(newID, 10))
		if rootOverride != nil {
			priv = setSePrivateField(priv, "root", strconv.FormatUint(uint64(*rootOverride), 10))
		}
		if spaceOverride != nil {
			priv = setSePrivateField(priv, "space_id", strconv.FormatUint(uint64(*spaceOverride), 10))
		}
		ix["se_private_data"] = priv
	}
	if spaceOverride != nil {
		obj.Raw["se_private_data"] = setSePrivateField(
			asString(obj.Raw["se_private_data"]), "space_id",
			strconv.FormatUint(uint64(*spaceOverride), 10))
	}
	return marshalStable(obj.Raw)
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func setSePrivateField(data, key, value string) string {
	var parts []string
	found := false
	for _, kv := range strings.Split(data, ";") {
		if kv == "" {
			continue
		}
		if k, _, ok := strings.Cut(kv, "="); ok && k == key {
			parts = append(parts, key+"="+value)
			found = true
			continue
		}
		parts = append(parts, kv)
	}
	if !found {
		parts = append(parts, key+"="+value)
	}
	return strings.Join(parts, ";") + ";"
}

// marshalStable serializes with sorted keys so repeated rebuilds of the
// same input produce identical bytes.
func marshalStable(v interface{}) ([]byte, error) {
	switch m := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			vb, err := marshalStable(m[k])
			if err != nil {
				return nil, err
			}
			b.Write(vb)
		}
		b.WriteByte('}')
		return []byte(b.String()), nil
	case []interface{}:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range m {
			if i > 0 {
				b.WriteByte(',')
			}
			eb, err := marshalStable(e)
			if err != nil {
				return nil, err
			}
			b.Write(eb)
		}
		b.WriteByte(']')
		return []byte(b.String()), nil
	default:
		return json.Marshal(v)
	}
}
