package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbrescue/go-ibdrescue/format"
)

const usersSDI = `[
"ibd2sdi",
{
 "type": 1,
 "id": 391,
 "object": {
  "dd_object_type": "Table",
  "dd_object": {
   "name": "users",
   "collation_id": 255,
   "se_private_data": "space_id=5;",
   "columns": [
    {"name": "id", "type": 4, "is_nullable": false, "is_unsigned": true,
     "column_type_utf8": "int unsigned", "hidden": 1},
    {"name": "name", "type": 16, "is_nullable": false,
     "char_length": 400, "column_type_utf8": "varchar(100)", "hidden": 1},
    {"name": "bio", "type": 25, "is_nullable": true,
     "column_type_utf8": "text", "hidden": 1},
    {"name": "mood", "type": 22, "is_nullable": true,
     "column_type_utf8": "enum('ok','sad')", "hidden": 1,
     "elements": [{"name": "ok"}, {"name": "sad"}]},
    {"name": "DB_TRX_ID", "type": 10, "hidden": 2},
    {"name": "DB_ROLL_PTR", "type": 9, "hidden": 2}
   ],
   "indexes": [
    {"name": "PRIMARY", "type": 1,
     "se_private_data": "id=7;root=4;space_id=5;",
     "elements": [
      {"ordinal_position": 1, "column_opx": 0, "length": 4, "hidden": false},
      {"ordinal_position": 2, "column_opx": 4, "length": 6, "hidden": true},
      {"ordinal_position": 3, "column_opx": 5, "length": 7, "hidden": true}
     ]},
    {"name": "by_name", "type": 2,
     "se_private_data": "id=8;root=5;space_id=5;",
     "elements": [
      {"ordinal_position": 1, "column_opx": 1, "length": 400, "hidden": false}
     ]}
   ]
  }
 }
}
]`

func TestParseSDIExport(t *testing.T) {
	obj, err := ParseSDIExport([]byte(usersSDI))
	require.NoError(t, err)
	assert.Equal(t, "users", obj.Name)
	require.Len(t, obj.Indexes, 2)

	id, ok := obj.Indexes[0].IndexID()
	require.True(t, ok)
	assert.Equal(t, uint64(7), id)
	root, ok := obj.Indexes[0].RootPage()
	require.True(t, ok)
	assert.Equal(t, uint32(4), root)
}

func TestParseSDIExportWrapperObject(t *testing.T) {
	// The shape an on-disk SDI record payload carries: no export array,
	// just the typed wrapper around the dd object.
	wrapper := `{"dd_object_type":"Table","dd_object":{
	 "name":"users",
	 "columns":[{"name":"id","type":4,"column_type_utf8":"int","hidden":1}],
	 "indexes":[{"name":"PRIMARY","type":1,"se_private_data":"id=7;root=4;"}]}}`

	obj, err := ParseSDIExport([]byte(wrapper))
	require.NoError(t, err)
	assert.Equal(t, "users", obj.Name)
	id, ok := obj.Indexes[0].IndexID()
	require.True(t, ok)
	assert.Equal(t, uint64(7), id)

	t.Run("non-table wrapper rejected", func(t *testing.T) {
		_, err := ParseSDIExport([]byte(`{"dd_object_type":"Tablespace","dd_object":{"name":"x"}}`))
		assert.ErrorIs(t, err, format.ErrInvalidFormat)
	})
}

func TestParseSDIExportRejectsGarbage(t *testing.T) {
	_, err := ParseSDIExport([]byte(`{"no": "table"}`))
	assert.ErrorIs(t, err, format.ErrInvalidFormat)

	_, err = ParseSDIExport([]byte(`["ibd2sdi"]`))
	assert.ErrorIs(t, err, format.ErrInvalidFormat)
}

func TestNewTableDefFromSDI(t *testing.T) {
	obj, err := ParseSDIExport([]byte(usersSDI))
	require.NoError(t, err)
	td, err := NewTableDefFromSDI(obj)
	require.NoError(t, err)

	assert.Equal(t, "users", td.Name)
	assert.Equal(t, 4, td.ColumnCount(), "hidden SE columns are dropped")
	assert.Equal(t, []string{"id"}, td.PrimaryKeys)

	name, ok := td.GetColumn("name")
	require.True(t, ok)
	assert.Equal(t, TypeVarchar, name.Type)
	assert.Equal(t, 100, name.Length)

	mood, ok := td.GetColumn("mood")
	require.True(t, ok)
	assert.Equal(t, TypeEnum, mood.Type)
	assert.Equal(t, []string{"ok", "sad"}, mood.EnumValues)

	require.Len(t, td.Indexes, 2)
	assert.Equal(t, uint64(7), td.Indexes[0].ID)
	assert.True(t, td.Indexes[0].IsPrimary)
	assert.Equal(t, []string{"id"}, td.Indexes[0].Columns, "hidden elements excluded")
	assert.Equal(t, []string{"name"}, td.Indexes[1].Columns)
}

func TestSePrivateField(t *testing.T) {
	v, ok := SePrivateField("id=7;root=4;space_id=5;", "root")
	assert.True(t, ok)
	assert.Equal(t, "4", v)

	_, ok = SePrivateField("id=7;", "root")
	assert.False(t, ok)
}

func TestRewriteIndexIDs(t *testing.T) {
	parse := func(t *testing.T) *SDITableObject {
		t.Helper()
		obj, err := ParseSDIExport([]byte(usersSDI))
		require.NoError(t, err)
		return obj
	}

	t.Run("remaps every index", func(t *testing.T) {
		obj := parse(t)
		out, err := obj.RewriteIndexIDs(map[uint64]uint64{7: 42, 8: 43}, nil, nil)
		require.NoError(t, err)

		back, err := ParseSDIExport(out)
		require.NoError(t, err)
		id, _ := back.Indexes[0].IndexID()
		assert.Equal(t, uint64(42), id)
		id, _ = back.Indexes[1].IndexID()
		assert.Equal(t, uint64(43), id)
		root, _ := back.Indexes[0].RootPage()
		assert.Equal(t, uint32(4), root, "root untouched without override")
	})

	t.Run("missing map entry conflicts", func(t *testing.T) {
		obj := parse(t)
		_, err := obj.RewriteIndexIDs(map[uint64]uint64{7: 42}, nil, nil)
		assert.ErrorIs(t, err, format.ErrRemapConflict)
	})

	t.Run("overrides root and space", func(t *testing.T) {
		obj := parse(t)
		root := uint32(11)
		space := uint32(77)
		out, err := obj.RewriteIndexIDs(map[uint64]uint64{7: 7, 8: 8}, &root, &space)
		require.NoError(t, err)

		back, err := ParseSDIExport(out)
		require.NoError(t, err)
		r, _ := back.Indexes[0].RootPage()
		assert.Equal(t, uint32(11), r)
		sp, ok := SePrivateField(back.Indexes[0].SePrivateData, "space_id")
		require.True(t, ok)
		assert.Equal(t, "77", sp)
	})

	t.Run("deterministic serialization", func(t *testing.T) {
		a, err := parse(t).RewriteIndexIDs(map[uint64]uint64{7: 7, 8: 8}, nil, nil)
		require.NoError(t, err)
		b, err := parse(t).RewriteIndexIDs(map[uint64]uint64{7: 7, 8: 8}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.True(t, json.Valid(a))
	})

	t.Run("unknown fields survive", func(t *testing.T) {
		obj := parse(t)
		obj.Raw["comment"] = "keep me"
		out, err := obj.RewriteIndexIDs(map[uint64]uint64{7: 7, 8: 8}, nil, nil)
		require.NoError(t, err)
		assert.Contains(t, string(out), `"comment":"keep me"`)
	})
}
