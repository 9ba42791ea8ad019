package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbrescue/go-ibdrescue/format"
)

const usersSQL = `CREATE TABLE users (
	id INT UNSIGNED NOT NULL,
	name VARCHAR(100) NOT NULL,
	bio TEXT,
	balance DECIMAL(12,4) NOT NULL,
	created DATETIME(3) NOT NULL,
	flags TINYINT(1),
	PRIMARY KEY (id),
	KEY by_name (name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

func TestParseTableDefFromSQL(t *testing.T) {
	td, err := ParseTableDefFromSQL(usersSQL)
	require.NoError(t, err)

	assert.Equal(t, "users", td.Name)
	assert.Equal(t, 6, td.ColumnCount())
	assert.Equal(t, []string{"id"}, td.PrimaryKeys)

	id, ok := td.GetColumn("id")
	require.True(t, ok)
	assert.Equal(t, TypeInt, id.Type)
	assert.True(t, id.Unsigned)
	assert.False(t, id.Nullable)
	assert.True(t, id.IsPrimaryKey)

	name, ok := td.GetColumn("name")
	require.True(t, ok)
	assert.Equal(t, TypeVarchar, name.Type)
	assert.Equal(t, 100, name.Length)
	assert.True(t, name.IsVariableLength())

	bio, ok := td.GetColumn("bio")
	require.True(t, ok)
	assert.Equal(t, TypeText, bio.Type)
	assert.True(t, bio.Nullable)

	balance, ok := td.GetColumn("balance")
	require.True(t, ok)
	assert.Equal(t, TypeDecimal, balance.Type)
	assert.Equal(t, 12, balance.Precision)
	assert.Equal(t, 4, balance.Scale)

	created, ok := td.GetColumn("created")
	require.True(t, ok)
	assert.Equal(t, TypeDateTime, created.Type)

	flags, ok := td.GetColumn("flags")
	require.True(t, ok)
	assert.Equal(t, TypeBoolean, flags.Type, "TINYINT(1) normalizes to boolean")

	// Two nullable columns means a one-byte null bitmap.
	assert.Equal(t, 2, td.NullableColumnCount())
	assert.Equal(t, 1, td.NullBitmapSize())
}

func TestParseTableDefBuildsIndexes(t *testing.T) {
	td, err := ParseTableDefFromSQL(usersSQL)
	require.NoError(t, err)

	require.Len(t, td.Indexes, 2)
	primary := td.PrimaryIndex()
	require.NotNil(t, primary)
	assert.Equal(t, "PRIMARY", primary.Name)
	assert.Equal(t, []string{"id"}, primary.Columns)

	// Primary selection must work straight from SQL, before any id is
	// discovered from the file.
	sel, err := td.SelectPrimaryIndex()
	require.NoError(t, err)
	assert.Same(t, primary, sel)
	assert.Zero(t, sel.ID, "SQL carries no index identifiers")

	secondary := td.Indexes[1]
	assert.Equal(t, "by_name", secondary.Name)
	assert.Equal(t, []string{"name"}, secondary.Columns)
	assert.False(t, secondary.IsPrimary)
}

func TestParseTableDefRejectsNonCreate(t *testing.T) {
	_, err := ParseTableDefFromSQL("SELECT 1")
	assert.Error(t, err)
}

func TestColumnStorageSizes(t *testing.T) {
	for _, tc := range []struct {
		name string
		col  Column
		want int
	}{
		{"int", Column{Type: TypeInt}, 4},
		{"bigint", Column{Type: TypeBigInt}, 8},
		{"mediumint", Column{Type: TypeMediumInt}, 3},
		{"date", Column{Type: TypeDate}, 3},
		{"datetime(0)", Column{Type: TypeDateTime}, 5},
		{"datetime(3)", Column{Type: TypeDateTime, Precision: 3}, 7},
		{"timestamp(6)", Column{Type: TypeTimestamp, Precision: 6}, 7},
		{"time(2)", Column{Type: TypeTime, Precision: 2}, 4},
		{"decimal(12,4)", Column{Type: TypeDecimal, Precision: 12, Scale: 4}, 6},
		{"decimal(10,0)", Column{Type: TypeDecimal, Precision: 10, Scale: 0}, 5},
		{"decimal(18,9)", Column{Type: TypeDecimal, Precision: 18, Scale: 9}, 8},
		{"bit(10)", Column{Type: TypeBit, Length: 10}, 2},
		{"char latin1", Column{Type: TypeChar, Length: 10, Charset: "latin1"}, 10},
		{"row id", Column{Type: TypeRowID}, 6},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.col.StorageSize())
		})
	}
}

func TestMaxInlineBytes(t *testing.T) {
	short := Column{Type: TypeVarchar, Length: 40, Charset: "utf8mb4"}
	assert.Equal(t, 160, short.MaxInlineBytes())

	long := Column{Type: TypeVarchar, Length: 2000, Charset: "utf8mb4"}
	assert.Equal(t, 788, long.MaxInlineBytes(), "capped at local prefix plus extern pointer")

	blob := Column{Type: TypeLongBlob}
	assert.Equal(t, 788, blob.MaxInlineBytes())
}

func TestRecordFootprints(t *testing.T) {
	td, err := ParseTableDefFromSQL(usersSQL)
	require.NoError(t, err)

	// 5 header bytes + 1 bitmap byte.
	assert.Equal(t, 6, td.MinHeaderBytes())

	// header + trx/roll + id(4) + balance(6) + created(7) over the
	// non-nullable fixed columns; name is variable and excluded.
	assert.Equal(t, 6+6+7+4+6+7, td.MinRecordBytes())
	assert.Greater(t, td.MaxRecordBytes(), td.MinRecordBytes())
}

func TestIndexSelection(t *testing.T) {
	td, err := ParseTableDefFromSQL(usersSQL)
	require.NoError(t, err)
	require.Len(t, td.Indexes, 2)
	td.Indexes[0].ID = 7
	td.Indexes[1].ID = 8

	t.Run("by name", func(t *testing.T) {
		idx, err := td.SelectIndexByName("by_name")
		require.NoError(t, err)
		assert.Equal(t, uint64(8), idx.ID)
		assert.Same(t, idx, td.SelectedIndex())
	})

	t.Run("by id", func(t *testing.T) {
		idx, err := td.SelectIndexByID(7)
		require.NoError(t, err)
		assert.True(t, idx.IsPrimary)
	})

	t.Run("primary", func(t *testing.T) {
		idx, err := td.SelectPrimaryIndex()
		require.NoError(t, err)
		assert.Equal(t, "PRIMARY", idx.Name)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := td.SelectIndexByName("nope")
		assert.ErrorIs(t, err, format.ErrSchemaMismatch)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := td.SelectIndexByID(99)
		assert.ErrorIs(t, err, format.ErrSchemaMismatch)
	})

	t.Run("unknown index column", func(t *testing.T) {
		err := td.AddIndex(&IndexDef{Name: "bad", Columns: []string{"ghost"}})
		assert.ErrorIs(t, err, format.ErrSchemaMismatch)
	})

	t.Run("adopt discovered id", func(t *testing.T) {
		idx, err := td.AdoptDiscoveredID(1234)
		require.NoError(t, err)
		assert.Equal(t, uint64(1234), idx.ID)
		assert.True(t, idx.IsPrimary)
	})
}
