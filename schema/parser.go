// parser.go - Build a TableDef from a CREATE TABLE statement
package schema

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// ParseTableDefFromSQL parses one CREATE TABLE statement into a
// TableDef, including an IndexDef per PRIMARY KEY / KEY clause. SQL
// carries no index identifiers or root pages; callers discover those
// from the tablespace (see AdoptDiscoveredID).
func ParseTableDefFromSQL(sql string) (*TableDef, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parse SQL failed: %w", err)
	}

	ddl, ok := stmt.(*sqlparser.DDL)
	if !ok || ddl.Action != sqlparser.CreateStr {
		return nil, fmt.Errorf("statement is not CREATE TABLE")
	}
	if ddl.TableSpec == nil {
		return nil, fmt.Errorf("no table spec in CREATE TABLE")
	}

	td := NewTableDef(ddl.Table.Name.String())
	td.Engine = "InnoDB"
	td.Charset = "utf8mb4"

	for _, col := range ddl.TableSpec.Columns {
		column, err := parseColumn(col)
		if err != nil {
			return nil, fmt.Errorf("parse column %s failed: %w", col.Name, err)
		}
		if err := td.AddColumn(column); err != nil {
			return nil, err
		}
	}

	for _, idx := range ddl.TableSpec.Indexes {
		def := &IndexDef{
			Name:      idx.Info.Name.String(),
			IsPrimary: idx.Info.Primary,
		}
		if def.IsPrimary && def.Name == "" {
			def.Name = "PRIMARY"
		}
		for _, ic := range idx.Columns {
			def.Columns = append(def.Columns, ic.Column.String())
		}
		if err := td.AddIndex(def); err != nil {
			return nil, err
		}
	}

	return td, nil
}

// ParseTableDefFromSQLFile reads and parses CREATE TABLE from a SQL file
func ParseTableDefFromSQLFile(filename string) (*TableDef, error) {
	content, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read SQL file failed: %w", err)
	}
	return ParseTableDefFromSQL(string(content))
}

// parseColumn converts sqlparser.ColumnDefinition to our Column type
func parseColumn(col *sqlparser.ColumnDefinition) (*Column, error) {
	column := &Column{
		Name: col.Name.String(),
	}

	typeName := strings.ToUpper(col.Type.Type)
	column.Type = ColumnType(typeName)

	// Length doubles as precision for DECIMAL and temporal types.
	if col.Type.Length != nil {
		if length, err := strconv.Atoi(string(col.Type.Length.Val)); err == nil {
			column.Length = length
			column.Precision = length
		}
	}
	if col.Type.Scale != nil {
		if scale, err := strconv.Atoi(string(col.Type.Scale.Val)); err == nil {
			column.Scale = scale
		}
	}

	column.Unsigned = bool(col.Type.Unsigned)
	column.Nullable = !bool(col.Type.NotNull)
	column.AutoIncrement = bool(col.Type.Autoincrement)

	if col.Type.Charset != "" {
		column.Charset = col.Type.Charset
	}
	if col.Type.Collate != "" {
		column.Collation = col.Type.Collate
	}
	if col.Type.Default != nil {
		column.DefaultValue = sqlparser.String(col.Type.Default)
	}

	if column.Type == TypeEnum && col.Type.EnumValues != nil {
		for _, val := range col.Type.EnumValues {
			column.EnumValues = append(column.EnumValues, strings.Trim(val, "'\""))
		}
	}

	column.Type = normalizeColumnType(column.Type, column.Length)

	if column.Charset == "" && isStringType(column.Type) {
		column.Charset = "utf8mb4" // MySQL 8.0 default
	}

	return column, nil
}

// normalizeColumnType maps SQL type aliases onto the storage model's types.
func normalizeColumnType(colType ColumnType, length int) ColumnType {
	switch strings.ToUpper(string(colType)) {
	case "INTEGER":
		return TypeInt
	case "DOUBLE PRECISION", "REAL":
		return TypeDouble
	case "DEC":
		return TypeDecimal
	case "BOOL":
		return TypeBoolean
	case "TINYINT":
		if length == 1 {
			return TypeBoolean // TINYINT(1) is the conventional boolean
		}
		return TypeTinyInt
	default:
		return colType
	}
}

// isStringType checks if a column type is a string type
func isStringType(colType ColumnType) bool {
	switch colType {
	case TypeChar, TypeVarchar,
		TypeText, TypeTinyText, TypeMediumText, TypeLongText:
		return true
	default:
		return false
	}
}
