package schema

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/dialect/sqlschema"
	"github.com/syssam/dbkit/schema/field"
	"github.com/syssam/dbkit/schema/index"
)

func TestInspect_MySQL(t *testing.T) {
	t.Parallel()

	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	mk.ExpectQuery(escape("SELECT DATABASE()")).
		WillReturnRows(sqlmock.NewRows([]string{"DATABASE()"}).AddRow("app"))
	mk.ExpectQuery(escape("SELECT VERSION()")).
		WillReturnRows(sqlmock.NewRows([]string{"VERSION()"}).AddRow("8.0.36"))
	mk.ExpectQuery(escape("FROM information_schema.tables")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_comment"}).
			AddRow("posts", "").
			AddRow("users", "accounts"))
	mk.ExpectQuery(escape("FROM information_schema.columns")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "column_type", "is_nullable", "column_default", "extra", "column_comment", "collation_name", "generation_expression"}).
			AddRow("posts", "id", "int", "NO", nil, "auto_increment", "", "", "").
			AddRow("posts", "user_id", "bigint unsigned", "NO", nil, "", "", "", "").
			AddRow("users", "id", "bigint unsigned", "NO", nil, "auto_increment", "", "", "").
			AddRow("users", "email", "varchar(255)", "NO", nil, "", "", "utf8mb4_bin", "").
			AddRow("users", "status", "enum('active','banned')", "NO", "active", "", "", "", "").
			AddRow("users", "created_at", "datetime(6)", "NO", "CURRENT_TIMESTAMP(6)", "DEFAULT_GENERATED", "", "", "").
			AddRow("users", "score", "int", "YES", "0", "", "", "", "").
			AddRow("users", "full_name", "varchar(200)", "YES", nil, "VIRTUAL GENERATED", "", "", "concat(`first`,' ',`last`)").
			AddRow("users", "tags", "int[]", "YES", nil, "", "", "", ""))
	mk.ExpectQuery(escape("FROM information_schema.key_column_usage kcu")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "constraint_name", "constraint_type", "column_name", "ref_table", "ref_column", "delete_rule", "update_rule"}).
			AddRow("posts", "PRIMARY", "PRIMARY KEY", "id", "", "", "", "").
			AddRow("posts", "posts_user_fk", "FOREIGN KEY", "user_id", "users", "id", "CASCADE", "RESTRICT").
			AddRow("users", "PRIMARY", "PRIMARY KEY", "id", "", "", "", "").
			AddRow("users", "email_uq", "UNIQUE", "email", "", "", "", ""))
	mk.ExpectQuery(escape("FROM information_schema.statistics")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "index_name", "non_unique", "seq_in_index", "column_name", "collation", "index_type"}).
			AddRow("posts", "posts_user_fk", true, 1, "user_id", "A", "BTREE").
			AddRow("users", "email_uq", false, 1, "email", "A", "BTREE").
			AddRow("users", "idx_status_score", true, 1, "status", "A", "BTREE").
			AddRow("users", "idx_status_score", true, 2, "score", "D", "BTREE"))
	mk.ExpectQuery(escape("FROM information_schema.check_constraints cc")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "constraint_name", "check_clause"}).
			AddRow("users", "chk_score", "(`score` >= 0)"))

	insp, err := NewInspector(db, dialect.MySQL)
	require.NoError(t, err)
	b, err := insp.Inspect(context.Background())
	require.NoError(t, err)
	require.NoError(t, mk.ExpectationsWereMet())

	assert.Equal(t, "app", b.Name)
	assert.Equal(t, "8.0.36", b.Version)
	require.Len(t, b.Tables, 2)

	users, ok := b.Table("users")
	require.True(t, ok)
	assert.Equal(t, "accounts", users.Options.Comment)
	assert.Equal(t, []string{"id"}, users.PrimaryKey)

	tests := []struct {
		column string
		check  func(*testing.T, *field.Descriptor)
	}{
		{"id", func(t *testing.T, d *field.Descriptor) {
			assert.Equal(t, "BIGINT", d.Type)
			assert.True(t, d.Autoincrement)
			assert.Equal(t, "bigint unsigned", d.SchemaType[dialect.MySQL])
		}},
		{"email", func(t *testing.T, d *field.Descriptor) {
			assert.Equal(t, "VARCHAR", d.Type)
			assert.Equal(t, 255, d.Length)
			assert.True(t, d.NotNull)
			assert.Equal(t, "utf8mb4_bin", d.Collation)
		}},
		{"status", func(t *testing.T, d *field.Descriptor) {
			assert.Equal(t, "ENUM", d.Type)
			assert.Empty(t, d.TypeArgs)
			assert.Equal(t, "active", d.Default)
		}},
		{"created_at", func(t *testing.T, d *field.Descriptor) {
			assert.Equal(t, "TIMESTAMP", d.Type)
			require.NotNil(t, d.Precision)
			assert.Equal(t, 6, *d.Precision)
			assert.Equal(t, sql.Raw("CURRENT_TIMESTAMP(6)"), d.Default)
		}},
		{"score", func(t *testing.T, d *field.Descriptor) {
			assert.Equal(t, "INTEGER", d.Type)
			assert.False(t, d.NotNull)
			assert.Equal(t, sql.Raw("0"), d.Default)
		}},
		{"full_name", func(t *testing.T, d *field.Descriptor) {
			require.NotNil(t, d.Generated)
			assert.False(t, d.Generated.Stored)
			assert.Equal(t, sql.Raw("concat(`first`,' ',`last`)"), d.Generated.Expr)
		}},
		{"tags", func(t *testing.T, d *field.Descriptor) {
			assert.Equal(t, "JSON", d.Type)
			assert.Equal(t, field.FamilyJSON, d.Family)
			assert.Zero(t, d.ArrayDims)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			d, ok := users.Column(tt.column)
			require.True(t, ok)
			tt.check(t, d)
		})
	}

	require.Len(t, users.Uniques, 1)
	assert.Equal(t, "email_uq", users.Uniques[0].Name)
	require.Len(t, users.Indexes, 1)
	idx := users.Indexes[0]
	assert.Equal(t, "idx_status_score", idx.StorageKey)
	assert.Equal(t, []string{"status", "score"}, idx.Fields)
	assert.Empty(t, idx.Method)
	assert.Equal(t, index.Desc, idx.Columns[1].Direction)
	require.Len(t, users.Checks, 1)
	assert.Equal(t, "`score` >= 0", users.Checks[0].Expr)

	posts, ok := b.Table("posts")
	require.True(t, ok)
	require.Len(t, posts.ForeignKeys, 1)
	fk := posts.ForeignKeys[0]
	assert.Equal(t, "posts_user_fk", fk.StorageKey)
	assert.Equal(t, sqlschema.Cascade, fk.OnDelete)
	assert.Equal(t, sqlschema.Restrict, fk.OnUpdate)
	require.Len(t, posts.Indexes, 1)
	assert.Equal(t, []string{"user_id"}, posts.Indexes[0].Fields)
}

func TestInspect_MySQLFilteredTables(t *testing.T) {
	t.Parallel()

	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	mk.ExpectQuery(escape("SELECT VERSION()")).
		WillReturnRows(sqlmock.NewRows([]string{"VERSION()"}).AddRow("10.11.6-MariaDB"))
	mk.ExpectQuery(escape("FROM information_schema.tables")).
		WithArgs("shop", "BASE TABLE").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_comment"}).
			AddRow("orders", "").
			AddRow("users", ""))
	mk.ExpectQuery(escape("FROM information_schema.columns")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "column_type", "is_nullable", "column_default", "extra", "column_comment", "collation_name", "generation_expression"}).
			AddRow("orders", "id", "int", "NO", nil, "", "", "", "").
			AddRow("users", "id", "int", "NO", nil, "", "", "", ""))
	mk.ExpectQuery(escape("FROM information_schema.key_column_usage kcu")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "constraint_name", "constraint_type", "column_name", "ref_table", "ref_column", "delete_rule", "update_rule"}))
	mk.ExpectQuery(escape("FROM information_schema.statistics")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "index_name", "non_unique", "seq_in_index", "column_name", "collation", "index_type"}))
	mk.ExpectQuery(escape("FROM information_schema.check_constraints cc")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "constraint_name", "check_clause"}))

	insp, err := NewInspector(db, dialect.MariaDB, WithSchema("shop"))
	require.NoError(t, err)
	tbl, err := insp.InspectTable(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", tbl.Name)
	assert.Len(t, tbl.Columns, 1)
	require.NoError(t, mk.ExpectationsWereMet())
}

func TestInspect_MySQLVersionError(t *testing.T) {
	t.Parallel()

	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	mk.ExpectQuery(escape("SELECT VERSION()")).
		WillReturnError(&mysql.MySQLError{Number: 1045, SQLState: [5]byte{'2', '8', '0', '0', '0'}, Message: "Access denied"})

	insp, err := NewInspector(db, dialect.MySQL, WithSchema("app"))
	require.NoError(t, err)
	_, err = insp.Inspect(context.Background())
	var cerr *dbkit.CatalogError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "version", cerr.Step)
	assert.Equal(t, "28000", cerr.SQLState)
}

func TestInspect_ListSchemas(t *testing.T) {
	t.Parallel()

	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	mk.ExpectQuery(escape("FROM information_schema.schemata")).
		WillReturnRows(sqlmock.NewRows([]string{"schema_name"}).AddRow("app").AddRow("shop"))

	insp, err := NewInspector(db, dialect.MySQL)
	require.NoError(t, err)
	names, err := insp.ListSchemas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "shop"}, names)
	require.NoError(t, mk.ExpectationsWereMet())
}
