package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/dialect/sqlschema"
	"github.com/syssam/dbkit/schema/field"
)

func TestUUID(t *testing.T) {
	fd := field.UUID("id").
		PrimaryKey().
		Default(field.GenRandomUUID()).
		Comment("comment").
		Descriptor()
	require.NoError(t, fd.Err)
	assert.Equal(t, "id", fd.Name)
	assert.Equal(t, "UUID", fd.SQLType())
	assert.Equal(t, field.FamilyUUID, fd.Family)
	assert.True(t, fd.PrimaryKey)
	assert.True(t, fd.DefaultIsExpr())
	assert.Equal(t, sql.Raw("gen_random_uuid()"), fd.Default)
	assert.Equal(t, "comment", fd.Comment)
}

func TestVarchar(t *testing.T) {
	fd := field.Varchar("email", 255).NotNull().Unique().Descriptor()
	require.NoError(t, fd.Err)
	assert.Equal(t, "VARCHAR(255)", fd.SQLType())
	assert.True(t, fd.NotNull)
	assert.True(t, fd.Unique)

	fd = field.Varchar("name", 0).Descriptor()
	assert.Equal(t, "VARCHAR", fd.SQLType())

	fd = field.Varchar("name", -1).Descriptor()
	assert.True(t, dbkit.IsInvalidArgument(fd.Err))

	fd = field.Char("code", 2).Collate("C").Descriptor()
	assert.Equal(t, "CHAR(2)", fd.SQLType())
	assert.Equal(t, "C", fd.Collation)
}

func TestNumeric(t *testing.T) {
	fd := field.Decimal("price", 10, 2).Descriptor()
	require.NoError(t, fd.Err)
	assert.Equal(t, "DECIMAL(10, 2)", fd.SQLType())

	fd = field.Numeric("ratio").Precision(5).Descriptor()
	assert.Equal(t, "NUMERIC(5)", fd.SQLType())

	assert.Equal(t, "NUMERIC", field.Numeric("n").Descriptor().SQLType())
	assert.Error(t, field.Decimal("bad", 2, 3).Descriptor().Err)
	assert.Error(t, field.Decimal("bad", 0, 0).Descriptor().Err)
	assert.Error(t, field.Text("t").Scale(1).Descriptor().Err)
	assert.Equal(t, "DOUBLE PRECISION", field.DoublePrecision("d").Descriptor().SQLType())
	assert.Equal(t, "MONEY", field.Money("m").Descriptor().SQLType())
}

func TestTemporal(t *testing.T) {
	fd := field.Timestamp("created_at").Precision(3).WithTimezone().Descriptor()
	require.NoError(t, fd.Err)
	assert.Equal(t, "TIMESTAMP(3) WITH TIME ZONE", fd.SQLType())

	assert.Equal(t, "TIME WITH TIME ZONE", field.Time("t").WithTimezone().Descriptor().SQLType())
	assert.Equal(t, "TIMESTAMP WITH TIME ZONE", field.Timestamptz("ts").Descriptor().SQLType())
	assert.Error(t, field.Date("d").WithTimezone().Descriptor().Err)
	assert.Error(t, field.Timestamp("ts").Precision(7).Descriptor().Err)
	assert.Equal(t, "INTERVAL", field.Interval("i").Descriptor().SQLType())
}

func TestArray(t *testing.T) {
	assert.Equal(t, "TEXT[]", field.Text("tags").Array().Descriptor().SQLType())
	assert.Equal(t, "INTEGER[][]", field.Integer("grid").Array(2).Descriptor().SQLType())
	assert.True(t, field.Text("tags").Array().Descriptor().IsArray())
	assert.Error(t, field.Text("tags").Array(0).Descriptor().Err)
}

func TestVector(t *testing.T) {
	fd := field.Vector("embedding", 1536).Descriptor()
	require.NoError(t, fd.Err)
	assert.Equal(t, "VECTOR(1536)", fd.SQLType())
	assert.Equal(t, "HALFVEC(3)", field.HalfVec("h", 3).Descriptor().SQLType())
	assert.Equal(t, "SPARSEVEC(100)", field.SparseVec("s", 100).Descriptor().SQLType())

	for _, dims := range []int{0, -3, 16001} {
		fd := field.Vector("embedding", dims).Descriptor()
		require.Error(t, fd.Err, "dims %d", dims)
		assert.True(t, dbkit.IsInvalidArgument(fd.Err))
	}
}

func TestPostGIS(t *testing.T) {
	assert.Equal(t, "GEOMETRY(Point, 4326)", field.Geometry("loc", "Point", 4326).Descriptor().SQLType())
	assert.Equal(t, "GEOMETRY(Polygon)", field.Geometry("area", "Polygon", 0).Descriptor().SQLType())
	assert.Equal(t, "GEOMETRY", field.Geometry("g", "", 0).Descriptor().SQLType())
	assert.Equal(t, "GEOGRAPHY(Geometry, 4326)", field.Geography("g", "", 4326).Descriptor().SQLType())
	assert.Error(t, field.Geometry("g", "Point", -1).Descriptor().Err)
	assert.Equal(t, "BOX2D", field.Box2D("b").Descriptor().SQLType())
}

func TestTypeTokens(t *testing.T) {
	t.Parallel()
	tests := []struct {
		builder *field.Column
		want    string
		family  field.Family
	}{
		{field.SmallInt("a"), "SMALLINT", field.FamilyInteger},
		{field.Serial("a"), "SERIAL", field.FamilySerial},
		{field.BigSerial("a"), "BIGSERIAL", field.FamilySerial},
		{field.Real("a"), "REAL", field.FamilyFloat},
		{field.Bytea("a"), "BYTEA", field.FamilyBinary},
		{field.Boolean("a"), "BOOLEAN", field.FamilyBoolean},
		{field.JSONB("a"), "JSONB", field.FamilyJSON},
		{field.XML("a"), "XML", field.FamilyXML},
		{field.Point("a"), "POINT", field.FamilyGeometric},
		{field.Lseg("a"), "LSEG", field.FamilyGeometric},
		{field.Inet("a"), "INET", field.FamilyNetwork},
		{field.Macaddr8("a"), "MACADDR8", field.FamilyNetwork},
		{field.Bit("a", 8), "BIT(8)", field.FamilyBit},
		{field.Varbit("a", 0), "VARBIT", field.FamilyBit},
		{field.Tsvector("a"), "TSVECTOR", field.FamilyTextSearch},
		{field.TstzRange("a"), "TSTZRANGE", field.FamilyRange},
		{field.DateMultiRange("a"), "DATEMULTIRANGE", field.FamilyRange},
		{field.RegConfig("a"), "REGCONFIG", field.FamilyOID},
		{field.Enum("a", "mood"), "mood", field.FamilyUser},
		{field.Composite("a", "address"), "address", field.FamilyUser},
		{field.Domain("a", "email"), "email", field.FamilyUser},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			fd := tt.builder.Descriptor()
			require.NoError(t, fd.Err)
			assert.Equal(t, tt.want, fd.SQLType())
			assert.Equal(t, tt.family, fd.Family)
		})
	}
}

func TestDecorators(t *testing.T) {
	t.Run("references", func(t *testing.T) {
		fd := field.UUID("author_id").
			References("users", "id", field.OnDelete(sqlschema.Cascade), field.OnUpdate(sqlschema.Restrict)).
			Descriptor()
		require.NoError(t, fd.Err)
		require.NotNil(t, fd.Reference)
		assert.Equal(t, "users", fd.Reference.Table)
		assert.Equal(t, sqlschema.Cascade, fd.Reference.OnDelete)
		assert.Equal(t, sqlschema.Restrict, fd.Reference.OnUpdate)
		assert.Error(t, field.UUID("x").References("", "id").Descriptor().Err)
	})

	t.Run("checks", func(t *testing.T) {
		fd := field.Text("status").
			Check("status_in", "active", "disabled").
			CheckNot("status_not", "banned").
			CheckExpr("status_len", "length(status) < 20").
			Descriptor()
		require.Len(t, fd.Checks, 3)
		assert.False(t, fd.Checks[0].Negate)
		assert.True(t, fd.Checks[1].Negate)
		assert.Equal(t, "length(status) < 20", fd.Checks[2].Expr)
		assert.Error(t, field.Text("s").Check("c").Descriptor().Err)
	})

	t.Run("nullability", func(t *testing.T) {
		fd := field.Text("a").NotNull().Nullable().Descriptor()
		assert.True(t, fd.Nullable)
		assert.False(t, fd.NotNull)
	})

	t.Run("storage_key_and_tracking", func(t *testing.T) {
		fd := field.Text("displayName").StorageKey("display_name").TrackingID("col_1").Descriptor()
		assert.Equal(t, "display_name", fd.Column())
		assert.Equal(t, "col_1", fd.TrackingID)
		assert.Equal(t, "a", field.Text("a").Descriptor().Column())
	})

	t.Run("length", func(t *testing.T) {
		assert.Equal(t, "VARCHAR(10)", field.Varchar("a", 0).Length(10).Descriptor().SQLType())
		assert.Error(t, field.UUID("a").Length(10).Descriptor().Err)
	})

	t.Run("empty_name", func(t *testing.T) {
		assert.True(t, dbkit.IsInvalidArgument(field.Text("").Descriptor().Err))
	})

	t.Run("first_error_wins", func(t *testing.T) {
		fd := field.Text("a").Precision(2).Autoincrement().Descriptor()
		require.Error(t, fd.Err)
		assert.Contains(t, fd.Err.Error(), "precision")
	})
}

func TestAutoincrementAndIdentity(t *testing.T) {
	fd := field.Integer("id").PrimaryKey().Autoincrement().Descriptor()
	require.NoError(t, fd.Err)
	assert.True(t, fd.Autoincrement)

	fd = field.Text("id").Autoincrement().Descriptor()
	require.Error(t, fd.Err)
	assert.True(t, dbkit.IsInvalidArgument(fd.Err))

	fd = field.BigInt("id").GeneratedByDefaultAsIdentity(field.IdentityOptions{Start: 100, Increment: 5}).Descriptor()
	require.NoError(t, fd.Err)
	require.NotNil(t, fd.Identity)
	assert.False(t, fd.Identity.Always)
	assert.Equal(t, int64(100), fd.Identity.Start)
	assert.True(t, fd.NotNull)

	assert.Error(t, field.Serial("id").GeneratedAlwaysAsIdentity().Descriptor().Err)
	assert.Error(t, field.BigInt("id").Default(1).GeneratedAlwaysAsIdentity().Descriptor().Err)
	assert.Error(t, field.BigInt("id").GeneratedAlwaysAsIdentity().Default(1).Descriptor().Err)
}

func TestGenerated(t *testing.T) {
	fd := field.Tsvector("search").
		GeneratedAlwaysAs("to_tsvector('english', title)", true).
		Descriptor()
	require.NoError(t, fd.Err)
	require.NotNil(t, fd.Generated)
	assert.True(t, fd.Generated.Stored)
	assert.Equal(t, "to_tsvector('english', title)", fd.Generated.Expr.RenderSQL(sql.NewFormatter(dialect.Postgres)))

	assert.Error(t, field.Text("a").GeneratedAlwaysAs("x", true).Default("y").Descriptor().Err)
	assert.Error(t, field.Text("a").Default("y").GeneratedAlwaysAs("x", true).Descriptor().Err)
	assert.Error(t, field.Text("a").GeneratedAlwaysAs(42, true).Descriptor().Err)
}

func TestTypeFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		builder *field.Column
		dialect string
		want    string
	}{
		{"pg_passthrough", field.Varchar("a", 10), dialect.CRDB, "VARCHAR(10)"},
		{"mysql_uuid", field.UUID("a"), dialect.MySQL, "CHAR(36)"},
		{"mysql_jsonb", field.JSONB("a"), dialect.MariaDB, "JSON"},
		{"mysql_serial", field.BigSerial("a"), dialect.MySQL, "BIGINT"},
		{"mysql_timestamp", field.Timestamp("a").Precision(3), dialect.MySQL, "DATETIME(3)"},
		{"mysql_timestamptz", field.Timestamptz("a"), dialect.MySQL, "TIMESTAMP"},
		{"mysql_array", field.Text("a").Array(), dialect.MySQL, "JSON"},
		{"mysql_decimal", field.Decimal("a", 10, 2), dialect.MySQL, "DECIMAL(10, 2)"},
		{"mysql_varchar_unbounded", field.Varchar("a", 0), dialect.MySQL, "TEXT"},
		{"sqlite_bigint", field.BigInt("a"), dialect.SQLite, "INTEGER"},
		{"sqlite_uuid", field.UUID("a"), dialect.SQLite, "TEXT"},
		{"sqlite_bytea", field.Bytea("a"), dialect.Turso, "BLOB"},
		{"sqlite_bool", field.Boolean("a"), dialect.SQLite, "INTEGER"},
		{"override", field.Text("a").SchemaType(map[string]string{dialect.MySQL: "MEDIUMTEXT"}), dialect.MySQL, "MEDIUMTEXT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.builder.Descriptor().TypeFor(tt.dialect))
		})
	}
}

func TestFamily(t *testing.T) {
	assert.Equal(t, "integer", field.FamilyInteger.String())
	assert.Equal(t, "postgis", field.FamilyPostGIS.String())
	assert.True(t, field.FamilySerial.Integer())
	assert.False(t, field.FamilyNumeric.Integer())
}
