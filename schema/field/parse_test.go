package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/dbkit/schema/field"
)

func intp(n int) *int { return &n }

func TestParseType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ       string
		wantType  string
		family    field.Family
		length    int
		precision *int
		scale     *int
		args      []string
		dims      int
		tz        bool
		sqlType   string
	}{
		{typ: "integer", wantType: "INTEGER", family: field.FamilyInteger, sqlType: "INTEGER"},
		{typ: "int4", wantType: "INTEGER", family: field.FamilyInteger, sqlType: "INTEGER"},
		{typ: "int(11)", wantType: "INTEGER", family: field.FamilyInteger, sqlType: "INTEGER"},
		{typ: "bigint unsigned", wantType: "BIGINT", family: field.FamilyInteger, sqlType: "BIGINT"},
		{typ: "character varying(255)", wantType: "VARCHAR", family: field.FamilyString, length: 255, sqlType: "VARCHAR(255)"},
		{typ: "numeric(10,2)", wantType: "NUMERIC", family: field.FamilyNumeric, precision: intp(10), scale: intp(2), sqlType: "NUMERIC(10, 2)"},
		{typ: "timestamp(3) with time zone", wantType: "TIMESTAMP", family: field.FamilyTemporal, precision: intp(3), tz: true, sqlType: "TIMESTAMP(3) WITH TIME ZONE"},
		{typ: "timestamptz", wantType: "TIMESTAMP", family: field.FamilyTemporal, tz: true, sqlType: "TIMESTAMP WITH TIME ZONE"},
		{typ: "datetime(6)", wantType: "TIMESTAMP", family: field.FamilyTemporal, precision: intp(6), sqlType: "TIMESTAMP(6)"},
		{typ: "text[]", wantType: "TEXT", family: field.FamilyString, dims: 1, sqlType: "TEXT[]"},
		{typ: "integer[][]", wantType: "INTEGER", family: field.FamilyInteger, dims: 2, sqlType: "INTEGER[][]"},
		{typ: "vector(1536)", wantType: "VECTOR", family: field.FamilyVector, length: 1536, sqlType: "VECTOR(1536)"},
		{typ: "geometry(Point,4326)", wantType: "GEOMETRY", family: field.FamilyPostGIS, args: []string{"Point", "4326"}, sqlType: "GEOMETRY(Point, 4326)"},
		{typ: "longtext", wantType: "TEXT", family: field.FamilyString, sqlType: "TEXT"},
		{typ: "tinyint(1)", wantType: "SMALLINT", family: field.FamilyInteger, sqlType: "SMALLINT"},
		{typ: "mood", wantType: "mood", family: field.FamilyUser, sqlType: "mood"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			t.Parallel()
			d := field.ParseType("c", tt.typ)
			assert.Equal(t, "c", d.Name)
			assert.Equal(t, tt.wantType, d.Type)
			assert.Equal(t, tt.family, d.Family)
			assert.Equal(t, tt.length, d.Length)
			assert.Equal(t, tt.precision, d.Precision)
			assert.Equal(t, tt.scale, d.Scale)
			assert.Equal(t, tt.args, d.TypeArgs)
			assert.Equal(t, tt.dims, d.ArrayDims)
			assert.Equal(t, tt.tz, d.Timezone)
			assert.Equal(t, tt.sqlType, d.SQLType())
		})
	}
}

func TestFamilyOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, field.FamilyJSON, field.FamilyOf("jsonb"))
	assert.Equal(t, field.FamilyNetwork, field.FamilyOf("INET"))
	assert.Equal(t, field.FamilyRange, field.FamilyOf("tstzrange"))
	assert.Equal(t, field.FamilyUser, field.FamilyOf("address"))
}

func TestTypesOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"BIGSERIAL", "SERIAL", "SMALLSERIAL"}, field.TypesOf(field.FamilySerial))
	assert.Equal(t, []string{"JSON", "JSONB"}, field.TypesOf(field.FamilyJSON))
	assert.Empty(t, field.TypesOf(field.FamilyUser))
}
