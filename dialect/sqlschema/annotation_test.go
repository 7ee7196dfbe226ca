package sqlschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionFromCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code string
		want ReferentialAction
	}{
		{"a", NoAction},
		{"r", Restrict},
		{"c", Cascade},
		{"n", SetNull},
		{"d", SetDefault},
	}
	for _, tt := range tests {
		got, ok := ActionFromCode(tt.code)
		assert.True(t, ok, tt.code)
		assert.Equal(t, tt.want, got)
	}
	_, ok := ActionFromCode("x")
	assert.False(t, ok)
}

func TestParseAction(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want ReferentialAction
		ok   bool
	}{
		{"CASCADE", Cascade, true},
		{"set null", SetNull, true},
		{"SET_DEFAULT", SetDefault, true},
		{"no   action", NoAction, true},
		{"", NoAction, true},
		{"DROP", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseAction(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestReferentialActionDefault(t *testing.T) {
	t.Parallel()
	assert.True(t, ReferentialAction("").IsDefault())
	assert.True(t, NoAction.IsDefault())
	assert.False(t, Cascade.IsDefault())
	assert.Equal(t, "NO ACTION", ReferentialAction("").String())
}

func TestMerge(t *testing.T) {
	t.Parallel()
	a := Merge(Engine("InnoDB"), Charset("utf8mb4"), Engine("MyISAM"), WithComments(false))
	assert.Equal(t, "MyISAM", a.Engine)
	assert.Equal(t, "utf8mb4", a.Charset)
	enabled, set := a.GetWithComments()
	assert.False(t, enabled)
	assert.True(t, set)

	enabled, set = Annotation{}.GetWithComments()
	assert.True(t, enabled)
	assert.False(t, set)
	assert.Equal(t, AnnotationName, Schema("app").Name())
}

func TestMergeIndex(t *testing.T) {
	t.Parallel()
	a := MergeIndex(
		IndexTypes(map[string]string{"postgres": "GIN"}),
		IndexTypes(map[string]string{"mysql": "FULLTEXT"}),
		IncludeColumns("a"),
		IncludeColumns("b"),
		PrefixColumn("title", 16),
		StorageParams("fillfactor=90"),
	)
	typ, ok := a.TypeFor("postgres")
	assert.True(t, ok)
	assert.Equal(t, "GIN", typ)
	typ, _ = a.TypeFor("mysql")
	assert.Equal(t, "FULLTEXT", typ)
	_, ok = a.TypeFor("sqlite")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, a.IncludeColumns)
	assert.Equal(t, uint(16), a.PrefixColumns["title"])
	assert.Equal(t, "fillfactor=90", a.StorageParams)
}
