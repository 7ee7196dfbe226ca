package sql

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/dbkit/dialect"
)

func BenchmarkFormatter_Ident(b *testing.B) {
	for _, d := range []string{dialect.SQLite, dialect.MySQL, dialect.Postgres} {
		f := NewFormatter(d)
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				f.Ident("user_accounts")
				f.Ident(`weird "name"`)
			}
		})
	}
}

func BenchmarkFormatter_Literal(b *testing.B) {
	id := uuid.MustParse("8f9c3a4e-9b1d-4c6f-a2f1-0c1e2d3b4a5f")
	ts := time.Date(2009, 11, 10, 23, 0, 0, 0, time.UTC)
	values := []any{1, 30.5, "Ariel", "it's", true, nil, ts, id, []byte{0xde, 0xad}, []string{"a", "b"}, map[string]any{"k": 1}}
	for _, d := range []string{dialect.SQLite, dialect.MySQL, dialect.Postgres} {
		f := NewFormatter(d)
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				for _, v := range values {
					f.Literal(v)
				}
			}
		})
	}
}

func BenchmarkFormatter_Format(b *testing.B) {
	f := NewFormatter(dialect.Postgres)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := f.Format("ALTER TABLE %I ADD COLUMN %I TEXT DEFAULT %L -- 100%%", "users", "nickname", "a8m"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRebind(b *testing.B) {
	const query = "SELECT id FROM users WHERE age > ? AND name = ? AND created_at < ? LIMIT ?"
	for _, d := range []string{dialect.MySQL, dialect.Postgres} {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := Rebind(d, query); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
