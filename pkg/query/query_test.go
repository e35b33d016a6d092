package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/missive/pkg/query"
)

func letterProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "letters", "l").
		Project("id", "ID").
		Project("title", "Title").
		Project("created_at", "CreatedAt")
}

func ptr(s string) *string { return &s }

func TestProjectionMap(t *testing.T) {
	p := letterProjection()

	assert.Equal(t, "public.letters l", p.From())
	assert.Equal(t, "l.id, l.title, l.created_at", p.Columns())
	assert.Equal(t, "l.title", p.Column("Title"))
	assert.Equal(t, "Unknown", p.Column("Unknown"))
	assert.True(t, p.Has("CreatedAt"))
	assert.False(t, p.Has("Unknown"))
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{"empty", "", nil},
		{"single asc", "Title", []query.SortField{{Field: "Title"}}},
		{"mixed", "Title, -CreatedAt", []query.SortField{
			{Field: "Title"},
			{Field: "CreatedAt", Descending: true},
		}},
		{"skips blanks", "Title,,", []query.SortField{{Field: "Title"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, query.ParseSortFields(tt.input))
		})
	}
}

func TestBuilderPage(t *testing.T) {
	status := "pending_review"
	qb := query.NewBuilder(letterProjection(), query.SortField{Field: "CreatedAt", Descending: true}).
		WhereEquals("Status", &status).
		WhereEquals("SubmittedBy", nil).
		WhereSearch(ptr("memo"), "Title")

	sql, args := qb.BuildPage(2, 10)
	assert.Equal(t,
		"SELECT l.id, l.title, l.created_at FROM public.letters l WHERE Status = $1 AND (l.title ILIKE $2) ORDER BY l.created_at DESC LIMIT 10 OFFSET 10",
		sql,
	)
	assert.Equal(t, []any{&status, "%memo%"}, args)
}

func TestBuilderCount(t *testing.T) {
	sql, args := query.NewBuilder(letterProjection()).
		WhereSearch(ptr("q"), "Title", "ID").
		BuildCount()

	assert.Equal(t, "SELECT COUNT(*) FROM public.letters l WHERE (l.title ILIKE $1 OR l.id ILIKE $2)", sql)
	assert.Equal(t, []any{"%q%", "%q%"}, args)
}

func TestBuilderWhereRaw(t *testing.T) {
	sql, args := query.NewBuilder(letterProjection()).
		WhereEquals("ID", 7).
		WhereRaw("EXISTS (SELECT 1 FROM reviewer_assignments a WHERE a.letter_id = l.id AND a.user_id = $%d)", "u1").
		BuildCount()

	assert.Equal(t,
		"SELECT COUNT(*) FROM public.letters l WHERE l.id = $1 AND EXISTS (SELECT 1 FROM reviewer_assignments a WHERE a.letter_id = l.id AND a.user_id = $2)",
		sql,
	)
	assert.Equal(t, []any{7, "u1"}, args)
}

func TestBuilderIgnoresUnmappedSort(t *testing.T) {
	sql, _ := query.NewBuilder(letterProjection()).
		OrderByFields([]query.SortField{{Field: "1; DROP TABLE letters"}, {Field: "Title"}}).
		BuildPage(1, 5)

	assert.Equal(t, "SELECT l.id, l.title, l.created_at FROM public.letters l ORDER BY l.title ASC LIMIT 5 OFFSET 0", sql)
}

func TestBuilderSingleForUpdate(t *testing.T) {
	sql, args := query.NewBuilder(letterProjection()).ForUpdate().BuildSingle("ID", "abc")

	assert.Equal(t, "SELECT l.id, l.title, l.created_at FROM public.letters l WHERE l.id = $1 FOR UPDATE", sql)
	assert.Equal(t, []any{"abc"}, args)
}
