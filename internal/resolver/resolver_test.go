package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"DisplayAPI/internal/model"
	"DisplayAPI/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookYAML = `
table: books
columns: [id, name, author_id, secret]
relations:
  author:   {type: belongs_to, model: author}
  comments: {type: has_many, model: comment}
presets:
  item:
    fields:
      - {source: id, type: int}
      - {source: name}
      - {source: author, type: preset, preset: item}
      - {source: comments, alias: talk, type: preset, preset: item, many: true}
  flat:
    fields:
      - {source: name}
      - {source: author.surname, alias: writer}
      - {source: "*", alias: label, type: formatter, formatter: "{name} by {author.surname}"}
      - {source: secret, write_only: true}
`

const authorYAML = `
table: authors
columns: [id, name, surname]
presets:
  item:
    fields:
      - {source: id}
      - {source: "*", alias: short, type: formatter, formatter: "{surname} {name[0]}."}
`

const commentYAML = `
table: comments
columns: [id, body, book_id]
presets:
  item:
    fields: [{source: body}]
`

func loadBook(t *testing.T) *model.Model {
	t.Helper()
	reg := map[string]*model.Model{}
	for name, src := range map[string]string{"book": bookYAML, "author": authorYAML, "comment": commentYAML} {
		m, err := model.ParseModel(name, []byte(src))
		require.NoError(t, err, name)
		reg[name] = m
	}
	require.NoError(t, model.LinkModels(reg))
	return reg["book"]
}

// fakeDB answers by the table after FROM; rows are built fresh per call.
type fakeDB struct {
	mu      sync.Mutex
	tables  map[string]func() []map[string]any
	queries []string
	err     error
}

func (f *fakeDB) QueryRows(_ context.Context, sql string, _ ...any) ([]map[string]any, error) {
	f.mu.Lock()
	f.queries = append(f.queries, sql)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for table, rows := range f.tables {
		if strings.Contains(sql, "FROM "+table+" AS main") {
			return rows(), nil
		}
	}
	return nil, fmt.Errorf("unexpected query: %s", sql)
}

func (f *fakeDB) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, q := range f.queries {
		if strings.Contains(q, "FROM "+table+" AS main") {
			n++
		}
	}
	return n
}

func newFakeDB() *fakeDB {
	return &fakeDB{tables: map[string]func() []map[string]any{
		"books": func() []map[string]any {
			return []map[string]any{
				{"id": int32(1), "name": "Dune", "author_id": int32(10), "secret": "x"},
				{"id": int32(2), "name": "Solaris", "author_id": nil, "secret": "y"},
			}
		},
		"authors": func() []map[string]any {
			return []map[string]any{
				{"id": int32(10), "name": "Frank", "surname": "Herbert", query.PrefetchKey: int32(10)},
			}
		},
		"comments": func() []map[string]any {
			return []map[string]any{
				{"id": int32(100), "body": "great", "book_id": int32(1), query.PrefetchKey: int64(1)},
				{"id": int32(101), "body": "long", "book_id": int32(1), query.PrefetchKey: int64(1)},
			}
		},
	}}
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

const wantItems = `[` +
	`{"id":1,"name":"Dune","author":{"id":10,"short":"Herbert F."},"talk":[{"body":"great"},{"body":"long"}]},` +
	`{"id":2,"name":"Solaris","author":null,"talk":[]}` +
	`]`

func TestResolve_LazyLoadsUnhintedRelations(t *testing.T) {
	book := loadBook(t)
	conn := newFakeDB()

	items, err := Resolve(context.Background(), conn, query.New(book), book.GetPreset("item").Fields)
	require.NoError(t, err)
	assert.JSONEq(t, wantItems, toJSON(t, items))
	assert.Equal(t, 1, conn.count("authors"))
	assert.Equal(t, 1, conn.count("comments"))
}

func TestResolve_JoinedAndPrefetched(t *testing.T) {
	book := loadBook(t)
	conn := newFakeDB()
	conn.tables["books"] = func() []map[string]any {
		return []map[string]any{
			{"id": int32(1), "name": "Dune", "author_id": int32(10),
				"author__id": int32(10), "author__name": "Frank", "author__surname": "Herbert"},
			{"id": int32(2), "name": "Solaris", "author_id": nil,
				"author__id": nil, "author__name": nil, "author__surname": nil},
		}
	}

	q := query.New(book).SelectRelated("author").PrefetchRelated("comments")
	items, err := Resolve(context.Background(), conn, q, book.GetPreset("item").Fields)
	require.NoError(t, err)
	assert.JSONEq(t, wantItems, toJSON(t, items))
	assert.Equal(t, 0, conn.count("authors"), "joined relation must not be queried again")
	assert.Equal(t, 1, conn.count("comments"))
}

func TestResolve_UnresolvablePrefetchFallsBackToLazyLoad(t *testing.T) {
	book := loadBook(t)
	conn := newFakeDB()

	// the hint names the output key, not the relation
	q := query.New(book).PrefetchRelated("talk")
	items, err := Resolve(context.Background(), conn, q, book.GetPreset("item").Fields)
	require.NoError(t, err)
	assert.JSONEq(t, wantItems, toJSON(t, items))
	assert.Equal(t, 1, conn.count("comments"))
}

func TestResolve_PrunedFieldsSkipRelations(t *testing.T) {
	book := loadBook(t)
	conn := newFakeDB()

	fields := []model.Field{{Source: "name"}}
	items, err := Resolve(context.Background(), conn, query.New(book), fields)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Dune"},{"name":"Solaris"}]`, toJSON(t, items))
	assert.Len(t, conn.queries, 1)
}

func TestResolve_DottedSourceAndFormatter(t *testing.T) {
	book := loadBook(t)
	conn := newFakeDB()

	items, err := Resolve(context.Background(), conn, query.New(book), book.GetPreset("flat").Fields)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, []string{"name", "writer", "label"}, items[0].Keys())
	writer, _ := items[0].Get("writer")
	assert.Equal(t, "Herbert", writer)
	label, _ := items[0].Get("label")
	assert.Equal(t, "Dune by Herbert", label)

	writer, ok := items[1].Get("writer")
	assert.True(t, ok)
	assert.Nil(t, writer)
	_, ok = items[0].Get("secret")
	assert.False(t, ok, "write-only fields are never rendered")
}

func TestResolve_Errors(t *testing.T) {
	book := loadBook(t)

	_, err := Resolve(context.Background(), newFakeDB(), query.New(nil), nil)
	assert.Error(t, err)

	boom := errors.New("connection refused")
	_, err = Resolve(context.Background(), &fakeDB{err: boom}, query.New(book), nil)
	assert.ErrorIs(t, err, boom)

	_, err = Resolve(context.Background(), newFakeDB(), query.New(book).SelectRelated("comments"), nil)
	assert.ErrorContains(t, err, "use prefetch_related")
}

func TestResolve_EmptyResult(t *testing.T) {
	book := loadBook(t)
	conn := newFakeDB()
	conn.tables["books"] = func() []map[string]any { return nil }

	items, err := Resolve(context.Background(), conn, query.New(book), book.GetPreset("item").Fields)
	require.NoError(t, err)
	assert.Equal(t, "[]", toJSON(t, items))
	assert.Len(t, conn.queries, 1)
}
