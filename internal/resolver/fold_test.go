package resolver

import (
	"encoding/json"
	"testing"

	"DisplayAPI/internal/query"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldJoined(t *testing.T) {
	rows := []map[string]any{
		{
			"id":                       1,
			"author__id":               10,
			"author__publisher__id":    7,
			"author__publisher__title": "Ace",
			"total__score":             3,
		},
		{
			"id":                       2,
			"author__id":               11,
			"author__publisher__id":    nil,
			"author__publisher__title": nil,
			"total__score":             0,
		},
		{
			"id":                       3,
			"author__id":               nil,
			"author__publisher__id":    nil,
			"author__publisher__title": nil,
			"total__score":             0,
		},
	}
	foldJoined(rows, map[string]query.JoinedColumn{
		"author__id":               {Path: "author", Column: "id"},
		"author__publisher__id":    {Path: "author__publisher", Column: "id"},
		"author__publisher__title": {Path: "author__publisher", Column: "title"},
	})

	want := []map[string]any{
		{
			"id":           1,
			"author":       map[string]any{"id": 10, "publisher": map[string]any{"id": 7, "title": "Ace"}},
			"total__score": 3,
		},
		{
			"id":           2,
			"author":       map[string]any{"id": 11, "publisher": nil},
			"total__score": 0,
		},
		{
			"id":           3,
			"author":       nil,
			"total__score": 0,
		},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("folded rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFoldJoined_KeepsAnnotationWithJoinedPrefix(t *testing.T) {
	rows := []map[string]any{
		{"id": 1, "author__count": 7, "author__id": 10, "author__name": "Frank"},
	}
	foldJoined(rows, map[string]query.JoinedColumn{
		"author__id":   {Path: "author", Column: "id"},
		"author__name": {Path: "author", Column: "name"},
	})

	want := []map[string]any{{
		"id":            1,
		"author__count": 7,
		"author":        map[string]any{"id": 10, "name": "Frank"},
	}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("folded rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFoldJoined_NoPaths(t *testing.T) {
	rows := []map[string]any{{"a__b": 1}}
	foldJoined(rows, nil)
	assert.Equal(t, []map[string]any{{"a__b": 1}}, rows)
}

func TestItem_KeepsInsertionOrder(t *testing.T) {
	it := NewItem()
	it.Set("z", 1)
	it.Set("a", "two")
	it.Set("m", nil)
	it.Set("z", 3)

	b, err := json.Marshal(it)
	require.NoError(t, err)
	assert.Equal(t, `{"z":3,"a":"two","m":null}`, string(b))

	b, err = json.Marshal(NewItem())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, normalizeKey(int32(5)), normalizeKey(int64(5)))
	assert.Equal(t, normalizeKey(5), normalizeKey(int16(5)))
	assert.Equal(t, "ab", normalizeKey([]byte("ab")))
	assert.Equal(t, "x", normalizeKey("x"))
}
