package resolver

import (
	"maps"
	"slices"
	"strings"

	"DisplayAPI/internal/query"
)

// foldJoined moves the joined columns of a row into nested maps, one per
// select-related path. Only the keys listed in joined are moved. A relation
// whose joined columns are all NULL becomes nil.
func foldJoined(rows []map[string]any, joined map[string]query.JoinedColumn) {
	if len(joined) == 0 {
		return
	}
	keys := slices.Sorted(maps.Keys(joined))
	paths := joinedPaths(joined)

	for _, row := range rows {
		for _, key := range keys {
			v, ok := row[key]
			if !ok {
				continue
			}
			jc := joined[key]
			nestedMap(row, jc.Path)[jc.Column] = v
			delete(row, key)
		}
		for _, path := range paths {
			nullIfEmpty(row, path)
		}
	}
}

// joinedPaths lists the distinct paths, deepest first, so an inner relation
// is nulled before its parent is checked.
func joinedPaths(joined map[string]query.JoinedColumn) []string {
	var paths []string
	for _, jc := range joined {
		if !slices.Contains(paths, jc.Path) {
			paths = append(paths, jc.Path)
		}
	}
	slices.SortFunc(paths, func(a, b string) int {
		if d := strings.Count(b, query.PathSep) - strings.Count(a, query.PathSep); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return paths
}

func nestedMap(row map[string]any, path string) map[string]any {
	cur := row
	for _, seg := range strings.Split(path, query.PathSep) {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	return cur
}

func nullIfEmpty(row map[string]any, path string) {
	segs := strings.Split(path, query.PathSep)
	parent := row
	for _, seg := range segs[:len(segs)-1] {
		next, ok := parent[seg].(map[string]any)
		if !ok {
			return
		}
		parent = next
	}
	last := segs[len(segs)-1]
	obj, ok := parent[last].(map[string]any)
	if !ok {
		return
	}
	for _, v := range obj {
		if v != nil {
			return
		}
	}
	parent[last] = nil
}
