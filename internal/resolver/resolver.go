package resolver

import (
	"context"
	"fmt"
	"strings"

	"DisplayAPI/internal/db"
	"DisplayAPI/internal/logger"
	"DisplayAPI/internal/model"
	"DisplayAPI/internal/query"

	"golang.org/x/sync/errgroup"
)

// maxDepth bounds how many nested preset levels are loaded.
const maxDepth = 5

type grouped = map[any][]map[string]any

// Resolve runs q, loads the relations its hints and fields need and renders
// every row through fields.
func Resolve(ctx context.Context, conn db.Querier, q query.Query, fields []model.Field) ([]*Item, error) {
	m := q.Model()
	if m == nil {
		return nil, fmt.Errorf("resolver: query has no model")
	}

	// 1) main SELECT with the joined relations
	sb, err := q.ToSelect()
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	logger.Debug("sql", map[string]any{
		"model": m.Name,
		"sql":   sqlStr,
		"args":  args,
	})
	rows, err := conn.QueryRows(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*Item{}, nil
	}
	joined, err := q.JoinedColumns()
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}
	foldJoined(rows, joined)

	// 2) prefetch hints, one query per path
	if err := prefetchAll(ctx, conn, q, rows); err != nil {
		return nil, err
	}

	// 3) whatever the fields still miss
	if err := ensureRelations(ctx, conn, m, rows, fields, 0); err != nil {
		return nil, err
	}

	items := make([]*Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, render(row, fields))
	}
	return items, nil
}

func prefetchAll(ctx context.Context, conn db.Querier, q query.Query, rows []map[string]any) error {
	var prefetches []query.Prefetch
	for _, path := range q.PrefetchRelatedPaths() {
		p, err := q.Prefetch(path)
		if err != nil {
			// the relation is loaded lazily if a field needs it
			logger.Warn("prefetch_skipped", map[string]any{
				"model": q.Model().Name,
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		prefetches = append(prefetches, p)
	}
	if len(prefetches) == 0 {
		return nil
	}

	results := make([]grouped, len(prefetches))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range prefetches {
		g.Go(func() error {
			res, err := fetch(gctx, conn, p, rows)
			if err != nil {
				return fmt.Errorf("prefetch '%s': %w", p.Path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, p := range prefetches {
		attach(rows, p, results[i])
	}
	return nil
}

// fetch loads the related rows of p for rows, grouped by the parent key.
func fetch(ctx context.Context, conn db.Querier, p query.Prefetch, rows []map[string]any) (grouped, error) {
	keys := parentKeys(rows, p.ParentKey)
	if len(keys) == 0 {
		return grouped{}, nil
	}
	sb, err := p.Select(keys)
	if err != nil {
		return nil, err
	}
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	logger.Debug("sql", map[string]any{
		"model":    p.Target.Name,
		"prefetch": p.Path,
		"sql":      sqlStr,
		"args":     args,
	})
	children, err := conn.QueryRows(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}

	out := make(grouped, len(keys))
	for _, child := range children {
		key := normalizeKey(child[query.PrefetchKey])
		delete(child, query.PrefetchKey)
		out[key] = append(out[key], child)
	}
	return out, nil
}

// attach stores the related rows under p.Path: a list for has_many, the
// first match or nil otherwise.
func attach(rows []map[string]any, p query.Prefetch, children grouped) {
	for _, row := range rows {
		var matched []map[string]any
		if v := row[p.ParentKey]; v != nil {
			matched = children[normalizeKey(v)]
		}
		switch {
		case p.Many():
			if matched == nil {
				matched = []map[string]any{}
			}
			row[p.Path] = matched
		case len(matched) > 0:
			row[p.Path] = matched[0]
		default:
			row[p.Path] = nil
		}
	}
}

// ensureRelations loads every relation fields read from that is not in rows
// yet, then descends into nested presets.
func ensureRelations(ctx context.Context, conn db.Querier, m *model.Model, rows []map[string]any, fields []model.Field, depth int) error {
	if len(rows) == 0 || m == nil {
		return nil
	}
	if depth >= maxDepth {
		logger.Warn("max_depth_reached", map[string]any{"model": m.Name, "depth": depth})
		return nil
	}

	for _, f := range fields {
		if f.WriteOnly {
			continue
		}
		src, tail := relationSource(f)
		if src == "" {
			continue
		}
		rel, ok := m.RelationFor(src)
		if !ok {
			continue
		}
		if _, loaded := rows[0][src]; !loaded {
			p, err := query.New(m).Prefetch(src)
			if err != nil {
				return err
			}
			logger.Info("lazy_load", map[string]any{
				"model":    m.Name,
				"relation": src,
				"rows":     len(rows),
			})
			res, err := fetch(ctx, conn, p, rows)
			if err != nil {
				return fmt.Errorf("load '%s.%s': %w", m.Name, src, err)
			}
			attach(rows, p, res)
		}

		var nested []model.Field
		switch {
		case f.IsNested() && f.GetPresetRef() != nil:
			nested = f.GetPresetRef().Fields
		case tail != "":
			nested = []model.Field{{Source: tail}}
		default:
			continue
		}
		if err := ensureRelations(ctx, conn, rel.GetModelRef(), children(rows, src), nested, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// relationSource returns the relation a field reads from and, for dotted
// sources, the rest of the path.
func relationSource(f model.Field) (string, string) {
	if f.IsNested() {
		return f.Source, ""
	}
	if head, tail, ok := strings.Cut(f.Source, "."); ok {
		return head, tail
	}
	return "", ""
}

func children(rows []map[string]any, key string) []map[string]any {
	var out []map[string]any
	for _, row := range rows {
		switch v := row[key].(type) {
		case map[string]any:
			out = append(out, v)
		case []map[string]any:
			out = append(out, v...)
		}
	}
	return out
}

func parentKeys(rows []map[string]any, column string) []any {
	seen := make(map[any]struct{}, len(rows))
	keys := make([]any, 0, len(rows))
	for _, row := range rows {
		v := row[column]
		if v == nil {
			continue
		}
		k := normalizeKey(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, v)
	}
	return keys
}

// normalizeKey makes keys of different integer widths compare equal.
func normalizeKey(v any) any {
	switch k := v.(type) {
	case int:
		return int64(k)
	case int8:
		return int64(k)
	case int16:
		return int64(k)
	case int32:
		return int64(k)
	case uint8:
		return int64(k)
	case uint16:
		return int64(k)
	case uint32:
		return int64(k)
	case []byte:
		return string(k)
	default:
		return v
	}
}
