package query

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"DisplayAPI/internal/model"

	"github.com/Masterminds/squirrel"
)

// PathSep separates hops of a related path: "author__publisher".
const PathSep = "__"

// Query is an immutable SELECT description over one model. Every method
// returns a modified copy; the receiver is never changed.
type Query struct {
	model           *model.Model
	selectRelated   []string
	prefetchRelated []string
	orderBy         []string
	limit           uint64
	offset          uint64
}

func New(m *model.Model) Query {
	return Query{model: m}
}

func (q Query) Model() *model.Model {
	return q.model
}

// Annotations lists the computable fields selected next to the columns.
func (q Query) Annotations() []string {
	if q.model == nil {
		return nil
	}
	return q.model.ComputableNames()
}

// SelectRelated adds eager-join hints; duplicates are ignored.
func (q Query) SelectRelated(paths ...string) Query {
	q.selectRelated = appendUnique(q.selectRelated, paths)
	return q
}

// PrefetchRelated adds separate eager-fetch hints; duplicates are ignored.
func (q Query) PrefetchRelated(paths ...string) Query {
	q.prefetchRelated = appendUnique(q.prefetchRelated, paths)
	return q
}

func (q Query) OrderBy(exprs ...string) Query {
	q.orderBy = append(slices.Clip(q.orderBy), exprs...)
	return q
}

func (q Query) Limit(n uint64) Query {
	q.limit = n
	return q
}

func (q Query) Offset(n uint64) Query {
	q.offset = n
	return q
}

func (q Query) SelectRelatedPaths() []string {
	return slices.Clone(q.selectRelated)
}

func (q Query) PrefetchRelatedPaths() []string {
	return slices.Clone(q.prefetchRelated)
}

// appendUnique never writes into the backing array of dst.
func appendUnique(dst, paths []string) []string {
	out := slices.Clone(dst)
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ToSelect builds the main SELECT: the model columns, its computable
// fields and one LEFT JOIN per select-related hop. Joined columns come back
// as "<path>__<column>".
func (q Query) ToSelect() (squirrel.SelectBuilder, error) {
	sb := squirrel.Select().PlaceholderFormat(squirrel.Dollar)
	m := q.model
	if m == nil {
		return sb, fmt.Errorf("query has no model")
	}
	if len(m.Columns) == 0 {
		return sb, fmt.Errorf("model '%s' declares no columns", m.Name)
	}

	sb = sb.From(fmt.Sprintf("%s AS main", m.Table))
	sb = sb.Columns(columnList("main", "", m.Columns)...)
	for _, name := range m.ComputableNames() {
		sb = sb.Column(fmt.Sprintf("%s AS %s", wrapSubquery(m.Computable[name].Source), quoteIdentifier(name)))
	}

	joins, err := q.detectJoins()
	if err != nil {
		return sb, err
	}
	for _, j := range joins {
		onClause := j.On
		if j.Where != "" {
			onClause = fmt.Sprintf("(%s) AND (%s)", j.On, j.Where)
		}
		sb = sb.LeftJoin(fmt.Sprintf("%s AS %s ON %s", j.Table, j.Alias, onClause))
		sb = sb.Columns(columnList(j.Alias, j.Path+PathSep, j.Model.Columns)...)
	}

	if len(q.orderBy) == 0 {
		for _, pk := range m.GetPrimaryKeys() {
			sb = sb.OrderBy("main." + pk + " ASC")
		}
	}
	for _, o := range q.orderBy {
		sb = sb.OrderBy(qualify("main", o))
	}
	if q.limit > 0 {
		sb = sb.Limit(q.limit)
	}
	if q.offset > 0 {
		sb = sb.Offset(q.offset)
	}
	return sb, nil
}

// ToCount builds SELECT COUNT(*) over the model table. Hints, order and
// paging do not apply.
func (q Query) ToCount() (squirrel.SelectBuilder, error) {
	sb := squirrel.Select().PlaceholderFormat(squirrel.Dollar)
	if q.model == nil {
		return sb, fmt.Errorf("query has no model")
	}
	return sb.Column(`COUNT(*) AS "count"`).From(fmt.Sprintf("%s AS main", q.model.Table)), nil
}

// JoinedColumn locates one joined column of a result row.
type JoinedColumn struct {
	Path   string // select-related path, e.g. "author__publisher"
	Column string
}

// JoinedColumns maps every "<path>__<column>" alias ToSelect adds for the
// joined relations to its path and column. Other keys of a row, annotations
// included, are never in it.
func (q Query) JoinedColumns() (map[string]JoinedColumn, error) {
	joins, err := q.detectJoins()
	if err != nil {
		return nil, err
	}
	out := make(map[string]JoinedColumn)
	for _, j := range joins {
		for _, c := range j.Model.Columns {
			out[j.Path+PathSep+c.Name] = JoinedColumn{Path: j.Path, Column: c.Name}
		}
	}
	return out, nil
}

type joinSpec struct {
	Path  string
	Table string
	Alias string
	On    string
	Where string
	Model *model.Model
}

// detectJoins turns select-related paths into LEFT JOINs, one per distinct
// hop, with aliases t0, t1, ... in first-seen order.
func (q Query) detectJoins() ([]joinSpec, error) {
	byPath := map[string]string{}
	joins := make([]joinSpec, 0, len(q.selectRelated))

	for _, path := range q.selectRelated {
		cur := q.model
		parentAlias := "main"
		prefix := ""
		for _, hop := range strings.Split(path, PathSep) {
			full := prefix + hop
			rel := cur.GetRelation(hop)
			if rel == nil {
				return nil, fmt.Errorf("select_related: '%s' is not a relation of model '%s'", hop, cur.Name)
			}
			if rel.IsMany() {
				return nil, fmt.Errorf("select_related: '%s.%s' is %s, use prefetch_related", cur.Name, hop, rel.Type)
			}
			target := rel.GetModelRef()
			if target == nil {
				return nil, fmt.Errorf("select_related: relation '%s.%s' is not linked", cur.Name, hop)
			}

			alias, seen := byPath[full]
			if !seen {
				alias = fmt.Sprintf("t%d", len(joins))
				byPath[full] = alias
				var on string
				if rel.Type == "belongs_to" {
					on = fmt.Sprintf("%s.%s = %s.%s", parentAlias, rel.FK, alias, rel.PK)
				} else {
					on = fmt.Sprintf("%s.%s = %s.%s", alias, rel.FK, parentAlias, rel.PK)
				}
				joins = append(joins, joinSpec{
					Path:  full,
					Table: target.Table,
					Alias: alias,
					On:    on,
					Where: replaceTableWithAlias(rel.Where, alias),
					Model: target,
				})
			}
			cur = target
			parentAlias = alias
			prefix = full + PathSep
		}
	}
	return joins, nil
}

func columnList(alias, keyPrefix string, cols []model.Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, fmt.Sprintf("%s.%s AS %s", alias, c.Name, quoteIdentifier(keyPrefix+c.Name)))
	}
	return out
}

// qualify prefixes a bare column of an ORDER BY expression with alias.
func qualify(alias, expr string) string {
	col, dir, _ := strings.Cut(strings.TrimSpace(expr), " ")
	if strings.Contains(col, ".") || strings.Contains(col, "(") {
		return strings.TrimSpace(expr)
	}
	out := alias + "." + col
	if dir = strings.TrimSpace(dir); dir != "" {
		out += " " + dir
	}
	return out
}

// wrapSubquery wraps the expression in parentheses unless it already is.
func wrapSubquery(src string) string {
	s := strings.TrimSpace(src)
	if !strings.HasPrefix(s, "(") {
		return "(" + s + ")"
	}
	return s
}

func quoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// leadingDotColumn matches a ".column" reference that is not part of a
// qualified name or a number.
var leadingDotColumn = regexp.MustCompile(`(^|[^\w.])\.([A-Za-z_])`)

// replaceTableWithAlias rewrites ".col" references of a relation condition
// to the join alias: ".active = true AND .score > 0.5" ->
// "t0.active = true AND t0.score > 0.5". Qualified names and numeric
// literals are left as written.
func replaceTableWithAlias(where string, alias string) string {
	if where == "" {
		return ""
	}
	return leadingDotColumn.ReplaceAllString(where, "${1}"+alias+".${2}")
}
