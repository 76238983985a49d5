package query

import (
	"fmt"
	"strings"

	"DisplayAPI/internal/model"

	"github.com/Masterminds/squirrel"
)

// PrefetchKey is the column every prefetch query returns to group related
// rows by their parent.
const PrefetchKey = "__prefetch_key"

// Prefetch describes the second query loading one related path for a batch
// of parent rows.
type Prefetch struct {
	Path      string // accessor as hinted; rows are attached under it
	Relation  *model.ModelRelation
	Target    *model.Model
	ParentKey string // parent column holding the match value
	ChildKey  string // related column matched against it
}

// Prefetch resolves a prefetch path of this query's model. The "<name>_set"
// accessor of a reverse relation is accepted.
func (q Query) Prefetch(path string) (Prefetch, error) {
	if q.model == nil {
		return Prefetch{}, fmt.Errorf("query has no model")
	}
	if strings.Contains(path, PathSep) {
		return Prefetch{}, fmt.Errorf("prefetch_related: nested path '%s' is not supported", path)
	}
	rel, ok := q.model.RelationFor(path)
	if !ok {
		return Prefetch{}, fmt.Errorf("prefetch_related: '%s' is not a relation of model '%s'", path, q.model.Name)
	}
	target := rel.GetModelRef()
	if target == nil {
		return Prefetch{}, fmt.Errorf("prefetch_related: relation '%s.%s' is not linked", q.model.Name, path)
	}

	p := Prefetch{Path: path, Relation: rel, Target: target}
	if rel.IsReverse() {
		p.ParentKey, p.ChildKey = rel.PK, rel.FK
	} else {
		p.ParentKey, p.ChildKey = rel.FK, rel.PK
	}
	return p, nil
}

// Many reports whether the path renders as a list.
func (p Prefetch) Many() bool {
	return p.Relation.IsMany()
}

// Select builds the related-rows query for the given parent key values.
func (p Prefetch) Select(keys []any) (squirrel.SelectBuilder, error) {
	sb := squirrel.Select().PlaceholderFormat(squirrel.Dollar)
	if len(p.Target.Columns) == 0 {
		return sb, fmt.Errorf("model '%s' declares no columns", p.Target.Name)
	}

	sb = sb.From(fmt.Sprintf("%s AS main", p.Target.Table))
	sb = sb.Columns(columnList("main", "", p.Target.Columns)...)
	for _, name := range p.Target.ComputableNames() {
		sb = sb.Column(fmt.Sprintf("%s AS %s", wrapSubquery(p.Target.Computable[name].Source), quoteIdentifier(name)))
	}
	sb = sb.Column(fmt.Sprintf("main.%s AS %s", p.ChildKey, quoteIdentifier(PrefetchKey)))
	sb = sb.Where(squirrel.Eq{"main." + p.ChildKey: keys})
	if where := replaceTableWithAlias(p.Relation.Where, "main"); where != "" {
		sb = sb.Where(where)
	}

	if strings.TrimSpace(p.Relation.Order) == "" {
		for _, pk := range p.Target.GetPrimaryKeys() {
			sb = sb.OrderBy("main." + pk + " ASC")
		}
	} else {
		for _, o := range strings.Split(p.Relation.Order, ",") {
			sb = sb.OrderBy(qualify("main", o))
		}
	}
	return sb, nil
}
