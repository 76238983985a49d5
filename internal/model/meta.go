package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrFieldDoesNotExist is returned by GetField for unknown names.
var ErrFieldDoesNotExist = errors.New("field does not exist")

// relationSetSuffix is the accessor suffix of an unnamed reverse relation.
const relationSetSuffix = "_set"

// FieldMeta is schema metadata of one model field.
type FieldMeta struct {
	Name     string
	Label    string
	Relation *ModelRelation // nil for columns and computable fields
}

func (f FieldMeta) IsRelation() bool {
	return f.Relation != nil
}

// IsReverse reports a has_one/has_many relation.
func (f FieldMeta) IsReverse() bool {
	return f.Relation != nil && f.Relation.IsReverse()
}

// GetField looks name up among columns, computable fields and relations.
func (m *Model) GetField(name string) (FieldMeta, error) {
	if m == nil {
		return FieldMeta{}, fmt.Errorf("%w: %s", ErrFieldDoesNotExist, name)
	}
	for _, c := range m.Columns {
		if c.Name == name {
			return FieldMeta{Name: c.Name, Label: c.Label}, nil
		}
	}
	if _, ok := m.Computable[name]; ok {
		return FieldMeta{Name: name, Label: AnnotationLabel(name)}, nil
	}
	if rel, ok := m.Relations[name]; ok {
		return FieldMeta{Name: name, Label: VerboseName(name), Relation: rel}, nil
	}
	return FieldMeta{}, fmt.Errorf("%w: %s.%s", ErrFieldDoesNotExist, m.Name, name)
}

// RelationFor resolves a relation accessor; "<name>_set" falls back to <name>.
func (m *Model) RelationFor(name string) (*ModelRelation, bool) {
	if rel := m.GetRelation(name); rel != nil {
		return rel, true
	}
	if trimmed, ok := strings.CutSuffix(name, relationSetSuffix); ok {
		if rel := m.GetRelation(trimmed); rel != nil {
			return rel, true
		}
	}
	return nil, false
}

// ComputableNames returns the computable field names, sorted.
func (m *Model) ComputableNames() []string {
	names := make([]string, 0, len(m.Computable))
	for name := range m.Computable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ColumnPreset is the serializer used when a view declares none:
// every column followed by every computable field.
func (m *Model) ColumnPreset() *DataPreset {
	p := &DataPreset{Name: "columns", _ModelRef: m}
	for _, c := range m.Columns {
		p.Fields = append(p.Fields, Field{Source: c.Name, Label: FieldLabel(c.Name), Type: c.Type})
	}
	for _, name := range m.ComputableNames() {
		p.Fields = append(p.Fields, Field{Source: name, Label: AnnotationLabel(name), Type: m.Computable[name].Type})
	}
	return p
}

// LookupPath walks nested maps along a dotted path.
func LookupPath(row map[string]any, path string) (any, bool) {
	cur := row
	for {
		head, tail, nested := strings.Cut(path, ".")
		v, ok := cur[head]
		if !ok {
			return nil, false
		}
		if !nested {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, v == nil
		}
		cur, path = next, tail
	}
}
