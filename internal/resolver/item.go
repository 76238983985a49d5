package resolver

import (
	"bytes"
	"encoding/json"
	"slices"

	"DisplayAPI/internal/model"
)

// Item is one rendered object. Keys keep the serializer declaration order.
type Item struct {
	keys   []string
	values map[string]any
}

func NewItem() *Item {
	return &Item{values: map[string]any{}}
}

func (it *Item) Set(key string, v any) {
	if _, ok := it.values[key]; !ok {
		it.keys = append(it.keys, key)
	}
	it.values[key] = v
}

func (it *Item) Get(key string) (any, bool) {
	v, ok := it.values[key]
	return v, ok
}

func (it *Item) Keys() []string {
	return slices.Clone(it.keys)
}

func (it *Item) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range it.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(it.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// render builds the output object of one row.
func render(row map[string]any, fields []model.Field) *Item {
	it := NewItem()
	for _, f := range fields {
		if f.WriteOnly {
			continue
		}
		switch {
		case f.Source == model.WholeObject:
			it.Set(f.Key(), model.FormatTemplate(f.Formatter, row))
		case f.IsNested():
			it.Set(f.Key(), renderNested(row[f.Source], f))
		default:
			v, _ := model.LookupPath(row, f.Source)
			it.Set(f.Key(), v)
		}
	}
	return it
}

func renderNested(v any, f model.Field) any {
	var fields []model.Field
	if p := f.GetPresetRef(); p != nil {
		fields = p.Fields
	}
	switch v := v.(type) {
	case map[string]any:
		item := render(v, fields)
		if f.Many {
			return []*Item{item}
		}
		return item
	case []map[string]any:
		if !f.Many {
			if len(v) == 0 {
				return nil
			}
			return render(v[0], fields)
		}
		out := make([]*Item, 0, len(v))
		for _, row := range v {
			out = append(out, render(row, fields))
		}
		return out
	default:
		if f.Many {
			return []*Item{}
		}
		return nil
	}
}
