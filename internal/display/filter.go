// Package display lets API clients choose response fields with a repeatable
// ?display=<field> query parameter.
//
// Filter validates the requested names against a per-view whitelist and adds
// eager-loading hints for the relations the surviving fields need: a join for
// direct (belongs_to) relations and a separate prefetch for reverse ones.
// PruneFields and friends drop the serializer fields that were not asked for.
package display

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"DisplayAPI/internal/logger"
	"DisplayAPI/internal/model"
)

// DefaultParam is the query parameter carrying the requested field names.
const DefaultParam = "display"

const componentName = "display.Filter"

// FieldChoice is a (name, label) pair of the whitelist.
type FieldChoice = model.FieldChoice

// QueryMeta is what the filter reads from a query.
type QueryMeta interface {
	Model() *model.Model
	Annotations() []string
}

// QuerySet is a copy-on-write query builder accepting relation hints.
type QuerySet[Q any] interface {
	QueryMeta
	SelectRelated(paths ...string) Q
	PrefetchRelated(paths ...string) Q
}

// Relations are the eager-loading hints derived from a serializer.
type Relations struct {
	Direct  []string // joined in the main query
	Reverse []string // fetched by a separate query
}

type Filter struct {
	Param         string               // query parameter, DefaultParam when empty
	DisplayFields *model.DisplayFields // whitelist for views that set none
	Title         string
	Description   string

	// OnDropped, when set, receives the requested names that were not valid.
	OnDropped func(view *model.View, names []string)
}

func New() *Filter {
	return &Filter{
		Param:       DefaultParam,
		Title:       DefaultTitle,
		Description: DefaultDescription,
	}
}

// FilterQuery returns q with join hints for the direct relations and
// prefetch hints for the reverse relations of the displayed fields.
// q itself is left untouched.
func FilterQuery[Q QuerySet[Q]](f *Filter, r *http.Request, q Q, view *model.View) (Q, error) {
	fields, err := f.Display(r, q, view)
	if err != nil {
		return q, err
	}
	rels, err := f.ExtractRelations(fields, view)
	if err != nil {
		// an explicit whitelist makes the serializer optional
		var cfgErr *ImproperlyConfiguredError
		if errors.As(err, &cfgErr) && f.displayFields(view) != nil {
			return q, nil
		}
		return q, err
	}
	if len(rels.Direct) > 0 {
		q = q.SelectRelated(rels.Direct...)
	}
	if len(rels.Reverse) > 0 {
		q = q.PrefetchRelated(rels.Reverse...)
	}
	return q, nil
}

func (f *Filter) param() string {
	if f.Param == "" {
		return DefaultParam
	}
	return f.Param
}

// RequestedFields returns every value of the display parameter, trimmed.
func (f *Filter) RequestedFields(r *http.Request) []string {
	if r == nil || r.URL == nil {
		return nil
	}
	params := r.URL.Query()[f.param()]
	if len(params) == 0 {
		return nil
	}
	fields := make([]string, 0, len(params))
	for _, p := range params {
		fields = append(fields, strings.TrimSpace(p))
	}
	return fields
}

// Display returns the active field set: the valid requested names, or the
// view default when nothing valid was requested. nil means unrestricted.
func (f *Filter) Display(r *http.Request, q QueryMeta, view *model.View) ([]string, error) {
	if params := f.RequestedFields(r); len(params) > 0 {
		display, err := f.RemoveInvalidFields(q, view, params)
		if err != nil {
			return nil, err
		}
		if len(display) > 0 {
			return display, nil
		}
	}
	// nothing requested, or every name was invalid
	if view == nil {
		return nil, nil
	}
	return view.Display, nil
}

// RemoveInvalidFields keeps the whitelisted names in request order.
func (f *Filter) RemoveInvalidFields(q QueryMeta, view *model.View, fields []string) ([]string, error) {
	valid, err := f.ValidFields(q, view)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]struct{}, len(valid))
	for _, item := range valid {
		allowed[item.Name] = struct{}{}
	}

	out := make([]string, 0, len(fields))
	var dropped []string
	for _, term := range fields {
		if _, ok := allowed[term]; !ok {
			dropped = append(dropped, term)
			continue
		}
		if !slices.Contains(out, term) {
			out = append(out, term)
		}
	}
	if len(dropped) > 0 {
		logger.Debug("display_fields_dropped", map[string]any{
			"view":    viewName(view),
			"dropped": dropped,
		})
		if f.OnDropped != nil {
			f.OnDropped(view, dropped)
		}
	}
	return out, nil
}

// ValidFields returns the whitelist of the view: its explicit display_fields,
// else the filter's, else the fields of its serializer.
func (f *Filter) ValidFields(q QueryMeta, view *model.View) ([]FieldChoice, error) {
	df := f.displayFields(view)
	switch {
	case df == nil:
		return f.DefaultValidFields(view)
	case df.All:
		var out []FieldChoice
		if m := q.Model(); m != nil {
			for _, c := range m.Columns {
				label := c.Label
				if label == "" {
					label = model.VerboseName(c.Name)
				}
				out = append(out, FieldChoice{Name: c.Name, Label: label})
			}
		}
		for _, key := range q.Annotations() {
			out = append(out, FieldChoice{Name: key, Label: model.AnnotationLabel(key)})
		}
		return out, nil
	default:
		return slices.Clone(df.Choices), nil
	}
}

// DefaultValidFields derives the whitelist from the serializer: every field
// except write-only and whole-object ones, named by its source path with
// "." replaced by "__".
func (f *Filter) DefaultValidFields(view *model.View) ([]FieldChoice, error) {
	preset, err := f.SerializerFor(view)
	if err != nil {
		return nil, err
	}
	out := make([]FieldChoice, 0, len(preset.Fields))
	for _, field := range preset.Fields {
		if field.WriteOnly || field.Source == model.WholeObject {
			continue
		}
		name := strings.ReplaceAll(field.Source, ".", "__")
		if name == "" {
			name = field.Key()
		}
		out = append(out, FieldChoice{Name: name, Label: field.Label})
	}
	return out, nil
}

// SerializerFor returns the serializer of the view or an
// *ImproperlyConfiguredError when it has none.
func (f *Filter) SerializerFor(view *model.View) (*model.DataPreset, error) {
	var (
		preset *model.DataPreset
		cause  error
	)
	if view != nil {
		if view.SerializerFunc != nil {
			preset, cause = view.SerializerFunc()
			if cause != nil {
				preset = nil
			}
		} else {
			preset = view.GetPresetRef()
		}
	}
	if preset == nil {
		return nil, &ImproperlyConfiguredError{Component: componentName, View: viewName(view), Err: cause}
	}
	return preset, nil
}

// ExtractRelations classifies the serializer fields in fields (all of them
// when fields is empty). A nested list is always a reverse relation named by
// the field; a single nested object is direct or reverse by its relation and
// named by its source. Fields that do not resolve to a model field are plain
// attributes.
func (f *Filter) ExtractRelations(fields []string, view *model.View) (Relations, error) {
	preset, err := f.SerializerFor(view)
	if err != nil {
		return Relations{}, err
	}

	var rels Relations
	for _, field := range preset.Fields {
		name := field.Key()
		if len(fields) > 0 && !slices.Contains(fields, name) {
			continue
		}
		reverse, err := relatedField(preset.GetModelRef(), field)
		if err != nil {
			continue
		}
		if !field.IsNested() {
			continue
		}
		if field.Many {
			rels.Reverse = append(rels.Reverse, name)
			continue
		}
		if reverse {
			rels.Reverse = append(rels.Reverse, field.Source)
		} else {
			rels.Direct = append(rels.Direct, field.Source)
		}
	}
	return rels, nil
}

// relatedField looks the field source up in the model schema and reports
// whether it is a reverse relation. An unnamed reverse relation is reachable
// as "<name>_set", so that suffix is stripped for a second try.
func relatedField(m *model.Model, field model.Field) (bool, error) {
	meta, err := m.GetField(field.Source)
	if err != nil {
		trimmed, ok := strings.CutSuffix(field.Source, "_set")
		if !ok || !errors.Is(err, model.ErrFieldDoesNotExist) {
			return false, err
		}
		if meta, err = m.GetField(trimmed); err != nil {
			return false, err
		}
	}
	return meta.IsReverse(), nil
}

func (f *Filter) displayFields(view *model.View) *model.DisplayFields {
	if view != nil && view.DisplayFields != nil {
		return view.DisplayFields
	}
	return f.DisplayFields
}

func viewName(view *model.View) string {
	if view == nil {
		return "<nil>"
	}
	if m := view.GetModelRef(); m != nil {
		return m.Name + "." + view.Name
	}
	return view.Name
}
