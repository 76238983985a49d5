package model

// Model describes one table and what is exposed over it.
type Model struct {
	Name        string                    `yaml:"-"` // logical name of the model (file name)
	Table       string                    `yaml:"table" validate:"required"`
	Columns     []Column                  `yaml:"columns" validate:"dive"`
	Computable  map[string]*Computable    `yaml:"computable" validate:"dive"`
	Relations   map[string]*ModelRelation `yaml:"relations" validate:"dive"`
	Presets     map[string]*DataPreset    `yaml:"presets"`
	Views       map[string]*View          `yaml:"views"`
	PrimaryKeys []string                  `yaml:"primary_keys"` // optional, e.g. ["id"]
}

// Column is a schema field of the table.
type Column struct {
	Name  string `yaml:"name" validate:"required"`
	Label string `yaml:"label"` // verbose name, derived from Name when empty
	Type  string `yaml:"type" validate:"omitempty,oneof=int string bool float time datetime date UUID"`
}

// Computable is an SQL expression selected next to the columns
// (an annotation of every query over the model).
type Computable struct {
	Source string `yaml:"source" validate:"required"`
	Type   string `yaml:"type" validate:"omitempty,oneof=int string bool float time datetime date UUID"`
}

// ModelRelation describes a link to another model.
type ModelRelation struct {
	Type  string `yaml:"type" validate:"required,oneof=belongs_to has_one has_many"`
	Model string `yaml:"model" validate:"required"` // logical name of the related model
	FK    string `yaml:"fk"`                        // belongs_to: column here; has_*: column in the related table
	PK    string `yaml:"pk"`                        // key the FK points at, "id" by default
	Where string `yaml:"where"`                     // extra SQL condition (without WHERE); ".col" names a column of the related table
	Order string `yaml:"order"`                     // order of prefetched rows

	// runtime only
	_ModelRef *Model `yaml:"-"`
}

// DataPreset is a serializer: an ordered list of output fields.
type DataPreset struct {
	Name   string  `yaml:"-"`
	Fields []Field `yaml:"fields"`

	_ModelRef *Model `yaml:"-"`
}

// WholeObject is the source of a field computed from the whole row.
const WholeObject = "*"

// Field is one declared serializer field.
type Field struct {
	Source       string `yaml:"source" validate:"required"` // column, computable, relation or dotted path; "*" for the whole row
	Alias        string `yaml:"alias"`                      // output key, defaults to Source
	Label        string `yaml:"label"`
	Type         string `yaml:"type" validate:"omitempty,oneof=int string bool float time datetime date UUID preset formatter"`
	NestedPreset string `yaml:"preset"`     // "preset" or "Model.preset" for nested objects
	Many         bool   `yaml:"many"`       // nested list instead of a single nested object
	WriteOnly    bool   `yaml:"write_only"` // never rendered
	Formatter    string `yaml:"formatter"`  // template for "*" fields, e.g. "{surname} {name[0]}."

	// runtime only
	_PresetRef *DataPreset `yaml:"-"`
}

// View is an endpoint definition: GET /api/<model>/<view>.
type View struct {
	Name          string         `yaml:"-"`
	Preset        string         `yaml:"preset"`
	DisplayFields *DisplayFields `yaml:"display_fields"` // nil: derive from the serializer
	Display       []string       `yaml:"display"`        // default display list
	Order         []string       `yaml:"order"`
	Limit         uint64         `yaml:"limit" validate:"lte=10000"`

	// SerializerFunc overrides Preset for views built in code.
	SerializerFunc func() (*DataPreset, error) `yaml:"-"`

	_PresetRef *DataPreset `yaml:"-"`
	_ModelRef  *Model      `yaml:"-"`
}

// GetPrimaryKeys returns the primary key columns, ["id"] when not configured.
func (m *Model) GetPrimaryKeys() []string {
	if len(m.PrimaryKeys) > 0 {
		return m.PrimaryKeys
	}
	return []string{"id"}
}

func (r *ModelRelation) GetModelRef() *Model {
	return r._ModelRef
}

func (r *ModelRelation) SetModelRef(model *Model) {
	r._ModelRef = model
}

// IsReverse reports whether the FK lives on the related table.
func (r *ModelRelation) IsReverse() bool {
	return r.Type != "belongs_to"
}

func (r *ModelRelation) IsMany() bool {
	return r.Type == "has_many"
}

func (p *DataPreset) GetModelRef() *Model {
	return p._ModelRef
}

func (p *DataPreset) SetModelRef(model *Model) {
	p._ModelRef = model
}

// Key is the name the field is rendered under.
func (f Field) Key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Source
}

func (f Field) IsNested() bool {
	return f.Type == "preset"
}

func (f *Field) SetPresetRef(preset *DataPreset) {
	f._PresetRef = preset
}

func (f *Field) GetPresetRef() *DataPreset {
	return f._PresetRef
}

func (v *View) GetPresetRef() *DataPreset {
	return v._PresetRef
}

func (v *View) SetPresetRef(preset *DataPreset) {
	v._PresetRef = preset
}

func (v *View) GetModelRef() *Model {
	return v._ModelRef
}

func (v *View) SetModelRef(model *Model) {
	v._ModelRef = model
}
