package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
)

var structValidator = validator.New()

// LinkModels validates the models, fills defaults and resolves every
// reference (relation targets, nested presets, view serializers).
func LinkModels(reg map[string]*Model) error {
	for _, modelName := range sortedModelNames(reg) {
		model := reg[modelName]
		if err := structValidator.Struct(model); err != nil {
			return fmt.Errorf("model '%s': %w", modelName, err)
		}

		for i := range model.Columns {
			if model.Columns[i].Label == "" {
				model.Columns[i].Label = VerboseName(model.Columns[i].Name)
			}
		}

		for relName, rel := range model.Relations {
			targetModel, ok := reg[rel.Model]
			if !ok {
				return fmt.Errorf("invalid relation: model '%s' not found in '%s.%s'", rel.Model, modelName, relName)
			}
			rel._ModelRef = targetModel
			if rel.FK == "" {
				switch rel.Type {
				case "belongs_to":
					// FK lives here and points at the related row
					rel.FK = relName + "_id"
				case "has_one", "has_many":
					// FK lives in the related table and points back here
					rel.FK = strcase.ToSnake(modelName) + "_id"
				}
			}
			if rel.PK == "" {
				rel.PK = "id"
			}
		}
	}

	// presets and views need every relation linked first
	for _, modelName := range sortedModelNames(reg) {
		model := reg[modelName]
		for presetName, preset := range model.Presets {
			preset._ModelRef = model
			for j := range preset.Fields {
				f := &preset.Fields[j]
				if err := linkField(reg, model, f); err != nil {
					return fmt.Errorf("preset '%s.%s' field '%s': %w", modelName, presetName, f.Key(), err)
				}
			}
		}
		for viewName, view := range model.Views {
			if err := structValidator.Struct(view); err != nil {
				return fmt.Errorf("view '%s.%s': %w", modelName, viewName, err)
			}
			view._ModelRef = model
			if view.Preset == "" {
				continue
			}
			preset := findPreset(reg, model, view.Preset)
			if preset == nil {
				return fmt.Errorf("view '%s.%s': preset '%s' not found", modelName, viewName, view.Preset)
			}
			view._PresetRef = preset
		}
	}
	return nil
}

func linkField(reg map[string]*Model, model *Model, f *Field) error {
	if err := structValidator.Struct(f); err != nil {
		return err
	}
	if f.Label == "" {
		f.Label = FieldLabel(f.Key())
	}
	if f.Source == WholeObject {
		if f.Alias == "" {
			return fmt.Errorf("source '%s' needs an alias", WholeObject)
		}
		if f.Formatter == "" {
			return fmt.Errorf("source '%s' needs a formatter", WholeObject)
		}
		return nil
	}
	if !f.IsNested() {
		if f.Many {
			return fmt.Errorf("many is only valid for type 'preset'")
		}
		return nil
	}

	if f.NestedPreset == "" {
		return fmt.Errorf("type 'preset' needs a preset")
	}
	rel, ok := model.RelationFor(f.Source)
	if !ok {
		return fmt.Errorf("relation '%s' not found in model '%s'", f.Source, model.Name)
	}
	preset := findPreset(reg, rel._ModelRef, f.NestedPreset)
	if preset == nil {
		return fmt.Errorf("nested preset '%s' not found", f.NestedPreset)
	}
	f._PresetRef = preset
	return nil
}

// findPreset resolves "Model.preset" through the registry and a bare
// "preset" inside owner.
func findPreset(reg map[string]*Model, owner *Model, fullName string) *DataPreset {
	if modelName, presetName, ok := strings.Cut(fullName, "."); ok {
		m, found := reg[modelName]
		if !found {
			return nil
		}
		return m.GetPreset(presetName)
	}
	if owner == nil {
		return nil
	}
	return owner.GetPreset(fullName)
}

func sortedModelNames(reg map[string]*Model) []string {
	names := make([]string, 0, len(reg))
	for name := range reg {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
