package model

import "fmt"

var Registry = map[string]*Model{}

func InitRegistry(dir string) error {
	models, err := LoadModelsFromDir(dir)
	if err != nil {
		return fmt.Errorf("load error: %w", err)
	}
	if err := LinkModels(models); err != nil {
		return fmt.Errorf("link error: %w", err)
	}
	Registry = models
	return nil
}

func (m *Model) GetPreset(name string) *DataPreset {
	if m == nil {
		return nil
	}
	if p, ok := m.Presets[name]; ok {
		return p
	}
	return nil
}

func (m *Model) GetRelation(alias string) *ModelRelation {
	if m == nil || m.Relations == nil {
		return nil
	}
	return m.Relations[alias]
}

func (m *Model) GetView(name string) *View {
	if m == nil || m.Views == nil {
		return nil
	}
	return m.Views[name]
}
