package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"DisplayAPI/internal/logger"

	"gopkg.in/yaml.v3"
)

// LoadModelsFromDir parses every *.yml in dir; the file name is the model name.
func LoadModelsFromDir(dir string) (map[string]*Model, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}

	models := make(map[string]*Model, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		m, err := ParseModel(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		models[name] = m
		logger.Info("model_loaded", map[string]any{
			"model":     name,
			"columns":   len(m.Columns),
			"relations": len(m.Relations),
			"views":     len(m.Views),
		})
	}
	return models, nil
}

// ParseModel validates the YAML structure and decodes one model.
func ParseModel(name string, data []byte) (*Model, error) {
	// 1. structural validation on the node tree
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	// [0] is the document, its content the root mapping
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML")
	}
	if err := validateYAMLNode(root.Content[0], "model"); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	// 2. decode
	var m Model
	if err := root.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	m.Name = name
	for presetName, p := range m.Presets {
		if p == nil {
			return nil, fmt.Errorf("preset '%s' is empty", presetName)
		}
		p.Name = presetName
	}
	for viewName, v := range m.Views {
		if v == nil {
			m.Views[viewName] = &View{}
			v = m.Views[viewName]
		}
		v.Name = viewName
	}
	return &m, nil
}

// UnmarshalYAML accepts a bare column name as shorthand.
func (c *Column) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Name = node.Value
		return nil
	}
	type plain Column
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = Column(p)
	return nil
}
