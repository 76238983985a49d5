package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// AllFields allows selecting any model field or annotation.
const AllFields = "__all__"

// FieldChoice is a (name, label) pair of a selectable field.
type FieldChoice struct {
	Name  string
	Label string
}

// DisplayFields is an explicit whitelist of a view: either AllFields or a list.
//
// YAML forms:
//
//	display_fields: __all__
//	display_fields: [title, [author, "Written by"], {name: score, label: Score}]
type DisplayFields struct {
	All     bool
	Choices []FieldChoice
}

func AllDisplayFields() *DisplayFields {
	return &DisplayFields{All: true}
}

// NewDisplayFields builds a list whitelist where every label equals its name.
func NewDisplayFields(names ...string) *DisplayFields {
	d := &DisplayFields{Choices: make([]FieldChoice, 0, len(names))}
	for _, n := range names {
		d.Choices = append(d.Choices, FieldChoice{Name: n, Label: n})
	}
	return d
}

func (d *DisplayFields) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value != AllFields {
			return fmt.Errorf("line %d: display_fields must be %q or a list, got %q", node.Line, AllFields, node.Value)
		}
		d.All = true
		return nil
	case yaml.SequenceNode:
		d.Choices = make([]FieldChoice, 0, len(node.Content))
		for _, item := range node.Content {
			choice, err := decodeFieldChoice(item)
			if err != nil {
				return err
			}
			d.Choices = append(d.Choices, choice)
		}
		return nil
	}
	return fmt.Errorf("line %d: display_fields must be %q or a list", node.Line, AllFields)
}

func decodeFieldChoice(node *yaml.Node) (FieldChoice, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return FieldChoice{Name: node.Value, Label: node.Value}, nil
	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			return FieldChoice{}, fmt.Errorf("line %d: display_fields pair must be [name, label]", node.Line)
		}
		return FieldChoice{Name: node.Content[0].Value, Label: node.Content[1].Value}, nil
	case yaml.MappingNode:
		var raw struct {
			Name  string `yaml:"name"`
			Label string `yaml:"label"`
		}
		if err := node.Decode(&raw); err != nil {
			return FieldChoice{}, err
		}
		if raw.Name == "" {
			return FieldChoice{}, fmt.Errorf("line %d: display_fields entry without name", node.Line)
		}
		if raw.Label == "" {
			raw.Label = raw.Name
		}
		return FieldChoice{Name: raw.Name, Label: raw.Label}, nil
	}
	return FieldChoice{}, fmt.Errorf("line %d: unsupported display_fields entry", node.Line)
}
