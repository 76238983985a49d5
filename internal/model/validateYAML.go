package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Allowed keys per object kind
var allowedModelKeys = map[string]bool{
	"table":        true,
	"columns":      true,
	"computable":   true,
	"relations":    true,
	"presets":      true,
	"views":        true,
	"primary_keys": true,
}

var allowedColumnKeys = map[string]bool{
	"name":  true,
	"label": true,
	"type":  true,
}

var allowedRelationKeys = map[string]bool{
	"model": true,
	"type":  true,
	"fk":    true,
	"pk":    true,
	"where": true,
	"order": true,
}

var allowedPresetKeys = map[string]bool{
	"fields": true,
}

var allowedFieldKeys = map[string]bool{
	"source":     true,
	"alias":      true,
	"label":      true,
	"type":       true,
	"preset":     true,
	"many":       true,
	"write_only": true,
	"formatter":  true,
}

var allowedComputableKeys = map[string]bool{
	"source": true,
	"type":   true,
}

var allowedViewKeys = map[string]bool{
	"preset":         true,
	"display_fields": true,
	"display":        true,
	"order":          true,
	"limit":          true,
}

func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "model"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		var allowedKeys map[string]bool
		switch context {
		case "model":
			allowedKeys = allowedModelKeys
		case "column":
			allowedKeys = allowedColumnKeys
		case "relation":
			allowedKeys = allowedRelationKeys
		case "preset":
			allowedKeys = allowedPresetKeys
		case "field":
			allowedKeys = allowedFieldKeys
		case "computable-entry":
			allowedKeys = allowedComputableKeys
		case "view":
			allowedKeys = allowedViewKeys
		default:
			allowedKeys = nil // free form
		}

		for i := 0; i < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if allowedKeys != nil && !allowedKeys[key] {
				return fmt.Errorf("line %d: unknown key '%s' in %s", keyNode.Line, key, context)
			}

			nextContext := ""
			switch {
			case context == "model" && key == "columns":
				nextContext = "columns-seq"
			case context == "model" && key == "relations":
				nextContext = "relations-map"
			case context == "relations-map":
				nextContext = "relation"
			case context == "model" && key == "presets":
				nextContext = "presets-map"
			case context == "presets-map":
				nextContext = "preset"
			case context == "preset" && key == "fields":
				nextContext = "fields-seq"
			case context == "model" && key == "computable":
				nextContext = "computable-map"
			case context == "computable-map":
				nextContext = "computable-entry"
			case context == "model" && key == "views":
				nextContext = "views-map"
			case context == "views-map":
				nextContext = "view"
			case context == "field" || context == "view" || context == "column" ||
				context == "relation" || context == "computable-entry":
				nextContext = context + "-value"
			default:
				nextContext = context
			}

			if err := validateYAMLNode(valNode, nextContext); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		itemContext := context
		switch context {
		case "fields-seq":
			itemContext = "field"
		case "columns-seq":
			itemContext = "column"
		}
		for _, item := range node.Content {
			if err := validateYAMLNode(item, itemContext); err != nil {
				return err
			}
		}

	case yaml.ScalarNode:
		// scalars carry no keys
	}

	return nil
}
