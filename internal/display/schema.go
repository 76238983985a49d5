package display

import "github.com/google/jsonschema-go/jsonschema"

// SchemaField describes a query parameter for API documentation.
type SchemaField struct {
	Name     string             `json:"name"`
	Required bool               `json:"required"`
	Location string             `json:"location"`
	Schema   *jsonschema.Schema `json:"schema"`
}

// SchemaFields describes the optional string parameter the filter reads,
// with title and description in the given locale.
func (f *Filter) SchemaFields(locale string) []SchemaField {
	return []SchemaField{
		{
			Name:     f.param(),
			Required: false,
			Location: "query",
			Schema: &jsonschema.Schema{
				Type:        "string",
				Title:       translate(locale, f.Title),
				Description: translate(locale, f.Description),
			},
		},
	}
}
