package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaFields(t *testing.T) {
	tests := []struct {
		locale      string
		title       string
		description string
	}{
		{"en", "Displays", "Which field to display the results."},
		{"ru", "Отображение", "Какие поля показывать в результатах."},
		{"de", "Displays", "Which field to display the results."},
		{"", "Displays", "Which field to display the results."},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			got := New().SchemaFields(tt.locale)
			require.Len(t, got, 1)
			assert.Equal(t, "display", got[0].Name)
			assert.False(t, got[0].Required)
			assert.Equal(t, "query", got[0].Location)
			assert.Equal(t, "string", got[0].Schema.Type)
			assert.Equal(t, tt.title, got[0].Schema.Title)
			assert.Equal(t, tt.description, got[0].Schema.Description)
		})
	}
}

func TestSchemaFields_CustomTexts(t *testing.T) {
	f := &Filter{Param: "fields", Title: "Columns", Description: "Pick columns."}
	got := f.SchemaFields("ru")
	require.Len(t, got, 1)
	assert.Equal(t, "fields", got[0].Name)
	// untranslated texts come back as is
	assert.Equal(t, "Columns", got[0].Schema.Title)
	assert.Equal(t, "Pick columns.", got[0].Schema.Description)
}

func TestNewUniversalTranslator_RejectsBadCatalog(t *testing.T) {
	_, err := newUniversalTranslator(map[string]map[string]string{
		"en": {DefaultTitle: "Displays {0"},
	})
	assert.ErrorContains(t, err, "catalog entry en")

	_, err = newUniversalTranslator(map[string]map[string]string{
		"de": {DefaultTitle: "Anzeige"},
	})
	assert.ErrorContains(t, err, "no translator for locale 'de'")

	uni, err := newUniversalTranslator(catalog)
	require.NoError(t, err)
	assert.NotNil(t, uni)
}
