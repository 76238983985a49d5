package display

import (
	"fmt"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/ru"
	ut "github.com/go-playground/universal-translator"
)

// Default schema texts. They double as translation keys.
const (
	DefaultTitle       = "Displays"
	DefaultDescription = "Which field to display the results."
)

var catalog = map[string]map[string]string{
	"en": {
		DefaultTitle:       "Displays",
		DefaultDescription: "Which field to display the results.",
	},
	"ru": {
		DefaultTitle:       "Отображение",
		DefaultDescription: "Какие поля показывать в результатах.",
	},
}

var universal = mustUniversalTranslator(catalog)

func mustUniversalTranslator(messages map[string]map[string]string) *ut.UniversalTranslator {
	uni, err := newUniversalTranslator(messages)
	if err != nil {
		panic(err)
	}
	return uni
}

// newUniversalTranslator registers messages per locale. A locale without a
// translator or an entry the translator rejects is an error.
func newUniversalTranslator(messages map[string]map[string]string) (*ut.UniversalTranslator, error) {
	fallback := en.New()
	uni := ut.New(fallback, fallback, ru.New())
	for locale, texts := range messages {
		tr, found := uni.GetTranslator(locale)
		if !found || tr.Locale() != locale {
			return nil, fmt.Errorf("display: no translator for locale '%s'", locale)
		}
		for key, text := range texts {
			if err := tr.Add(key, text, false); err != nil {
				return nil, fmt.Errorf("display: catalog entry %s/%q: %w", locale, key, err)
			}
		}
	}
	return uni, nil
}

// translate returns key in the given locale, or key itself when there is no
// translation. Unknown locales fall back to English.
func translate(locale, key string) string {
	tr, _ := universal.GetTranslator(locale)
	text, err := tr.T(key)
	if err != nil || text == "" {
		return key
	}
	return text
}
