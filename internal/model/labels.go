package model

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// VerboseName is the default column label: "created_at" -> "created at".
func VerboseName(name string) string {
	return strcase.ToDelimited(name, ' ')
}

// FieldLabel is the default serializer field label: "created_at" -> "Created at".
func FieldLabel(name string) string {
	s := VerboseName(name)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// AnnotationLabel titles an annotation key: "total__score" -> "Total Score".
func AnnotationLabel(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "__", " "))
}
