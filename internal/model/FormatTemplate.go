package model

import (
	"fmt"
	"regexp"
	"strconv"
)

var templateRegexp = regexp.MustCompile(`\{([\w\.]+)(\[(\d+)(\.\.(\d+))?\])?\}`)

// FormatTemplate fills "{path}" and "{path[from..to]}" placeholders from row.
// Paths may walk nested objects: "{author.surname} {author.name[0]}.".
func FormatTemplate(template string, row map[string]any) string {
	return templateRegexp.ReplaceAllStringFunc(template, func(match string) string {
		parts := templateRegexp.FindStringSubmatch(match)
		key := parts[1]
		from := parts[3]
		to := parts[5]

		valRaw, ok := LookupPath(row, key)
		if !ok || valRaw == nil {
			return ""
		}
		val := []rune(fmt.Sprintf("%v", valRaw))
		if from == "" {
			return string(val)
		}

		startIdx, _ := strconv.Atoi(from)
		endIdx := startIdx + 1
		if to != "" {
			endIdx, _ = strconv.Atoi(to)
		}

		if startIdx >= len(val) {
			return ""
		}
		if endIdx > len(val) {
			endIdx = len(val)
		}
		if endIdx < startIdx {
			return ""
		}
		return string(val[startIdx:endIdx])
	})
}
