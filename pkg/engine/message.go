package engine

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var lenPlaceholder = regexp.MustCompile(`\{len\(([^)]+)\)\}`)

// FormatMessage substitutes log-stage placeholders: {name} becomes the
// variable's string value, {len(name)} the length of a list variable or
// "N/A" when the variable is absent or not a list. Placeholders for unset
// variables are left verbatim.
func FormatMessage(message string, variables map[string]any) string {
	message = lenPlaceholder.ReplaceAllStringFunc(message, func(match string) string {
		name := lenPlaceholder.FindStringSubmatch(match)[1]

		value, ok := variables[name]
		if !ok {
			return "N/A"
		}

		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return "N/A"
		}

		return strconv.Itoa(rv.Len())
	})

	for name, value := range variables {
		message = strings.ReplaceAll(message, "{"+name+"}", fmt.Sprintf("%v", value))
	}

	return message
}
