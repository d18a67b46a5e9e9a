package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Validate checks a candidate value for the field named by key and returns
// a human-readable message, or "" when the value is accepted. Rules apply
// in order:
//
//  1. an optional field accepts the empty value, pattern notwithstanding;
//  2. a declared pattern that does not match rejects with "Invalid value";
//  3. a number field with a range rejects values that do not parse or fall
//     outside the inclusive bounds;
//  4. an enum field rejects anything but an exact, case-sensitive option.
//
// Key must exist in the table; an unknown key is a programming error and
// panics.
func Validate(key, value string) string {
	f, ok := Lookup(key)
	if !ok {
		panic(fmt.Sprintf("schema: validate called with unknown key %q", key))
	}

	if !f.Required && value == "" {
		return ""
	}
	if f.re != nil && !f.re.MatchString(value) {
		return "Invalid value"
	}
	if f.Kind == KindNumber && f.Range != nil {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || n < f.Range.Min || n > f.Range.Max {
			return fmt.Sprintf("Must be a number between %s and %s",
				formatBound(f.Range.Min), formatBound(f.Range.Max))
		}
	}
	if f.Kind == KindEnum {
		for _, opt := range f.Options {
			if value == opt {
				return ""
			}
		}
		return "Must be one of: " + strings.Join(f.Options, ", ")
	}
	return ""
}

// ValidateAll checks a complete mapping and returns the failures, keyed by
// field. Keys missing from the mapping validate as empty. An empty result
// means every field passed.
func ValidateAll(values map[string]string) map[string]string {
	errs := make(map[string]string)
	for _, f := range fields {
		if msg := Validate(f.Key, values[f.Key]); msg != "" {
			errs[f.Key] = msg
		}
	}
	return errs
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
