// Package schema declares the recognized keys of the gateway's environment
// file as a fixed, ordered table and validates candidate values against it.
package schema

import "regexp"

// Kind identifies the value type of a configuration field.
type Kind string

// Field kinds.
const (
	KindBoolean Kind = "boolean"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindEnum    Kind = "enum"
	KindPath    Kind = "path"
	KindURL     Kind = "url"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Field describes one recognized configuration key. Fields are built only
// through the per-kind constructors below, so a field never carries an
// attribute its kind has no use for (Options without enum, Range without
// number).
type Field struct {
	Key         string   `json:"key"`
	Kind        Kind     `json:"kind"`
	Description string   `json:"description"`
	Default     string   `json:"default"`
	Pattern     string   `json:"pattern,omitempty"`
	Options     []string `json:"options,omitempty"`
	Range       *Range   `json:"range,omitempty"`
	Quoted      bool     `json:"quoted"`
	Required    bool     `json:"required"`

	re *regexp.Regexp
}

// Validation patterns. All fields with a pattern compile it at table
// construction; a bad pattern is a programming error.
const (
	boolPattern     = `(?i)^(1|0|true|false|yes|no)$`
	intPattern      = `^-?[0-9]+$`
	pathPattern     = `^/[^\x00]*$`
	cotURLPattern   = `^(tcp|tls|udp|http|https)://\S+$`
	feedURLPattern  = `^(file|tcp|http|https)://\S+$`
	cotTypePattern  = `^a-[a-z]-[A-Z](-[A-Z0-9]+)*$`
	callsignPattern = `^[A-Za-z0-9_-]+$`
)

func boolField(key, description string) Field {
	return Field{
		Key:         key,
		Kind:        KindBoolean,
		Description: description,
		Pattern:     boolPattern,
		re:          regexp.MustCompile(boolPattern),
	}
}

func stringField(key, description, def, pattern string, required, quoted bool) Field {
	return Field{
		Key:         key,
		Kind:        KindString,
		Description: description,
		Default:     def,
		Pattern:     pattern,
		Quoted:      quoted,
		Required:    required,
		re:          regexp.MustCompile(pattern),
	}
}

func numberField(key, description, def string, min, max float64, required bool) Field {
	return Field{
		Key:         key,
		Kind:        KindNumber,
		Description: description,
		Default:     def,
		Pattern:     intPattern,
		Range:       &Range{Min: min, Max: max},
		Required:    required,
		re:          regexp.MustCompile(intPattern),
	}
}

func enumField(key, description, def string, options ...string) Field {
	return Field{
		Key:         key,
		Kind:        KindEnum,
		Description: description,
		Default:     def,
		Options:     options,
		Required:    true,
	}
}

func pathField(key, description string) Field {
	return Field{
		Key:         key,
		Kind:        KindPath,
		Description: description,
		Pattern:     pathPattern,
		Quoted:      true,
		re:          regexp.MustCompile(pathPattern),
	}
}

func urlField(key, description, def, pattern string) Field {
	return Field{
		Key:         key,
		Kind:        KindURL,
		Description: description,
		Default:     def,
		Pattern:     pattern,
		Quoted:      true,
		Required:    true,
		re:          regexp.MustCompile(pattern),
	}
}

var index = buildIndex()

func buildIndex() map[string]int {
	m := make(map[string]int, len(fields))
	for i, f := range fields {
		m[f.Key] = i
	}
	return m
}

// Fields returns the full field table in declared order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Lookup returns the field definition for key.
func Lookup(key string) (Field, bool) {
	i, ok := index[key]
	if !ok {
		return Field{}, false
	}
	return fields[i], true
}

// Defaults returns a fresh mapping of every key to its default value.
func Defaults() map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Default
	}
	return m
}
