// Package envfile decodes and encodes the gateway's key=value environment
// file, preserving comments and source order on decode and rewriting the
// file canonically on encode.
package envfile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cotpanel/cotpanel/internal/schema"
)

// LineKind distinguishes the two structural variants of a parsed line.
type LineKind string

// Line kinds.
const (
	LineComment    LineKind = "comment"
	LineAssignment LineKind = "assignment"
)

// Quote records the quoting found around an assignment's value.
type Quote string

// Quote styles.
const (
	QuoteNone   Quote = ""
	QuoteSingle Quote = "'"
	QuoteDouble Quote = `"`
)

// Line is one parsed line. Text holds the verbatim source for every line;
// Key, Value, Quote and Disabled are set only on assignments. Number is the
// 1-based source position.
type Line struct {
	Number   int      `json:"number"`
	Kind     LineKind `json:"kind"`
	Text     string   `json:"text"`
	Key      string   `json:"key,omitempty"`
	Value    string   `json:"value,omitempty"`
	Quote    Quote    `json:"quote,omitempty"`
	Disabled bool     `json:"disabled,omitempty"`
}

// Document is the result of one decode pass: the ordered lines and the
// derived mapping of key to last active value.
type Document struct {
	Lines  []Line            `json:"lines"`
	Values map[string]string `json:"values"`
}

// assignmentRe matches KEY=VALUE lines. A # directly in front of the key
// marks a disabled assignment; a # followed by whitespace stays a comment.
// Keys follow the uppercase convention of /etc/default files.
var assignmentRe = regexp.MustCompile(`^\s*(#?)([A-Z][A-Z0-9_]*)=(.*)$`)

// Decode parses file text into its structural lines and the derived value
// mapping. Blank lines, #-prefixed lines and anything unparseable are kept
// verbatim as comments, so no input is ever lost. When a key is assigned
// more than once the last active assignment wins; disabled assignments
// never contribute a value.
func Decode(text string) Document {
	doc := Document{Values: make(map[string]string)}
	if text == "" {
		return doc
	}

	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	for i, raw := range lines {
		raw = strings.TrimSuffix(raw, "\r")
		line := parseLine(i+1, raw)
		doc.Lines = append(doc.Lines, line)
		if line.Kind == LineAssignment && !line.Disabled {
			doc.Values[line.Key] = line.Value
		}
	}
	return doc
}

func parseLine(number int, raw string) Line {
	m := assignmentRe.FindStringSubmatch(raw)
	if m == nil {
		return Line{Number: number, Kind: LineComment, Text: raw}
	}

	value, quote := unquote(m[3])
	return Line{
		Number:   number,
		Kind:     LineAssignment,
		Text:     raw,
		Key:      m[2],
		Value:    value,
		Quote:    quote,
		Disabled: m[1] == "#",
	}
}

// unquote strips matching surrounding quotes and resolves escapes inside
// double quotes. Unmatched or absent quotes leave the value literal.
func unquote(v string) (string, Quote) {
	if len(v) >= 2 {
		switch {
		case v[0] == '"' && v[len(v)-1] == '"':
			return unescape(v[1 : len(v)-1]), QuoteDouble
		case v[0] == '\'' && v[len(v)-1] == '\'':
			return v[1 : len(v)-1], QuoteSingle
		}
	}
	return v, QuoteNone
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '"') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// Encode renders a complete mapping as canonical file text: one assignment
// per schema field, in declared order, double-quoted where the field calls
// for it. The mapping must cover every schema key, so callers merge in
// defaults first. A save rewrites the whole file: comments and disabled
// assignments from a previously decoded file are dropped. Values are
// serialized as given; validating them is the caller's job.
func Encode(values map[string]string) (string, error) {
	var b strings.Builder
	for _, f := range schema.Fields() {
		v, ok := values[f.Key]
		if !ok {
			return "", fmt.Errorf("encode: missing value for %s", f.Key)
		}
		if f.Quoted {
			b.WriteString(f.Key + `="` + escape(v) + `"` + "\n")
		} else {
			b.WriteString(f.Key + "=" + v + "\n")
		}
	}
	return b.String(), nil
}
