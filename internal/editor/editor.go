// Package editor implements the configuration form over the managed
// environment file: values seeded from the file or the schema defaults,
// per-field validation state, and the save pipeline that rewrites the file.
package editor

import (
	"errors"
	"fmt"

	"github.com/cotpanel/cotpanel/internal/envfile"
	"github.com/cotpanel/cotpanel/internal/schema"
)

// ErrInvalid reports that a save was refused because one or more fields
// failed validation. The failing fields are on the form's Errors map.
var ErrInvalid = errors.New("configuration has invalid fields")

// Form is one edit session's state: current values and per-field validation
// messages. A key absent from Errors is valid.
type Form struct {
	Values     map[string]string `json:"values"`
	Errors     map[string]string `json:"errors"`
	FileExists bool              `json:"file_exists"`
}

// NewForm returns a form seeded with the schema defaults.
func NewForm() *Form {
	return &Form{
		Values: schema.Defaults(),
		Errors: make(map[string]string),
	}
}

// FromValues builds a form from a client-supplied mapping. Recognized keys
// override the defaults, unknown keys are dropped, and every field is
// validated.
func FromValues(values map[string]string) *Form {
	f := NewForm()
	for k, v := range values {
		if _, ok := schema.Lookup(k); ok {
			f.Values[k] = v
		}
	}
	f.Validate()
	return f
}

// SetField updates one field and revalidates only that field.
func (f *Form) SetField(key, value string) error {
	if _, ok := schema.Lookup(key); !ok {
		return fmt.Errorf("unknown field %q", key)
	}
	f.Values[key] = value
	if msg := schema.Validate(key, value); msg != "" {
		f.Errors[key] = msg
	} else {
		delete(f.Errors, key)
	}
	return nil
}

// Validate revalidates every field and reports whether all passed.
func (f *Form) Validate() bool {
	f.Errors = schema.ValidateAll(f.Values)
	return len(f.Errors) == 0
}

// Editor loads and saves the gateway configuration through its managed
// file.
type Editor struct {
	store *envfile.Store
}

// New creates an editor over store.
func New(store *envfile.Store) *Editor {
	return &Editor{store: store}
}

// Store returns the underlying file store.
func (e *Editor) Store() *envfile.Store {
	return e.store
}

// Open builds a form from the managed file. Values come from the file's
// last active assignments where present, schema defaults otherwise. A
// missing file means no configuration yet, not an error; the form starts
// from pure defaults.
func (e *Editor) Open() (*Form, error) {
	text, exists, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	form := NewForm()
	form.FileExists = exists
	if exists {
		doc := envfile.Decode(text)
		for _, field := range schema.Fields() {
			if v, ok := doc.Values[field.Key]; ok {
				form.Values[field.Key] = v
			}
		}
	}
	form.Validate()
	return form, nil
}

// Save revalidates the whole form and rewrites the managed file in
// canonical order. A validation failure populates the form's Errors and
// returns ErrInvalid with nothing written. A write failure leaves the form
// state untouched so the caller can retry without re-entering anything.
func (e *Editor) Save(form *Form) error {
	if !form.Validate() {
		return ErrInvalid
	}
	text, err := envfile.Encode(form.Values)
	if err != nil {
		return err
	}
	if err := e.store.Write(text); err != nil {
		return fmt.Errorf("failed to persist configuration: %w", err)
	}
	form.FileExists = true
	return nil
}
