// Package validate checks the sections of the settings document against
// their JSON schemas and reports one message per invalid field.
package validate

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/datarhei/settings/document"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemas embed.FS

const contextRoot = "(root)"

// ErrUnknownSection is returned if a section without schema is validated.
var ErrUnknownSection = errors.New("unknown section")

// Result is the outcome of a validation. Errors maps a dot-delimited field
// path to its message. Valid is true if and only if Errors is empty.
type Result struct {
	Valid  bool              `json:"isValid"`
	Errors map[string]string `json:"errors"`
}

func newResult() Result {
	return Result{
		Valid:  true,
		Errors: map[string]string{},
	}
}

func (r *Result) add(path, message string) {
	if _, ok := r.Errors[path]; ok {
		return
	}

	r.Errors[path] = message
	r.Valid = false
}

// Paths returns the field paths with errors in sorted order.
func (r Result) Paths() []string {
	paths := make([]string, 0, len(r.Errors))
	for p := range r.Errors {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}

// Err returns nil for a valid result, otherwise an *Error.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}

	return &Error{Result: r}
}

// Error is a failed validation as an error value.
type Error struct {
	Result Result
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("validation failed")

	for i, p := range e.Result.Paths() {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString(", ")
		}

		b.WriteString(p + ": " + e.Result.Errors[p])
	}

	return b.String()
}

// Validator validates sections of the settings document.
type Validator interface {
	// Validate validates the data of one section.
	Validate(section document.Section, data document.Data) (Result, error)

	// ValidateDocument validates all present sections. The field paths
	// are prefixed with the name of the section.
	ValidateDocument(doc document.Document) (Result, error)

	// ValidateField sets the value at the field path in a copy of data and
	// returns the message for that path, or an empty string if it is valid.
	ValidateField(section document.Section, data document.Data, path string, value interface{}) string

	// Schema returns the JSON schema of a section.
	Schema(section document.Section) ([]byte, error)
}

// Registry is a Validator with a compiled schema for every known section.
type Registry struct {
	raw     map[document.Section][]byte
	schemas map[document.Section]*gojsonschema.Schema
}

// New compiles the schemas of all sections. It fails if any section
// has no schema.
func New() (*Registry, error) {
	r := &Registry{
		raw:     map[document.Section][]byte{},
		schemas: map[document.Section]*gojsonschema.Schema{},
	}

	for _, section := range document.Sections() {
		data, err := schemas.ReadFile("schemas/" + section.String() + ".json")
		if err != nil {
			return nil, fmt.Errorf("no schema for section '%s': %w", section, err)
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(string(data)))
		if err != nil {
			return nil, fmt.Errorf("invalid schema for section '%s': %w", section, err)
		}

		r.raw[section] = data
		r.schemas[section] = schema
	}

	return r, nil
}

// Must is like New but panics on error.
func Must() *Registry {
	r, err := New()
	if err != nil {
		panic(err)
	}

	return r
}

func (r *Registry) Schema(section document.Section) ([]byte, error) {
	data, ok := r.raw[section]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}

	return data, nil
}

func (r *Registry) Validate(section document.Section, data document.Data) (Result, error) {
	result := newResult()

	if err := r.validate(section, data, "", &result); err != nil {
		return Result{}, err
	}

	return result, nil
}

func (r *Registry) ValidateDocument(doc document.Document) (Result, error) {
	result := newResult()

	for _, section := range doc.Sections() {
		if err := r.validate(section, doc[section], section.String()+".", &result); err != nil {
			return Result{}, err
		}
	}

	return result, nil
}

func (r *Registry) validate(section document.Section, data document.Data, prefix string, result *Result) error {
	schema, ok := r.schemas[section]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}

	if data == nil {
		data = document.Data{}
	}

	res, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("validating section '%s': %w", section, err)
	}

	for _, e := range res.Errors() {
		path := errorPath(e)
		if len(path) == 0 {
			result.add(section.String(), e.Description())
			continue
		}

		path, msg, ok := translate(section, path)
		if !ok {
			msg = e.Description()
		}

		result.add(prefix+path, msg)
	}

	return nil
}

func (r *Registry) ValidateField(section document.Section, data document.Data, path string, value interface{}) string {
	clone := data.Clone()
	if clone == nil {
		clone = document.Data{}
	}

	setPath(clone, strings.Split(path, "."), value)

	result, err := r.Validate(section, clone)
	if err != nil {
		return err.Error()
	}

	return result.Errors[path]
}

// errorPath returns the dot-delimited path of the field an error is about,
// without the root element.
func errorPath(e gojsonschema.ResultError) string {
	path := ""
	if ctx := e.Context(); ctx != nil {
		path = ctx.String()
	}

	path = strings.TrimPrefix(path, contextRoot)
	path = strings.TrimPrefix(path, ".")

	if e.Type() == "required" {
		if property, ok := e.Details()["property"].(string); ok {
			if len(path) == 0 {
				path = property
			} else {
				path += "." + property
			}
		}
	}

	return path
}

// setPath sets value at the path in data, creating objects on the way.
// Numeric elements index into arrays.
func setPath(data map[string]interface{}, path []string, value interface{}) {
	if len(path) == 0 {
		return
	}

	if len(path) == 1 {
		data[path[0]] = value
		return
	}

	next := data[path[0]]

	switch v := next.(type) {
	case map[string]interface{}:
		setPath(v, path[1:], value)
		return
	case document.Data:
		setPath(v, path[1:], value)
		return
	case []interface{}:
		if i, err := strconv.Atoi(path[1]); err == nil && i >= 0 && i < len(v) {
			if len(path) == 2 {
				v[i] = value
				return
			}

			if m, ok := v[i].(map[string]interface{}); ok {
				setPath(m, path[2:], value)
			}
		}
		return
	}

	m := map[string]interface{}{}
	data[path[0]] = m

	setPath(m, path[1:], value)
}
