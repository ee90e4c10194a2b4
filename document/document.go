// Package document defines the settings document: a set of named sections,
// each holding JSON-shaped data.
package document

import (
	"fmt"
	"reflect"

	"github.com/datarhei/settings/encoding/json"
)

// Section is the name of an independently validated part of the settings.
type Section string

const (
	General       Section = "general"
	Forms         Section = "forms"
	Notifications Section = "notifications"
	Security      Section = "security"
	Appearance    Section = "appearance"
	Language      Section = "language"
)

var sections = []Section{General, Forms, Notifications, Security, Appearance, Language}

// Sections returns all known sections in their canonical order.
func Sections() []Section {
	s := make([]Section, len(sections))
	copy(s, sections)

	return s
}

// ParseSection returns the section with the given name.
func ParseSection(name string) (Section, error) {
	for _, s := range sections {
		if string(s) == name {
			return s, nil
		}
	}

	return "", fmt.Errorf("unknown section '%s'", name)
}

func (s Section) String() string {
	return string(s)
}

// IsValid returns whether the section is one of the known sections.
func (s Section) IsValid() bool {
	_, err := ParseSection(string(s))

	return err == nil
}

// Data is the content of a section. Values are JSON-shaped: maps, slices,
// float64, string, bool and nil.
type Data map[string]interface{}

// Clone returns a deep copy of the data.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}

	return cloneValue(map[string]interface{}(d)).(map[string]interface{})
}

// Document maps sections to their data. Sections that have never been
// configured are absent.
type Document map[Section]Data

// New returns an empty document.
func New() Document {
	return Document{}
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	c := make(Document, len(d))

	for s, data := range d {
		c[s] = data.Clone()
	}

	return c
}

// Equal returns whether both documents contain the same sections with
// deeply equal data.
func (d Document) Equal(other Document) bool {
	if len(d) != len(other) {
		return false
	}

	for s, data := range d {
		o, ok := other[s]
		if !ok {
			return false
		}

		if !data.Equal(o) {
			return false
		}
	}

	return true
}

// Equal returns whether both data are deeply equal. Nil and empty data
// are equal.
func (d Data) Equal(other Data) bool {
	if len(d) == 0 && len(other) == 0 {
		return true
	}

	return reflect.DeepEqual(map[string]interface{}(d), map[string]interface{}(other))
}

// Sections returns the sections present in the document in canonical order.
// Unknown sections are appended in no particular order.
func (d Document) Sections() []Section {
	present := []Section{}

	for _, s := range sections {
		if _, ok := d[s]; ok {
			present = append(present, s)
		}
	}

	for s := range d {
		if !s.IsValid() {
			present = append(present, s)
		}
	}

	return present
}

// Normalize converts arbitrary data into its JSON shape, e.g. structs become
// maps and all numbers become float64.
func Normalize(v interface{}) (Data, error) {
	if v == nil {
		return Data{}, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("section data is not serializable: %w", err)
	}

	data := Data{}

	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("section data must be an object: %w", err)
	}

	if data == nil {
		data = Data{}
	}

	return data, nil
}

// NormalizeDocument normalizes every section of the document.
func NormalizeDocument(doc Document) (Document, error) {
	n := make(Document, len(doc))

	for s, data := range doc {
		d, err := Normalize(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s, err)
		}

		n[s] = d
	}

	return n, nil
}

func cloneValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, e := range x {
			m[k] = cloneValue(e)
		}
		return m
	case Data:
		return Data(cloneValue(map[string]interface{}(x)).(map[string]interface{}))
	case []interface{}:
		s := make([]interface{}, len(x))
		for i, e := range x {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}
