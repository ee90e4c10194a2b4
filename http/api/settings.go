package api

import (
	"time"

	"github.com/datarhei/settings/backup"
	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/validate"
)

// Settings is the complete settings document, keyed by section
type Settings map[string]map[string]interface{}

func (s *Settings) Unmarshal(doc document.Document) {
	*s = Settings{}

	for section, data := range doc {
		if data == nil {
			data = document.Data{}
		}

		(*s)[section.String()] = data
	}
}

func (s Settings) Marshal() (document.Document, error) {
	doc := document.New()

	for name, data := range s {
		section, err := document.ParseSection(name)
		if err != nil {
			return nil, err
		}

		doc[section] = document.Data(data)
	}

	return document.NormalizeDocument(doc)
}

// Validation is the result of validating settings. Errors maps a field
// path to its message.
type Validation struct {
	Valid  bool              `json:"isValid" jsonschema:"required"`
	Errors map[string]string `json:"errors" jsonschema:"required"`
}

func (v *Validation) Unmarshal(r validate.Result) {
	v.Valid = r.Valid
	v.Errors = map[string]string{}

	for path, message := range r.Errors {
		v.Errors[path] = message
	}
}

// FieldValidationRequest asks for the message of a single field
type FieldValidationRequest struct {
	Path  string      `json:"path" validate:"required"`
	Value interface{} `json:"value"`
}

type FieldValidation struct {
	Path    string `json:"path"`
	Valid   bool   `json:"isValid"`
	Message string `json:"message,omitempty"`
}

// SectionStatus is the synchronization state of a section
type SectionStatus struct {
	Section string            `json:"section"`
	State   string            `json:"state" enums:"clean,dirty,saving,errored" jsonschema:"enum=clean,enum=dirty,enum=saving,enum=errored"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Status is the synchronization state of the settings
type Status struct {
	Unsaved   bool            `json:"unsaved"`
	AutoSave  bool            `json:"autosave"`
	LastSaved int64           `json:"last_saved" format:"int64"`
	CanUndo   bool            `json:"can_undo"`
	CanRedo   bool            `json:"can_redo"`
	Sections  []SectionStatus `json:"sections"`
}

type AutoSave struct {
	Enable bool `json:"enable"`
}

// Backup is a summary of a stored snapshot
type Backup struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Timestamp int64    `json:"timestamp" format:"int64"`
	Version   string   `json:"version"`
	Sections  []string `json:"sections"`
}

func (b *Backup) Unmarshal(s backup.Snapshot) {
	b.ID = s.ID
	b.Name = s.Name
	b.Timestamp = s.Timestamp.Unix()
	b.Version = s.Version
	b.Sections = []string{}

	for _, section := range s.Settings.Sections() {
		b.Sections = append(b.Sections, section.String())
	}
}

type BackupRequest struct {
	Name string `json:"name" validate:"omitempty,max=128"`
}

// Export is the exchange format of the settings
type Export struct {
	Settings Settings       `json:"settings"`
	Metadata ExportMetadata `json:"metadata"`
}

type ExportMetadata struct {
	ExportDate time.Time `json:"exportDate"`
	Version    string    `json:"version"`
	HotelName  string    `json:"hotelName"`
}
